package protocol

import (
	"errors"
	"testing"
)

func encodeTestFrame(t *testing.T, seq uint8, payload []byte) []byte {
	t.Helper()
	out := NewScratchOutput()
	if err := EncodeFrame(out, seq, payload); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	return append([]byte(nil), out.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	frame := encodeTestFrame(t, 0x13, []byte{0x02, 0x05})

	if len(frame) != 7 {
		t.Fatalf("Expected 7 bytes, got %d", len(frame))
	}
	if frame[0] != 7 || frame[1] != 0x13 {
		t.Errorf("Bad header % X", frame[:2])
	}
	crc := CRC16(frame[:4])
	if frame[4] != byte(crc>>8) || frame[5] != byte(crc) {
		t.Errorf("Bad CRC % X, expected 0x%04X", frame[4:6], crc)
	}
	if frame[6] != MessageValueSync {
		t.Errorf("Expected trailing sync, got 0x%02X", frame[6])
	}

	if err := EncodeFrame(NewScratchOutput(), 0x10, make([]byte, MessageMax)); !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	frame := encodeTestFrame(t, 0x1F, []byte{0x01})

	got, n, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if n != len(frame) || got.Seq != 0x1F || len(got.Payload) != 1 || got.Payload[0] != 0x01 {
		t.Errorf("Unexpected frame %+v (%d bytes)", got, n)
	}

	corrupt := func(i int, v byte) []byte {
		c := append([]byte(nil), frame...)
		c[i] = v
		return c
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrIncomplete},
		{"prefix", frame[:3], ErrIncomplete},
		{"length too small", corrupt(0, 2), ErrFrameLength},
		{"length too big", corrupt(0, 200), ErrFrameLength},
		{"sequence", corrupt(1, 0x20), ErrFrameSequence},
		{"sync", corrupt(len(frame)-1, 0x00), ErrFrameSync},
		{"crc", corrupt(2, 0x02), ErrFrameCRC},
	}
	for _, tt := range tests {
		if _, _, err := DecodeFrame(tt.data); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestScannerResynchronises(t *testing.T) {
	good1 := encodeTestFrame(t, 0x10, []byte{0x01})
	good2 := encodeTestFrame(t, 0x11, []byte{0x04})
	bad := append([]byte(nil), good1...)
	bad[2] ^= 0xFF

	var stream []byte
	stream = append(stream, 0x7E, 0x7E)
	stream = append(stream, bad...)
	stream = append(stream, 0x33, 0x44)
	stream = append(stream, MessageValueSync)
	stream = append(stream, good2...)
	stream = append(stream, good1[:4]...)

	var s Scanner
	f, consumed, ok := s.Scan(stream)
	if !ok {
		t.Fatal("Expected a frame after resync")
	}
	if f.Seq != 0x11 || f.Payload[0] != 0x04 {
		t.Errorf("Expected the second frame, got %+v", f)
	}
	// The bad frame through its own sync byte, then 0x33 0x44 and the sync
	if s.Dropped() != len(bad)+3 {
		t.Errorf("Expected %d bytes dropped, got %d", len(bad)+3, s.Dropped())
	}

	rest := stream[consumed:]
	if _, used, ok := s.Scan(rest); ok || used != 0 {
		t.Errorf("Expected to wait on a partial frame, got ok=%v used=%d", ok, used)
	}
}

func TestScannerSkipsNoiseWithoutSync(t *testing.T) {
	var s Scanner
	noise := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	_, consumed, ok := s.Scan(noise)
	if ok {
		t.Fatal("Found a frame in noise")
	}
	if consumed != len(noise) {
		t.Errorf("Expected all noise consumed, got %d", consumed)
	}

	frame := encodeTestFrame(t, 0x12, []byte{0x01})
	f, _, ok := s.Scan(append([]byte{MessageValueSync}, frame...))
	if !ok || f.Seq != 0x12 {
		t.Errorf("Expected recovery on the next sync, got ok=%v %+v", ok, f)
	}
}

func TestNextSequence(t *testing.T) {
	if got := NextSequence(0x10); got != 0x11 {
		t.Errorf("Expected 0x11, got 0x%02X", got)
	}
	if got := NextSequence(0x1F); got != 0x10 {
		t.Errorf("Expected wrap to 0x10, got 0x%02X", got)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	requests := []Request{
		{Cmd: CmdIdentify},
		{Cmd: CmdGetClock},
		{Cmd: CmdRegRead, Addr: 0x40048238},
		{Cmd: CmdRegWrite, Addr: 0x42904714, Value: 1},
	}
	for _, req := range requests {
		out := NewScratchOutput()
		req.Encode(out)
		got, err := DecodeRequest(out.Result())
		if err != nil || got != req {
			t.Errorf("Request %+v: got %+v (%v)", req, got, err)
		}
	}

	responses := []Response{
		{Kind: RespIdentify, Version: Version, Value: 72000000},
		{Kind: RespRegValue, Addr: 0x40048238, Value: 0xED50},
		{Kind: RespRegWritten, Addr: 0x50000200},
		{Kind: RespClock, Value: 12000000},
		{Kind: RespError, Code: ErrCodeUnaligned},
	}
	for _, resp := range responses {
		out := NewScratchOutput()
		resp.Encode(out)
		got, err := DecodeResponse(out.Result())
		if err != nil || got != resp {
			t.Errorf("Response %+v: got %+v (%v)", resp, got, err)
		}
	}

	if _, err := DecodeRequest([]byte{0x30}); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("Expected ErrUnknownMessage, got %v", err)
	}
	if _, err := DecodeRequest([]byte{CmdRegWrite, 0x05}); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}
