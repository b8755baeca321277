package protocol

import (
	"bytes"
	"errors"
)

var (
	ErrIncomplete    = errors.New("incomplete frame")
	ErrFrameLength   = errors.New("bad frame length")
	ErrFrameSequence = errors.New("bad frame sequence")
	ErrFrameSync     = errors.New("missing frame sync byte")
	ErrFrameCRC      = errors.New("frame CRC mismatch")
	ErrFrameTooLong  = errors.New("payload too long for a frame")
)

// Frame is one decoded message block
type Frame struct {
	Seq     uint8
	Payload []byte
}

// EncodeFrame writes payload as a complete frame with sequence seq
func EncodeFrame(out OutputBuffer, seq uint8, payload []byte) error {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageMax {
		return ErrFrameTooLong
	}
	cursor := out.CurPosition()
	out.Output([]byte{uint8(n), seq})
	out.Output(payload)
	crc := CRC16(out.DataSince(cursor))
	out.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
	return nil
}

// DecodeFrame decodes the frame at the start of data and returns it with the
// number of bytes it occupies. ErrIncomplete means data is a valid prefix.
// The payload aliases data.
func DecodeFrame(data []byte) (Frame, int, error) {
	if len(data) == 0 {
		return Frame{}, 0, ErrIncomplete
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageMax {
		return Frame{}, 0, ErrFrameLength
	}
	if len(data) < MessageHeaderSize {
		return Frame{}, 0, ErrIncomplete
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Frame{}, 0, ErrFrameSequence
	}
	if len(data) < n {
		return Frame{}, 0, ErrIncomplete
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return Frame{}, 0, ErrFrameSync
	}
	want := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if CRC16(data[:n-MessageTrailerSize]) != want {
		return Frame{}, 0, ErrFrameCRC
	}
	return Frame{Seq: seq, Payload: data[MessageHeaderSize : n-MessageTrailerSize]}, n, nil
}

// Scanner pulls frames out of a byte stream. After a corrupt frame it drops
// input up to the next sync byte and carries on from there.
type Scanner struct {
	lost    bool
	dropped int
}

// Scan returns the next frame in data and how many bytes of data it used,
// including discarded noise. ok is false when no complete frame is left;
// consumed then covers only bytes that can never start a frame.
func (s *Scanner) Scan(data []byte) (f Frame, consumed int, ok bool) {
	for consumed < len(data) {
		rest := data[consumed:]
		if s.lost {
			i := bytes.IndexByte(rest, MessageValueSync)
			if i < 0 {
				s.dropped += len(rest)
				return Frame{}, len(data), false
			}
			s.dropped += i + 1
			consumed += i + 1
			s.lost = false
			continue
		}
		if rest[0] == MessageValueSync {
			consumed++
			continue
		}
		frame, n, err := DecodeFrame(rest)
		if err == nil {
			return frame, consumed + n, true
		}
		if errors.Is(err, ErrIncomplete) {
			return Frame{}, consumed, false
		}
		s.lost = true
	}
	return Frame{}, consumed, false
}

// Dropped returns the number of bytes discarded while resynchronising
func (s *Scanner) Dropped() int {
	return s.dropped
}

// Reset clears the resynchronisation state
func (s *Scanner) Reset() {
	s.lost = false
	s.dropped = 0
}
