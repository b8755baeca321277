package protocol

import (
	"errors"
	"testing"

	"lpchal/core"
	"lpchal/sim"
)

// fakeUART is an in-memory drivers.UART
type fakeUART struct {
	rx       []byte
	tx       []byte
	writeErr error
}

func (u *fakeUART) Read(p []byte) (int, error) {
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *fakeUART) Write(p []byte) (int, error) {
	if u.writeErr != nil {
		return 0, u.writeErr
	}
	u.tx = append(u.tx, p...)
	return len(p), nil
}

func (u *fakeUART) Buffered() int {
	return len(u.rx)
}

func (u *fakeUART) send(t *testing.T, seq uint8, req Request) {
	t.Helper()
	payload := NewScratchOutput()
	req.Encode(payload)
	frame := NewScratchOutput()
	if err := EncodeFrame(frame, seq, payload.Result()); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	u.rx = append(u.rx, frame.Result()...)
}

// replies decodes every frame the monitor transmitted
func (u *fakeUART) replies(t *testing.T) []struct {
	seq  uint8
	resp Response
} {
	t.Helper()
	var out []struct {
		seq  uint8
		resp Response
	}
	var s Scanner
	data := u.tx
	for {
		f, n, ok := s.Scan(data)
		if !ok {
			break
		}
		resp, err := DecodeResponse(f.Payload)
		if err != nil {
			t.Fatalf("Bad response payload: %v", err)
		}
		out = append(out, struct {
			seq  uint8
			resp Response
		}{f.Seq, resp})
		data = data[n:]
	}
	u.tx = nil
	return out
}

func newTestMonitor() (*Monitor, *fakeUART, *sim.LPC1343) {
	chip := sim.NewLPC1343()
	uart := &fakeUART{}
	mon := NewMonitor(uart, chip, func() uint32 { return 72000000 })
	return mon, uart, chip
}

func TestMonitorIdentify(t *testing.T) {
	mon, uart, _ := newTestMonitor()
	uart.send(t, 0x10, Request{Cmd: CmdIdentify})
	uart.send(t, 0x11, Request{Cmd: CmdGetClock})

	if err := mon.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	replies := uart.replies(t)
	if len(replies) != 2 {
		t.Fatalf("Expected 2 replies, got %d", len(replies))
	}
	if replies[0].seq != 0x10 || replies[0].resp.Kind != RespIdentify || replies[0].resp.Version != Version || replies[0].resp.Value != 72000000 {
		t.Errorf("Unexpected identify reply %+v", replies[0])
	}
	if replies[1].seq != 0x11 || replies[1].resp.Kind != RespClock || replies[1].resp.Value != 72000000 {
		t.Errorf("Unexpected clock reply %+v", replies[1])
	}
	if mon.Frames() != 2 {
		t.Errorf("Expected 2 frames handled, got %d", mon.Frames())
	}
}

func TestMonitorRegisterAccess(t *testing.T) {
	mon, uart, chip := newTestMonitor()
	pd := core.Syscon(core.PDRUNCFG)

	uart.send(t, 0x10, Request{Cmd: CmdRegRead, Addr: pd})
	uart.send(t, 0x11, Request{Cmd: CmdRegWrite, Addr: core.AliasAddress(pd, 5), Value: 0})
	uart.send(t, 0x12, Request{Cmd: CmdRegRead, Addr: pd})
	mon.Poll()

	replies := uart.replies(t)
	if len(replies) != 3 {
		t.Fatalf("Expected 3 replies, got %d", len(replies))
	}
	if r := replies[0].resp; r.Kind != RespRegValue || r.Addr != pd || r.Value != sim.ResetPDRUNCFG {
		t.Errorf("Unexpected first read %+v", r)
	}
	if r := replies[1].resp; r.Kind != RespRegWritten || r.Addr != core.AliasAddress(pd, 5) {
		t.Errorf("Unexpected write reply %+v", r)
	}
	if r := replies[2].resp; r.Value != sim.ResetPDRUNCFG&^(1<<5) {
		t.Errorf("Expected bit 5 cleared through the alias word, got 0x%X", r.Value)
	}
	if v := chip.Peek(pd); v != sim.ResetPDRUNCFG&^(1<<5) {
		t.Errorf("Chip PDRUNCFG 0x%X", v)
	}
}

func TestMonitorErrors(t *testing.T) {
	mon, uart, chip := newTestMonitor()
	chip.ResetTrace()

	uart.send(t, 0x10, Request{Cmd: CmdRegRead, Addr: 0x40048002})
	uart.send(t, 0x11, Request{Cmd: CmdRegWrite, Addr: 0x40048003, Value: 1})
	frame := NewScratchOutput()
	EncodeFrame(frame, 0x12, []byte{0x30})
	uart.rx = append(uart.rx, frame.Result()...)
	frame.Reset()
	EncodeFrame(frame, 0x13, []byte{CmdRegRead})
	uart.rx = append(uart.rx, frame.Result()...)
	mon.Poll()

	want := []ErrorCode{ErrCodeUnaligned, ErrCodeUnaligned, ErrCodeUnknownCommand, ErrCodeMalformed}
	replies := uart.replies(t)
	if len(replies) != len(want) {
		t.Fatalf("Expected %d replies, got %d", len(want), len(replies))
	}
	for i, code := range want {
		if replies[i].resp.Kind != RespError || replies[i].resp.Code != code {
			t.Errorf("Reply %d: expected %v, got %+v", i, code, replies[i].resp)
		}
	}
	if mon.Errors() != 4 {
		t.Errorf("Expected 4 errors counted, got %d", mon.Errors())
	}
	if n := len(chip.Trace()); n != 0 {
		t.Errorf("Rejected requests reached the bus (%d accesses)", n)
	}
}

func TestMonitorPartialAndNoisyInput(t *testing.T) {
	mon, uart, _ := newTestMonitor()

	uart.rx = append(uart.rx, 0x99, 0x98, 0x97, MessageValueSync)
	uart.send(t, 0x14, Request{Cmd: CmdGetClock})
	full := uart.rx
	uart.rx = full[:7]
	mon.Poll()
	if got := uart.replies(t); len(got) != 0 {
		t.Fatalf("Replied to a partial frame: %+v", got)
	}

	uart.rx = full[7:]
	mon.Poll()
	replies := uart.replies(t)
	if len(replies) != 1 || replies[0].seq != 0x14 || replies[0].resp.Kind != RespClock {
		t.Errorf("Expected one clock reply, got %+v", replies)
	}
	if mon.Dropped() != 4 {
		t.Errorf("Expected 4 noise bytes dropped, got %d", mon.Dropped())
	}
}

func TestMonitorRunCountsPollErrors(t *testing.T) {
	chip := sim.NewLPC1343()
	uart := &fakeUART{writeErr: errors.New("tx overrun")}
	m := NewMonitor(uart, chip, func() uint32 { return 72000000 })

	uart.send(t, 0x10, Request{Cmd: CmdGetClock})
	uart.send(t, 0x11, Request{Cmd: CmdGetClock})
	m.step()
	m.step()
	if m.Faults() != 2 {
		t.Errorf("Expected 2 faults, got %d", m.Faults())
	}
	if err := m.LastFault(); err == nil || err.Error() != "tx overrun" {
		t.Errorf("Expected the UART error kept, got %v", err)
	}

	// Serving carries on once the UART recovers
	uart.writeErr = nil
	uart.send(t, 0x12, Request{Cmd: CmdGetClock})
	m.step()
	if m.Faults() != 2 {
		t.Errorf("Expected no new fault, got %d", m.Faults())
	}
	replies := uart.replies(t)
	if len(replies) != 1 || replies[0].seq != 0x12 {
		t.Errorf("Expected one reply to seq 0x12, got %+v", replies)
	}
}
