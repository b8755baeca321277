package protocol

import (
	"tinygo.org/x/drivers"

	"lpchal/core"
)

// Monitor serves register requests arriving on a UART. It runs on the
// device: every reg_read and reg_write is one word access on bus.
type Monitor struct {
	uart  drivers.UART
	bus   core.Bus
	clock func() uint32

	rx   *FifoBuffer
	scan Scanner
	buf  [32]byte
	out  ScratchOutput
	resp ScratchOutput

	frames    uint32
	errors    uint32
	faults    uint32
	lastFault error
}

// NewMonitor creates a monitor. clock reports the current system clock for
// identify and get_clock.
func NewMonitor(uart drivers.UART, bus core.Bus, clock func() uint32) *Monitor {
	return &Monitor{
		uart:  uart,
		bus:   bus,
		clock: clock,
		rx:    NewFifoBuffer(2 * MessageMax),
	}
}

// Poll drains the UART, answers every complete frame and returns. It never
// blocks waiting for input.
func (m *Monitor) Poll() error {
	for m.uart.Buffered() > 0 && m.rx.Free() > 0 {
		limit := len(m.buf)
		if free := m.rx.Free(); free < limit {
			limit = free
		}
		n, err := m.uart.Read(m.buf[:limit])
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		m.rx.Write(m.buf[:n])
	}

	for {
		data := m.rx.Data()
		frame, consumed, ok := m.scan.Scan(data)
		if !ok {
			m.rx.Pop(consumed)
			if m.rx.Free() == 0 {
				// A full ring with no frame is noise
				m.rx.Reset()
			}
			return nil
		}
		err := m.Handle(frame)
		m.rx.Pop(consumed)
		if err != nil {
			return err
		}
	}
}

// Run polls forever. There is no caller to hand a Poll error to, so each one
// is counted and kept for Faults and LastFault, and serving carries on.
func (m *Monitor) Run() {
	for {
		m.step()
	}
}

func (m *Monitor) step() {
	if err := m.Poll(); err != nil {
		m.faults++
		m.lastFault = err
	}
}

// Handle executes one request frame and writes the reply
func (m *Monitor) Handle(f Frame) error {
	m.frames++
	resp := m.execute(f.Payload)
	if resp.Kind == RespError {
		m.errors++
	}

	m.resp.Reset()
	resp.Encode(&m.resp)
	m.out.Reset()
	if err := EncodeFrame(&m.out, f.Seq, m.resp.Result()); err != nil {
		return err
	}
	_, err := m.uart.Write(m.out.Result())
	return err
}

func (m *Monitor) execute(payload []byte) Response {
	req, err := DecodeRequest(payload)
	if err == ErrUnknownMessage {
		return Response{Kind: RespError, Code: ErrCodeUnknownCommand}
	}
	if err != nil {
		return Response{Kind: RespError, Code: ErrCodeMalformed}
	}

	switch req.Cmd {
	case CmdIdentify:
		return Response{Kind: RespIdentify, Version: Version, Value: m.clock()}
	case CmdGetClock:
		return Response{Kind: RespClock, Value: m.clock()}
	case CmdRegRead:
		if req.Addr&3 != 0 {
			return Response{Kind: RespError, Code: ErrCodeUnaligned}
		}
		return Response{Kind: RespRegValue, Addr: req.Addr, Value: m.bus.Load(req.Addr)}
	default: // CmdRegWrite
		if req.Addr&3 != 0 {
			return Response{Kind: RespError, Code: ErrCodeUnaligned}
		}
		m.bus.Store(req.Addr, req.Value)
		return Response{Kind: RespRegWritten, Addr: req.Addr}
	}
}

// Frames returns the number of request frames handled
func (m *Monitor) Frames() uint32 {
	return m.frames
}

// Errors returns the number of requests answered with an error
func (m *Monitor) Errors() uint32 {
	return m.errors
}

// Faults returns the number of Poll errors Run has absorbed
func (m *Monitor) Faults() uint32 {
	return m.faults
}

// LastFault returns the most recent Poll error Run absorbed, or nil
func (m *Monitor) LastFault() error {
	return m.lastFault
}

// Dropped returns the number of noise bytes discarded
func (m *Monitor) Dropped() int {
	return m.scan.Dropped()
}
