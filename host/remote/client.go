// Package remote talks to the monitor firmware over a serial link and
// exposes the target's registers as a core.Bus.
package remote

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"lpchal/host/serial"
	"lpchal/protocol"
)

// DefaultTimeout bounds each request round trip
const DefaultTimeout = time.Second

var (
	ErrTimeout            = errors.New("monitor did not answer")
	ErrClosed             = errors.New("monitor link closed")
	ErrUnexpectedResponse = errors.New("unexpected monitor response")
)

// RemoteError is an error response from the monitor
type RemoteError struct {
	Cmd  uint32
	Code protocol.ErrorCode
}

func (e *RemoteError) Error() string {
	return "monitor rejected command " + cmdName(e.Cmd) + ": " + e.Code.String()
}

// Client issues monitor requests one at a time and matches each reply by
// sequence number. Replies for earlier, timed-out requests are discarded.
type Client struct {
	rw      io.ReadWriteCloser
	timeout time.Duration

	mu  sync.Mutex
	seq uint8

	frames  chan protocol.Frame
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	readErr error
	dropped atomic.Int64
}

// NewClient starts a client on an open link
func NewClient(rw io.ReadWriteCloser, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		rw:      rw,
		timeout: timeout,
		seq:     protocol.MessageDest | protocol.MessageSeqMask,
		frames:  make(chan protocol.Frame, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Dial opens the serial device in cfg and starts a client on it
func Dial(cfg *serial.Config, timeout time.Duration) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return NewClient(port, timeout), nil
}

// readLoop reads from the link and hands complete frames to the waiting
// request
func (c *Client) readLoop() {
	defer close(c.done)

	fifo := protocol.NewFifoBuffer(4 * protocol.MessageMax)
	var scan protocol.Scanner
	buf := make([]byte, 256)

	for {
		n, err := c.rw.Read(buf)
		if err != nil {
			c.readErr = err
			return
		}

		data := buf[:n]
		for len(data) > 0 {
			w := fifo.Write(data)
			data = data[w:]
			ok := c.drain(fifo, &scan)
			c.dropped.Store(int64(scan.Dropped()))
			if !ok {
				return
			}
			if w == 0 && fifo.Free() == 0 {
				fifo.Reset()
			}
		}
	}
}

// drain delivers every complete frame in fifo. It returns false once the
// client is stopped.
func (c *Client) drain(fifo *protocol.FifoBuffer, scan *protocol.Scanner) bool {
	for {
		frame, consumed, ok := scan.Scan(fifo.Data())
		if !ok {
			fifo.Pop(consumed)
			return true
		}
		// The payload points into the ring
		frame.Payload = append([]byte(nil), frame.Payload...)
		fifo.Pop(consumed)

		select {
		case c.frames <- frame:
		case <-c.stop:
			return false
		}
	}
}

// roundTrip sends req and waits for the reply carrying its sequence number
func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return protocol.Response{}, c.closedErr()
	default:
	}

	c.seq = protocol.NextSequence(c.seq)
	seq := c.seq

	payload := protocol.NewScratchOutput()
	req.Encode(payload)
	out := protocol.NewScratchOutput()
	if err := protocol.EncodeFrame(out, seq, payload.Result()); err != nil {
		return protocol.Response{}, errors.Wrapf(err, "encode %s", cmdName(req.Cmd))
	}
	if _, err := c.rw.Write(out.Result()); err != nil {
		return protocol.Response{}, errors.Wrapf(err, "send %s", cmdName(req.Cmd))
	}

	deadline := time.After(c.timeout)
	for {
		select {
		case frame := <-c.frames:
			if frame.Seq != seq {
				continue
			}
			resp, err := protocol.DecodeResponse(frame.Payload)
			if err != nil {
				return resp, errors.Wrapf(err, "decode reply to %s", cmdName(req.Cmd))
			}
			if resp.Kind == protocol.RespError {
				return resp, &RemoteError{Cmd: req.Cmd, Code: resp.Code}
			}
			return resp, nil
		case <-c.done:
			return protocol.Response{}, c.closedErr()
		case <-deadline:
			return protocol.Response{}, errors.Wrapf(ErrTimeout, "%s after %v", cmdName(req.Cmd), c.timeout)
		}
	}
}

func (c *Client) closedErr() error {
	if c.readErr != nil && c.readErr != io.EOF {
		return errors.Wrap(ErrClosed, c.readErr.Error())
	}
	return ErrClosed
}

// Identify returns the firmware protocol version and its system clock
func (c *Client) Identify() (string, uint32, error) {
	resp, err := c.roundTrip(protocol.Request{Cmd: protocol.CmdIdentify})
	if err != nil {
		return "", 0, err
	}
	if resp.Kind != protocol.RespIdentify {
		return "", 0, errors.Wrapf(ErrUnexpectedResponse, "identify answered with %#x", resp.Kind)
	}
	return resp.Version, resp.Value, nil
}

// Clock returns the target's current system clock in Hz
func (c *Client) Clock() (uint32, error) {
	resp, err := c.roundTrip(protocol.Request{Cmd: protocol.CmdGetClock})
	if err != nil {
		return 0, err
	}
	if resp.Kind != protocol.RespClock {
		return 0, errors.Wrapf(ErrUnexpectedResponse, "get_clock answered with %#x", resp.Kind)
	}
	return resp.Value, nil
}

// ReadReg reads one word on the target
func (c *Client) ReadReg(addr uint32) (uint32, error) {
	resp, err := c.roundTrip(protocol.Request{Cmd: protocol.CmdRegRead, Addr: addr})
	if err != nil {
		return 0, err
	}
	if resp.Kind != protocol.RespRegValue || resp.Addr != addr {
		return 0, errors.Wrapf(ErrUnexpectedResponse, "reg_read %#08x answered with %#x for %#08x", addr, resp.Kind, resp.Addr)
	}
	return resp.Value, nil
}

// WriteReg writes one word on the target
func (c *Client) WriteReg(addr uint32, value uint32) error {
	resp, err := c.roundTrip(protocol.Request{Cmd: protocol.CmdRegWrite, Addr: addr, Value: value})
	if err != nil {
		return err
	}
	if resp.Kind != protocol.RespRegWritten || resp.Addr != addr {
		return errors.Wrapf(ErrUnexpectedResponse, "reg_write %#08x answered with %#x for %#08x", addr, resp.Kind, resp.Addr)
	}
	return nil
}

// Dropped returns the number of noise bytes discarded from the link so far
func (c *Client) Dropped() int {
	return int(c.dropped.Load())
}

// Close stops the reader and closes the link
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		err = c.rw.Close()
		<-c.done
	})
	return err
}

func cmdName(cmd uint32) string {
	switch cmd {
	case protocol.CmdIdentify:
		return "identify"
	case protocol.CmdRegRead:
		return "reg_read"
	case protocol.CmdRegWrite:
		return "reg_write"
	case protocol.CmdGetClock:
		return "get_clock"
	default:
		return fmt.Sprintf("command %#x", cmd)
	}
}
