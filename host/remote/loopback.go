package remote

import (
	"net"
	"sync"

	"tinygo.org/x/drivers"

	"lpchal/core"
	"lpchal/protocol"
)

// pipeUART is the device end of a loopback link. A reader goroutine fills
// rx so Buffered works the way it does on a real UART.
type pipeUART struct {
	conn net.Conn

	mu     sync.Mutex
	rx     []byte
	closed bool
	notify chan struct{}
}

var _ drivers.UART = (*pipeUART)(nil)

func (u *pipeUART) fill() {
	buf := make([]byte, 64)
	for {
		n, err := u.conn.Read(buf)
		u.mu.Lock()
		u.rx = append(u.rx, buf[:n]...)
		if err != nil {
			u.closed = true
		}
		u.mu.Unlock()
		select {
		case u.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

func (u *pipeUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rx)
}

func (u *pipeUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *pipeUART) Write(p []byte) (int, error) {
	return u.conn.Write(p)
}

func (u *pipeUART) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed && len(u.rx) == 0
}

// Loopback runs a protocol.Monitor on bus behind an in-memory link and
// returns the host end. The monitor goroutine exits when the host end is
// closed. bus is only touched from that goroutine.
func Loopback(bus core.Bus, clock func() uint32) net.Conn {
	host, device := net.Pipe()
	uart := &pipeUART{conn: device, notify: make(chan struct{}, 1)}
	mon := protocol.NewMonitor(uart, bus, clock)

	go uart.fill()
	go func() {
		defer device.Close()
		for !uart.isClosed() {
			if err := mon.Poll(); err != nil {
				return
			}
			if uart.Buffered() == 0 {
				<-uart.notify
			}
		}
	}()
	return host
}
