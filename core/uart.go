package core

import (
	"errors"

	"tinygo.org/x/drivers"
)

// UART line control and status bits
const (
	lcr8N1      = 0x03
	lcrDLAB     = 0x80
	fcrEnable   = 0x07 // enable and reset both FIFOs
	lsrRDR      = 1 << 0
	lsrTHRE     = 1 << 5
	uartPinFunc = 1
)

// UART pins on the LPC1343
var (
	UARTRXPin = NewPin(1, 6)
	UARTTXPin = NewPin(1, 7)
)

var ErrInvalidBaud = errors.New("baud rate not reachable from the main clock")

// UART is a polled driver for the LPC1343 UART
type UART struct {
	bits  *BitEngine
	wait  Waiter
	clock ClockState
	baud  uint32
}

var _ drivers.UART = (*UART)(nil)

// NewUART creates a UART driver. Configure fails with ErrClockGated until
// SetClock supplies a running clock.
func NewUART(bits *BitEngine, wait Waiter) *UART {
	return &UART{bits: bits, wait: wait}
}

// SetClock records the clock state the baud divisor is derived from
func (u *UART) SetClock(state ClockState) {
	u.clock = state
}

// Divisor returns the divisor latch value for baud at the current main clock
func (u *UART) Divisor(baud uint32) (uint32, error) {
	if !u.clock.Valid() {
		return 0, ErrClockGated
	}
	if baud == 0 {
		return 0, ErrInvalidBaud
	}
	div := u.clock.MainHz / (16 * baud)
	if div == 0 || div > 0xFFFF {
		return 0, ErrInvalidBaud
	}
	return div, nil
}

// Configure routes RXD/TXD, enables the UART clock and sets baud, 8N1
func (u *UART) Configure(baud uint32) error {
	div, err := u.Divisor(baud)
	if err != nil {
		return err
	}
	if err := SetPinFunction(u.bits, UARTRXPin, uartPinFunc, PullNone); err != nil {
		return err
	}
	if err := SetPinFunction(u.bits, UARTTXPin, uartPinFunc, PullNone); err != nil {
		return err
	}
	u.bits.SetBit(Syscon(SYSAHBCLKCTRL), AHBUART)
	u.bits.Write(Syscon(UARTCLKDIV), 1)

	u.bits.Write(UARTReg(UARTLCR), lcr8N1|lcrDLAB)
	u.bits.Write(UARTReg(UARTDLL), div&0xFF)
	u.bits.Write(UARTReg(UARTDLM), div>>8)
	u.bits.Write(UARTReg(UARTLCR), lcr8N1)
	u.bits.Write(UARTReg(UARTFCR), fcrEnable)
	u.baud = baud
	return nil
}

// Baud returns the configured baud rate, or 0 before Configure
func (u *UART) Baud() uint32 {
	return u.baud
}

// Buffered returns 1 when a received byte is waiting. The LSR only exposes
// data-ready, not the FIFO fill level.
func (u *UART) Buffered() int {
	if u.bits.Read(UARTReg(UARTLSR))&lsrRDR != 0 {
		return 1
	}
	return 0
}

// Read copies received bytes into p without blocking
func (u *UART) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && u.bits.Read(UARTReg(UARTLSR))&lsrRDR != 0 {
		p[n] = byte(u.bits.Read(UARTReg(UARTRBR)))
		n++
	}
	return n, nil
}

// WriteByte transmits c once the holding register is empty
func (u *UART) WriteByte(c byte) error {
	err := u.wait.Until("UART transmit", func() bool {
		return u.bits.Read(UARTReg(UARTLSR))&lsrTHRE != 0
	})
	if err != nil {
		return err
	}
	u.bits.Write(UARTReg(UARTTHR), uint32(c))
	return nil
}

// Write transmits p
func (u *UART) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := u.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}
