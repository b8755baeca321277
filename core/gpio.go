package core

import "errors"

// NumPorts is the number of GPIO ports on the LPC1343
const NumPorts = 4

// portWidths is the number of pins bonded out on each port
var portWidths = [NumPorts]uint8{12, 12, 12, 6}

var (
	ErrInvalidPort = errors.New("invalid GPIO port")
	ErrInvalidPin  = errors.New("invalid GPIO pin")
)

// PortWidth returns the number of pins on port, or 0 for an invalid port
func PortWidth(port uint8) uint8 {
	if port >= NumPorts {
		return 0
	}
	return portWidths[port]
}

func checkPin(port, pin uint8) error {
	if port >= NumPorts {
		return ErrInvalidPort
	}
	if pin >= portWidths[port] {
		return ErrInvalidPin
	}
	return nil
}

// GPIO drives the four LPC1343 GPIO ports. Invalid coordinates are rejected
// before any register is touched.
type GPIO struct {
	bits *BitEngine
}

// NewGPIO creates a GPIO driver over bits
func NewGPIO(bits *BitEngine) *GPIO {
	return &GPIO{bits: bits}
}

// Init enables the GPIO and IOCON clocks
func (g *GPIO) Init() {
	g.bits.SetBit(Syscon(SYSAHBCLKCTRL), AHBGPIO)
	g.bits.SetBit(Syscon(SYSAHBCLKCTRL), AHBIOCON)
}

// EnableInterrupts enables the PIO0..PIO3 interrupts in the NVIC. Pin
// interrupt sources are still configured per port through GPIOIE.
func (g *GPIO) EnableInterrupts() {
	EnableIRQ(g.bits, IRQPIO0)
	EnableIRQ(g.bits, IRQPIO1)
	EnableIRQ(g.bits, IRQPIO2)
	EnableIRQ(g.bits, IRQPIO3)
}

// SetDirection makes pin of port an output when output is true, an input
// otherwise
func (g *GPIO) SetDirection(port, pin uint8, output bool) error {
	if err := checkPin(port, pin); err != nil {
		return err
	}
	var v uint8
	if output {
		v = 1
	}
	g.bits.WriteBit(GPIOReg(port, GPIODIR), pin, v)
	return nil
}

// Write drives pin of port. The store goes through the masked data address
// so no other pin of the port changes.
func (g *GPIO) Write(port, pin uint8, high bool) error {
	if err := checkPin(port, pin); err != nil {
		return err
	}
	mask := uint32(1) << pin
	var v uint32
	if high {
		v = mask
	}
	// GPIO sits outside the bit-band window, so WriteBit would read-modify-write.
	// The masked DATA address lets one store change only this pin.
	g.bits.Write(GPIOData(port, mask), v)
	return nil
}

// Read returns the level of pin of port
func (g *GPIO) Read(port, pin uint8) (bool, error) {
	if err := checkPin(port, pin); err != nil {
		return false, err
	}
	mask := uint32(1) << pin
	// The masked address reads only this pin, the rest read as zero
	return g.bits.Read(GPIOData(port, mask))&mask != 0, nil
}

// Pin identifies a GPIO pin as port<<4 | pin
type Pin uint8

// NewPin returns the Pin for pin of port
func NewPin(port, pin uint8) Pin {
	return Pin(port<<4 | pin&0x0F)
}

// Port returns the port number
func (p Pin) Port() uint8 { return uint8(p) >> 4 }

// Number returns the pin number within its port
func (p Pin) Number() uint8 { return uint8(p) & 0x0F }

// Valid reports whether the pin exists on the LPC1343
func (p Pin) Valid() bool {
	return checkPin(p.Port(), p.Number()) == nil
}

func (p Pin) String() string {
	return "PIO" + utoa(uint32(p.Port())) + "_" + utoa(uint32(p.Number()))
}

// ParsePin parses a pin name of the form PIO<port>_<pin>, e.g. PIO0_7
func ParsePin(s string) (Pin, error) {
	if len(s) < 6 || s[:3] != "PIO" {
		return 0, ErrInvalidPin
	}
	port := s[3]
	if port < '0' || port > '9' || s[4] != '_' {
		return 0, ErrInvalidPin
	}
	var n uint32
	for i := 5; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' || n > 100 {
			return 0, ErrInvalidPin
		}
		n = n*10 + uint32(c-'0')
	}
	if err := checkPin(port-'0', uint8(n)); err != nil {
		return 0, err
	}
	return NewPin(port-'0', uint8(n)), nil
}
