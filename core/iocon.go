package core

// PullMode is the IOCON MODE field
type PullMode uint8

const (
	PullNone     PullMode = 0
	PullDown     PullMode = 1
	PullUp       PullMode = 2
	PullRepeater PullMode = 3
)

// IOCON register layout
const (
	ioconFuncMask  = 0x07
	ioconModeShift = 3
	ioconDigital   = 0xC0 // ADMODE digital plus the reserved bits that read as 1
)

type ioconEntry struct {
	offset   uint16
	gpioFunc uint8 // FUNC value that selects GPIO
}

// ioconPins maps each pin to its IOCON register. The IOCON block is not laid
// out in pin order, and pins shared with RESET, SWD or the ADC (R_ pins) need
// function 1 for GPIO.
var ioconPins = [NumPorts][]ioconEntry{
	{ // PIO0
		{0x0C, 1}, {0x10, 0}, {0x1C, 0}, {0x2C, 0}, {0x30, 0}, {0x34, 0},
		{0x4C, 0}, {0x50, 0}, {0x60, 0}, {0x64, 0}, {0x68, 1}, {0x74, 1},
	},
	{ // PIO1
		{0x78, 1}, {0x7C, 1}, {0x80, 1}, {0x90, 1}, {0x94, 0}, {0xA0, 0},
		{0xA4, 0}, {0xA8, 0}, {0x14, 0}, {0x38, 0}, {0x6C, 0}, {0x98, 0},
	},
	{ // PIO2
		{0x08, 0}, {0x28, 0}, {0x5C, 0}, {0x8C, 0}, {0x40, 0}, {0x44, 0},
		{0x00, 0}, {0x20, 0}, {0x24, 0}, {0x54, 0}, {0x58, 0}, {0x70, 0},
	},
	{ // PIO3
		{0x84, 0}, {0x88, 0}, {0x9C, 0}, {0xAC, 0}, {0x3C, 0}, {0x48, 0},
	},
}

// IOCONAddress returns the IOCON register of pin
func IOCONAddress(pin Pin) (uint32, error) {
	if err := checkPin(pin.Port(), pin.Number()); err != nil {
		return 0, err
	}
	return IOCON(uint32(ioconPins[pin.Port()][pin.Number()].offset)), nil
}

// IOCONValue returns the IOCON word for function fn with pull mode
func IOCONValue(fn uint8, mode PullMode) uint32 {
	return ioconDigital | uint32(mode&3)<<ioconModeShift | uint32(fn)&ioconFuncMask
}

// ConfigurePin routes pin to its GPIO function with the given pull mode
func ConfigurePin(bits *BitEngine, pin Pin, mode PullMode) error {
	addr, err := IOCONAddress(pin)
	if err != nil {
		return err
	}
	bits.Write(addr, IOCONValue(ioconPins[pin.Port()][pin.Number()].gpioFunc, mode))
	return nil
}

// SetPinFunction routes pin to peripheral function fn
func SetPinFunction(bits *BitEngine, pin Pin, fn uint8, mode PullMode) error {
	addr, err := IOCONAddress(pin)
	if err != nil {
		return err
	}
	bits.Write(addr, IOCONValue(fn, mode))
	return nil
}
