package core

// GPIODriver is the pin-level GPIO interface board code and tools use.
// PinDriver implements it for the LPC1343.
type GPIODriver interface {
	// ConfigureOutput routes pin to GPIO and makes it an output
	ConfigureOutput(pin Pin) error

	// ConfigureInputPullUp makes pin an input with the pull-up enabled
	ConfigureInputPullUp(pin Pin) error

	// ConfigureInputPullDown makes pin an input with the pull-down enabled
	ConfigureInputPullDown(pin Pin) error

	// Set drives pin high (true) or low (false)
	Set(pin Pin, value bool) error

	// Get reads the current pin level
	Get(pin Pin) (bool, error)
}

// PinDriver combines IOCON routing with GPIO access per Pin
type PinDriver struct {
	gpio *GPIO
}

var _ GPIODriver = (*PinDriver)(nil)

// NewPinDriver creates a pin driver over gpio
func NewPinDriver(gpio *GPIO) *PinDriver {
	return &PinDriver{gpio: gpio}
}

func (d *PinDriver) configure(pin Pin, mode PullMode, output bool) error {
	if err := ConfigurePin(d.gpio.bits, pin, mode); err != nil {
		return err
	}
	return d.gpio.SetDirection(pin.Port(), pin.Number(), output)
}

func (d *PinDriver) ConfigureOutput(pin Pin) error {
	return d.configure(pin, PullNone, true)
}

func (d *PinDriver) ConfigureInputPullUp(pin Pin) error {
	return d.configure(pin, PullUp, false)
}

func (d *PinDriver) ConfigureInputPullDown(pin Pin) error {
	return d.configure(pin, PullDown, false)
}

func (d *PinDriver) Set(pin Pin, value bool) error {
	return d.gpio.Write(pin.Port(), pin.Number(), value)
}

func (d *PinDriver) Get(pin Pin) (bool, error) {
	return d.gpio.Read(pin.Port(), pin.Number())
}

// Toggle inverts an output pin
func (d *PinDriver) Toggle(pin Pin) error {
	v, err := d.Get(pin)
	if err != nil {
		return err
	}
	return d.Set(pin, !v)
}
