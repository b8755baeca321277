package core

// Board ties the LPC1343 drivers to one bus and one clock state. It is the
// entry point for firmware and host tools alike.
type Board struct {
	bits  *BitEngine
	wait  Waiter
	clock ClockState

	gpio  *GPIO
	pins  *PinDriver
	timer *Timer32
	uart  *UART
}

// Option configures a Board
type Option func(*Board)

// WithWaiter sets the policy for every hardware wait. The default is Forever.
func WithWaiter(w Waiter) Option {
	return func(b *Board) {
		b.wait = w
	}
}

// NewBoard creates a board over bus
func NewBoard(bus Bus, opts ...Option) *Board {
	b := &Board{
		bits: NewBitEngine(bus),
		wait: Forever{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.gpio = NewGPIO(b.bits)
	b.pins = NewPinDriver(b.gpio)
	b.timer = NewTimer32(b.bits, b.wait)
	b.uart = NewUART(b.bits, b.wait)
	return b
}

// Bits returns the board's bit engine
func (b *Board) Bits() *BitEngine {
	return b.bits
}

// InitClocks validates cfg, brings the clock tree up and records the result.
// On failure the previous clock state is kept.
func (b *Board) InitClocks(cfg ClockConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	state, err := NewSequencer(b.bits, b.wait).Run(cfg)
	if err != nil {
		return err
	}
	b.clock = state
	b.timer.SetClock(state)
	b.uart.SetClock(state)
	return nil
}

// Clock returns the recorded clock state
func (b *Board) Clock() ClockState {
	return b.clock
}

// CurrentClockFrequencyHz returns the system clock, or 0 before InitClocks
func (b *Board) CurrentClockFrequencyHz() uint32 {
	return b.clock.SystemHz
}

// GPIOInit enables the GPIO and IOCON clocks
func (b *Board) GPIOInit() {
	b.gpio.Init()
}

func (b *Board) GPIOSetDirection(port, pin uint8, output bool) error {
	return b.gpio.SetDirection(port, pin, output)
}

func (b *Board) GPIOWrite(port, pin uint8, high bool) error {
	return b.gpio.Write(port, pin, high)
}

func (b *Board) GPIORead(port, pin uint8) (bool, error) {
	return b.gpio.Read(port, pin)
}

// GPIO returns the port-level GPIO driver
func (b *Board) GPIO() *GPIO {
	return b.gpio
}

// Pins returns the pin-level GPIO driver
func (b *Board) Pins() *PinDriver {
	return b.pins
}

// TimerInit enables the clock of timer channel
func (b *Board) TimerInit(channel uint8) error {
	return b.timer.Init(channel)
}

// TimerDelay blocks for amount of unit on timer channel
func (b *Board) TimerDelay(channel uint8, amount uint32, unit TimeUnit) error {
	return b.timer.Delay(channel, amount, unit)
}

// Timer returns the timer driver
func (b *Board) Timer() *Timer32 {
	return b.timer
}

// UART returns the UART driver
func (b *Board) UART() *UART {
	return b.uart
}
