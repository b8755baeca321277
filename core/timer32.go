package core

import "errors"

// NumTimers is the number of 32-bit counter/timers (CT32B0, CT32B1)
const NumTimers = 2

// TimeUnit is a delay unit, expressed as units per second
type TimeUnit uint32

const (
	Millisecond TimeUnit = 1000
	Microsecond TimeUnit = 1000000
)

// TCR and MCR bits
const (
	tcrEnable   = 1 << 0
	tcrReset    = 1 << 1
	mcrMR0Stop  = 1 << 2
	irqClearAll = 0xFF
	maxTimerRun = 0xFFFFFFFF
)

var (
	ErrInvalidChannel = errors.New("invalid timer channel")
	ErrInvalidUnit    = errors.New("invalid time unit")
	ErrClockGated     = errors.New("system clock not running")
)

// Timer32 produces busy-wait delays on CT32B0/CT32B1. A delay loads MR0
// with the tick count, arms stop-on-match and polls TCR until the counter
// halts itself.
type Timer32 struct {
	bits  *BitEngine
	wait  Waiter
	clock ClockState
}

// NewTimer32 creates a timer driver. Delays fail with ErrClockGated until
// SetClock supplies a running clock.
func NewTimer32(bits *BitEngine, wait Waiter) *Timer32 {
	return &Timer32{bits: bits, wait: wait}
}

// SetClock records the clock state ticks are derived from
func (t *Timer32) SetClock(state ClockState) {
	t.clock = state
}

// Init enables the clock of timer channel
func (t *Timer32) Init(channel uint8) error {
	if channel >= NumTimers {
		return ErrInvalidChannel
	}
	t.bits.SetBit(Syscon(SYSAHBCLKCTRL), AHBCT32B0+channel)
	return nil
}

// Ticks converts amount of unit into timer ticks. The AHB divider is read
// back from SYSAHBCLKDIV, so ticks follow the divider actually programmed.
func (t *Timer32) Ticks(amount uint32, unit TimeUnit) (uint64, error) {
	if unit == 0 {
		return 0, ErrInvalidUnit
	}
	div := t.bits.Read(Syscon(SYSAHBCLKDIV)) & 0xFF
	if div == 0 || !t.clock.Valid() {
		return 0, ErrClockGated
	}
	perUnit := uint64(t.clock.SystemHz/div) / uint64(unit)
	return uint64(amount) * perUnit, nil
}

// Delay blocks for amount of unit on timer channel. Tick counts that do not
// fit the 32-bit match register run as consecutive counter runs.
func (t *Timer32) Delay(channel uint8, amount uint32, unit TimeUnit) error {
	if channel >= NumTimers {
		return ErrInvalidChannel
	}
	ticks, err := t.Ticks(amount, unit)
	if err != nil {
		return err
	}
	for ticks > 0 {
		run := ticks
		if run > maxTimerRun {
			run = maxTimerRun
		}
		if err := t.run(channel, uint32(run)); err != nil {
			return err
		}
		ticks -= run
	}
	return nil
}

// DelayMS blocks for ms milliseconds on timer channel
func (t *Timer32) DelayMS(channel uint8, ms uint32) error {
	return t.Delay(channel, ms, Millisecond)
}

// DelayUS blocks for us microseconds on timer channel
func (t *Timer32) DelayUS(channel uint8, us uint32) error {
	return t.Delay(channel, us, Microsecond)
}

func (t *Timer32) run(channel uint8, ticks uint32) error {
	tcr := Timer32Reg(channel, TMR32TCR)
	t.bits.Write(tcr, tcrReset)
	t.bits.Write(Timer32Reg(channel, TMR32PR), 0)
	t.bits.Write(Timer32Reg(channel, TMR32MR0), ticks)
	t.bits.Write(Timer32Reg(channel, TMR32IR), irqClearAll)
	t.bits.Write(Timer32Reg(channel, TMR32MCR), mcrMR0Stop)
	t.bits.Write(tcr, tcrEnable)
	return t.wait.Until("timer "+utoa(uint32(channel))+" match", func() bool {
		return t.bits.ReadBit(tcr, 0) == 0
	})
}
