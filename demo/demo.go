// Package demo holds the firmware's run modes. Each takes a board whose
// clocks are already up and runs for a number of steps, or forever when
// steps is 0.
package demo

import (
	"lpchal/core"
	"lpchal/protocol"
)

// Config selects pins, the delay timer and periods for the modes
type Config struct {
	LED        core.Pin
	Switch     core.Pin
	DelayTimer uint8
	BlinkMS    uint32
	PollMS     uint32
	Baud       uint32
}

// DefaultConfig is the LPC1343 QuickStart board: LED on PIO0_7, switch on
// PIO0_1, delays on CT32B0
func DefaultConfig() Config {
	return Config{
		LED:        core.NewPin(0, 7),
		Switch:     core.NewPin(0, 1),
		DelayTimer: 0,
		BlinkMS:    500,
		PollMS:     10,
		Baud:       115200,
	}
}

// Setup powers GPIO and the delay timer and makes the LED an output,
// initially low
func Setup(board *core.Board, cfg Config) error {
	board.GPIOInit()
	if err := board.TimerInit(cfg.DelayTimer); err != nil {
		return err
	}
	pins := board.Pins()
	if err := pins.ConfigureOutput(cfg.LED); err != nil {
		return err
	}
	return pins.Set(cfg.LED, false)
}

// Blink drives the LED low, then high, alternating every BlinkMS
func Blink(board *core.Board, cfg Config, steps int) error {
	pins := board.Pins()
	led := false
	for i := 0; steps == 0 || i < steps; i++ {
		if err := pins.Set(cfg.LED, led); err != nil {
			return err
		}
		led = !led
		if err := board.TimerDelay(cfg.DelayTimer, cfg.BlinkMS, core.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// FollowSwitch mirrors the switch onto the LED every PollMS. The switch
// pulls the pin low when pressed, and a pressed switch lights the LED.
func FollowSwitch(board *core.Board, cfg Config, steps int) error {
	pins := board.Pins()
	if err := pins.ConfigureInputPullUp(cfg.Switch); err != nil {
		return err
	}
	for i := 0; steps == 0 || i < steps; i++ {
		released, err := pins.Get(cfg.Switch)
		if err != nil {
			return err
		}
		if err := pins.Set(cfg.LED, !released); err != nil {
			return err
		}
		if err := board.TimerDelay(cfg.DelayTimer, cfg.PollMS, core.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// StartMonitor configures the UART and lights the LED, then returns a
// monitor serving register requests on bus. The caller polls it.
func StartMonitor(board *core.Board, cfg Config, bus core.Bus) (*protocol.Monitor, error) {
	uart := board.UART()
	if err := uart.Configure(cfg.Baud); err != nil {
		return nil, err
	}
	if err := board.Pins().Set(cfg.LED, true); err != nil {
		return nil, err
	}
	return protocol.NewMonitor(uart, bus, board.CurrentClockFrequencyHz), nil
}
