// Package config loads JSON board descriptions for the host tools
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"lpchal/core"
	"lpchal/demo"
	"lpchal/host/serial"
)

// Mode names
const (
	ModeBlink        = "blink"
	ModeFollowSwitch = "follow_switch"
	ModeMonitor      = "monitor"
)

// LoadConfig parses a JSON board description, applies defaults and
// validates the result
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, errors.Wrap(err, "parse board config")
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses the board description at path
func LoadFile(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read board config")
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return config, nil
}

// applyDefaults fills in missing values from the LPC1343 QuickStart board
func applyDefaults(config *BoardConfig) {
	if config.Name == "" {
		config.Name = "lpc1343"
	}
	if config.Mode == "" {
		config.Mode = ModeMonitor
	}
	if config.LED == "" {
		config.LED = "PIO0_7"
	}
	if config.Switch == "" {
		config.Switch = "PIO0_1"
	}
	if config.BlinkMS == 0 {
		config.BlinkMS = 500
	}
	if config.PollMS == 0 {
		config.PollMS = 10
	}

	def := core.DefaultClockConfig()
	clock := &config.Clock
	if clock.CrystalHz == 0 {
		clock.CrystalHz = def.CrystalHz
	}
	if clock.PLLSource == "" {
		clock.PLLSource = "sysosc"
	}
	if clock.PLLControl == 0 {
		clock.PLLControl = def.PLLControl
	}
	if clock.MainSource == "" {
		clock.MainSource = "pll"
	}
	if clock.AHBDivider == 0 {
		clock.AHBDivider = def.AHBDivider
	}
	if clock.SettleIterations == 0 {
		clock.SettleIterations = def.SettleIterations
	}
	if clock.WDTOscControl == 0 {
		clock.WDTOscControl = def.WDTOscControl
	}
	if clock.USB.PLLSource == "" {
		clock.USB.PLLSource = clock.PLLSource
	}
	if clock.USB.PLLControl == 0 {
		clock.USB.PLLControl = def.USB.PLLControl
	}

	ser := serial.DefaultConfig(config.Serial.Device)
	if config.Serial.Baud == 0 {
		config.Serial.Baud = ser.Baud
	}
	if config.Serial.ReadTimeoutMS == 0 {
		config.Serial.ReadTimeoutMS = ser.ReadTimeout
	}
	if config.Serial.TimeoutMS == 0 {
		config.Serial.TimeoutMS = 1000
	}
}

// Validate checks pins, modes, the timer channel and the clock tree
func (c *BoardConfig) Validate() error {
	switch c.Mode {
	case ModeBlink, ModeFollowSwitch, ModeMonitor:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if _, err := c.LEDPin(); err != nil {
		return errors.Wrapf(err, "led pin %q", c.LED)
	}
	if _, err := c.SwitchPin(); err != nil {
		return errors.Wrapf(err, "switch pin %q", c.Switch)
	}
	if c.DelayTimer >= core.NumTimers {
		return errors.Errorf("delay timer %d out of range", c.DelayTimer)
	}
	if c.Serial.Baud <= 0 {
		return errors.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	clock, err := c.ClockConfig()
	if err != nil {
		return err
	}
	return errors.Wrap(clock.Validate(), "clock")
}

// LEDPin returns the parsed LED pin
func (c *BoardConfig) LEDPin() (core.Pin, error) {
	return core.ParsePin(c.LED)
}

// SwitchPin returns the parsed switch pin
func (c *BoardConfig) SwitchPin() (core.Pin, error) {
	return core.ParsePin(c.Switch)
}

// ClockConfig converts the clock section to the form the sequencer runs
func (c *BoardConfig) ClockConfig() (core.ClockConfig, error) {
	src, err := pllSource(c.Clock.PLLSource)
	if err != nil {
		return core.ClockConfig{}, err
	}
	usbSrc, err := pllSource(c.Clock.USB.PLLSource)
	if err != nil {
		return core.ClockConfig{}, errors.Wrap(err, "usb")
	}
	main, err := mainSource(c.Clock.MainSource)
	if err != nil {
		return core.ClockConfig{}, err
	}

	usbEnabled := c.Clock.USB.Enabled == nil || *c.Clock.USB.Enabled
	usbPLL := c.Clock.USB.UsePLL == nil || *c.Clock.USB.UsePLL
	usePLL := main == core.MainPLLOutput

	return core.ClockConfig{
		CrystalHz:        c.Clock.CrystalHz,
		IRCHz:            core.IRCHz,
		Bypass:           c.Clock.Bypass,
		EnableSysOsc:     src == core.PLLSourceSysOsc || (usbEnabled && usbPLL && usbSrc == core.PLLSourceSysOsc),
		EnablePLL:        usePLL,
		PLLSource:        src,
		PLLControl:       c.Clock.PLLControl,
		EnableWDTOsc:     main == core.MainWDTOsc,
		WDTOscControl:    c.Clock.WDTOscControl,
		WDTOscHz:         c.Clock.WDTOscHz,
		MainSource:       main,
		AHBDivider:       c.Clock.AHBDivider,
		SettleIterations: c.Clock.SettleIterations,
		USB: core.USBClockConfig{
			Enabled:    usbEnabled,
			UsePLL:     usbPLL,
			PLLSource:  usbSrc,
			PLLControl: c.Clock.USB.PLLControl,
		},
	}, nil
}

// DemoConfig converts the pins, delay timer and periods to the form the
// run modes take
func (c *BoardConfig) DemoConfig() (demo.Config, error) {
	led, err := c.LEDPin()
	if err != nil {
		return demo.Config{}, errors.Wrapf(err, "led pin %q", c.LED)
	}
	sw, err := c.SwitchPin()
	if err != nil {
		return demo.Config{}, errors.Wrapf(err, "switch pin %q", c.Switch)
	}
	return demo.Config{
		LED:        led,
		Switch:     sw,
		DelayTimer: c.DelayTimer,
		BlinkMS:    c.BlinkMS,
		PollMS:     c.PollMS,
		Baud:       uint32(c.Serial.Baud),
	}, nil
}

// SerialPort returns the serial port settings for host/serial
func (c *BoardConfig) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeoutMS,
	}
}

// Timeout returns the request round-trip limit
func (c *BoardConfig) Timeout() time.Duration {
	return time.Duration(c.Serial.TimeoutMS) * time.Millisecond
}

func pllSource(name string) (core.PLLSource, error) {
	switch name {
	case "irc":
		return core.PLLSourceIRC, nil
	case "sysosc":
		return core.PLLSourceSysOsc, nil
	}
	return 0, errors.Errorf("unknown PLL source %q", name)
}

func mainSource(name string) (core.MainSource, error) {
	switch name {
	case "irc":
		return core.MainIRC, nil
	case "pll_input":
		return core.MainPLLInput, nil
	case "wdt_osc":
		return core.MainWDTOsc, nil
	case "pll":
		return core.MainPLLOutput, nil
	}
	return 0, errors.Errorf("unknown main clock source %q", name)
}
