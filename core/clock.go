package core

import "errors"

// PLLSource selects a PLL input (SYSPLLCLKSEL, USBPLLCLKSEL)
type PLLSource uint8

const (
	PLLSourceIRC    PLLSource = 0 // internal RC oscillator
	PLLSourceSysOsc PLLSource = 1 // system oscillator (crystal)
)

// MainSource selects the main clock (MAINCLKSEL)
type MainSource uint8

const (
	MainIRC       MainSource = 0
	MainPLLInput  MainSource = 1
	MainWDTOsc    MainSource = 2
	MainPLLOutput MainSource = 3
)

// Clock limits of the LPC1343
const (
	IRCHz       = 12000000
	MaxSystemHz = 72000000
	USBHz       = 48000000

	minCrystalHz   = 1000000
	maxCrystalHz   = 25000000
	minPLLInHz     = 10000000
	maxPLLInHz     = 25000000
	minCCOHz       = 156000000
	maxCCOHz       = 320000000
	wideRangeAbove = 20000000 // crystals above this need SYSOSCCTRL.FREQRANGE
)

// ErrInvalidClockConfig is matched by every ClockConfig.Validate failure
var ErrInvalidClockConfig = errors.New("invalid clock configuration")

// ClockConfigError describes why a ClockConfig was rejected
type ClockConfigError struct {
	Reason string
}

func (e *ClockConfigError) Error() string {
	return "invalid clock configuration: " + e.Reason
}

func (e *ClockConfigError) Unwrap() error {
	return ErrInvalidClockConfig
}

// USBClockConfig describes the USB clock domain
type USBClockConfig struct {
	Enabled    bool      // power the USB PHY and produce a USB clock
	UsePLL     bool      // clock USB from the USB PLL rather than the main clock
	PLLSource  PLLSource // USB PLL input
	PLLControl uint32    // USBPLLCTRL value (MSEL in bits 4:0, PSEL in bits 6:5)
}

// ClockConfig describes the clock tree the sequencer brings up
type ClockConfig struct {
	CrystalHz        uint32     // frequency of the crystal on XTALIN/XTALOUT
	IRCHz            uint32     // internal RC oscillator frequency
	Bypass           bool       // SYSOSCCTRL.BYPASS: external clock instead of a crystal
	EnableSysOsc     bool       // power up the system oscillator
	EnablePLL        bool       // configure and lock the system PLL
	PLLSource        PLLSource  // system PLL input
	PLLControl       uint32     // SYSPLLCTRL value (MSEL in bits 4:0, PSEL in bits 6:5)
	EnableWDTOsc     bool       // power up the watchdog oscillator
	WDTOscControl    uint32     // WDTOSCCTRL value
	WDTOscHz         uint32     // calibrated watchdog frequency; 0 derives it from WDTOscControl
	MainSource       MainSource // main clock source
	AHBDivider       uint32     // SYSAHBCLKDIV value; 0 gates the system clock
	SettleIterations int        // oscillator settling loop length
	USB              USBClockConfig
}

// DefaultClockConfig returns the LPC1343 QuickStart board setup: 12 MHz
// crystal, system PLL x6 for a 72 MHz main clock, USB PLL x4 for 48 MHz.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		CrystalHz:        12000000,
		IRCHz:            IRCHz,
		EnableSysOsc:     true,
		EnablePLL:        true,
		PLLSource:        PLLSourceSysOsc,
		PLLControl:       0x25,
		WDTOscControl:    0xA0,
		MainSource:       MainPLLOutput,
		AHBDivider:       1,
		SettleIterations: 200,
		USB: USBClockConfig{
			Enabled:    true,
			UsePLL:     true,
			PLLSource:  PLLSourceSysOsc,
			PLLControl: 0x03,
		},
	}
}

// SysOscControl returns the SYSOSCCTRL value: FREQRANGE in bit 1 for
// crystals above 20 MHz, BYPASS in bit 0
func (c ClockConfig) SysOscControl() uint32 {
	var v uint32
	if c.CrystalHz > wideRangeAbove {
		v |= 1 << 1
	}
	if c.Bypass {
		v |= 1
	}
	return v
}

// wdtAnalogKHz is the watchdog analog output per FREQSEL, nominal values
var wdtAnalogKHz = [16]uint32{0, 500, 800, 1100, 1400, 1600, 1800, 2000,
	2200, 2400, 2600, 2700, 2900, 3100, 3200, 3400}

// WDTOscFrequency returns the nominal watchdog oscillator frequency for a
// WDTOSCCTRL value: FREQSEL in bits 8:5, DIVSEL in bits 4:0. FREQSEL 0 is
// reserved and yields 0.
func WDTOscFrequency(control uint32) uint32 {
	freqsel := (control >> 5) & 0xF
	divsel := control & 0x1F
	return wdtAnalogKHz[freqsel] * 1000 / (2 * (1 + divsel))
}

// PLLMultiplier returns M from a PLL control value
func PLLMultiplier(control uint32) uint32 {
	return (control & 0x1F) + 1
}

// PLLPostDivider returns P from a PLL control value
func PLLPostDivider(control uint32) uint32 {
	return 1 << ((control >> 5) & 3)
}

func (c ClockConfig) sourceHz(src PLLSource) uint32 {
	if src == PLLSourceSysOsc {
		return c.CrystalHz
	}
	return c.IRCHz
}

// PLLInputHz returns the system PLL input frequency
func (c ClockConfig) PLLInputHz() uint32 {
	return c.sourceHz(c.PLLSource)
}

// PLLOutputHz returns the system PLL output frequency. With the oscillator
// bypassed the PLL output follows the crystal input.
func (c ClockConfig) PLLOutputHz() uint32 {
	if c.Bypass {
		return c.CrystalHz
	}
	return c.PLLInputHz() * PLLMultiplier(c.PLLControl)
}

// MainClockHz returns the frequency of the selected main clock
func (c ClockConfig) MainClockHz() uint32 {
	switch c.MainSource {
	case MainPLLInput:
		return c.PLLInputHz()
	case MainWDTOsc:
		if c.WDTOscHz != 0 {
			return c.WDTOscHz
		}
		return WDTOscFrequency(c.WDTOscControl)
	case MainPLLOutput:
		return c.PLLOutputHz()
	default:
		return c.IRCHz
	}
}

// SystemClockHz returns the main clock divided by the AHB divider
func (c ClockConfig) SystemClockHz() uint32 {
	if c.AHBDivider == 0 {
		return 0
	}
	return c.MainClockHz() / c.AHBDivider
}

// USBClockHz returns the USB clock frequency, or 0 when USB is off
func (c ClockConfig) USBClockHz() uint32 {
	if !c.USB.Enabled {
		return 0
	}
	if c.USB.UsePLL {
		return c.sourceHz(c.USB.PLLSource) * PLLMultiplier(c.USB.PLLControl)
	}
	return c.MainClockHz()
}

// State returns the ClockState this configuration produces
func (c ClockConfig) State() ClockState {
	return ClockState{
		SystemHz:   c.SystemClockHz(),
		MainHz:     c.MainClockHz(),
		USBHz:      c.USBClockHz(),
		AHBDivider: c.AHBDivider,
	}
}

// Validate checks the configuration against the LPC1343 clock limits
func (c ClockConfig) Validate() error {
	if c.EnableSysOsc && (c.CrystalHz < minCrystalHz || c.CrystalHz > maxCrystalHz) {
		return &ClockConfigError{Reason: "crystal " + utoa(c.CrystalHz) + " Hz outside 1-25 MHz"}
	}
	if c.AHBDivider == 0 || c.AHBDivider > 255 {
		return &ClockConfigError{Reason: "AHB divider " + utoa(c.AHBDivider) + " outside 1-255"}
	}
	if c.PLLSource == PLLSourceSysOsc && !c.EnableSysOsc && (c.EnablePLL || c.MainSource == MainPLLInput) {
		return &ClockConfigError{Reason: "PLL source is the system oscillator but it is not enabled"}
	}
	if c.MainSource == MainPLLOutput && !c.EnablePLL {
		return &ClockConfigError{Reason: "main clock is the PLL output but the PLL is not enabled"}
	}
	if c.MainSource == MainWDTOsc && !c.EnableWDTOsc {
		return &ClockConfigError{Reason: "main clock is the watchdog oscillator but it is not enabled"}
	}
	if c.MainSource == MainWDTOsc && c.MainClockHz() == 0 {
		return &ClockConfigError{Reason: "watchdog oscillator FREQSEL 0 is reserved"}
	}
	if c.EnablePLL && !c.Bypass {
		if err := checkPLL("system", c.PLLInputHz(), c.PLLControl); err != nil {
			return err
		}
	}
	if hz := c.SystemClockHz(); hz > MaxSystemHz {
		return &ClockConfigError{Reason: "system clock " + utoa(hz) + " Hz above 72 MHz"}
	}
	if c.USB.Enabled {
		if c.USB.UsePLL {
			if c.USB.PLLSource == PLLSourceSysOsc && !c.EnableSysOsc {
				return &ClockConfigError{Reason: "USB PLL source is the system oscillator but it is not enabled"}
			}
			if in := c.sourceHz(c.USB.PLLSource); in < minPLLInHz || in > maxPLLInHz {
				return &ClockConfigError{Reason: "USB PLL input " + utoa(in) + " Hz outside 10-25 MHz"}
			}
		}
		if hz := c.USBClockHz(); hz != USBHz {
			return &ClockConfigError{Reason: "USB clock " + utoa(hz) + " Hz, need 48 MHz"}
		}
	}
	return nil
}

func checkPLL(name string, in uint32, control uint32) error {
	if in < minPLLInHz || in > maxPLLInHz {
		return &ClockConfigError{Reason: name + " PLL input " + utoa(in) + " Hz outside 10-25 MHz"}
	}
	out := uint64(in) * uint64(PLLMultiplier(control))
	cco := out * 2 * uint64(PLLPostDivider(control))
	if cco < minCCOHz || cco > maxCCOHz {
		return &ClockConfigError{Reason: name + " PLL CCO outside 156-320 MHz"}
	}
	return nil
}

// ClockState records the clock tree after bring-up. Exactly one is active on
// a board; every duration-to-tick conversion uses it.
type ClockState struct {
	SystemHz   uint32 // system (AHB) clock
	MainHz     uint32 // main clock before the AHB divider
	USBHz      uint32 // USB clock, 0 when USB is off
	AHBDivider uint32
}

// Valid reports whether the state carries a running system clock
func (s ClockState) Valid() bool {
	return s.SystemHz != 0
}

// Stage is a step of the clock bring-up sequence
type Stage uint8

const (
	StageReset           Stage = iota // power-on defaults, nothing touched yet
	StageOscillatorOn                 // system oscillator powered and settled
	StagePLLSourceSelect              // PLL input committed by update-enable
	StagePLLLocked                    // system PLL configured and locked
	StageWDTOscOn                     // watchdog oscillator powered
	StageMainClockSelect              // main clock committed by update-enable
	StageUSBClock                     // USB clock domain configured
	StageStable                       // clock state recorded, terminal
)

func (s Stage) String() string {
	switch s {
	case StageReset:
		return "reset"
	case StageOscillatorOn:
		return "oscillator-on"
	case StagePLLSourceSelect:
		return "pll-source-select"
	case StagePLLLocked:
		return "pll-locked"
	case StageWDTOscOn:
		return "wdt-osc-on"
	case StageMainClockSelect:
		return "main-clock-select"
	case StageUSBClock:
		return "usb-clock"
	case StageStable:
		return "stable"
	default:
		return "stage(" + utoa(uint32(s)) + ")"
	}
}

// UpdateEnable commits a clock source mux change: it writes 1, 0, 1 to bit 0
// of the update-enable register uen and then polls that bit until the
// hardware acknowledges with 1.
func UpdateEnable(bits *BitEngine, wait Waiter, uen uint32) error {
	bits.WriteBit(uen, 0, 1)
	bits.WriteBit(uen, 0, 0)
	bits.WriteBit(uen, 0, 1)
	return wait.Until("clock update "+hex32(uen), func() bool {
		return bits.ReadBit(uen, 0) == 1
	})
}

// Sequencer brings up the clock tree once at boot
type Sequencer struct {
	bits  *BitEngine
	wait  *countingWaiter
	stage Stage
}

// NewSequencer creates a sequencer that waits on hardware through wait
func NewSequencer(bits *BitEngine, wait Waiter) *Sequencer {
	return &Sequencer{
		bits: bits,
		wait: &countingWaiter{next: wait},
	}
}

// Stage returns the last stage the sequencer reached
func (s *Sequencer) Stage() Stage {
	return s.stage
}

// Run walks the bring-up sequence for cfg and returns the resulting clock
// state. With a Forever waiter a PLL that never locks stalls Run; a bounded
// waiter turns the stall into an error naming the stage.
func (s *Sequencer) Run(cfg ClockConfig) (ClockState, error) {
	s.stage = StageReset

	if cfg.EnableSysOsc {
		s.oscillatorOn(cfg)
	}

	// MAINCLKSEL=1 taps the PLL input, so the source select is needed even
	// with the PLL itself left down
	if cfg.EnablePLL || cfg.MainSource == MainPLLInput {
		if err := s.selectPLLSource(cfg); err != nil {
			return ClockState{}, err
		}
	}

	if cfg.EnablePLL {
		if err := s.lockPLL(cfg); err != nil {
			return ClockState{}, err
		}
	}

	if cfg.EnableWDTOsc {
		s.bits.Write(Syscon(WDTOSCCTRL), cfg.WDTOscControl)
		s.bits.ClearBit(Syscon(PDRUNCFG), PDWDTOsc)
		s.record(StageWDTOscOn, Syscon(WDTOSCCTRL), cfg.WDTOscControl)
	}

	if err := s.selectMainClock(cfg); err != nil {
		return ClockState{}, err
	}

	if err := s.usbClock(cfg); err != nil {
		return ClockState{}, err
	}

	state := cfg.State()
	s.record(StageStable, Syscon(SYSAHBCLKDIV), state.SystemHz)
	return state, nil
}

func (s *Sequencer) oscillatorOn(cfg ClockConfig) {
	s.bits.ClearBit(Syscon(PDRUNCFG), PDSysOsc)
	s.bits.Write(Syscon(SYSOSCCTRL), cfg.SysOscControl())
	// No clock is calibrated yet, so settling is a fixed instruction count
	for i := 0; i < cfg.SettleIterations; i++ {
		nop()
	}
	s.record(StageOscillatorOn, Syscon(SYSOSCCTRL), cfg.SysOscControl())
}

func (s *Sequencer) selectPLLSource(cfg ClockConfig) error {
	s.bits.Write(Syscon(SYSPLLCLKSEL), uint32(cfg.PLLSource))
	if err := s.update(StagePLLSourceSelect, Syscon(SYSPLLCLKUEN)); err != nil {
		return err
	}
	s.record(StagePLLSourceSelect, Syscon(SYSPLLCLKSEL), uint32(cfg.PLLSource))
	return nil
}

func (s *Sequencer) lockPLL(cfg ClockConfig) error {
	s.bits.Write(Syscon(SYSPLLCTRL), cfg.PLLControl)
	s.bits.ClearBit(Syscon(PDRUNCFG), PDSysPLL)
	err := s.wait.Until("system PLL lock", func() bool {
		return s.bits.ReadBit(Syscon(SYSPLLSTAT), 0) == 1
	})
	if err != nil {
		return s.stall(StagePLLLocked, Syscon(SYSPLLSTAT), err)
	}
	s.record(StagePLLLocked, Syscon(SYSPLLSTAT), cfg.PLLControl)
	return nil
}

func (s *Sequencer) selectMainClock(cfg ClockConfig) error {
	s.bits.Write(Syscon(MAINCLKSEL), uint32(cfg.MainSource))
	if err := s.update(StageMainClockSelect, Syscon(MAINCLKUEN)); err != nil {
		return err
	}
	s.bits.Write(Syscon(SYSAHBCLKDIV), cfg.AHBDivider)
	s.record(StageMainClockSelect, Syscon(MAINCLKSEL), uint32(cfg.MainSource))
	return nil
}

func (s *Sequencer) usbClock(cfg ClockConfig) error {
	pd := Syscon(PDRUNCFG)
	if !cfg.USB.Enabled {
		s.bits.SetBit(pd, PDUSBPad)
		s.bits.SetBit(pd, PDUSBPLL)
		return nil
	}

	s.bits.ClearBit(pd, PDUSBPad)
	if cfg.USB.UsePLL {
		s.bits.ClearBit(pd, PDUSBPLL)
		s.bits.Write(Syscon(USBPLLCLKSEL), uint32(cfg.USB.PLLSource))
		if err := s.update(StageUSBClock, Syscon(USBPLLCLKUEN)); err != nil {
			return err
		}
		s.bits.Write(Syscon(USBPLLCTRL), cfg.USB.PLLControl)
		err := s.wait.Until("USB PLL lock", func() bool {
			return s.bits.ReadBit(Syscon(USBPLLSTAT), 0) == 1
		})
		if err != nil {
			return s.stall(StageUSBClock, Syscon(USBPLLSTAT), err)
		}
		s.bits.Write(Syscon(USBCLKSEL), 0)
	} else {
		s.bits.Write(Syscon(USBCLKSEL), 1)
	}
	if err := s.update(StageUSBClock, Syscon(USBCLKUEN)); err != nil {
		return err
	}
	s.record(StageUSBClock, Syscon(USBCLKSEL), cfg.USBClockHz())
	return nil
}

// update runs the update-enable handshake on uen for stage
func (s *Sequencer) update(stage Stage, uen uint32) error {
	if err := UpdateEnable(s.bits, s.wait, uen); err != nil {
		return s.stall(stage, uen, err)
	}
	return nil
}

func (s *Sequencer) record(stage Stage, addr uint32, value uint32) {
	s.stage = stage
	RecordBootEvent(BootEvent{
		Stage: stage,
		Addr:  addr,
		Value: value,
		Polls: uint32(s.wait.polls),
	})
	s.wait.polls = 0
}

func (s *Sequencer) stall(stage Stage, addr uint32, err error) error {
	RecordBootEvent(BootEvent{Stage: stage, Addr: addr, Polls: uint32(s.wait.polls)})
	return &StallError{Stage: stage, Err: err}
}

// StallError reports a bring-up stage whose hardware wait gave up
type StallError struct {
	Stage Stage
	Err   error
}

func (e *StallError) Error() string {
	return "clock bring-up stalled in " + e.Stage.String() + ": " + e.Err.Error()
}

func (e *StallError) Unwrap() error {
	return e.Err
}
