//go:build tinygo && lpc1343

package main

// Mode is the firmware's run mode
type Mode uint8

const (
	ModeBlink        Mode = iota // LED on PIO0_7 toggles every 500 ms
	ModeFollowSwitch             // LED lit while SW2 on PIO0_1 is pressed
	ModeMonitor                  // register monitor on the UART at 115200 baud
)

// ModeConfig determines which mode to run
type ModeConfig struct {
	Mode Mode

	// DumpBoot writes the clock bring-up trace to the UART before the
	// LED modes start. Monitor mode keeps the UART for frames.
	DumpBoot bool
}

// GetMode returns the mode configuration. Change it here to build a
// different demo.
func GetMode() ModeConfig {
	return ModeConfig{
		Mode:     ModeMonitor,
		DumpBoot: true,
	}
}
