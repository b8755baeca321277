//go:build tinygo && lpc1343

package main

import (
	"lpchal/core"
	"lpchal/demo"
)

func main() {
	board := core.NewBoard(core.MMIO)

	// With the default Forever waiter only an invalid configuration fails
	if err := board.InitClocks(core.DefaultClockConfig()); err != nil {
		halt()
	}

	cfg := demo.DefaultConfig()
	if err := demo.Setup(board, cfg); err != nil {
		halt()
	}

	mode := GetMode()
	if mode.Mode != ModeMonitor && mode.DumpBoot {
		dumpBoot(board, cfg)
	}

	var err error
	switch mode.Mode {
	case ModeBlink:
		err = demo.Blink(board, cfg, 0)
	case ModeFollowSwitch:
		err = demo.FollowSwitch(board, cfg, 0)
	default:
		mon, merr := demo.StartMonitor(board, cfg, core.MMIO)
		if merr == nil {
			mon.Run()
		}
		err = merr
	}
	if err != nil {
		halt()
	}
}

// dumpBoot sends the boot trace out of the UART
func dumpBoot(board *core.Board, cfg demo.Config) {
	uart := board.UART()
	if err := uart.Configure(cfg.Baud); err != nil {
		return
	}
	core.SetDebugWriter(func(msg string) {
		uart.Write([]byte(msg))
		uart.Write([]byte("\r\n"))
	})
	core.DumpBootTrace()
}

// halt parks the core
func halt() {
	for {
	}
}
