package core_test

import (
	"errors"
	"testing"

	"lpchal/core"
	"lpchal/sim"
)

// newBoard returns a board over a fresh simulated chip. Waits are bounded so
// a broken model fails the test instead of hanging it.
func newBoard(t *testing.T, opts ...sim.Option) (*core.Board, *sim.LPC1343) {
	t.Helper()
	m := sim.NewLPC1343(opts...)
	return core.NewBoard(m, core.WithWaiter(core.Bounded{Limit: 10000})), m
}

// bootBoard is newBoard with the default clock tree already up
func bootBoard(t *testing.T, opts ...sim.Option) (*core.Board, *sim.LPC1343) {
	t.Helper()
	b, m := newBoard(t, opts...)
	if err := b.InitClocks(core.DefaultClockConfig()); err != nil {
		t.Fatalf("InitClocks failed: %v", err)
	}
	m.ResetTrace()
	return b, m
}

func TestBoardClockBeforeInit(t *testing.T) {
	b, _ := newBoard(t)
	if hz := b.CurrentClockFrequencyHz(); hz != 0 {
		t.Errorf("Expected 0 Hz before InitClocks, got %d", hz)
	}
	if err := b.TimerDelay(0, 1, core.Millisecond); !errors.Is(err, core.ErrClockGated) {
		t.Errorf("Expected ErrClockGated before InitClocks, got %v", err)
	}
	if err := b.UART().Configure(115200); !errors.Is(err, core.ErrClockGated) {
		t.Errorf("Expected ErrClockGated before InitClocks, got %v", err)
	}
}

func TestBoardInitClocks(t *testing.T) {
	b, m := newBoard(t)
	if err := b.InitClocks(core.DefaultClockConfig()); err != nil {
		t.Fatalf("InitClocks failed: %v", err)
	}
	if hz := b.CurrentClockFrequencyHz(); hz != 72000000 {
		t.Errorf("Expected 72 MHz, got %d", hz)
	}
	if hz := m.SystemClockHz(); hz != b.CurrentClockFrequencyHz() {
		t.Errorf("Board reports %d Hz, simulated chip runs at %d Hz", b.CurrentClockFrequencyHz(), hz)
	}
	if hz := b.Clock().USBHz; hz != 48000000 {
		t.Errorf("Expected 48 MHz USB clock, got %d", hz)
	}
}

func TestBoardClockMatchesChipForEveryMainSource(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*core.ClockConfig)
		hz     uint32
	}{
		{"irc", func(c *core.ClockConfig) {
			c.EnablePLL = false
			c.MainSource = core.MainIRC
		}, core.IRCHz},
		{"pll input", func(c *core.ClockConfig) {
			c.EnablePLL = false
			c.MainSource = core.MainPLLInput
		}, 16000000},
		{"pll output", func(c *core.ClockConfig) {
			c.PLLControl = 0x23
		}, 64000000},
		{"watchdog", func(c *core.ClockConfig) {
			c.EnablePLL = false
			c.EnableWDTOsc = true
			c.MainSource = core.MainWDTOsc
		}, 800000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, m := newBoard(t, sim.Crystal(16000000))
			cfg := core.DefaultClockConfig()
			cfg.CrystalHz = 16000000
			cfg.USB.Enabled = false
			tt.modify(&cfg)

			if err := b.InitClocks(cfg); err != nil {
				t.Fatalf("InitClocks failed: %v", err)
			}
			if hz := b.Clock().SystemHz; hz != tt.hz {
				t.Errorf("Expected %d Hz recorded, got %d", tt.hz, hz)
			}
			if hz := m.SystemClockHz(); hz != b.Clock().SystemHz {
				t.Errorf("Board reports %d Hz, simulated chip runs at %d Hz", b.Clock().SystemHz, hz)
			}
		})
	}
}

func TestBoardRejectsInvalidClockWithoutTouchingHardware(t *testing.T) {
	b, m := newBoard(t)
	cfg := core.DefaultClockConfig()
	cfg.AHBDivider = 0

	err := b.InitClocks(cfg)
	if !errors.Is(err, core.ErrInvalidClockConfig) {
		t.Fatalf("Expected ErrInvalidClockConfig, got %v", err)
	}
	if n := len(m.Trace()); n != 0 {
		t.Errorf("Expected no bus accesses, got %d", n)
	}
	if b.CurrentClockFrequencyHz() != 0 {
		t.Errorf("Clock state changed after a rejected config")
	}
}

func TestBoardGPIOFacade(t *testing.T) {
	b, m := bootBoard(t)
	b.GPIOInit()

	if err := b.GPIOSetDirection(0, 7, true); err != nil {
		t.Fatalf("GPIOSetDirection failed: %v", err)
	}
	if err := b.GPIOWrite(0, 7, true); err != nil {
		t.Fatalf("GPIOWrite failed: %v", err)
	}
	if !m.Output(0, 7) {
		t.Error("Expected PIO0_7 driven high")
	}

	m.DriveInput(0, 1, true)
	high, err := b.GPIORead(0, 1)
	if err != nil {
		t.Fatalf("GPIORead failed: %v", err)
	}
	if !high {
		t.Error("Expected PIO0_1 to read high")
	}
}
