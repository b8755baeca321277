package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"lpchal/config"
	"lpchal/core"
	"lpchal/demo"
	"lpchal/host/remote"
)

// session holds the remote board a command line operates on
type session struct {
	out    io.Writer
	client *remote.Client
	bus    *remote.Bus
	board  *core.Board
	cfg    *config.BoardConfig
}

type command struct {
	usage string
	help  string
	run   func(s *session, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":  {"help", "Show this help message", (*session).help},
		"boot":  {"boot", "Bring the clock tree up from the board config", (*session).boot},
		"clock": {"clock", "Show the target's system clock", (*session).clock},
		"peek":  {"peek <addr>", "Read a register word", (*session).peek},
		"poke":  {"poke <addr> <value>", "Write a register word", (*session).poke},
		"bit":   {"bit <addr> <bit> [0|1]", "Read or write one bit", (*session).bit},
		"alias": {"alias <addr> [bit]", "Show the bit-band alias of a register bit, or decode an alias", (*session).alias},
		"gpio":  {"gpio <pin> [in|out|0|1]", "Read a pin, set its direction or drive it", (*session).gpio},
		"delay": {"delay <amount> [ms|us]", "Busy-wait on the delay timer", (*session).delay},
		"trace": {"trace", "Dump the clock bring-up trace", (*session).trace},
		"demo":  {"demo [blink|follow] [steps]", "Run a firmware mode for a number of steps", (*session).demo},
	}
}

func newSession(out io.Writer, client *remote.Client, cfg *config.BoardConfig, wait core.Waiter) *session {
	bus := remote.NewBus(client)
	return &session{
		out:    out,
		client: client,
		bus:    bus,
		board:  core.NewBoard(bus, core.WithWaiter(wait)),
		cfg:    cfg,
	}
}

// exec runs one command line. Arguments are split shell-style.
func (s *session) exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errors.Wrap(err, "parse command line")
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
	}

	s.bus.ClearErr()
	if err := cmd.run(s, args[1:]); err != nil {
		return err
	}
	return errors.Wrap(s.bus.Err(), "link")
}

func (s *session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *session) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	s.printf("\nAvailable commands:\n")
	for _, name := range names {
		s.printf("  %-26s - %s\n", commands[name].usage, commands[name].help)
	}
	s.printf("  %-26s - %s\n", "console", "Line-editing console")
	s.printf("  %-26s - %s\n\n", "quit/exit/q", "Exit the program")
	return nil
}

func (s *session) boot(args []string) error {
	cfg, err := s.cfg.ClockConfig()
	if err != nil {
		return err
	}

	core.ClearBootTrace()
	if err := s.board.InitClocks(cfg); err != nil {
		var stall *core.StallError
		if errors.As(err, &stall) {
			s.printf("Clock bring-up stalled at %s\n", stall.Stage)
			s.dumpTrace()
		}
		return err
	}

	state := s.board.Clock()
	s.printf("System clock %d Hz (main %d Hz, AHB divider %d, USB %d Hz)\n",
		state.SystemHz, state.MainHz, state.AHBDivider, state.USBHz)
	return nil
}

func (s *session) clock(args []string) error {
	hz, err := s.client.Clock()
	if err != nil {
		return err
	}
	s.printf("Target system clock: %d Hz\n", hz)
	if state := s.board.Clock(); state.Valid() {
		s.printf("Configured here:     %d Hz\n", state.SystemHz)
	}
	return nil
}

func (s *session) peek(args []string) error {
	if len(args) != 1 {
		return usageError("peek")
	}
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	v := s.bus.Load(addr)
	if s.bus.Err() == nil {
		s.printf("0x%08X = 0x%08X\n", addr, v)
	}
	return nil
}

func (s *session) poke(args []string) error {
	if len(args) != 2 {
		return usageError("poke")
	}
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	value, err := parseWord(args[1])
	if err != nil {
		return err
	}
	s.bus.Store(addr, value)
	return nil
}

func (s *session) bit(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return usageError("bit")
	}
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}
	bit, err := parseBit(args[1])
	if err != nil {
		return err
	}

	bits := s.board.Bits()
	if len(args) == 3 {
		v, err := strconv.ParseUint(args[2], 0, 1)
		if err != nil {
			return errors.Errorf("bit value must be 0 or 1, got %q", args[2])
		}
		bits.WriteBit(addr, bit, uint8(v))
		return nil
	}

	v := bits.ReadBit(addr, bit)
	if s.bus.Err() == nil {
		s.printf("0x%08X bit %d = %d (%s)\n", addr, bit, v, core.RegionOf(addr))
	}
	return nil
}

func (s *session) alias(args []string) error {
	if len(args) != 1 && len(args) != 2 {
		return usageError("alias")
	}
	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if !core.IsAlias(addr) {
			return errors.Errorf("0x%08X is not in the alias window", addr)
		}
		target, bit := core.AliasTarget(addr)
		s.printf("0x%08X is bit %d of 0x%08X\n", addr, bit, target)
		return nil
	}

	bit, err := parseBit(args[1])
	if err != nil {
		return err
	}
	if core.RegionOf(addr) != core.RegionBitBand {
		s.printf("0x%08X is outside the bit-band window; bit %d is set by read-modify-write\n", addr, bit)
		return nil
	}
	s.printf("0x%08X bit %d -> alias 0x%08X\n", addr, bit, core.AliasAddress(addr, bit))
	return nil
}

func (s *session) gpio(args []string) error {
	if len(args) != 1 && len(args) != 2 {
		return usageError("gpio")
	}
	pin, err := s.parsePin(args[0])
	if err != nil {
		return err
	}
	port, n := pin.Port(), pin.Number()

	s.board.GPIOInit()
	if len(args) == 1 {
		high, err := s.board.GPIORead(port, n)
		if err != nil {
			return err
		}
		if s.bus.Err() == nil {
			s.printf("%s = %d\n", pin, boolToInt(high))
		}
		return nil
	}

	switch args[1] {
	case "in":
		return s.board.GPIOSetDirection(port, n, false)
	case "out":
		return s.board.GPIOSetDirection(port, n, true)
	case "0", "1":
		return s.board.GPIOWrite(port, n, args[1] == "1")
	}
	return usageError("gpio")
}

func (s *session) delay(args []string) error {
	if len(args) != 1 && len(args) != 2 {
		return usageError("delay")
	}
	amount, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return errors.Wrapf(err, "delay amount %q", args[0])
	}
	unit, unitName := core.Millisecond, "ms"
	if len(args) == 2 {
		unitName = args[1]
		switch unitName {
		case "ms":
		case "us":
			unit = core.Microsecond
		default:
			return usageError("delay")
		}
	}

	ch := s.cfg.DelayTimer
	if err := s.board.TimerInit(ch); err != nil {
		return err
	}
	if err := s.board.TimerDelay(ch, uint32(amount), unit); err != nil {
		return err
	}
	s.printf("Delayed %d %s on CT32B%d\n", amount, unitName, ch)
	return nil
}

// defaultDemoSteps bounds a demo run; the link has no way to interrupt one
const defaultDemoSteps = 4

func (s *session) demo(args []string) error {
	if len(args) > 2 {
		return usageError("demo")
	}

	mode := s.cfg.Mode
	steps := defaultDemoSteps
	for _, arg := range args {
		switch arg {
		case "blink":
			mode = config.ModeBlink
		case "follow":
			mode = config.ModeFollowSwitch
		default:
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				return usageError("demo")
			}
			steps = n
		}
	}

	cfg, err := s.cfg.DemoConfig()
	if err != nil {
		return err
	}

	var loop func(*core.Board, demo.Config, int) error
	switch mode {
	case config.ModeBlink:
		loop = demo.Blink
	case config.ModeFollowSwitch:
		loop = demo.FollowSwitch
	default:
		return errors.Errorf("board mode %q runs on the target; name blink or follow", mode)
	}

	if err := demo.Setup(s.board, cfg); err != nil {
		return err
	}
	if err := loop(s.board, cfg, steps); err != nil {
		return err
	}
	s.printf("Ran %s for %d steps (LED %s, CT32B%d)\n", mode, steps, cfg.LED, cfg.DelayTimer)
	return nil
}

func (s *session) trace(args []string) error {
	s.dumpTrace()
	loads, stores := s.bus.Counts()
	s.printf("Link traffic: %d loads, %d stores\n", loads, stores)
	return nil
}

func (s *session) dumpTrace() {
	core.SetDebugWriter(func(msg string) { fmt.Fprintln(s.out, msg) })
	core.DumpBootTrace()
}

// parsePin accepts a pin name or the board's "led" and "switch"
func (s *session) parsePin(name string) (core.Pin, error) {
	switch strings.ToLower(name) {
	case "led":
		return s.cfg.LEDPin()
	case "switch", "sw":
		return s.cfg.SwitchPin()
	}
	pin, err := core.ParsePin(strings.ToUpper(name))
	if err != nil {
		return 0, errors.Wrapf(err, "pin %q", name)
	}
	return pin, nil
}

func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "bad value %q", s)
	}
	return uint32(v), nil
}

func parseBit(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > 31 {
		return 0, errors.Errorf("bit must be 0-31, got %q", s)
	}
	return uint8(v), nil
}

func usageError(name string) error {
	return errors.Errorf("usage: %s", commands[name].usage)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
