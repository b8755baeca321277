package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"lpchal/config"
	"lpchal/core"
	"lpchal/host/remote"
	"lpchal/host/serial"
	"lpchal/sim"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", 115200, "Baud rate of the monitor UART")
	useSim     = flag.Bool("sim", false, "Talk to a simulated LPC1343 instead of a serial device")
	configPath = flag.String("config", "", "Board description (JSON)")
	timeout    = flag.Duration("timeout", remote.DefaultTimeout, "Round-trip limit per request")
	polls      = flag.Int("polls", 100000, "Poll limit for hardware waits")
	verbose    = flag.Bool("verbose", false, "Echo boot events as they happen")
)

func main() {
	flag.Parse()
	if *polls < 1 {
		fmt.Fprintf(os.Stderr, "Error: -polls must be at least 1, got %d\n", *polls)
		os.Exit(2)
	}

	fmt.Println("lpcmon - LPC1343 register monitor")
	fmt.Println("=================================")

	board, err := loadBoardConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := connect(board)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	version, hz, err := client.Identify()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Target did not identify: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected to %s (%s, %d Hz)\n\n", board.Name, version, hz)

	s := newSession(os.Stdout, client, board, core.Bounded{Limit: *polls})
	if *verbose {
		core.SetDebugWriter(func(msg string) { fmt.Fprintln(s.out, msg) })
		core.SetDebugEnabled(true)
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		case "console":
			if err := runConsole(s); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			s.out = os.Stdout
			continue
		}

		if err := s.exec(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// loadBoardConfig reads -config if given; flags set on the command line
// override the file
func loadBoardConfig() (*config.BoardConfig, error) {
	var board *config.BoardConfig
	var err error
	if *configPath != "" {
		board, err = config.LoadFile(*configPath)
	} else {
		board, err = config.LoadConfig([]byte("{}"))
	}
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			board.Serial.Device = *device
		case "baud":
			board.Serial.Baud = *baud
		case "timeout":
			board.Serial.TimeoutMS = int(*timeout / time.Millisecond)
		}
	})
	if board.Serial.Device == "" {
		board.Serial.Device = *device
	}
	return board, nil
}

func connect(board *config.BoardConfig) (*remote.Client, error) {
	if *useSim {
		fmt.Println("Using simulated LPC1343")
		// Fast counters keep timer delays to a few hundred round trips
		chip := sim.NewLPC1343(sim.TicksPerPoll(100000), sim.Crystal(board.Clock.CrystalHz))
		chip.SetTracing(false)
		return remote.NewClient(remote.Loopback(chip, chip.SystemClockHz), board.Timeout()), nil
	}

	fmt.Printf("Connecting to %s at %d baud...\n", board.Serial.Device, board.Serial.Baud)
	cfg := board.SerialPort()
	if cfg.Baud == 0 {
		cfg = serial.DefaultConfig(board.Serial.Device)
	}
	return remote.Dial(cfg, board.Timeout())
}
