package demo

import (
	"testing"

	"lpchal/core"
	"lpchal/protocol"
	"lpchal/sim"
)

func bootBoard(t *testing.T) (*core.Board, *sim.LPC1343) {
	t.Helper()
	// 1,000,000 ticks per poll keeps a 500 ms delay to 36 polls
	chip := sim.NewLPC1343(sim.TicksPerPoll(1000000))
	board := core.NewBoard(chip, core.WithWaiter(core.Bounded{Limit: 1000}))
	if err := board.InitClocks(core.DefaultClockConfig()); err != nil {
		t.Fatalf("InitClocks failed: %v", err)
	}
	if err := Setup(board, DefaultConfig()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	chip.ResetTrace()
	return board, chip
}

func TestSetup(t *testing.T) {
	_, chip := bootBoard(t)

	if !chip.IsOutput(0, 7) {
		t.Error("Expected PIO0_7 to be an output")
	}
	if chip.Output(0, 7) {
		t.Error("Expected the LED to start low")
	}
}

func TestBlink(t *testing.T) {
	board, chip := bootBoard(t)

	if err := Blink(board, DefaultConfig(), 3); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}

	var levels []uint32
	for _, a := range chip.StoresTo(core.GPIOData(0, 1<<7)) {
		levels = append(levels, a.Value)
	}
	want := []uint32{0, 0x80, 0}
	if len(levels) != len(want) {
		t.Fatalf("Expected %d LED writes, got %v", len(want), levels)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("Write %d: expected 0x%X, got 0x%X", i, want[i], levels[i])
		}
	}

	runs := chip.TimerRuns(0)
	if len(runs) != 3 {
		t.Fatalf("Expected 3 timer runs, got %d", len(runs))
	}
	for i, ticks := range runs {
		if ticks != 36000000 {
			t.Errorf("Run %d: expected 36000000 ticks, got %d", i, ticks)
		}
	}
}

func TestFollowSwitch(t *testing.T) {
	board, chip := bootBoard(t)
	cfg := DefaultConfig()

	chip.DriveInput(0, 1, false)
	if err := FollowSwitch(board, cfg, 1); err != nil {
		t.Fatalf("FollowSwitch failed: %v", err)
	}
	if !chip.Output(0, 7) {
		t.Error("Expected the LED lit while the switch is pressed")
	}

	addr, _ := core.IOCONAddress(cfg.Switch)
	if got := chip.Peek(addr); got != 0xD0 {
		t.Errorf("Expected IOCON 0xD0 for a pulled-up input, got 0x%X", got)
	}
	if chip.IsOutput(0, 1) {
		t.Error("Expected the switch pin to be an input")
	}

	chip.DriveInput(0, 1, true)
	if err := FollowSwitch(board, cfg, 1); err != nil {
		t.Fatalf("FollowSwitch failed: %v", err)
	}
	if chip.Output(0, 7) {
		t.Error("Expected the LED off once the switch is released")
	}

	runs := chip.TimerRuns(0)
	if len(runs) != 2 || runs[0] != 720000 {
		t.Errorf("Expected two 10 ms delays of 720000 ticks, got %v", runs)
	}
}

func TestMonitorMode(t *testing.T) {
	board, chip := bootBoard(t)

	mon, err := StartMonitor(board, DefaultConfig(), chip)
	if err != nil {
		t.Fatalf("StartMonitor failed: %v", err)
	}
	if chip.UARTDivisor() != 39 {
		t.Errorf("Expected divisor 39 for 115200 baud, got %d", chip.UARTDivisor())
	}
	if !chip.Output(0, 7) {
		t.Error("Expected the LED lit in monitor mode")
	}

	payload := protocol.NewScratchOutput()
	protocol.Request{Cmd: protocol.CmdRegRead, Addr: core.Syscon(core.DEVICEID)}.Encode(payload)
	frame := protocol.NewScratchOutput()
	if err := protocol.EncodeFrame(frame, 0x13, payload.Result()); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	chip.InjectRX(frame.Result())

	if err := mon.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	f, _, err := protocol.DecodeFrame(chip.TakeTX())
	if err != nil {
		t.Fatalf("Bad reply frame: %v", err)
	}
	if f.Seq != 0x13 {
		t.Errorf("Expected sequence 0x13, got 0x%02X", f.Seq)
	}
	resp, err := protocol.DecodeResponse(f.Payload)
	if err != nil {
		t.Fatalf("Bad reply payload: %v", err)
	}
	if resp.Kind != protocol.RespRegValue || resp.Value != sim.DeviceIDLPC1343 {
		t.Errorf("Expected the device ID, got %+v", resp)
	}
}
