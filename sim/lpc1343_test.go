package sim

import (
	"testing"

	"lpchal/core"
)

func TestLPC1343ResetValues(t *testing.T) {
	m := NewLPC1343()

	checks := []struct {
		name string
		addr uint32
		want uint32
	}{
		{"PDRUNCFG", core.Syscon(core.PDRUNCFG), 0xEDF0},
		{"SYSAHBCLKCTRL", core.Syscon(core.SYSAHBCLKCTRL), 0x485F},
		{"SYSAHBCLKDIV", core.Syscon(core.SYSAHBCLKDIV), 1},
		{"DEVICEID", core.Syscon(core.DEVICEID), DeviceIDLPC1343},
		{"IOCON PIO0_7", core.IOCON(0x50), 0xD0},
	}
	for _, c := range checks {
		if got := m.Load(c.addr); got != c.want {
			t.Errorf("%s: expected 0x%X, got 0x%X", c.name, c.want, got)
		}
	}
	if hz := m.MainClockHz(); hz != core.IRCHz {
		t.Errorf("Expected reset main clock on the IRC, got %d", hz)
	}
}

func uenWrite(m *LPC1343, uen uint32, bits ...uint32) {
	for _, b := range bits {
		m.Store(core.AliasAddress(core.Syscon(uen), 0), b)
	}
}

func uenAck(m *LPC1343, uen uint32) bool {
	return m.Load(core.AliasAddress(core.Syscon(uen), 0)) == 1
}

func TestLPC1343UpdateEnableNeedsFullSequence(t *testing.T) {
	m := NewLPC1343()
	m.Store(core.Syscon(core.MAINCLKSEL), 3)

	uenWrite(m, core.MAINCLKUEN, 0, 1)
	if uenAck(m, core.MAINCLKUEN) {
		t.Error("Acknowledged after 0, 1")
	}
	if m.Committed(core.MAINCLKSEL) != 0 {
		t.Error("Select committed without a full handshake")
	}

	uenWrite(m, core.MAINCLKUEN, 0, 1) // completes 1, 0, 1
	if !uenAck(m, core.MAINCLKUEN) {
		t.Error("Expected acknowledge after 1, 0, 1")
	}
	if m.Committed(core.MAINCLKSEL) != 3 || m.Commits(core.MAINCLKUEN) != 1 {
		t.Errorf("Expected MAINCLKSEL 3 committed once, got %d (%d commits)", m.Committed(core.MAINCLKSEL), m.Commits(core.MAINCLKUEN))
	}

	// Changing the select register alone does not switch the clock
	m.Store(core.Syscon(core.MAINCLKSEL), 0)
	if m.Committed(core.MAINCLKSEL) != 3 {
		t.Error("Select change took effect without an update")
	}
	uenWrite(m, core.MAINCLKUEN, 0)
	if uenAck(m, core.MAINCLKUEN) {
		t.Error("Acknowledge survived a new write")
	}
}

func TestLPC1343PLLLock(t *testing.T) {
	m := NewLPC1343(LockPolls(2))
	stat := core.Syscon(core.SYSPLLSTAT)

	for i := 0; i < 5; i++ {
		if m.Load(stat)&1 != 0 {
			t.Fatal("PLL locked while powered down")
		}
	}

	m.Store(core.Syscon(core.PDRUNCFG), ResetPDRUNCFG&^(1<<core.PDSysPLL))
	if m.Load(stat)&1 != 0 {
		t.Error("Locked on the first poll")
	}
	if m.Load(stat)&1 != 1 {
		t.Error("Expected lock on the second poll")
	}

	m.Store(core.Syscon(core.SYSPLLCTRL), 0x25)
	if m.PLLLocked() {
		t.Error("Lock survived a control register write")
	}
}

func TestLPC1343NeverLock(t *testing.T) {
	m := NewLPC1343(NeverLock())
	m.Store(core.Syscon(core.PDRUNCFG), 0)
	for i := 0; i < 100; i++ {
		if m.Load(core.Syscon(core.USBPLLSTAT))&1 != 0 {
			t.Fatal("USB PLL locked with NeverLock")
		}
	}
}

func TestLPC1343TimerMatchStops(t *testing.T) {
	m := NewLPC1343(TicksPerPoll(400))
	tcr := core.Timer32Reg(0, core.TMR32TCR)
	m.Store(core.Syscon(core.SYSAHBCLKCTRL), ResetSYSAHBCLKCTRL|1<<core.AHBCT32B0)

	m.Store(tcr, 2)
	m.Store(core.Timer32Reg(0, core.TMR32MR0), 1000)
	m.Store(core.Timer32Reg(0, core.TMR32MCR), 0x05)
	m.Store(tcr, 1)

	polls := 0
	for m.Load(tcr)&1 != 0 {
		polls++
		if polls > 10 {
			t.Fatal("Counter did not stop on match")
		}
	}
	if polls != 2 {
		t.Errorf("Expected stop on the third poll, got %d running polls", polls)
	}
	if tc := m.Load(core.Timer32Reg(0, core.TMR32TC)); tc != 1000 {
		t.Errorf("Expected TC parked on MR0, got %d", tc)
	}
	if m.Elapsed(0) != 1000 {
		t.Errorf("Expected 1000 ticks elapsed, got %d", m.Elapsed(0))
	}
	if ir := m.Load(core.Timer32Reg(0, core.TMR32IR)); ir != 1 {
		t.Errorf("Expected MR0 interrupt flag, got 0x%X", ir)
	}
	m.Store(core.Timer32Reg(0, core.TMR32IR), 0xFF)
	if ir := m.Load(core.Timer32Reg(0, core.TMR32IR)); ir != 0 {
		t.Errorf("IR not cleared by writing ones, got 0x%X", ir)
	}
}

func TestLPC1343UARTDivisorLatch(t *testing.T) {
	m := NewLPC1343()
	m.Store(core.UARTReg(core.UARTLCR), 0x83)
	m.Store(core.UARTReg(core.UARTDLL), 39)
	m.Store(core.UARTReg(core.UARTDLM), 0)
	m.Store(core.UARTReg(core.UARTLCR), 0x03)
	m.Store(core.UARTReg(core.UARTTHR), 'x') // UART clock still gated

	if d := m.UARTDivisor(); d != 39 {
		t.Errorf("Expected divisor 39, got %d", d)
	}
	if tx := m.TakeTX(); len(tx) != 0 {
		t.Errorf("Gated UART transmitted %q", tx)
	}
	if lsr := m.Load(core.UARTReg(core.UARTLSR)); lsr&0x21 != 0x20 {
		t.Errorf("Expected THRE without RDR, got 0x%X", lsr)
	}
}

func TestLPC1343PeekSeesDeviceState(t *testing.T) {
	m := NewLPC1343(TicksPerPoll(400))
	m.Store(core.Syscon(core.SYSAHBCLKCTRL), ResetSYSAHBCLKCTRL|1<<core.AHBCT32B0)

	mr0 := core.Timer32Reg(0, core.TMR32MR0)
	m.Store(mr0, 12345)
	if got := m.Peek(mr0); got != 12345 {
		t.Errorf("Expected MR0 12345, got %d", got)
	}

	tcr := core.Timer32Reg(0, core.TMR32TCR)
	m.Store(tcr, 1)
	for i := 0; i < 3; i++ {
		if got := m.Peek(tcr); got != 1 {
			t.Fatalf("Expected TCR 1, got %d", got)
		}
	}
	if m.Elapsed(0) != 0 {
		t.Errorf("Peek advanced the counter by %d ticks", m.Elapsed(0))
	}

	m.Store(core.GPIOReg(0, core.GPIODIR), 1<<7)
	m.Store(core.GPIOReg(0, core.GPIODATA), 1<<7)
	if got := m.Peek(core.GPIOReg(0, core.GPIODIR)); got != 1<<7 {
		t.Errorf("Expected DIR 0x80, got 0x%X", got)
	}
	if got := m.Peek(core.GPIOReg(0, core.GPIODATA)); got&(1<<7) == 0 {
		t.Errorf("Expected PIO0_7 high in DATA, got 0x%X", got)
	}

	m.InjectRX([]byte("ab"))
	rbr := core.UARTReg(core.UARTRBR)
	if got := m.Peek(rbr); got != 'a' {
		t.Errorf("Expected 'a' at the head of RX, got 0x%X", got)
	}
	if got := m.Load(rbr); got != 'a' {
		t.Errorf("Peek consumed a byte, load returned 0x%X", got)
	}
	if got := m.Peek(rbr); got != 'b' {
		t.Errorf("Expected 'b' after one load, got 0x%X", got)
	}
}
