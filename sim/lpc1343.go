package sim

import (
	"lpchal/core"
)

// Power-on reset values modelled by NewLPC1343
const (
	ResetPDRUNCFG      = 0xEDF0
	ResetSYSAHBCLKCTRL = 0x485F
	ResetIOCON         = 0xD0
	DeviceIDLPC1343    = 0x3D00002
)

// uenSelect pairs each clock update-enable register with the select register
// it commits
var uenSelect = map[uint32]uint32{
	core.SYSPLLCLKUEN: core.SYSPLLCLKSEL,
	core.USBPLLCLKUEN: core.USBPLLCLKSEL,
	core.MAINCLKUEN:   core.MAINCLKSEL,
	core.USBCLKUEN:    core.USBCLKSEL,
	core.WDTCLKUEN:    core.WDTCLKSEL,
	core.CLKOUTUEN:    core.CLKOUTCLKSEL,
}

// Option configures an LPC1343 model
type Option func(*LPC1343)

// LockPolls sets how many status reads a powered PLL takes to lock
func LockPolls(n int) Option {
	return func(m *LPC1343) { m.lockPolls = n }
}

// NeverLock keeps both PLLs unlocked forever
func NeverLock() Option {
	return func(m *LPC1343) { m.neverLock = true }
}

// TicksPerPoll sets how far a running counter advances per TCR read
func TicksPerPoll(n uint32) Option {
	return func(m *LPC1343) { m.ticksPerPoll = n }
}

// Crystal sets the frequency of the simulated crystal
func Crystal(hz uint32) Option {
	return func(m *LPC1343) { m.crystalHz = hz }
}

// LPC1343 is a register-level model of the chip on top of a RegFile
type LPC1343 struct {
	*RegFile

	lockPolls    int
	neverLock    bool
	ticksPerPoll uint32
	crystalHz    uint32

	sysPLLPolls int
	usbPLLPolls int

	uen       map[uint32]*uenState
	committed map[uint32]uint32

	ports  [core.NumPorts]port
	timers [core.NumTimers]timer
	uart   uart
}

// NewLPC1343 creates a model at power-on reset
func NewLPC1343(opts ...Option) *LPC1343 {
	m := &LPC1343{
		RegFile:      New(),
		lockPolls:    3,
		ticksPerPoll: 1000,
		crystalHz:    12000000,
		uen:          make(map[uint32]*uenState),
		committed:    make(map[uint32]uint32),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reset()
	return m
}

func (m *LPC1343) reset() {
	m.Poke(core.Syscon(core.PDRUNCFG), ResetPDRUNCFG)
	m.Poke(core.Syscon(core.SYSAHBCLKCTRL), ResetSYSAHBCLKCTRL)
	m.Poke(core.Syscon(core.SYSAHBCLKDIV), 1)
	m.Poke(core.Syscon(core.USBCLKDIV), 1)
	m.Poke(core.Syscon(core.DEVICEID), DeviceIDLPC1343)
	for port := uint8(0); port < core.NumPorts; port++ {
		for pin := uint8(0); pin < core.PortWidth(port); pin++ {
			addr, _ := core.IOCONAddress(core.NewPin(port, pin))
			m.Poke(addr, ResetIOCON)
		}
	}

	m.installPLL(core.SYSPLLSTAT, core.SYSPLLCTRL, core.PDSysPLL, &m.sysPLLPolls)
	m.installPLL(core.USBPLLSTAT, core.USBPLLCTRL, core.PDUSBPLL, &m.usbPLLPolls)
	for uen := range uenSelect {
		m.installUEN(uen)
	}
	for i := range m.ports {
		m.installPort(uint8(i))
	}
	for i := range m.timers {
		m.installTimer(uint8(i))
	}
	m.installUART()
}

// installPLL models a PLL status register: bit 0 reads 1 once the PLL has
// been powered for lockPolls reads. Rewriting the control register or
// powering down drops lock.
func (m *LPC1343) installPLL(stat, ctrl uint32, pd uint8, polls *int) {
	m.OnLoad(core.Syscon(stat), func(uint32) uint32 {
		if m.Peek(core.Syscon(core.PDRUNCFG))&(1<<pd) != 0 {
			*polls = 0
			return 0
		}
		*polls++
		if m.neverLock || *polls < m.lockPolls {
			return 0
		}
		return 1
	})
	m.OnStore(core.Syscon(ctrl), func(old, value uint32) uint32 {
		*polls = 0
		return value
	})
}

// PLLLocked reports whether the system PLL currently reads as locked
func (m *LPC1343) PLLLocked() bool {
	return m.Peek(core.Syscon(core.PDRUNCFG))&(1<<core.PDSysPLL) == 0 &&
		!m.neverLock && m.sysPLLPolls >= m.lockPolls
}

// uenState tracks the 1-0-1 write sequence on an update-enable register
type uenState struct {
	step    int // 0: want 1, 1: want 0, 2: want 1
	ack     bool
	commits int
}

func (m *LPC1343) installUEN(uen uint32) {
	st := &uenState{}
	m.uen[uen] = st
	sel := uenSelect[uen]
	m.OnStore(core.Syscon(uen), func(old, value uint32) uint32 {
		bit := value & 1
		st.ack = false
		switch {
		case st.step == 0 && bit == 1:
			st.step = 1
		case st.step == 1 && bit == 0:
			st.step = 2
		case st.step == 2 && bit == 1:
			st.ack = true
			st.commits++
			st.step = 1
			m.committed[sel] = m.Peek(core.Syscon(sel))
		case st.step == 2:
			st.step = 0
		}
		return value
	})
	m.OnLoad(core.Syscon(uen), func(stored uint32) uint32 {
		if st.ack {
			return stored | 1
		}
		return stored &^ 1
	})
}

// Committed returns the value of the select register at sel (a SYSCON offset)
// as of its last completed update-enable handshake
func (m *LPC1343) Committed(sel uint32) uint32 {
	return m.committed[sel]
}

// Commits returns how many handshakes completed on update-enable register
// uen (a SYSCON offset)
func (m *LPC1343) Commits(uen uint32) int {
	if st := m.uen[uen]; st != nil {
		return st.commits
	}
	return 0
}

// CrystalHz returns the simulated crystal frequency
func (m *LPC1343) CrystalHz() uint32 {
	return m.crystalHz
}

func (m *LPC1343) powered(pd uint8) bool {
	return m.Peek(core.Syscon(core.PDRUNCFG))&(1<<pd) == 0
}

func (m *LPC1343) sourceHz(sel uint32) uint32 {
	switch sel & 3 {
	case 0:
		return core.IRCHz
	case 1:
		if m.powered(core.PDSysOsc) {
			return m.crystalHz
		}
	}
	return 0
}

// PLLOutputHz returns the system PLL output from committed registers, 0 while
// the PLL is down or unlocked
func (m *LPC1343) PLLOutputHz() uint32 {
	if !m.PLLLocked() {
		return 0
	}
	in := m.sourceHz(m.Committed(core.SYSPLLCLKSEL))
	return in * core.PLLMultiplier(m.Peek(core.Syscon(core.SYSPLLCTRL)))
}

// MainClockHz returns the main clock as the committed registers select it
func (m *LPC1343) MainClockHz() uint32 {
	switch m.Committed(core.MAINCLKSEL) & 3 {
	case 0:
		return core.IRCHz
	case 1:
		return m.sourceHz(m.Committed(core.SYSPLLCLKSEL))
	case 2:
		if m.powered(core.PDWDTOsc) {
			return core.WDTOscFrequency(m.Peek(core.Syscon(core.WDTOSCCTRL)))
		}
	case 3:
		return m.PLLOutputHz()
	}
	return 0
}

// SystemClockHz returns the main clock divided by SYSAHBCLKDIV
func (m *LPC1343) SystemClockHz() uint32 {
	div := m.Peek(core.Syscon(core.SYSAHBCLKDIV)) & 0xFF
	if div == 0 {
		return 0
	}
	return m.MainClockHz() / div
}

// USBClockHz returns the USB clock as the committed registers select it
func (m *LPC1343) USBClockHz() uint32 {
	if !m.powered(core.PDUSBPad) {
		return 0
	}
	var hz uint32
	switch m.Committed(core.USBCLKSEL) & 3 {
	case 0:
		if !m.powered(core.PDUSBPLL) || m.neverLock {
			return 0
		}
		in := m.sourceHz(m.Committed(core.USBPLLCLKSEL))
		hz = in * core.PLLMultiplier(m.Peek(core.Syscon(core.USBPLLCTRL)))
	case 1:
		hz = m.MainClockHz()
	}
	div := m.Peek(core.Syscon(core.USBCLKDIV)) & 0xFF
	if div == 0 {
		return 0
	}
	return hz / div
}

func (m *LPC1343) clockEnabled(bit uint8) bool {
	return m.Peek(core.Syscon(core.SYSAHBCLKCTRL))&(1<<bit) != 0
}
