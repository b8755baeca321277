package sim

import (
	"lpchal/core"
)

// port models one GPIO port
type port struct {
	dir  uint32
	out  uint32
	in   uint32
	regs map[uint32]uint32 // interrupt configuration, latched only
}

// level is what the masked data window reads: the output latch on output
// pins and the external level on inputs
func (p *port) level() uint32 {
	return (p.out&p.dir | p.in&^p.dir) & 0xFFF
}

func (m *LPC1343) installPort(n uint8) {
	p := &m.ports[n]
	p.regs = make(map[uint32]uint32)
	base := core.GPIOReg(n, 0)
	read := func(addr uint32) uint32 {
		off := addr - base
		switch {
		case off <= core.GPIODATA:
			return p.level() & (off >> 2)
		case off == core.GPIODIR:
			return p.dir
		}
		return p.regs[off]
	}
	err := m.MapIO(base, base+core.GPIOStride-4, read,
		func(addr uint32, value uint32) {
			off := addr - base
			switch {
			case off <= core.GPIODATA:
				mask := off >> 2
				p.out = p.out&^mask | value&mask
			case off == core.GPIODIR:
				p.dir = value & 0xFFF
			default:
				p.regs[off] = value
			}
		})
	if err != nil {
		panic(err)
	}
	if err := m.MapPeek(base, read); err != nil {
		panic(err)
	}
}

// DriveInput sets the external level seen on an input pin
func (m *LPC1343) DriveInput(port, pin uint8, high bool) {
	p := &m.ports[port]
	if high {
		p.in |= 1 << pin
	} else {
		p.in &^= 1 << pin
	}
}

// Output returns the output latch of a pin
func (m *LPC1343) Output(port, pin uint8) bool {
	return m.ports[port].out&(1<<pin) != 0
}

// IsOutput reports whether a pin is configured as an output
func (m *LPC1343) IsOutput(port, pin uint8) bool {
	return m.ports[port].dir&(1<<pin) != 0
}

// timer models a CT32B counter/timer
type timer struct {
	tcr     uint32
	tc      uint32
	pr      uint32
	mcr     uint32
	ir      uint32
	mr      [4]uint32
	elapsed uint64
	runs    []uint32 // MR0 at each enable
}

const (
	tcrEnable = 1 << 0
	tcrReset  = 1 << 1
)

func (t *timer) running() bool {
	return t.tcr&tcrEnable != 0 && t.tcr&tcrReset == 0
}

// advance moves the counter by n ticks, honouring MR0 match actions
func (t *timer) advance(n uint32) {
	if t.mcr&0x7 != 0 && t.tc < t.mr[0] && uint64(t.tc)+uint64(n) >= uint64(t.mr[0]) {
		t.elapsed += uint64(t.mr[0] - t.tc)
		t.tc = t.mr[0]
		if t.mcr&1 != 0 {
			t.ir |= 1
		}
		if t.mcr&2 != 0 {
			t.tc = 0
		}
		if t.mcr&4 != 0 {
			t.tcr &^= tcrEnable
		}
		return
	}
	t.tc += n
	t.elapsed += uint64(n)
}

func (m *LPC1343) installTimer(ch uint8) {
	t := &m.timers[ch]
	base := core.Timer32Reg(ch, 0)
	read := func(addr uint32, poll bool) uint32 {
		switch addr - base {
		case core.TMR32IR:
			return t.ir
		case core.TMR32TCR:
			// Time passes while software polls the control register
			if poll && t.running() && m.clockEnabled(core.AHBCT32B0+ch) {
				t.advance(m.ticksPerPoll)
			}
			return t.tcr
		case core.TMR32TC:
			return t.tc
		case core.TMR32PR:
			return t.pr
		case core.TMR32MCR:
			return t.mcr
		case core.TMR32MR0, core.TMR32MR1, core.TMR32MR2, core.TMR32MR3:
			return t.mr[(addr-base-core.TMR32MR0)>>2]
		}
		return 0
	}
	err := m.MapIO(base, base+0x7C,
		func(addr uint32) uint32 { return read(addr, true) },
		func(addr uint32, value uint32) {
			switch addr - base {
			case core.TMR32IR:
				t.ir &^= value
			case core.TMR32TCR:
				if value&tcrReset != 0 {
					t.tc = 0
				}
				if value&tcrEnable != 0 && !t.running() {
					t.runs = append(t.runs, t.mr[0])
				}
				t.tcr = value & 3
			case core.TMR32TC:
				t.tc = value
			case core.TMR32PR:
				t.pr = value
			case core.TMR32MCR:
				t.mcr = value & 0xFFF
			case core.TMR32MR0, core.TMR32MR1, core.TMR32MR2, core.TMR32MR3:
				t.mr[(addr-base-core.TMR32MR0)>>2] = value
			}
		})
	if err != nil {
		panic(err)
	}
	err = m.MapPeek(base, func(addr uint32) uint32 { return read(addr, false) })
	if err != nil {
		panic(err)
	}
}

// Elapsed returns the ticks counted by timer ch since reset of the model
func (m *LPC1343) Elapsed(ch uint8) uint64 {
	return m.timers[ch].elapsed
}

// TimerRuns returns the match value of every counter run started on ch
func (m *LPC1343) TimerRuns(ch uint8) []uint32 {
	return m.timers[ch].runs
}

// uart models the UART: divisor latches, line status and byte queues
type uart struct {
	lcr uint32
	dll uint32
	dlm uint32
	ier uint32
	fcr uint32
	scr uint32
	rx  []byte
	tx  []byte
}

const (
	lcrDLAB = 0x80
	lsrRDR  = 0x01
	lsrTHRE = 0x20
	lsrTEMT = 0x40
)

func (m *LPC1343) installUART() {
	u := &m.uart
	read := func(addr uint32, pop bool) uint32 {
		switch addr - core.UARTBase {
		case core.UARTRBR:
			if u.lcr&lcrDLAB != 0 {
				return u.dll
			}
			if len(u.rx) == 0 {
				return 0
			}
			c := u.rx[0]
			if pop {
				u.rx = u.rx[1:]
			}
			return uint32(c)
		case core.UARTIER:
			if u.lcr&lcrDLAB != 0 {
				return u.dlm
			}
			return u.ier
		case core.UARTIIR:
			return 0x01
		case core.UARTLCR:
			return u.lcr
		case core.UARTLSR:
			v := uint32(lsrTHRE | lsrTEMT)
			if len(u.rx) > 0 {
				v |= lsrRDR
			}
			return v
		case 0x1C:
			return u.scr
		}
		return 0
	}
	err := m.MapIO(core.UARTBase, core.UARTBase+0x5C,
		func(addr uint32) uint32 { return read(addr, true) },
		func(addr uint32, value uint32) {
			switch addr - core.UARTBase {
			case core.UARTTHR:
				if u.lcr&lcrDLAB != 0 {
					u.dll = value & 0xFF
					return
				}
				if m.clockEnabled(core.AHBUART) {
					u.tx = append(u.tx, byte(value))
				}
			case core.UARTIER:
				if u.lcr&lcrDLAB != 0 {
					u.dlm = value & 0xFF
					return
				}
				u.ier = value
			case core.UARTFCR:
				u.fcr = value
				if value&0x02 != 0 {
					u.rx = nil
				}
			case core.UARTLCR:
				u.lcr = value & 0xFF
			case 0x1C:
				u.scr = value
			}
		})
	if err != nil {
		panic(err)
	}
	err = m.MapPeek(core.UARTBase, func(addr uint32) uint32 { return read(addr, false) })
	if err != nil {
		panic(err)
	}
}

// InjectRX queues bytes as if received on RXD
func (m *LPC1343) InjectRX(p []byte) {
	m.uart.rx = append(m.uart.rx, p...)
}

// TakeTX returns and clears the bytes transmitted on TXD
func (m *LPC1343) TakeTX() []byte {
	out := m.uart.tx
	m.uart.tx = nil
	return out
}

// UARTDivisor returns the divisor latch value
func (m *LPC1343) UARTDivisor() uint32 {
	return m.uart.dlm<<8 | m.uart.dll
}

// UARTLineControl returns LCR
func (m *LPC1343) UARTLineControl() uint32 {
	return m.uart.lcr
}
