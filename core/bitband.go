package core

// Cortex-M3 bit-band layout. Every bit of a word in the peripheral bit-band
// window has its own word in the alias window; storing 0 or 1 there clears or
// sets the bit in a single bus transaction.
const (
	BitBandStart = 0x40000000 // first word of the peripheral bit-band window
	BitBandEnd   = 0x400FFFFC // last word of the peripheral bit-band window

	AliasStart = 0x42000000 // first word of the peripheral alias window
	AliasEnd   = 0x43FFFFFC // last word of the peripheral alias window

	aliasHighMask = 0xF0000000
	aliasLowMask  = 0x000FFFFF
	aliasOffset   = 0x02000000
)

// Region says which access path serves an address
type Region uint8

const (
	RegionDirect  Region = iota // plain read-modify-write
	RegionBitBand               // single-word access through the alias window
)

func (r Region) String() string {
	switch r {
	case RegionDirect:
		return "direct"
	case RegionBitBand:
		return "bit-band"
	default:
		return "region(" + utoa(uint32(r)) + ")"
	}
}

// RegionOf classifies addr. The test is a pure range comparison.
func RegionOf(addr uint32) Region {
	if BitBandStart <= addr && addr <= BitBandEnd {
		return RegionBitBand
	}
	return RegionDirect
}

// AliasAddress returns the alias word for bit of the word at addr.
// addr is not checked against the bit-band window.
func AliasAddress(addr uint32, bit uint8) uint32 {
	return (addr & aliasHighMask) + aliasOffset + ((addr & aliasLowMask) << 5) + (uint32(bit) << 2)
}

// IsAlias reports whether addr lies in the peripheral alias window
func IsAlias(addr uint32) bool {
	return AliasStart <= addr && addr <= AliasEnd
}

// AliasTarget decodes an alias word back into the word address and bit it
// stands for. It is the inverse of AliasAddress for word-aligned addresses.
func AliasTarget(alias uint32) (addr uint32, bit uint8) {
	high := alias & aliasHighMask
	rel := alias - high - aliasOffset
	bit = uint8((rel >> 2) & 0x1F)
	addr = high + ((rel >> 5) &^ 3)
	return addr, bit
}

// BitEngine performs single-bit register operations, picking the direct or
// bit-band path from the address. Callers never choose the path.
type BitEngine struct {
	bus Bus
}

// NewBitEngine creates an engine over bus
func NewBitEngine(bus Bus) *BitEngine {
	return &BitEngine{bus: bus}
}

// Bus returns the underlying bus
func (e *BitEngine) Bus() Bus {
	return e.bus
}

// Read returns the whole word at addr
func (e *BitEngine) Read(addr uint32) uint32 {
	return e.bus.Load(addr)
}

// Write stores a whole word at addr
func (e *BitEngine) Write(addr uint32, value uint32) {
	e.bus.Store(addr, value)
}

// SetBit sets bit of the word at addr
func (e *BitEngine) SetBit(addr uint32, bit uint8) {
	switch RegionOf(addr) {
	case RegionBitBand:
		e.bus.Store(AliasAddress(addr, bit), 1)
	default:
		e.modifyDirect(addr, 1<<bit, 1<<bit)
	}
}

// ClearBit clears bit of the word at addr
func (e *BitEngine) ClearBit(addr uint32, bit uint8) {
	switch RegionOf(addr) {
	case RegionBitBand:
		e.bus.Store(AliasAddress(addr, bit), 0)
	default:
		e.modifyDirect(addr, 1<<bit, 0)
	}
}

// WriteBit sets bit of the word at addr to v&1
func (e *BitEngine) WriteBit(addr uint32, bit uint8, v uint8) {
	switch RegionOf(addr) {
	case RegionBitBand:
		e.bus.Store(AliasAddress(addr, bit), uint32(v&1))
	default:
		e.modifyDirect(addr, 1<<bit, uint32(v&1)<<bit)
	}
}

// ReadBit returns bit of the word at addr as 0 or 1
func (e *BitEngine) ReadBit(addr uint32, bit uint8) uint8 {
	switch RegionOf(addr) {
	case RegionBitBand:
		return uint8(e.bus.Load(AliasAddress(addr, bit)) & 1)
	default:
		return uint8((e.bus.Load(addr) >> bit) & 1)
	}
}

// SetBits ORs mask into the word at addr with one read-modify-write
func (e *BitEngine) SetBits(addr uint32, mask uint32) {
	e.modifyDirect(addr, mask, mask)
}

// ClearBits clears mask in the word at addr with one read-modify-write
func (e *BitEngine) ClearBits(addr uint32, mask uint32) {
	e.modifyDirect(addr, mask, 0)
}

// ModifyBits replaces the bits selected by mask with value
func (e *BitEngine) ModifyBits(addr uint32, mask uint32, value uint32) {
	e.modifyDirect(addr, mask, value)
}

// modifyDirect is the read-modify-write path. It is not atomic against other
// bus masters; interrupts are masked so a handler on this core cannot
// interleave with it.
func (e *BitEngine) modifyDirect(addr uint32, mask uint32, value uint32) {
	state := disableInterrupts()
	word := e.bus.Load(addr)
	e.bus.Store(addr, word&^mask|value&mask)
	restoreInterrupts(state)
}
