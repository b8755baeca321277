package core

// Bus is a 32-bit word view of the memory map. Peripherals on the LPC1343 are
// only ever accessed as whole aligned words.
type Bus interface {
	// Load reads the word at addr
	Load(addr uint32) uint32

	// Store writes value to the word at addr
	Store(addr uint32, value uint32)
}
