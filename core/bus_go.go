//go:build !tinygo

package core

// mmioBus stands in for the memory map on regular Go, where there is none.
// Host code drives a sim.RegFile or a remote monitor link instead.
type mmioBus struct{}

func (mmioBus) Load(addr uint32) uint32 {
	panic("core: no memory-mapped I/O on host (load " + hex32(addr) + ")")
}

func (mmioBus) Store(addr uint32, value uint32) {
	panic("core: no memory-mapped I/O on host (store " + hex32(addr) + ")")
}

// MMIO is the physical memory map of the running chip
var MMIO Bus = mmioBus{}
