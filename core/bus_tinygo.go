//go:build tinygo

package core

import (
	"runtime/volatile"
	"unsafe"
)

// mmioBus dereferences physical addresses through volatile registers
type mmioBus struct{}

func (mmioBus) Load(addr uint32) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
}

func (mmioBus) Store(addr uint32, value uint32) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(value)
}

// MMIO is the physical memory map of the running chip
var MMIO Bus = mmioBus{}
