//go:build tinygo

package core

import "device/arm"

// nop executes a single NOP instruction
func nop() {
	arm.Asm("nop")
}
