package core_test

import (
	"testing"

	"lpchal/core"
	"lpchal/sim"
)

// TestBitEngineRoundTripEveryBit covers a word in the bit-band window, which
// goes through alias stores, and the GPIO block, which is read-modify-write.
func TestBitEngineRoundTripEveryBit(t *testing.T) {
	const pattern = 0xA5C3_3C5A

	for _, addr := range []uint32{0x40048080, 0x50008000} {
		for bit := uint8(0); bit < 32; bit++ {
			r := sim.New()
			r.Poke(addr, pattern)
			e := core.NewBitEngine(r)
			mask := uint32(1) << bit

			e.WriteBit(addr, bit, 1)
			if v := e.ReadBit(addr, bit); v != 1 {
				t.Errorf("0x%08X bit %d: expected 1 after set, got %d", addr, bit, v)
			}
			if got := r.Peek(addr); got != pattern|mask {
				t.Errorf("0x%08X bit %d: expected 0x%08X after set, got 0x%08X", addr, bit, pattern|mask, got)
			}

			e.WriteBit(addr, bit, 0)
			if v := e.ReadBit(addr, bit); v != 0 {
				t.Errorf("0x%08X bit %d: expected 0 after clear, got %d", addr, bit, v)
			}
			if got := r.Peek(addr); got != pattern&^mask {
				t.Errorf("0x%08X bit %d: expected 0x%08X after clear, got 0x%08X", addr, bit, pattern&^mask, got)
			}

			if core.RegionOf(addr) == core.RegionBitBand {
				for _, a := range r.StoresTo(addr) {
					if !a.Alias() || a.Bit != int(bit) {
						t.Errorf("0x%08X bit %d: expected alias stores only, got %+v", addr, bit, a)
					}
				}
			}
		}
	}
}
