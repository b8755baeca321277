// Package sim simulates the LPC1343 memory map for host-side tests and tools.
//
// RegFile is a sparse word store that decodes the Cortex-M3 peripheral alias
// window onto the words it stands for, so bit-band and direct accesses see
// the same state. Device behaviour is attached with MapIO windows or per-word
// load and store hooks. LPC1343 wraps a RegFile with models of the clock
// tree, GPIO ports, counter/timers and UART.
package sim

import (
	"sort"

	"github.com/pkg/errors"

	"lpchal/core"
)

// Op is the kind of a bus access
type Op uint8

const (
	OpLoad Op = iota
	OpStore
)

func (o Op) String() string {
	if o == OpStore {
		return "store"
	}
	return "load"
}

// Access is one recorded bus transaction
type Access struct {
	Op     Op
	Addr   uint32 // address as issued, possibly an alias word
	Target uint32 // word the access landed on
	Bit    int    // bit selected through the alias window, -1 for word accesses
	Value  uint32 // value stored, or value returned by a load
}

// Alias reports whether the access went through the bit-band alias window
func (a Access) Alias() bool {
	return a.Bit >= 0
}

type ioRegion struct {
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
	onPeek  func(addr uint32) uint32
}

// LoadHook computes the value a load of a word returns from its stored value
type LoadHook func(stored uint32) uint32

// StoreHook returns the value to latch when value is stored over old
type StoreHook func(old, value uint32) uint32

// RegFile is a simulated 32-bit memory map. Unwritten words read as zero.
// It is not safe for concurrent use.
type RegFile struct {
	words   map[uint32]uint32
	regions []ioRegion
	loads   map[uint32]LoadHook
	stores  map[uint32]StoreHook

	tracing bool
	trace   []Access
}

var _ core.Bus = (*RegFile)(nil)

// New creates an empty register file with tracing enabled
func New() *RegFile {
	return &RegFile{
		words:   make(map[uint32]uint32),
		loads:   make(map[uint32]LoadHook),
		stores:  make(map[uint32]StoreHook),
		tracing: true,
	}
}

// MapIO routes accesses to the words in [start, end] to onRead and onWrite.
// Either callback may be nil. Regions may not overlap.
func (r *RegFile) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) error {
	if start > end {
		return errors.Errorf("sim: region start 0x%08X above end 0x%08X", start, end)
	}
	if start&3 != 0 {
		return errors.Errorf("sim: region start 0x%08X not word aligned", start)
	}
	for _, reg := range r.regions {
		if start <= reg.end && reg.start <= end {
			return errors.Errorf("sim: region 0x%08X-0x%08X overlaps 0x%08X-0x%08X", start, end, reg.start, reg.end)
		}
	}
	r.regions = append(r.regions, ioRegion{start: start, end: end, onRead: onRead, onWrite: onWrite})
	sort.Slice(r.regions, func(i, j int) bool { return r.regions[i].start < r.regions[j].start })
	return nil
}

// MapPeek gives the region starting at start a view for Peek. peek must not
// change device state; reads that pop or advance belong in onRead only.
func (r *RegFile) MapPeek(start uint32, peek func(addr uint32) uint32) error {
	reg := r.region(start)
	if reg == nil || reg.start != start {
		return errors.Errorf("sim: no region starts at 0x%08X", start)
	}
	reg.onPeek = peek
	return nil
}

// OnLoad installs a hook for loads of the word at addr
func (r *RegFile) OnLoad(addr uint32, hook LoadHook) {
	r.loads[addr&^3] = hook
}

// OnStore installs a hook for stores to the word at addr
func (r *RegFile) OnStore(addr uint32, hook StoreHook) {
	r.stores[addr&^3] = hook
}

func (r *RegFile) region(addr uint32) *ioRegion {
	i := sort.Search(len(r.regions), func(i int) bool { return r.regions[i].end >= addr })
	if i < len(r.regions) && r.regions[i].start <= addr {
		return &r.regions[i]
	}
	return nil
}

// Peek returns the value of the word at addr without side effects: the
// latched word, or the device state of a mapped region through its MapPeek
// view. A mapped region without a view peeks as zero.
func (r *RegFile) Peek(addr uint32) uint32 {
	addr &^= 3
	if reg := r.region(addr); reg != nil {
		if reg.onPeek == nil {
			return 0
		}
		return reg.onPeek(addr)
	}
	return r.words[addr]
}

// Poke latches value at addr without side effects. Mapped regions keep their
// state in the device, so a Poke there is not visible.
func (r *RegFile) Poke(addr uint32, value uint32) {
	r.words[addr&^3] = value
}

func (r *RegFile) loadWord(addr uint32) uint32 {
	if reg := r.region(addr); reg != nil {
		if reg.onRead == nil {
			return 0
		}
		return reg.onRead(addr)
	}
	v := r.words[addr]
	if hook := r.loads[addr]; hook != nil {
		v = hook(v)
	}
	return v
}

// latched is the value a bit-band write merges into: the stored word, with
// no load side effects
func (r *RegFile) latched(addr uint32) uint32 {
	if reg := r.region(addr); reg != nil {
		if reg.onRead == nil {
			return 0
		}
		return reg.onRead(addr)
	}
	return r.words[addr]
}

func (r *RegFile) storeWord(addr uint32, value uint32) {
	if reg := r.region(addr); reg != nil {
		if reg.onWrite != nil {
			reg.onWrite(addr, value)
		}
		return
	}
	if hook := r.stores[addr]; hook != nil {
		value = hook(r.words[addr], value)
	}
	r.words[addr] = value
}

// Load implements core.Bus
func (r *RegFile) Load(addr uint32) uint32 {
	if core.IsAlias(addr) {
		target, bit := core.AliasTarget(addr)
		v := (r.loadWord(target) >> bit) & 1
		r.record(Access{Op: OpLoad, Addr: addr, Target: target, Bit: int(bit), Value: v})
		return v
	}
	addr &^= 3
	v := r.loadWord(addr)
	r.record(Access{Op: OpLoad, Addr: addr, Target: addr, Bit: -1, Value: v})
	return v
}

// Store implements core.Bus. A store to an alias word changes only the bit it
// stands for, as the bit-band hardware does.
func (r *RegFile) Store(addr uint32, value uint32) {
	if core.IsAlias(addr) {
		target, bit := core.AliasTarget(addr)
		r.record(Access{Op: OpStore, Addr: addr, Target: target, Bit: int(bit), Value: value & 1})
		word := r.latched(target)&^(1<<bit) | (value&1)<<bit
		r.storeWord(target, word)
		return
	}
	addr &^= 3
	r.record(Access{Op: OpStore, Addr: addr, Target: addr, Bit: -1, Value: value})
	r.storeWord(addr, value)
}

func (r *RegFile) record(a Access) {
	if r.tracing {
		r.trace = append(r.trace, a)
	}
}

// SetTracing turns the access trace on or off
func (r *RegFile) SetTracing(on bool) {
	r.tracing = on
}

// Trace returns the recorded accesses in order
func (r *RegFile) Trace() []Access {
	return r.trace
}

// ResetTrace discards the recorded accesses
func (r *RegFile) ResetTrace() {
	r.trace = nil
}

// StoresTo returns the recorded stores that landed on the word at target,
// whether issued directly or through the alias window
func (r *RegFile) StoresTo(target uint32) []Access {
	var out []Access
	for _, a := range r.trace {
		if a.Op == OpStore && a.Target == target&^3 {
			out = append(out, a)
		}
	}
	return out
}
