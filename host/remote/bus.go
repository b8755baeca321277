package remote

import "lpchal/core"

// Bus is a core.Bus whose words live on a remote target. core.Bus has no
// error return, so the first failure is kept in Err and every access after it
// is skipped: loads return 0 and stores are dropped.
type Bus struct {
	client *Client
	err    error
	loads  int
	stores int
}

var _ core.Bus = (*Bus)(nil)

// NewBus creates a bus over client
func NewBus(client *Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Load(addr uint32) uint32 {
	if b.err != nil {
		return 0
	}
	v, err := b.client.ReadReg(addr)
	if err != nil {
		b.err = err
		return 0
	}
	b.loads++
	return v
}

func (b *Bus) Store(addr uint32, value uint32) {
	if b.err != nil {
		return
	}
	if err := b.client.WriteReg(addr, value); err != nil {
		b.err = err
		return
	}
	b.stores++
}

// Err returns the first failed access, if any
func (b *Bus) Err() error {
	return b.err
}

// ClearErr forgets a failure so accesses go out again
func (b *Bus) ClearErr() {
	b.err = nil
}

// Counts returns the number of loads and stores that reached the target
func (b *Bus) Counts() (loads, stores int) {
	return b.loads, b.stores
}

// Client returns the underlying client
func (b *Bus) Client() *Client {
	return b.client
}
