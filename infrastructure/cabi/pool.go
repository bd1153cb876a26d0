package cabi

import (
	"fmt"
	"sync"

	"github.com/reglet-dev/dome-sdk/domain/errors"
)

// slotPool binds Go callbacks to a fixed range of C trampoline indices.
// Slots are handed out in order and returned only by reset or when the
// host rejects a registration.
type slotPool[F any] struct {
	mu    sync.RWMutex
	kind  string
	slots []F
	used  []bool
}

func newSlotPool[F any](kind string, size int) *slotPool[F] {
	return &slotPool[F]{
		kind:  kind,
		slots: make([]F, size),
		used:  make([]bool, size),
	}
}

// bind stores fn and returns the index of the trampoline that calls it.
func (p *slotPool[F]) bind(fn F) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, used := range p.used {
		if !used {
			p.used[i] = true
			p.slots[i] = fn
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: all %d %s slots in use", errors.ErrTrampolinesExhausted, len(p.slots), p.kind)
}

// lookup returns the callback bound to slot i.
func (p *slotPool[F]) lookup(i int) (F, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var zero F
	if i < 0 || i >= len(p.slots) || !p.used[i] {
		return zero, false
	}
	return p.slots[i], true
}

func (p *slotPool[F]) unbind(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i >= 0 && i < len(p.slots) {
		var zero F
		p.slots[i] = zero
		p.used[i] = false
	}
}

// inUse returns the number of bound slots.
func (p *slotPool[F]) inUse() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, used := range p.used {
		if used {
			n++
		}
	}
	return n
}

func (p *slotPool[F]) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.slots)
	clear(p.used)
}
