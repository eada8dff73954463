package domain

import "sync"

// Quote mutable observable market value.
type Quote struct {
	mu      sync.RWMutex
	value   float64
	version uint64
}

// NewQuote returns a quote holding v.
func NewQuote(v float64) *Quote {
	return &Quote{value: v}
}

// Value returns the current value.
func (q *Quote) Value() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.value
}

// SetValue updates the quote and bumps its version when the value changes.
func (q *Quote) SetValue(v float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.value == v {
		return
	}
	q.value = v
	q.version++
}

// Version counts the changes applied to the quote.
func (q *Quote) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}
