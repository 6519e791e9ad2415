package rpc

import (
	"encoding/json"
	"sync"
	"time"
)

type result struct {
	value json.RawMessage
	err   error
}

type entry struct {
	createdAt time.Time
	deadline  time.Time
	done      chan result // buffered: exactly one send, by whoever takes the entry

	mu    sync.Mutex
	timer *time.Timer
}

func (e *entry) setTimer(t *time.Timer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer = t
}

func (e *entry) stopTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
}

// table is the in-flight request table. take is the only way out of it, so
// whoever takes an entry is the single party allowed to resolve it.
type table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func newTable() *table {
	return &table{entries: make(map[string]*entry)}
}

func (t *table) insert(id string, e *entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[id]; exists {
		return false
	}
	t.entries[id] = e
	return true
}

func (t *table) take(id string) (*entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return e, ok
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
