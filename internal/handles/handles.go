// Package handles maps component objects to integer handles that can be
// stored on the far side of the C boundary. Host code cannot hold Go
// pointers, so the export layer registers each component here and hands
// out the handle instead.
//
// Handle zero is never issued: it is the universal invalid sentinel,
// and every boundary operation rejects it before touching the table.
package handles

import (
	"sync"
)

var (
	mu     sync.RWMutex
	table  = make(map[uintptr]any)
	nextID uintptr = 1
)

// Register stores v and returns its handle. The object stays reachable
// until Unregister.
func Register(v any) uintptr {
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	table[id] = v
	return id
}

// Lookup returns the object for id, or nil for zero and unknown
// handles.
func Lookup(id uintptr) any {
	if id == 0 {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return table[id]
}

// Unregister removes id from the table. Handles are never reissued, so
// a stale id keeps resolving to nil forever.
func Unregister(id uintptr) {
	mu.Lock()
	defer mu.Unlock()
	delete(table, id)
}

// Count returns the number of live handles. Used by tests to assert
// destroy paths release their entries.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(table)
}
