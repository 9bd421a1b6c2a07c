package platform

import "sync"

// adapterSlot holds the process-wide registration. Reads take the lock
// too: the swap-then-release ordering in Set depends on no dispatcher
// observing a torn slot.
type adapterSlot struct {
	mu      sync.RWMutex
	adapter Adapter
}

func (s *adapterSlot) get() Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapter
}

// swap installs next and returns the previous adapter. Release of the
// previous adapter is the caller's job, performed outside the lock.
func (s *adapterSlot) swap(next Adapter) Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.adapter
	s.adapter = next
	return old
}
