package registry

import (
	"sort"
	"sync"

	"github.com/opd-ai/inferbridge/status"
)

// LoRAEntry is the catalog entry for one low-rank adapter.
type LoRAEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ModelID   string  `json:"model_id"`
	LocalPath string  `json:"local_path,omitempty"`
	Scale     float32 `json:"scale"`
}

// Adapters is an in-memory adapter catalog keyed by adapter id.
type Adapters struct {
	mu      sync.RWMutex
	entries map[string]LoRAEntry
}

// NewAdapters creates an empty adapter catalog.
func NewAdapters() *Adapters {
	return &Adapters{entries: make(map[string]LoRAEntry)}
}

// Register inserts or replaces an adapter entry.
func (a *Adapters) Register(entry LoRAEntry) error {
	if entry.ID == "" {
		return status.New(status.InvalidArgument, "adapter id is empty")
	}
	a.mu.Lock()
	a.entries[entry.ID] = entry
	a.mu.Unlock()
	return nil
}

// Remove deletes the entry for id.
func (a *Adapters) Remove(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[id]; !ok {
		return status.New(status.NotFound, "adapter not registered: "+id)
	}
	delete(a.entries, id)
	return nil
}

// ForModel returns the adapters registered against modelID, ordered by
// adapter id.
func (a *Adapters) ForModel(modelID string) []LoRAEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []LoRAEntry
	for _, entry := range a.entries {
		if entry.ModelID == modelID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every adapter entry, ordered by id.
func (a *Adapters) All() []LoRAEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]LoRAEntry, 0, len(a.entries))
	for _, entry := range a.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
