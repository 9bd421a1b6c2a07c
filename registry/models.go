// Package registry tracks model and adapter metadata and the backend's
// model assignments. Registries are in-memory with JSON persistence
// through the platform adapter, so host applications see the same
// catalog across restarts.
package registry

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// ModelInfo is the catalog entry for one model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	URL         string `json:"url,omitempty"`
	LocalPath   string `json:"local_path,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	ContextSize int    `json:"context_size,omitempty"`
	Downloaded  bool   `json:"downloaded"`
}

// Models is a persistent model catalog. The zero value is not usable;
// construct with NewModels.
type Models struct {
	mu      sync.RWMutex
	entries map[string]ModelInfo
	path    string
}

// NewModels creates a catalog persisted at path through the platform
// adapter. A missing or unreadable file yields an empty catalog.
func NewModels(path string) *Models {
	m := &Models{
		entries: make(map[string]ModelInfo),
		path:    path,
	}
	m.load()
	return m
}

func (m *Models) load() {
	data, err := platform.FileRead(m.path)
	if err != nil {
		if !status.Is(err, status.FileNotFound) {
			logrus.WithFields(logrus.Fields{
				"function": "load",
				"path":     m.path,
				"error":    err.Error(),
			}).Warn("Failed to read model catalog, starting empty")
		}
		return
	}
	var entries map[string]ModelInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "load",
			"path":     m.path,
			"error":    err.Error(),
		}).Warn("Corrupt model catalog, starting empty")
		return
	}
	m.entries = entries
}

// persist writes the catalog through the platform adapter. Callers hold
// no lock; the entries snapshot is taken inside.
func (m *Models) persist() error {
	m.mu.RLock()
	data, err := json.Marshal(m.entries)
	m.mu.RUnlock()
	if err != nil {
		return status.Errorf(status.StorageError, "marshal model catalog: %v", err)
	}
	return platform.FileWrite(m.path, data)
}

// Save inserts or replaces a catalog entry and persists the catalog.
func (m *Models) Save(info ModelInfo) error {
	if info.ID == "" {
		return status.New(status.InvalidArgument, "model id is empty")
	}
	m.mu.Lock()
	m.entries[info.ID] = info
	m.mu.Unlock()
	return m.persist()
}

// Get returns the entry for id.
func (m *Models) Get(id string) (ModelInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.entries[id]
	if !ok {
		return ModelInfo{}, status.New(status.NotFound, "model not registered: "+id)
	}
	return info, nil
}

// All returns every entry, ordered by id.
func (m *Models) All() []ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ModelInfo, 0, len(m.entries))
	for _, info := range m.entries {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Downloaded returns the entries with local weights present.
func (m *Models) Downloaded() []ModelInfo {
	all := m.All()
	out := all[:0]
	for _, info := range all {
		if info.Downloaded {
			out = append(out, info)
		}
	}
	return out
}

// UpdateDownloadStatus marks whether id's weights are on disk and where.
func (m *Models) UpdateDownloadStatus(id string, downloaded bool, localPath string) error {
	m.mu.Lock()
	info, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return status.New(status.NotFound, "model not registered: "+id)
	}
	info.Downloaded = downloaded
	info.LocalPath = localPath
	m.entries[id] = info
	m.mu.Unlock()
	if downloaded {
		telemetry.EmitDownload(telemetry.DownloadEvent{
			ModelID: id,
			URL:     info.URL,
			Bytes:   info.SizeBytes,
			Success: true,
		})
	}
	return m.persist()
}

// Remove deletes the entry for id and persists the catalog. Removing an
// unknown id is a no-op.
func (m *Models) Remove(id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return m.persist()
}
