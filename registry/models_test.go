package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
)

// memoryAdapter is an in-memory platform adapter for registry tests.
type memoryAdapter struct {
	files map[string][]byte
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{files: make(map[string][]byte)}
}

func (a *memoryAdapter) Log(level platform.LogLevel, tag, message string) {}
func (a *memoryAdapter) FileExists(path string) bool { _, ok := a.files[path]; return ok }

func (a *memoryAdapter) FileRead(path string) ([]byte, error) {
	data, ok := a.files[path]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func (a *memoryAdapter) FileWrite(path string, data []byte) bool {
	a.files[path] = data
	return true
}

func (a *memoryAdapter) FileDelete(path string) bool {
	delete(a.files, path)
	return true
}

func (a *memoryAdapter) SecureGet(key string) (string, error) { return "", errors.New("miss") }
func (a *memoryAdapter) SecureSet(key, value string) bool { return false }
func (a *memoryAdapter) SecureDelete(key string) bool { return false }
func (a *memoryAdapter) NowMs() int64 { return 0 }

func withMemoryAdapter(t *testing.T) *memoryAdapter {
	t.Helper()
	adapter := newMemoryAdapter()
	require.NoError(t, platform.Set(adapter))
	t.Cleanup(platform.Clear)
	return adapter
}

func TestModelsSaveGetRemove(t *testing.T) {
	withMemoryAdapter(t)
	models := NewModels("/data/models.json")

	require.NoError(t, models.Save(ModelInfo{ID: "tiny", Name: "Tiny", Category: "llm"}))
	require.NoError(t, models.Save(ModelInfo{ID: "base", Name: "Base", Category: "llm"}))

	info, err := models.Get("tiny")
	require.NoError(t, err)
	assert.Equal(t, "Tiny", info.Name)

	_, err = models.Get("missing")
	assert.True(t, status.Is(err, status.NotFound))

	all := models.All()
	require.Len(t, all, 2)
	assert.Equal(t, "base", all[0].ID, "All returns entries ordered by id")

	require.NoError(t, models.Remove("tiny"))
	_, err = models.Get("tiny")
	assert.Error(t, err)
}

func TestModelsSaveRejectsEmptyID(t *testing.T) {
	withMemoryAdapter(t)
	models := NewModels("/data/models.json")

	err := models.Save(ModelInfo{Name: "anonymous"})
	assert.True(t, status.Is(err, status.InvalidArgument))
}

func TestModelsPersistAcrossInstances(t *testing.T) {
	withMemoryAdapter(t)

	first := NewModels("/data/models.json")
	require.NoError(t, first.Save(ModelInfo{ID: "tiny", Name: "Tiny"}))
	require.NoError(t, first.UpdateDownloadStatus("tiny", true, "/models/tiny.gguf"))

	second := NewModels("/data/models.json")
	info, err := second.Get("tiny")
	require.NoError(t, err)
	assert.True(t, info.Downloaded)
	assert.Equal(t, "/models/tiny.gguf", info.LocalPath)

	downloaded := second.Downloaded()
	require.Len(t, downloaded, 1)
	assert.Equal(t, "tiny", downloaded[0].ID)
}

func TestModelsCorruptCatalogStartsEmpty(t *testing.T) {
	adapter := withMemoryAdapter(t)
	adapter.files["/data/models.json"] = []byte("{broken")

	models := NewModels("/data/models.json")
	assert.Empty(t, models.All())
}

func TestAdaptersRegisterAndQuery(t *testing.T) {
	adapters := NewAdapters()

	require.NoError(t, adapters.Register(LoRAEntry{ID: "style", ModelID: "tiny", Scale: 0.8}))
	require.NoError(t, adapters.Register(LoRAEntry{ID: "code", ModelID: "tiny", Scale: 1.0}))
	require.NoError(t, adapters.Register(LoRAEntry{ID: "other", ModelID: "base", Scale: 0.5}))

	forTiny := adapters.ForModel("tiny")
	require.Len(t, forTiny, 2)
	assert.Equal(t, "code", forTiny[0].ID)

	assert.Len(t, adapters.All(), 3)

	require.NoError(t, adapters.Remove("style"))
	assert.True(t, status.Is(adapters.Remove("style"), status.NotFound))
	assert.Len(t, adapters.ForModel("tiny"), 1)

	err := adapters.Register(LoRAEntry{})
	assert.True(t, status.Is(err, status.InvalidArgument))
}
