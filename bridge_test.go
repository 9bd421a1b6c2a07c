package inferbridge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
)

func setTestAdapter(t *testing.T) {
	t.Helper()
	key := make([]byte, 32)
	adapter, err := platform.NewFileAdapter(filepath.Join(t.TempDir(), "secure.json"), key)
	require.NoError(t, err)
	require.NoError(t, platform.Set(adapter))
	t.Cleanup(platform.Clear)
}

func TestInitRequiresPlatformAdapter(t *testing.T) {
	platform.Clear()

	err := Init(nil)
	require.Error(t, err)
	assert.Equal(t, status.AdapterNotSet, status.CodeOf(err))
	assert.False(t, IsInitialized())
}

func TestInitWithDefaultsAndDoubleInit(t *testing.T) {
	setTestAdapter(t)
	t.Cleanup(Shutdown)

	require.NoError(t, Init(nil))
	assert.True(t, IsInitialized())
	assert.Equal(t, 10*time.Minute, StreamWaitTimeout())

	err := Init(nil)
	require.Error(t, err)
	assert.Equal(t, status.InvalidState, status.CodeOf(err))
}

func TestInitAppliesStreamWaitTimeout(t *testing.T) {
	setTestAdapter(t)
	t.Cleanup(Shutdown)

	cfg := NewConfig()
	cfg.StreamWaitTimeout = 30 * time.Second
	require.NoError(t, Init(cfg))
	assert.Equal(t, 30*time.Second, StreamWaitTimeout())
}

func TestInitRejectsNonPositiveTimeout(t *testing.T) {
	setTestAdapter(t)
	t.Cleanup(Shutdown)

	cfg := NewConfig()
	cfg.StreamWaitTimeout = 0
	require.NoError(t, Init(cfg))
	assert.Equal(t, 10*time.Minute, StreamWaitTimeout())
}

func TestShutdownAllowsReinit(t *testing.T) {
	setTestAdapter(t)
	t.Cleanup(Shutdown)

	require.NoError(t, Init(nil))
	Shutdown()
	assert.False(t, IsInitialized())
	assert.Equal(t, 10*time.Minute, StreamWaitTimeout(), "default after shutdown")

	require.NoError(t, Init(nil))
	assert.True(t, IsInitialized())
}

func TestShutdownOfUninitializedCoreIsNoOp(t *testing.T) {
	assert.NotPanics(t, Shutdown)
	assert.False(t, IsInitialized())
}

func TestEnvironmentNames(t *testing.T) {
	assert.Equal(t, "development", EnvDevelopment.String())
	assert.Equal(t, "staging", EnvStaging.String())
	assert.Equal(t, "production", EnvProduction.String())
}

func TestConfigureLoggingDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		ConfigureLogging(EnvProduction)
		ConfigureLogging(EnvStaging)
		ConfigureLogging(EnvDevelopment)
	})
}
