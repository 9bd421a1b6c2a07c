package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/status"
)

// countingAdapter records calls and release count.
type countingAdapter struct {
	releases  int
	files     map[string][]byte
	secrets   map[string]string
	panicking bool
}

func newCountingAdapter() *countingAdapter {
	return &countingAdapter{
		files:   make(map[string][]byte),
		secrets: make(map[string]string),
	}
}

func (a *countingAdapter) Release() { a.releases++ }

func (a *countingAdapter) Log(level LogLevel, tag, message string) {
	if a.panicking {
		panic("log panic")
	}
}

func (a *countingAdapter) FileExists(path string) bool {
	if a.panicking {
		panic("exists panic")
	}
	_, ok := a.files[path]
	return ok
}

func (a *countingAdapter) FileRead(path string) ([]byte, error) {
	if a.panicking {
		panic("read panic")
	}
	data, ok := a.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (a *countingAdapter) FileWrite(path string, data []byte) bool {
	if a.panicking {
		panic("write panic")
	}
	a.files[path] = data
	return true
}

func (a *countingAdapter) FileDelete(path string) bool {
	delete(a.files, path)
	return true
}

func (a *countingAdapter) SecureGet(key string) (string, error) {
	v, ok := a.secrets[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (a *countingAdapter) SecureSet(key, value string) bool {
	a.secrets[key] = value
	return true
}

func (a *countingAdapter) SecureDelete(key string) bool {
	delete(a.secrets, key)
	return true
}

func (a *countingAdapter) NowMs() int64 { return 42 }

func TestSetReleasesReplacedAdapterExactlyOnce(t *testing.T) {
	defer Clear()

	first := newCountingAdapter()
	second := newCountingAdapter()

	require.NoError(t, Set(first))
	assert.Equal(t, 0, first.releases)

	require.NoError(t, Set(second))
	assert.Equal(t, 1, first.releases, "replaced adapter must be released exactly once")
	assert.Equal(t, 0, second.releases)

	Clear()
	assert.Equal(t, 1, first.releases, "release must not fire again")
	assert.Equal(t, 1, second.releases)
}

func TestSetRejectsNilAndKeepsPriorRegistration(t *testing.T) {
	defer Clear()

	adapter := newCountingAdapter()
	require.NoError(t, Set(adapter))

	err := Set(nil)
	assert.ErrorIs(t, err, ErrNilAdapter)
	assert.Same(t, adapter, Get())
	assert.Equal(t, 0, adapter.releases)
}

func TestDispatchDegradesWithoutAdapter(t *testing.T) {
	Clear()

	assert.False(t, FileExists("/anything"))

	_, err := FileRead("/anything")
	assert.True(t, status.Is(err, status.AdapterNotSet))

	err = FileWrite("/anything", []byte("x"))
	assert.True(t, status.Is(err, status.AdapterNotSet))

	_, err = SecureGet("key")
	assert.True(t, status.Is(err, status.AdapterNotSet))

	// The clock falls back to the system clock rather than failing.
	assert.Greater(t, NowMs(), int64(0))
}

func TestDispatchRoutesThroughAdapter(t *testing.T) {
	defer Clear()

	adapter := newCountingAdapter()
	require.NoError(t, Set(adapter))

	require.NoError(t, FileWrite("/models/a.bin", []byte("weights")))
	assert.True(t, FileExists("/models/a.bin"))

	data, err := FileRead("/models/a.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("weights"), data)

	_, err = FileRead("/missing")
	assert.True(t, status.Is(err, status.FileNotFound))

	require.NoError(t, SecureSet("token", "s3cret"))
	value, err := SecureGet("token")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	_, err = SecureGet("absent")
	assert.True(t, status.Is(err, status.NotFound))

	assert.Equal(t, int64(42), NowMs())
}

func TestAdapterPanicsConvertToFailureCodes(t *testing.T) {
	defer Clear()

	adapter := newCountingAdapter()
	adapter.panicking = true
	require.NoError(t, Set(adapter))

	assert.False(t, FileExists("/x"))

	_, err := FileRead("/x")
	assert.True(t, status.Is(err, status.FileNotFound))

	err = FileWrite("/x", nil)
	assert.True(t, status.Is(err, status.FileWriteFailed))

	// A panicking log adapter must not take the caller down.
	assert.NotPanics(t, func() { Log(LogError, "TEST", "boom") })
}
