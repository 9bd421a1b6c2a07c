package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/status"
)

func TestAssignmentsFetchWithoutCallback(t *testing.T) {
	a := NewAssignments()

	_, err := a.Fetch(false)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NotInitialized))
}

func TestAssignmentsFetchAndCache(t *testing.T) {
	a := NewAssignments()

	var mu sync.Mutex
	calls := 0
	a.SetFetchCallback(func(endpoint string, requiresAuth bool) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.Equal(t, assignmentsEndpoint, endpoint)
		assert.True(t, requiresAuth)
		return `{"assignments":[{"model_id":"tiny","name":"Tiny","category":"llm","url":"https://cdn/x"}]}`, nil
	}, false)

	got, err := a.Fetch(false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tiny", got[0].ModelID)

	// A fresh cache short-circuits the transport.
	_, err = a.Fetch(false)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	// forceRefresh always consults the backend.
	_, err = a.Fetch(true)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()

	assert.Len(t, a.Cached(), 1)
	a.Invalidate()
	assert.Nil(t, a.Cached())
}

func TestAssignmentsFetchSurvivesReentrantCallback(t *testing.T) {
	a := NewAssignments()

	// The host transport reads the cache synchronously while the fetch
	// is in flight; the lock must not be held across the callback.
	a.SetFetchCallback(func(endpoint string, requiresAuth bool) (string, error) {
		_ = a.Cached()
		return `{"assignments":[]}`, nil
	}, false)

	_, err := a.Fetch(true)
	require.NoError(t, err)
}

func TestAssignmentsFetchTransportError(t *testing.T) {
	a := NewAssignments()
	a.SetFetchCallback(func(endpoint string, requiresAuth bool) (string, error) {
		return "", errors.New("dns failure")
	}, false)

	_, err := a.Fetch(true)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.HTTPRequestFailed))
}

func TestAssignmentsFetchMalformedResponse(t *testing.T) {
	a := NewAssignments()
	a.SetFetchCallback(func(endpoint string, requiresAuth bool) (string, error) {
		return "not json", nil
	}, false)

	_, err := a.Fetch(true)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NetworkError))
}
