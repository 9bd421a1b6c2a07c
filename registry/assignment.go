package registry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
)

// FetchFunc performs an authenticated HTTP GET against a backend
// endpoint and returns the response body. The host supplies the
// transport.
type FetchFunc func(endpoint string, requiresAuth bool) (string, error)

// Assignment is one backend-assigned model for this device.
type Assignment struct {
	ModelID  string `json:"model_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

const assignmentsEndpoint = "/v1/models/assignments"
const assignmentCacheTTL = 15 * time.Minute

// Assignments fetches and caches the backend's model assignments.
// Fetching calls back into the host, which may synchronously call back
// into this package; the lock is never held across the fetch callback.
type Assignments struct {
	mu        sync.Mutex
	fetch     FetchFunc
	cache     []Assignment
	fetchedAt time.Time
}

// NewAssignments creates an empty assignment cache.
func NewAssignments() *Assignments {
	return &Assignments{}
}

// SetFetchCallback installs the HTTP transport. When autoFetch is set,
// an initial fetch runs on a separate goroutine.
func (a *Assignments) SetFetchCallback(fetch FetchFunc, autoFetch bool) {
	a.mu.Lock()
	a.fetch = fetch
	a.mu.Unlock()
	if autoFetch && fetch != nil {
		go func() {
			if _, err := a.Fetch(true); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "SetFetchCallback",
					"error":    err.Error(),
				}).Warn("Initial assignment fetch failed")
			}
		}()
	}
}

// Fetch returns the model assignments, consulting the backend when the
// cache is stale or forceRefresh is set. The fetch callback runs with
// no lock held; concurrent callers may each trigger a fetch, last
// writer wins.
func (a *Assignments) Fetch(forceRefresh bool) ([]Assignment, error) {
	a.mu.Lock()
	fetch := a.fetch
	fresh := time.Since(a.fetchedAt) < assignmentCacheTTL && a.cache != nil
	cached := a.cache
	a.mu.Unlock()

	if !forceRefresh && fresh {
		return cached, nil
	}
	if fetch == nil {
		return nil, status.New(status.NotInitialized, "assignment fetch callback not set")
	}

	body, err := fetch(assignmentsEndpoint, true)
	if err != nil {
		return nil, status.Errorf(status.HTTPRequestFailed, "fetch assignments: %v", err)
	}
	var result struct {
		Assignments []Assignment `json:"assignments"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, status.Errorf(status.NetworkError, "parse assignments response: %v", err)
	}

	a.mu.Lock()
	a.cache = result.Assignments
	a.fetchedAt = time.Now()
	a.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Fetch",
		"count":    len(result.Assignments),
	}).Debug("Model assignments refreshed")
	return result.Assignments, nil
}

// Cached returns the current cache without consulting the backend.
func (a *Assignments) Cached() []Assignment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache
}

// Invalidate drops the cache so the next Fetch consults the backend.
func (a *Assignments) Invalidate() {
	a.mu.Lock()
	a.cache = nil
	a.fetchedAt = time.Time{}
	a.mu.Unlock()
}
