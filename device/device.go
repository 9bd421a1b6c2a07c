// Package device manages device registration against the backend. The
// host application supplies the callbacks: this package decides when to
// register and with what payload, the host performs the actual network
// request and owns the persisted registration flag.
//
// Registration can call back into the host, which can synchronously
// call back into this package, on the same goroutine. No lock is held
// while a host callback runs: the callback set is snapshotted under the
// lock, the lock released, and only then are the callbacks invoked, so
// re-entrant chains cannot deadlock.
package device

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// Callbacks is what the host application implements for registration.
type Callbacks interface {
	// DeviceInfoJSON returns the device-info document. Absent or
	// malformed fields are defaulted during parsing, never fatal.
	DeviceInfoJSON() string

	// DeviceID returns the stable device identifier.
	DeviceID() string

	// IsRegistered reports the host-persisted registration flag.
	IsRegistered() bool

	// SetRegistered persists the registration flag on the host side.
	SetRegistered(registered bool)

	// HTTPPost performs a network request and returns the HTTP status
	// code, or a negative value when the request could not be made.
	HTTPPost(path string, body []byte) int
}

const registerPath = "/v1/devices/register"

var (
	mu         sync.RWMutex
	callbacks  Callbacks
	deviceID   string
	registered bool
)

// SetCallbacks installs the host callbacks, replacing any prior set.
func SetCallbacks(cb Callbacks) error {
	if cb == nil {
		return status.New(status.InvalidArgument, "device callbacks are nil")
	}
	mu.Lock()
	callbacks = cb
	mu.Unlock()
	return nil
}

// ClearCallbacks removes the installed callbacks and forgets cached
// registration state.
func ClearCallbacks() {
	mu.Lock()
	callbacks = nil
	deviceID = ""
	registered = false
	mu.Unlock()
}

// CachedDeviceID returns the device identifier captured during the last
// successful registration check, or empty when none has run.
func CachedDeviceID() string {
	mu.RLock()
	defer mu.RUnlock()
	return deviceID
}

// IsRegistered reports the cached registration state. It does not call
// into the host; RegisterIfNeeded refreshes the cache.
func IsRegistered() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registered
}

// ClearRegistration drops the cached registration state so the next
// RegisterIfNeeded re-checks the host.
func ClearRegistration() {
	mu.Lock()
	registered = false
	mu.Unlock()
}

// registrationPayload is the body posted to the backend.
type registrationPayload struct {
	Environment string                 `json:"environment"`
	BuildToken  string                 `json:"build_token,omitempty"`
	DeviceID    string                 `json:"device_id"`
	DeviceInfo  map[string]interface{} `json:"device_info"`
}

// RegisterIfNeeded registers the device with the backend unless the
// host already reports it registered. All host callbacks run without
// any package lock held. A panic inside a host callback is recovered
// and converted to an error code instead of unwinding the caller.
func RegisterIfNeeded(environment, buildToken string) error {
	mu.RLock()
	cb := callbacks
	mu.RUnlock()
	if cb == nil {
		return status.New(status.NotInitialized, "device callbacks not set")
	}

	alreadyRegistered, err := checkRegistered(cb)
	if err != nil {
		return err
	}
	id, err := fetchDeviceID(cb)
	if err != nil {
		return err
	}
	if alreadyRegistered {
		cacheState(id, true)
		return nil
	}

	info, err := fetchInfo(cb)
	if err != nil {
		return err
	}
	if id == "" {
		id = info.DeviceID
	}
	body, err := json.Marshal(registrationPayload{
		Environment: environment,
		BuildToken:  buildToken,
		DeviceID:    id,
		DeviceInfo:  info.Map(),
	})
	if err != nil {
		return status.Errorf(status.OutOfMemory, "marshal registration payload: %v", err)
	}

	start := time.Now()
	code, err := post(cb, registerPath, body)
	telemetry.EmitNetwork(telemetry.NetworkEvent{
		URL:        registerPath,
		StatusCode: code,
		DurationMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		return err
	}
	if code < 200 || code >= 300 {
		return status.Errorf(status.HTTPRequestFailed, "device registration failed (http %d)", code)
	}

	if err := persistRegistered(cb); err != nil {
		return err
	}
	cacheState(id, true)
	telemetry.EmitDevice(telemetry.DeviceEvent{Action: "registered", DeviceID: id})
	logrus.WithFields(logrus.Fields{
		"function":    "RegisterIfNeeded",
		"environment": environment,
		"device_id":   id,
	}).Info("Device registered")
	return nil
}

func cacheState(id string, reg bool) {
	mu.Lock()
	deviceID = id
	registered = reg
	mu.Unlock()
}

// The callback wrappers below each recover a host panic and map it to
// the error code of the step that failed.

func checkRegistered(cb Callbacks) (reg bool, err error) {
	defer recoverAs(&err, status.InvalidState, "is-registered callback")
	return cb.IsRegistered(), nil
}

func fetchDeviceID(cb Callbacks) (id string, err error) {
	defer recoverAs(&err, status.InvalidState, "device-id callback")
	return cb.DeviceID(), nil
}

func fetchInfo(cb Callbacks) (info Info, err error) {
	defer recoverAs(&err, status.InvalidState, "device-info callback")
	return ParseInfo(cb.DeviceInfoJSON()), nil
}

func post(cb Callbacks, path string, body []byte) (code int, err error) {
	defer recoverAs(&err, status.NetworkError, "http-post callback")
	code = cb.HTTPPost(path, body)
	if code < 0 {
		return code, status.New(status.NetworkError, "http-post callback reported transport failure")
	}
	return code, nil
}

func persistRegistered(cb Callbacks) (err error) {
	defer recoverAs(&err, status.InvalidState, "set-registered callback")
	cb.SetRegistered(true)
	return nil
}

func recoverAs(err *error, code status.Code, step string) {
	if rec := recover(); rec != nil {
		logrus.WithFields(logrus.Fields{
			"function": "recoverAs",
			"step":     step,
			"panic":    rec,
		}).Error("Recovered panic in device callback")
		*err = status.Errorf(code, "%s panicked: %v", step, rec)
	}
}
