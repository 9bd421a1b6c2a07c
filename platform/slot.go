package platform

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
)

// ErrNilAdapter indicates Set was called with a nil adapter.
var ErrNilAdapter = errors.New("platform adapter cannot be nil")

// slot is the single process-wide adapter registration. It is guarded by
// its own mutex and never shares a lock with the device or telemetry
// slots; the subsystems are independent and contention between them would
// be needless.
var slot adapterSlot

// Set installs adapter as the process-wide platform adapter, replacing
// any prior registration. The outgoing adapter's Release method (if
// implemented) is called exactly once, after the slot has been swapped,
// so an in-flight dispatch never observes a released adapter through the
// slot.
//
// Returns ErrNilAdapter if adapter is nil; the previous registration is
// kept in that case.
func Set(adapter Adapter) error {
	if adapter == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Set",
		}).Warn("Rejecting nil platform adapter")
		return ErrNilAdapter
	}

	old := slot.swap(adapter)
	releaseAdapter(old)

	logrus.WithFields(logrus.Fields{
		"function": "Set",
	}).Info("Platform adapter registered")
	return nil
}

// Get returns the currently registered adapter, or nil when none is set.
func Get() Adapter {
	return slot.get()
}

// Clear removes the current registration, releasing the outgoing adapter.
// Subsequent dispatches degrade to the documented fallbacks.
func Clear() {
	old := slot.swap(nil)
	releaseAdapter(old)
	if old != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Clear",
		}).Info("Platform adapter cleared")
	}
}

func releaseAdapter(a Adapter) {
	if a == nil {
		return
	}
	r, ok := a.(Releaser)
	if !ok {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{
				"function": "releaseAdapter",
				"panic":    rec,
			}).Error("Recovered panic in adapter Release")
		}
	}()
	r.Release()
}

// Log dispatches a log line through the adapter, falling back to the
// module logger when no adapter is registered or the adapter panics.
func Log(level LogLevel, tag, message string) {
	a := Get()
	if a == nil {
		fallbackLog(level, tag, message)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			fallbackLog(level, tag, message)
		}
	}()
	a.Log(level, tag, message)
}

func fallbackLog(level LogLevel, tag, message string) {
	entry := logrus.WithField("tag", tag)
	switch level {
	case LogDebug:
		entry.Debug(message)
	case LogWarn:
		entry.Warn(message)
	case LogError:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}

// FileExists dispatches through the adapter; absent an adapter the
// answer is false.
func FileExists(path string) (exists bool) {
	a := Get()
	if a == nil {
		return false
	}
	defer recoverTo("FileExists", func() { exists = false })
	return a.FileExists(path)
}

// FileRead dispatches through the adapter. Absent an adapter it fails
// with AdapterNotSet; a host-reported miss surfaces as FileNotFound.
func FileRead(path string) (data []byte, err error) {
	a := Get()
	if a == nil {
		return nil, status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("FileRead", func() {
		data, err = nil, status.Errorf(status.FileNotFound, "file read panicked: %s", path)
	})
	data, err = a.FileRead(path)
	if err != nil {
		return nil, status.Errorf(status.FileNotFound, "file not found: %s", path)
	}
	return data, nil
}

// FileWrite dispatches through the adapter; a false return from the host
// becomes FileWriteFailed.
func FileWrite(path string, data []byte) (err error) {
	a := Get()
	if a == nil {
		return status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("FileWrite", func() {
		err = status.Errorf(status.FileWriteFailed, "file write panicked: %s", path)
	})
	if !a.FileWrite(path, data) {
		return status.Errorf(status.FileWriteFailed, "file write failed: %s", path)
	}
	return nil
}

// FileDelete dispatches through the adapter; a false return from the
// host becomes FileWriteFailed.
func FileDelete(path string) (err error) {
	a := Get()
	if a == nil {
		return status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("FileDelete", func() {
		err = status.Errorf(status.FileWriteFailed, "file delete panicked: %s", path)
	})
	if !a.FileDelete(path) {
		return status.Errorf(status.FileWriteFailed, "file delete failed: %s", path)
	}
	return nil
}

// SecureGet dispatches through the adapter. A miss surfaces as NotFound,
// a missing adapter as AdapterNotSet.
func SecureGet(key string) (value string, err error) {
	a := Get()
	if a == nil {
		return "", status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("SecureGet", func() {
		value, err = "", status.Errorf(status.StorageError, "secure get panicked: %s", key)
	})
	value, err = a.SecureGet(key)
	if err != nil {
		return "", status.Errorf(status.NotFound, "secure key not found: %s", key)
	}
	return value, nil
}

// SecureSet dispatches through the adapter; a false return becomes
// StorageError.
func SecureSet(key, value string) (err error) {
	a := Get()
	if a == nil {
		return status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("SecureSet", func() {
		err = status.Errorf(status.StorageError, "secure set panicked: %s", key)
	})
	if !a.SecureSet(key, value) {
		return status.Errorf(status.StorageError, "secure set failed: %s", key)
	}
	return nil
}

// SecureDelete dispatches through the adapter; a false return becomes
// StorageError.
func SecureDelete(key string) (err error) {
	a := Get()
	if a == nil {
		return status.New(status.AdapterNotSet, "platform adapter not set")
	}
	defer recoverTo("SecureDelete", func() {
		err = status.Errorf(status.StorageError, "secure delete panicked: %s", key)
	})
	if !a.SecureDelete(key) {
		return status.Errorf(status.StorageError, "secure delete failed: %s", key)
	}
	return nil
}

// NowMs dispatches through the adapter, falling back to the system clock.
func NowMs() (ms int64) {
	a := Get()
	if a == nil {
		return time.Now().UnixMilli()
	}
	defer recoverTo("NowMs", func() { ms = time.Now().UnixMilli() })
	return a.NowMs()
}

// recoverTo converts a panic in a host adapter method into the fallback
// set by onPanic. Host code must never unwind through bridge frames.
func recoverTo(fn string, onPanic func()) {
	if rec := recover(); rec != nil {
		logrus.WithFields(logrus.Fields{
			"function": fn,
			"panic":    rec,
		}).Error("Recovered panic in platform adapter callback")
		onPanic()
	}
}
