// Package platform binds host-application implementations of primitive
// platform services (file I/O, secure key-value storage, logging, clock)
// into a process-wide slot that the rest of the bridge dispatches through.
//
// The slot must be populated with Set before the core runtime is
// initialized. Every dispatch helper degrades to a documented fallback
// when no adapter is registered: logging falls back to the module's own
// logger, reads report failure codes, and the clock falls back to the
// system clock. A missing adapter is never fatal to the calling
// operation.
package platform

// LogLevel mirrors the engine's log severity values.
type LogLevel int32

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// Adapter is the set of host-side services the bridge depends on but does
// not implement itself. Implementations must be safe for concurrent use:
// callbacks arrive from whichever goroutine the engine happens to be
// running on.
type Adapter interface {
	// Log delivers an engine log line to the host.
	Log(level LogLevel, tag, message string)

	// FileExists reports whether a file exists at path.
	FileExists(path string) bool

	// FileRead returns the full contents of the file at path.
	// A miss is reported as an error, not a panic.
	FileRead(path string) ([]byte, error)

	// FileWrite stores data at path, returning false on failure.
	FileWrite(path string, data []byte) bool

	// FileDelete removes the file at path, returning false on failure.
	FileDelete(path string) bool

	// SecureGet returns the value stored under key in the host's secure
	// store. A miss is reported as an error.
	SecureGet(key string) (string, error)

	// SecureSet stores value under key, returning false on failure.
	SecureSet(key, value string) bool

	// SecureDelete removes key, returning false on failure.
	SecureDelete(key string) bool

	// NowMs returns the host wall clock in milliseconds since the epoch.
	NowMs() int64
}

// Releaser is optionally implemented by adapters that hold resources.
// When a registered adapter is replaced or the slot is cleared, Release
// is called exactly once on the outgoing adapter.
type Releaser interface {
	Release()
}
