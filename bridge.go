package inferbridge

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/component"
	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
)

// Environment selects which backend environment the bridge talks to.
type Environment int32

const (
	EnvDevelopment Environment = iota
	EnvStaging
	EnvProduction
)

// String returns the environment's wire name.
func (e Environment) String() string {
	switch e {
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "production"
	default:
		return "development"
	}
}

// Config contains configuration for initializing the bridge core.
type Config struct {
	// LogLevel is the minimum severity forwarded to the platform adapter.
	LogLevel platform.LogLevel

	// LogTag is the tag attached to core log lines.
	LogTag string

	// StreamWaitTimeout bounds how long a blocking streaming call waits
	// for the completion or error signal before failing with TimedOut.
	// It is a safety net against an engine that never signals, not a
	// user-facing cancellation mechanism.
	StreamWaitTimeout time.Duration
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel:          platform.LogDebug,
		LogTag:            "BRIDGE",
		StreamWaitTimeout: 10 * time.Minute,
	}
}

// core holds the process-wide init state, guarded by its own mutex.
var core struct {
	mu          sync.Mutex
	initialized bool
	config      *Config
}

// Init initializes the bridge core. A platform adapter must already be
// registered via platform.Set; without one Init fails with AdapterNotSet
// rather than letting later engine callbacks fire into the void.
// A nil cfg uses NewConfig defaults. Calling Init twice is an error.
func Init(cfg *Config) error {
	logrus.WithFields(logrus.Fields{
		"function": "Init",
	}).Info("Initializing bridge core")

	if platform.Get() == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Init",
			"error":    "platform adapter not set",
		}).Error("Initialization refused")
		return status.New(status.AdapterNotSet, "platform adapter not set; call platform.Set first")
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if core.initialized {
		return status.New(status.InvalidState, "bridge already initialized")
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.StreamWaitTimeout <= 0 {
		cfg.StreamWaitTimeout = 10 * time.Minute
	}
	core.config = cfg
	core.initialized = true
	component.SetDefaultStreamTimeout(cfg.StreamWaitTimeout)

	platform.Log(platform.LogInfo, cfg.LogTag, "bridge core initialized")
	return nil
}

// Shutdown tears down the core. Components created by the caller remain
// the caller's responsibility to destroy. Shutdown of an uninitialized
// core is a no-op.
func Shutdown() {
	core.mu.Lock()
	defer core.mu.Unlock()
	if !core.initialized {
		return
	}
	core.initialized = false
	core.config = nil
	logrus.WithFields(logrus.Fields{
		"function": "Shutdown",
	}).Info("Bridge core shut down")
}

// IsInitialized reports whether Init has completed successfully.
func IsInitialized() bool {
	core.mu.Lock()
	defer core.mu.Unlock()
	return core.initialized
}

// StreamWaitTimeout returns the configured blocking-stream wait bound,
// or the default when the core is not initialized.
func StreamWaitTimeout() time.Duration {
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.config != nil {
		return core.config.StreamWaitTimeout
	}
	return 10 * time.Minute
}

// ConfigureLogging adjusts the module logger for the given environment:
// production keeps warnings and errors only, development is verbose.
func ConfigureLogging(env Environment) {
	switch env {
	case EnvProduction:
		logrus.SetLevel(logrus.WarnLevel)
	case EnvStaging:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.WithFields(logrus.Fields{
		"function":    "ConfigureLogging",
		"environment": env.String(),
	}).Debug("Logging configured")
}

// Log forwards a log line through the platform adapter binding.
func Log(level platform.LogLevel, tag, message string) {
	platform.Log(level, tag, message)
}
