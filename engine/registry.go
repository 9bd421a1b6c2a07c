package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
)

// Capability identifies one inference feature family.
type Capability int32

const (
	CapabilityTextGeneration Capability = iota
	CapabilitySTT
	CapabilityTTS
	CapabilityVAD
	CapabilityVLM
)

// String returns the capability's name.
func (c Capability) String() string {
	switch c {
	case CapabilityTextGeneration:
		return "text_generation"
	case CapabilitySTT:
		return "stt"
	case CapabilityTTS:
		return "tts"
	case CapabilityVAD:
		return "vad"
	case CapabilityVLM:
		return "vlm"
	default:
		return "unknown"
	}
}

// Factory allocates a fresh provider instance. The returned value must
// implement the provider interface matching the capability it was
// registered under.
type Factory func() (interface{}, error)

// registry maps capabilities to named provider factories, guarded by its
// own mutex. Registration normally happens from backend package init or
// from the host before components are created.
var registry = struct {
	mu        sync.RWMutex
	factories map[Capability]map[string]Factory
	order     map[Capability][]string
}{
	factories: make(map[Capability]map[string]Factory),
	order:     make(map[Capability][]string),
}

// Register adds a named provider factory for a capability. Registering
// the same name again replaces the previous factory but keeps its
// position in provider order.
func Register(cap Capability, name string, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	byName, ok := registry.factories[cap]
	if !ok {
		byName = make(map[string]Factory)
		registry.factories[cap] = byName
	}
	if _, exists := byName[name]; !exists {
		registry.order[cap] = append(registry.order[cap], name)
	}
	byName[name] = factory

	logrus.WithFields(logrus.Fields{
		"function":   "Register",
		"capability": cap.String(),
		"provider":   name,
	}).Info("Engine provider registered")
}

// Unregister removes a named provider factory.
func Unregister(cap Capability, name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	byName := registry.factories[cap]
	if byName == nil {
		return
	}
	delete(byName, name)
	names := registry.order[cap]
	for i, n := range names {
		if n == name {
			registry.order[cap] = append(names[:i], names[i+1:]...)
			break
		}
	}
}

// Providers lists the registered provider names for a capability in
// registration order.
func Providers(cap Capability) []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := registry.order[cap]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// New allocates a provider for the capability, using the first
// registered factory. Components call this at create time.
func New(cap Capability) (interface{}, error) {
	registry.mu.RLock()
	names := registry.order[cap]
	var factory Factory
	var name string
	if len(names) > 0 {
		name = names[0]
		factory = registry.factories[cap][name]
	}
	registry.mu.RUnlock()

	if factory == nil {
		return nil, status.Errorf(status.NotInitialized,
			"no provider registered for capability %s", cap.String())
	}
	p, err := factory()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "New",
			"capability": cap.String(),
			"provider":   name,
			"error":      err.Error(),
		}).Error("Provider factory failed")
		return nil, err
	}
	return p, nil
}
