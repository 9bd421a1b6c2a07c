// Package component implements the five inference component families
// (LLM, STT, TTS, VAD, VLM), each with an independent
// create → load → invoke → unload → destroy lifecycle over a registered
// engine provider.
//
// Within one component, operations are expected to be invoked by a
// single logical caller sequentially (load before generate before
// unload). The component guards its state transitions but does not
// serialize concurrent invocations against the same instance; that
// discipline is the caller's.
package component

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
)

// State represents a component's lifecycle state.
type State int32

const (
	// StateCreated indicates the component exists but has no model loaded.
	StateCreated State = iota
	// StateLoaded indicates a model is loaded and the component is idle.
	StateLoaded
	// StateProcessing indicates an invocation is in flight.
	StateProcessing
	// StateDestroyed indicates the component has been destroyed.
	// A destroyed component rejects every operation with InvalidHandle.
	StateDestroyed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoaded:
		return "loaded"
	case StateProcessing:
		return "processing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// base carries the lifecycle state machine shared by all five families.
type base struct {
	kind string

	mu    sync.Mutex
	state State

	// Model identity, retained for telemetry only. It never affects
	// behavior.
	modelID   string
	modelName string
}

// GetState returns the current lifecycle state.
func (b *base) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsLoaded reports whether a model is currently loaded.
func (b *base) IsLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateLoaded || b.state == StateProcessing
}

// ModelID returns the telemetry model identifier set at load time.
func (b *base) ModelID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modelID
}

// checkAlive fails with InvalidHandle once the component is destroyed.
func (b *base) checkAlive() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDestroyed {
		return status.Errorf(status.InvalidHandle, "%s component is destroyed", b.kind)
	}
	return nil
}

// beginLoad validates that a load is legal right now. Reloading over an
// already-loaded model is allowed; loading mid-invocation is not.
func (b *base) beginLoad() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateDestroyed:
		return status.Errorf(status.InvalidHandle, "%s component is destroyed", b.kind)
	case StateProcessing:
		return status.Errorf(status.InvalidState, "%s component is busy", b.kind)
	}
	return nil
}

// markLoaded records a successful load and the telemetry identity.
func (b *base) markLoaded(modelID, modelName string) {
	b.mu.Lock()
	b.state = StateLoaded
	b.modelID = modelID
	b.modelName = modelName
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "markLoaded",
		"component": b.kind,
		"model_id":  modelID,
	}).Info("Model loaded")
}

// markUnloaded records a release of model resources. The component
// stays valid for a subsequent load.
func (b *base) markUnloaded() {
	b.mu.Lock()
	b.state = StateCreated
	b.modelID = ""
	b.modelName = ""
	b.mu.Unlock()
}

// beginInvoke transitions Loaded → Processing, rejecting invocations on
// destroyed or unloaded components.
func (b *base) beginInvoke() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateDestroyed:
		return status.Errorf(status.InvalidHandle, "%s component is destroyed", b.kind)
	case StateCreated:
		return status.Errorf(status.NotLoaded, "%s component has no model loaded", b.kind)
	case StateProcessing:
		return status.Errorf(status.InvalidState, "%s component is busy", b.kind)
	}
	b.state = StateProcessing
	return nil
}

// endInvoke transitions Processing → Loaded after completion or cancel.
func (b *base) endInvoke() {
	b.mu.Lock()
	if b.state == StateProcessing {
		b.state = StateLoaded
	}
	b.mu.Unlock()
}

// markDestroyed transitions to Destroyed. A second destroy is rejected
// with InvalidHandle rather than crashing; post-destroy values are
// treated as invalid going forward.
func (b *base) markDestroyed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDestroyed {
		return status.Errorf(status.InvalidHandle, "%s component already destroyed", b.kind)
	}
	b.state = StateDestroyed
	return nil
}
