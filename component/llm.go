package component

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

var streamTimeoutMu sync.RWMutex
var streamTimeout = 10 * time.Minute

// SetDefaultStreamTimeout sets how long blocking stream calls wait for
// the backend to signal completion. Zero or negative values are ignored.
func SetDefaultStreamTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	streamTimeoutMu.Lock()
	streamTimeout = d
	streamTimeoutMu.Unlock()
}

func defaultStreamTimeout() time.Duration {
	streamTimeoutMu.RLock()
	defer streamTimeoutMu.RUnlock()
	return streamTimeout
}

// LLM wraps a text-generation backend behind the component lifecycle.
// A zero LLM is not usable; construct one with NewLLM.
type LLM struct {
	base
	provider engine.LLMProvider

	loraMu sync.Mutex
	lora   []loraEntry
}

type loraEntry struct {
	Path  string  `json:"path"`
	Scale float32 `json:"scale"`
}

// NewLLM resolves the registered text-generation backend and returns a
// component handle in the created state.
func NewLLM() (*LLM, error) {
	backend, err := engine.New(engine.CapabilityTextGeneration)
	if err != nil {
		return nil, err
	}
	provider, ok := backend.(engine.LLMProvider)
	if !ok {
		return nil, status.New(status.EngineFailure, "registered text-generation backend does not implement LLMProvider")
	}
	l := &LLM{provider: provider}
	l.kind = "llm"
	l.state = StateCreated
	return l, nil
}

// LoadModel loads the model at path into the backend. id and name are
// kept for telemetry and may be empty.
func (l *LLM) LoadModel(path, id, name string) error {
	if path == "" {
		return status.New(status.InvalidArgument, "model path is empty")
	}
	if err := l.beginLoad(); err != nil {
		return err
	}
	start := time.Now()
	if err := l.provider.LoadModel(path); err != nil {
		l.markUnloaded()
		return status.Convert(err)
	}
	l.markLoaded(id, name)
	telemetry.EmitModelLoad(telemetry.ModelLoadEvent{
		ModelID:    id,
		ModelName:  name,
		Component:  "llm",
		DurationMs: time.Since(start).Milliseconds(),
		Success:    true,
	})
	logrus.WithFields(logrus.Fields{
		"function": "LoadModel",
		"model_id": id,
		"path":     path,
	}).Info("Model loaded")
	return nil
}

// Unload releases the loaded model and returns the component to the
// created state. Unloading an already-unloaded component is a no-op.
func (l *LLM) Unload() error {
	if err := l.checkAlive(); err != nil {
		return err
	}
	if !l.IsLoaded() {
		return nil
	}
	if err := l.provider.Unload(); err != nil {
		return status.Convert(err)
	}
	l.markUnloaded()
	return nil
}

// Destroy tears down the component. Any loaded model is unloaded first.
// A second Destroy fails with InvalidHandle.
func (l *LLM) Destroy() error {
	if err := l.checkAlive(); err != nil {
		return err
	}
	if l.IsLoaded() {
		if err := l.provider.Unload(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"error":    err.Error(),
			}).Warn("Unload during destroy failed")
		}
	}
	return l.markDestroyed()
}

// Generate runs a full non-streaming generation and returns the result
// as a JSON document.
func (l *LLM) Generate(prompt, optionsJSON string) (string, error) {
	if prompt == "" {
		return "", status.New(status.InvalidArgument, "prompt is empty")
	}
	if err := l.beginInvoke(); err != nil {
		return "", err
	}
	defer l.endInvoke()

	opts := parseGenerateOptions(optionsJSON)
	start := time.Now()
	result, err := l.provider.Generate(prompt, opts)
	if err != nil {
		return "", status.Convert(err)
	}
	if result == nil {
		return "", status.New(status.EngineFailure, "backend returned no result")
	}
	res := *result
	l.finishGeneration(&res, start, false)
	return marshalGenerateResult(res.Text, res, stopReasonComplete), nil
}

// GenerateStream runs a streaming generation but blocks until the
// backend signals completion, returning the accumulated result as JSON.
// Streamed tokens are concatenated in arrival order. If the backend
// reports an error mid-stream the partial text is discarded and the
// error alone is returned. If the backend never signals, the call fails
// with TimedOut after the configured stream timeout.
func (l *LLM) GenerateStream(prompt, optionsJSON string) (string, error) {
	return l.generateStream(prompt, optionsJSON, nil)
}

// GenerateStreamWithCallback runs a streaming generation, delivering
// each token to cb as it arrives, then blocks until the stream
// completes. When cb implements ByteTokenCallback, tokens are delivered
// as raw bytes. Returning false from the callback stops the stream; the
// tokens delivered up to that point form the returned text.
func (l *LLM) GenerateStreamWithCallback(prompt, optionsJSON string, cb TokenCallback) (string, error) {
	if cb == nil {
		return "", status.New(status.InvalidArgument, "token callback is nil")
	}
	return l.generateStream(prompt, optionsJSON, newTokenDispatcher(cb))
}

func (l *LLM) generateStream(prompt, optionsJSON string, dispatcher *tokenDispatcher) (string, error) {
	if prompt == "" {
		return "", status.New(status.InvalidArgument, "prompt is empty")
	}
	if err := l.beginInvoke(); err != nil {
		return "", err
	}
	defer l.endInvoke()

	opts := parseGenerateOptions(optionsJSON)
	ctx := newStreamContext()
	onToken := ctx.onToken
	if dispatcher != nil {
		onToken = func(token string) bool {
			if !ctx.onToken(token) {
				return false
			}
			if !dispatcher.dispatch(token) {
				ctx.markStopped()
				l.provider.Cancel()
				return false
			}
			return true
		}
	}
	start := time.Now()
	err := l.provider.GenerateStream(prompt, opts, engine.StreamCallbacks{
		OnToken:    onToken,
		OnComplete: ctx.onComplete,
		OnError:    ctx.onError,
	})
	if err != nil {
		return "", status.Convert(err)
	}
	if err := ctx.wait(defaultStreamTimeout()); err != nil {
		if status.Is(err, status.TimedOut) {
			abandonStream(ctx, l.provider)
		}
		return "", err
	}
	text, res, stopped := ctx.snapshot()
	l.finishGeneration(&res, start, true)
	reason := stopReasonComplete
	if stopped {
		reason = stopReasonStopped
	}
	return marshalGenerateResult(text, res, reason), nil
}

// Cancel asks the backend to abort an in-flight generation. It is safe
// to call from another goroutine while a Generate variant is blocked.
func (l *LLM) Cancel() {
	if err := l.checkAlive(); err != nil {
		return
	}
	l.provider.Cancel()
}

// LoadLoRA applies the adapter at path with the given scale on top of
// the loaded model. Fails with InvalidState when the backend does not
// support adapters.
func (l *LLM) LoadLoRA(path string, scale float32) error {
	if path == "" {
		return status.New(status.InvalidArgument, "adapter path is empty")
	}
	if err := l.checkAlive(); err != nil {
		return err
	}
	if !l.IsLoaded() {
		return status.New(status.NotLoaded, "no model loaded")
	}
	provider, ok := l.provider.(engine.LoRAProvider)
	if !ok {
		return status.New(status.InvalidState, "backend does not support LoRA adapters")
	}
	if err := provider.LoadLoRA(path, scale); err != nil {
		return status.Convert(err)
	}
	l.loraMu.Lock()
	l.lora = append(l.lora, loraEntry{Path: path, Scale: scale})
	l.loraMu.Unlock()
	return nil
}

// RemoveLoRA detaches a previously applied adapter.
func (l *LLM) RemoveLoRA(path string) error {
	if err := l.checkAlive(); err != nil {
		return err
	}
	provider, ok := l.provider.(engine.LoRAProvider)
	if !ok {
		return status.New(status.InvalidState, "backend does not support LoRA adapters")
	}
	l.loraMu.Lock()
	found := false
	kept := l.lora[:0]
	for _, e := range l.lora {
		if e.Path == path && !found {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	l.lora = kept
	l.loraMu.Unlock()
	if !found {
		return status.New(status.NotFound, "adapter not loaded: "+path)
	}
	return status.Convert(provider.RemoveLoRA(path))
}

// ClearLoRA detaches all applied adapters.
func (l *LLM) ClearLoRA() error {
	if err := l.checkAlive(); err != nil {
		return err
	}
	provider, ok := l.provider.(engine.LoRAProvider)
	if !ok {
		return status.New(status.InvalidState, "backend does not support LoRA adapters")
	}
	l.loraMu.Lock()
	l.lora = nil
	l.loraMu.Unlock()
	return status.Convert(provider.ClearLoRA())
}

// LoRAInfo returns the applied adapters as a JSON array of
// {path, scale} objects.
func (l *LLM) LoRAInfo() (string, error) {
	if err := l.checkAlive(); err != nil {
		return "", err
	}
	l.loraMu.Lock()
	entries := make([]loraEntry, len(l.lora))
	copy(entries, l.lora)
	l.loraMu.Unlock()
	data, err := json.Marshal(entries)
	if err != nil {
		return "", status.Errorf(status.EngineFailure, "marshal adapter info: %v", err)
	}
	return string(data), nil
}

// finishGeneration fills in timing metrics the backend left blank and
// emits the generation telemetry event.
func (l *LLM) finishGeneration(result *engine.GenerateResult, start time.Time, streamed bool) {
	elapsed := time.Since(start)
	if result.TotalTimeMs == 0 {
		result.TotalTimeMs = float64(elapsed.Milliseconds())
	}
	if result.TokensPerSecond == 0 && elapsed > 0 && result.CompletionTokens > 0 {
		result.TokensPerSecond = float64(result.CompletionTokens) / elapsed.Seconds()
	}
	telemetry.EmitLLMGeneration(telemetry.LLMGenerationEvent{
		GenerationID:     uuid.New().String(),
		ModelID:          l.ModelID(),
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		DurationMs:       result.TotalTimeMs,
		TokensPerSecond:  result.TokensPerSecond,
		Streamed:         streamed,
	})
}
