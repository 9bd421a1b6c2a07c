package component

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// VLM wraps a vision-language backend behind the component lifecycle.
// It mirrors the LLM surface with an image payload on each generation.
type VLM struct {
	base
	provider engine.VLMProvider
}

// NewVLM resolves the registered vision-language backend and returns a
// component handle in the created state.
func NewVLM() (*VLM, error) {
	backend, err := engine.New(engine.CapabilityVLM)
	if err != nil {
		return nil, err
	}
	provider, ok := backend.(engine.VLMProvider)
	if !ok {
		return nil, status.New(status.EngineFailure, "registered vision-language backend does not implement VLMProvider")
	}
	v := &VLM{provider: provider}
	v.kind = "vlm"
	v.state = StateCreated
	return v, nil
}

// LoadModel loads the model at path into the backend.
func (v *VLM) LoadModel(path, id, name string) error {
	if path == "" {
		return status.New(status.InvalidArgument, "model path is empty")
	}
	if err := v.beginLoad(); err != nil {
		return err
	}
	start := time.Now()
	if err := v.provider.LoadModel(path); err != nil {
		v.markUnloaded()
		return status.Convert(err)
	}
	v.markLoaded(id, name)
	telemetry.EmitModelLoad(telemetry.ModelLoadEvent{
		ModelID:    id,
		ModelName:  name,
		Component:  "vlm",
		DurationMs: time.Since(start).Milliseconds(),
		Success:    true,
	})
	return nil
}

// Unload releases the loaded model.
func (v *VLM) Unload() error {
	if err := v.checkAlive(); err != nil {
		return err
	}
	if !v.IsLoaded() {
		return nil
	}
	if err := v.provider.Unload(); err != nil {
		return status.Convert(err)
	}
	v.markUnloaded()
	return nil
}

// Destroy tears down the component. A second Destroy fails with
// InvalidHandle.
func (v *VLM) Destroy() error {
	if err := v.checkAlive(); err != nil {
		return err
	}
	if v.IsLoaded() {
		if err := v.provider.Unload(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"error":    err.Error(),
			}).Warn("Unload during destroy failed")
		}
	}
	return v.markDestroyed()
}

// GenerateWithImage runs a full generation conditioned on image and
// returns the result as a JSON document.
func (v *VLM) GenerateWithImage(prompt string, image []byte, optionsJSON string) (string, error) {
	if prompt == "" {
		return "", status.New(status.InvalidArgument, "prompt is empty")
	}
	if len(image) == 0 {
		return "", status.New(status.InvalidArgument, "image data is empty")
	}
	if err := v.beginInvoke(); err != nil {
		return "", err
	}
	defer v.endInvoke()

	opts := parseGenerateOptions(optionsJSON)
	result, err := v.provider.GenerateWithImage(prompt, image, opts)
	if err != nil {
		return "", status.Convert(err)
	}
	if result == nil {
		return "", status.New(status.EngineFailure, "backend returned no result")
	}
	return marshalGenerateResult(result.Text, *result, stopReasonComplete), nil
}

// GenerateStreamWithImage runs a streaming generation conditioned on
// image, blocking until completion in the same way GenerateStream does
// for the text-only component. A non-nil cb receives live per-token
// delivery.
func (v *VLM) GenerateStreamWithImage(prompt string, image []byte, optionsJSON string, cb TokenCallback) (string, error) {
	if prompt == "" {
		return "", status.New(status.InvalidArgument, "prompt is empty")
	}
	if len(image) == 0 {
		return "", status.New(status.InvalidArgument, "image data is empty")
	}
	if err := v.beginInvoke(); err != nil {
		return "", err
	}
	defer v.endInvoke()

	var dispatcher *tokenDispatcher
	if cb != nil {
		dispatcher = newTokenDispatcher(cb)
	}
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
				v.provider.Cancel()
				return false
			}
			return true
		}
	}
	err := v.provider.GenerateStreamWithImage(prompt, image, opts, engine.StreamCallbacks{
		OnToken:    onToken,
		OnComplete: ctx.onComplete,
		OnError:    ctx.onError,
	})
	if err != nil {
		return "", status.Convert(err)
	}
	if err := ctx.wait(defaultStreamTimeout()); err != nil {
		if status.Is(err, status.TimedOut) {
			abandonStream(ctx, v.provider)
		}
		return "", err
	}
	text, res, stopped := ctx.snapshot()
	logrus.WithFields(logrus.Fields{
		"function": "GenerateStreamWithImage",
		"tokens":   res.CompletionTokens,
	}).Debug("Vision stream complete")
	reason := stopReasonComplete
	if stopped {
		reason = stopReasonStopped
	}
	return marshalGenerateResult(text, res, reason), nil
}

// Cancel asks the backend to abort an in-flight generation.
func (v *VLM) Cancel() {
	if err := v.checkAlive(); err != nil {
		return
	}
	v.provider.Cancel()
}
