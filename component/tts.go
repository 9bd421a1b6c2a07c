package component

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/audio"
	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// TTS wraps a speech-synthesis backend behind the component lifecycle.
type TTS struct {
	base
	provider engine.TTSProvider
}

// NewTTS resolves the registered speech-synthesis backend and returns a
// component handle in the created state.
func NewTTS() (*TTS, error) {
	backend, err := engine.New(engine.CapabilityTTS)
	if err != nil {
		return nil, err
	}
	provider, ok := backend.(engine.TTSProvider)
	if !ok {
		return nil, status.New(status.EngineFailure, "registered speech-synthesis backend does not implement TTSProvider")
	}
	t := &TTS{provider: provider}
	t.kind = "tts"
	t.state = StateCreated
	return t, nil
}

// LoadVoice loads the voice data at path into the backend.
func (t *TTS) LoadVoice(path, id, name string) error {
	if path == "" {
		return status.New(status.InvalidArgument, "voice path is empty")
	}
	if err := t.beginLoad(); err != nil {
		return err
	}
	start := time.Now()
	if err := t.provider.LoadVoice(path); err != nil {
		t.markUnloaded()
		return status.Convert(err)
	}
	t.markLoaded(id, name)
	telemetry.EmitModelLoad(telemetry.ModelLoadEvent{
		ModelID:    id,
		ModelName:  name,
		Component:  "tts",
		DurationMs: time.Since(start).Milliseconds(),
		Success:    true,
	})
	return nil
}

// Unload releases the loaded voice.
func (t *TTS) Unload() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	if !t.IsLoaded() {
		return nil
	}
	if err := t.provider.Unload(); err != nil {
		return status.Convert(err)
	}
	t.markUnloaded()
	return nil
}

// Destroy tears down the component. A second Destroy fails with
// InvalidHandle.
func (t *TTS) Destroy() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	if t.IsLoaded() {
		if err := t.provider.Unload(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"error":    err.Error(),
			}).Warn("Unload during destroy failed")
		}
	}
	return t.markDestroyed()
}

// Synthesize renders text to 16-bit PCM audio and returns the raw
// samples.
func (t *TTS) Synthesize(text, optionsJSON string) ([]byte, error) {
	if text == "" {
		return nil, status.New(status.InvalidArgument, "text is empty")
	}
	if err := t.beginInvoke(); err != nil {
		return nil, err
	}
	defer t.endInvoke()

	opts := parseSynthesizeOptions(optionsJSON)
	pcm, err := t.provider.Synthesize(text, opts)
	if err != nil {
		return nil, status.Convert(err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Synthesize",
		"chars":    len(text),
		"bytes":    len(pcm),
	}).Debug("Synthesis complete")
	return pcm, nil
}

// SynthesizeToFile renders text to audio and writes it as a WAV file at
// path through the platform adapter.
func (t *TTS) SynthesizeToFile(text, optionsJSON, path string) error {
	if path == "" {
		return status.New(status.InvalidArgument, "output path is empty")
	}
	pcm, err := t.Synthesize(text, optionsJSON)
	if err != nil {
		return err
	}
	opts := parseSynthesizeOptions(optionsJSON)
	wav := audio.PCM16ToWAV(pcm, opts.SampleRate, 1)
	return platform.FileWrite(path, wav)
}
