package component

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/audio"
	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// STT wraps a speech-recognition backend behind the component
// lifecycle.
type STT struct {
	base
	provider engine.STTProvider
}

// NewSTT resolves the registered speech-recognition backend and returns
// a component handle in the created state.
func NewSTT() (*STT, error) {
	backend, err := engine.New(engine.CapabilitySTT)
	if err != nil {
		return nil, err
	}
	provider, ok := backend.(engine.STTProvider)
	if !ok {
		return nil, status.New(status.EngineFailure, "registered speech-recognition backend does not implement STTProvider")
	}
	s := &STT{provider: provider}
	s.kind = "stt"
	s.state = StateCreated
	return s, nil
}

// LoadModel loads the acoustic model at path into the backend.
func (s *STT) LoadModel(path, id, name string) error {
	if path == "" {
		return status.New(status.InvalidArgument, "model path is empty")
	}
	if err := s.beginLoad(); err != nil {
		return err
	}
	start := time.Now()
	if err := s.provider.LoadModel(path); err != nil {
		s.markUnloaded()
		return status.Convert(err)
	}
	s.markLoaded(id, name)
	telemetry.EmitModelLoad(telemetry.ModelLoadEvent{
		ModelID:    id,
		ModelName:  name,
		Component:  "stt",
		DurationMs: time.Since(start).Milliseconds(),
		Success:    true,
	})
	return nil
}

// Unload releases the loaded model.
func (s *STT) Unload() error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if !s.IsLoaded() {
		return nil
	}
	if err := s.provider.Unload(); err != nil {
		return status.Convert(err)
	}
	s.markUnloaded()
	return nil
}

// Destroy tears down the component. A second Destroy fails with
// InvalidHandle.
func (s *STT) Destroy() error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if s.IsLoaded() {
		if err := s.provider.Unload(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"error":    err.Error(),
			}).Warn("Unload during destroy failed")
		}
	}
	return s.markDestroyed()
}

// Transcribe converts audioData to text and returns the result as a
// JSON document. The options may select a format: "pcm16" (default)
// passes the bytes through as 16-bit little-endian PCM; "opus" decodes
// an Ogg Opus stream to PCM first.
func (s *STT) Transcribe(audioData []byte, optionsJSON string) (string, error) {
	if len(audioData) == 0 {
		return "", status.New(status.InvalidArgument, "audio data is empty")
	}
	if err := s.beginInvoke(); err != nil {
		return "", err
	}
	defer s.endInvoke()

	opts, format := parseTranscribeOptions(optionsJSON)
	pcm := audioData
	switch format {
	case "", "pcm16":
	case "opus":
		decoded, err := audio.DecodeOpus(audioData)
		if err != nil {
			return "", status.Errorf(status.InvalidArgument, "decode opus audio: %v", err)
		}
		pcm = decoded
	default:
		return "", status.New(status.InvalidArgument, "unsupported audio format: "+format)
	}

	result, err := s.provider.Transcribe(pcm, opts)
	if err != nil {
		return "", status.Convert(err)
	}
	if result == nil {
		return "", status.New(status.EngineFailure, "backend returned no result")
	}
	logrus.WithFields(logrus.Fields{
		"function": "Transcribe",
		"bytes":    len(pcm),
		"language": result.DetectedLanguage,
	}).Debug("Transcription complete")
	return marshalTranscribeResult(result), nil
}
