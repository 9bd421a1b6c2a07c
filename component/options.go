package component

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
)

// Generation option defaults, applied whenever the options payload is
// absent, malformed, or missing a field.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
	DefaultTopP        = 1.0
)

// DefaultSampleRate is the assumed PCM sample rate for audio components.
const DefaultSampleRate = 16000

// parseGenerateOptions parses the loosely-typed generation options
// payload. Parsing is permissive, not a validation gate: a malformed
// payload is logged and yields the documented defaults, unknown fields
// are ignored, and a type-mismatched field is logged and defaulted
// individually.
func parseGenerateOptions(optionsJSON string) engine.GenerateOptions {
	opts := engine.GenerateOptions{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
	}
	fields := decodeOptions(optionsJSON, "parseGenerateOptions")
	if fields == nil {
		return opts
	}
	if v, ok := floatField(fields, "temperature"); ok {
		opts.Temperature = float32(v)
	}
	if v, ok := floatField(fields, "max_tokens"); ok {
		opts.MaxTokens = int(v)
	}
	if v, ok := floatField(fields, "top_p"); ok {
		opts.TopP = float32(v)
	}
	if v, ok := stringField(fields, "system_prompt"); ok && v != "" {
		opts.SystemPrompt = v
	}
	return opts
}

// parseTranscribeOptions parses transcription options with the same
// permissive policy. The audio format field selects how the input bytes
// are interpreted; anything other than "opus" means 16-bit PCM.
func parseTranscribeOptions(optionsJSON string) (engine.TranscribeOptions, string) {
	opts := engine.TranscribeOptions{SampleRate: DefaultSampleRate}
	format := "pcm16"
	fields := decodeOptions(optionsJSON, "parseTranscribeOptions")
	if fields == nil {
		return opts, format
	}
	if v, ok := floatField(fields, "sample_rate"); ok && v > 0 {
		opts.SampleRate = int(v)
	}
	if v, ok := stringField(fields, "language"); ok {
		opts.Language = v
	}
	if v, ok := stringField(fields, "format"); ok && v != "" {
		format = v
	}
	return opts, format
}

// parseSynthesizeOptions parses speech-synthesis options.
func parseSynthesizeOptions(optionsJSON string) engine.SynthesizeOptions {
	opts := engine.SynthesizeOptions{SampleRate: 22050, SpeechRate: 1.0}
	fields := decodeOptions(optionsJSON, "parseSynthesizeOptions")
	if fields == nil {
		return opts
	}
	if v, ok := floatField(fields, "sample_rate"); ok && v > 0 {
		opts.SampleRate = int(v)
	}
	if v, ok := floatField(fields, "speech_rate"); ok && v > 0 {
		opts.SpeechRate = float32(v)
	}
	return opts
}

// decodeOptions unmarshals the payload into a generic field map.
// Returns nil when the payload is empty or malformed (logged).
func decodeOptions(optionsJSON, fn string) map[string]interface{} {
	if optionsJSON == "" {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(optionsJSON), &fields); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": fn,
			"error":    err.Error(),
		}).Warn("Malformed options payload, using defaults")
		return nil
	}
	return fields
}

func floatField(fields map[string]interface{}, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	v, ok := raw.(float64)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "floatField",
			"field":    key,
		}).Warn("Type-mismatched option field, using default")
		return 0, false
	}
	return v, true
}

func stringField(fields map[string]interface{}, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	v, ok := raw.(string)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "stringField",
			"field":    key,
		}).Warn("Type-mismatched option field, using default")
		return "", false
	}
	return v, true
}
