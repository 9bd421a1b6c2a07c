package component

import (
	"encoding/json"

	"github.com/opd-ai/inferbridge/engine"
)

// Stop-reason codes in the generation result payload. Stopped means the
// host's token callback ended the stream before the backend finished.
const (
	stopReasonComplete = 0
	stopReasonStopped  = 1
)

// Completion-reason codes in the transcription result payload.
const (
	completionReasonEndOfAudio = 1
)

// generateResultPayload is the serialized generation result. Field names
// are stable; hosts parse them by name.
type generateResultPayload struct {
	Text            string  `json:"text"`
	TokensGenerated int     `json:"tokens_generated"`
	TokensEvaluated int     `json:"tokens_evaluated"`
	StopReason      int     `json:"stop_reason"`
	TotalTimeMs     float64 `json:"total_time_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

func marshalGenerateResult(text string, res engine.GenerateResult, stopReason int) string {
	payload := generateResultPayload{
		Text:            text,
		TokensGenerated: res.CompletionTokens,
		TokensEvaluated: res.PromptTokens,
		StopReason:      stopReason,
		TotalTimeMs:     res.TotalTimeMs,
		TokensPerSecond: res.TokensPerSecond,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// The payload contains only scalars; marshal cannot fail in
		// practice, but never return invalid JSON to the host.
		return `{"text":"","tokens_generated":0}`
	}
	return string(data)
}

// transcribeResultPayload is the serialized transcription result.
type transcribeResultPayload struct {
	Text             string  `json:"text"`
	Language         string  `json:"language"`
	DurationMs       float64 `json:"duration_ms"`
	CompletionReason int     `json:"completion_reason"`
	Confidence       float32 `json:"confidence"`
}

func marshalTranscribeResult(res *engine.TranscribeResult) string {
	lang := res.DetectedLanguage
	if lang == "" {
		lang = "en"
	}
	payload := transcribeResultPayload{
		Text:             res.Text,
		Language:         lang,
		DurationMs:       res.ProcessingTimeMs,
		CompletionReason: completionReasonEndOfAudio,
		Confidence:       res.Confidence,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"text":"","language":"en"}`
	}
	return string(data)
}

// vadResultPayload is the serialized voice-activity result.
type vadResultPayload struct {
	IsSpeech    bool    `json:"is_speech"`
	Probability float32 `json:"probability"`
}

func marshalVADResult(isSpeech bool) string {
	p := vadResultPayload{IsSpeech: isSpeech}
	if isSpeech {
		p.Probability = 1.0
	}
	data, _ := json.Marshal(p)
	return string(data)
}
