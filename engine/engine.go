// Package engine defines the contract between the bridge and the native
// inference backends. The bridge never assumes which backend is present:
// backends register themselves by capability, and components resolve a
// provider at create time. Providers backed by a real engine shared
// library live in the native subpackage; tests use in-process stubs.
package engine

import "github.com/opd-ai/inferbridge/status"

// GenerateOptions configures a single text-generation call.
type GenerateOptions struct {
	Temperature  float32
	MaxTokens    int
	TopP         float32
	SystemPrompt string
}

// GenerateResult carries the metrics of a completed generation.
type GenerateResult struct {
	Text             string
	CompletionTokens int
	PromptTokens     int
	TotalTokens      int
	TotalTimeMs      float64
	TokensPerSecond  float64
}

// TranscribeOptions configures a transcription call.
type TranscribeOptions struct {
	SampleRate int
	Language   string
}

// TranscribeResult carries the outcome of a transcription.
type TranscribeResult struct {
	Text             string
	DetectedLanguage string
	ProcessingTimeMs float64
	Confidence       float32
}

// SynthesizeOptions configures a speech-synthesis call.
type SynthesizeOptions struct {
	SampleRate int
	SpeechRate float32
}

// StreamCallbacks are the three per-invocation callbacks a streaming
// generation registers with the provider. The provider must honor the
// ordering guarantees: tokens arrive in generation order, no token fires
// after OnComplete or OnError, and exactly one of OnComplete/OnError
// fires per invocation (unless the provider fails before streaming
// starts, reported through GenerateStream's return value instead).
type StreamCallbacks struct {
	// OnToken delivers one token. Returning false asks the provider to
	// stop streaming; the stop takes effect after this call returns and
	// the provider still fires its completion path.
	OnToken func(token string) bool

	// OnComplete delivers the final metrics. result may be nil when the
	// provider has none.
	OnComplete func(result *GenerateResult)

	// OnError reports a failure mid-stream.
	OnError func(code status.Code, message string)
}

// LLMProvider is implemented by text-generation backends.
type LLMProvider interface {
	// LoadModel loads model weights from path.
	LoadModel(path string) error

	// Unload releases model resources; the provider stays usable for a
	// subsequent LoadModel.
	Unload() error

	// Generate runs a full generation synchronously on the calling
	// goroutine.
	Generate(prompt string, opts GenerateOptions) (*GenerateResult, error)

	// GenerateStream starts a streaming generation. It returns
	// immediately after the stream is launched; tokens and the
	// completion/error signal arrive on a provider-owned goroutine via
	// cbs. A non-nil return means streaming never started and no
	// callback will fire.
	GenerateStream(prompt string, opts GenerateOptions, cbs StreamCallbacks) error

	// Cancel requests best-effort cancellation of an in-flight
	// generation. The stream's own completion or error path remains
	// responsible for unblocking any waiter.
	Cancel()
}

// StreamReleaser is optionally implemented by providers that pin
// per-stream callback state where the garbage collector cannot reach
// it, such as an id-keyed table serving a foreign engine. Components
// call ReleaseStream after abandoning a stream's bounded wait, so a
// backend that never signals cannot hold the callbacks forever.
type StreamReleaser interface {
	ReleaseStream()
}

// STTProvider is implemented by speech-recognition backends.
type STTProvider interface {
	LoadModel(path string) error
	Unload() error

	// Transcribe converts 16-bit PCM audio to text synchronously.
	Transcribe(audio []byte, opts TranscribeOptions) (*TranscribeResult, error)
}

// TTSProvider is implemented by speech-synthesis backends.
type TTSProvider interface {
	// LoadVoice loads voice data from path.
	LoadVoice(path string) error
	Unload() error

	// Synthesize renders text to PCM audio synchronously.
	Synthesize(text string, opts SynthesizeOptions) ([]byte, error)
}

// VADProvider is implemented by voice-activity-detection backends.
type VADProvider interface {
	Initialize() error
	Cleanup() error

	// Process classifies one frame of float32 samples.
	Process(samples []float32) (bool, error)

	// Reset clears accumulated detection state.
	Reset()
}

// VLMProvider is implemented by vision-language backends. It extends the
// LLM surface with an image payload on generation.
type VLMProvider interface {
	LoadModel(path string) error
	Unload() error
	GenerateWithImage(prompt string, image []byte, opts GenerateOptions) (*GenerateResult, error)
	GenerateStreamWithImage(prompt string, image []byte, opts GenerateOptions, cbs StreamCallbacks) error
	Cancel()
}
