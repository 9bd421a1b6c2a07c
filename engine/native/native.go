//go:build (linux || darwin) && (amd64 || arm64)

// Package native adapts the inference engine's C API to the engine
// provider contract through purego, so no cgo toolchain is needed to
// talk to the shared library. Go pointers never cross the boundary:
// stream state lives in a handle-keyed table and the engine sees only
// integer ids.
package native

import (
	"encoding/json"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
)

// ProviderName is the registry name the native backend registers under.
const ProviderName = "native"

var (
	lib      uintptr
	loadOnce sync.Once
	loadErr  error

	ieLLMCreate         func() uintptr
	ieLLMDestroy        func(uintptr)
	ieLLMLoadModel      func(uintptr, string) int32
	ieLLMUnload         func(uintptr) int32
	ieLLMGenerate       func(h uintptr, prompt, options string, out []byte, outCap uint32) int32
	ieLLMGenerateStream func(h uintptr, prompt, options string, onToken, onComplete, onError, user uintptr) int32
	ieLLMCancel         func(uintptr)
)

// Callback trampolines, created once. The engine calls them with the
// stream id it was handed at launch.
var (
	tokenTrampoline    uintptr
	completeTrampoline uintptr
	errorTrampoline    uintptr
)

// Load opens the engine shared library at path, resolves its symbols,
// and registers the native text-generation provider. Safe to call more
// than once; only the first path is used.
func Load(path string) error {
	loadOnce.Do(func() {
		loadErr = load(path)
	})
	return loadErr
}

func load(path string) error {
	var err error
	lib, err = purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return status.Errorf(status.NotInitialized, "open engine library %s: %v", path, err)
	}

	purego.RegisterLibFunc(&ieLLMCreate, lib, "ie_llm_create")
	purego.RegisterLibFunc(&ieLLMDestroy, lib, "ie_llm_destroy")
	purego.RegisterLibFunc(&ieLLMLoadModel, lib, "ie_llm_load_model")
	purego.RegisterLibFunc(&ieLLMUnload, lib, "ie_llm_unload")
	purego.RegisterLibFunc(&ieLLMGenerate, lib, "ie_llm_generate")
	purego.RegisterLibFunc(&ieLLMGenerateStream, lib, "ie_llm_generate_stream")
	purego.RegisterLibFunc(&ieLLMCancel, lib, "ie_llm_cancel")

	tokenTrampoline = purego.NewCallback(onTokenBridge)
	completeTrampoline = purego.NewCallback(onCompleteBridge)
	errorTrampoline = purego.NewCallback(onErrorBridge)

	engine.Register(engine.CapabilityTextGeneration, ProviderName, func() (interface{}, error) {
		h := ieLLMCreate()
		if h == 0 {
			return nil, status.New(status.EngineFailure, "engine returned null llm handle")
		}
		return &llmProvider{h: h}, nil
	})

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
	}).Info("Native engine library loaded")
	return nil
}

// streams maps the integer id handed to the engine back to the live
// stream callbacks.
var (
	streamsMu sync.Mutex
	streams   = make(map[uintptr]engine.StreamCallbacks)
	nextID    uintptr = 1
)

func registerStream(cbs engine.StreamCallbacks) uintptr {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	id := nextID
	nextID++
	streams[id] = cbs
	return id
}

func lookupStream(id uintptr) (engine.StreamCallbacks, bool) {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	cbs, ok := streams[id]
	return cbs, ok
}

func dropStream(id uintptr) {
	streamsMu.Lock()
	delete(streams, id)
	streamsMu.Unlock()
}

func onTokenBridge(user uintptr, token uintptr) int32 {
	cbs, ok := lookupStream(user)
	if !ok || cbs.OnToken == nil {
		return 0
	}
	if cbs.OnToken(goString(token)) {
		return 1
	}
	return 0
}

func onCompleteBridge(user uintptr, resultJSON uintptr) uintptr {
	cbs, ok := lookupStream(user)
	dropStream(user)
	if !ok || cbs.OnComplete == nil {
		return 0
	}
	cbs.OnComplete(parseResult(goString(resultJSON)))
	return 0
}

func onErrorBridge(user uintptr, code int32, message uintptr) uintptr {
	cbs, ok := lookupStream(user)
	dropStream(user)
	if !ok || cbs.OnError == nil {
		return 0
	}
	cbs.OnError(status.Code(code), goString(message))
	return 0
}

// llmProvider is one engine-owned LLM instance. streamID tracks the
// entry the most recent stream holds in the streams table, so an
// abandoned stream can be released even when the engine never fires its
// completion path.
type llmProvider struct {
	h uintptr

	streamMu sync.Mutex
	streamID uintptr
}

func (p *llmProvider) LoadModel(path string) error {
	return status.FromEngine(status.Code(ieLLMLoadModel(p.h, path)), "")
}

func (p *llmProvider) Unload() error {
	return status.FromEngine(status.Code(ieLLMUnload(p.h)), "")
}

const resultBufSize = 1 << 20

func (p *llmProvider) Generate(prompt string, opts engine.GenerateOptions) (*engine.GenerateResult, error) {
	out := make([]byte, resultBufSize)
	code := ieLLMGenerate(p.h, prompt, marshalOptions(opts), out, uint32(len(out)))
	if code != 0 {
		return nil, status.FromEngine(status.Code(code), "")
	}
	return parseResult(cString(out)), nil
}

func (p *llmProvider) GenerateStream(prompt string, opts engine.GenerateOptions, cbs engine.StreamCallbacks) error {
	id := registerStream(cbs)
	p.streamMu.Lock()
	p.streamID = id
	p.streamMu.Unlock()
	code := ieLLMGenerateStream(p.h, prompt, marshalOptions(opts), tokenTrampoline, completeTrampoline, errorTrampoline, id)
	if code != 0 {
		dropStream(id)
		return status.FromEngine(status.Code(code), "")
	}
	return nil
}

func (p *llmProvider) Cancel() {
	ieLLMCancel(p.h)
}

// ReleaseStream drops the active stream's table entry. Called by the
// component after its bounded wait gave up on the stream; any late
// engine callback then finds no entry and is ignored. Releasing when no
// stream is active, or after the stream already completed, is a no-op.
func (p *llmProvider) ReleaseStream() {
	p.streamMu.Lock()
	id := p.streamID
	p.streamID = 0
	p.streamMu.Unlock()
	if id != 0 {
		dropStream(id)
	}
}

// Close destroys the engine-side instance.
func (p *llmProvider) Close() {
	if p.h != 0 {
		ieLLMDestroy(p.h)
		p.h = 0
	}
}

// engineResult mirrors the engine's result document.
type engineResult struct {
	Text            string  `json:"text"`
	TokensGenerated int     `json:"tokens_generated"`
	TokensEvaluated int     `json:"tokens_evaluated"`
	TotalTimeMs     float64 `json:"total_time_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

func parseResult(payload string) *engine.GenerateResult {
	if payload == "" {
		return nil
	}
	var raw engineResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "parseResult",
			"error":    err.Error(),
		}).Warn("Malformed engine result payload")
		return nil
	}
	return &engine.GenerateResult{
		Text:             raw.Text,
		CompletionTokens: raw.TokensGenerated,
		PromptTokens:     raw.TokensEvaluated,
		TotalTokens:      raw.TokensGenerated + raw.TokensEvaluated,
		TotalTimeMs:      raw.TotalTimeMs,
		TokensPerSecond:  raw.TokensPerSecond,
	}
}

func marshalOptions(opts engine.GenerateOptions) string {
	data, err := json.Marshal(map[string]interface{}{
		"temperature":   opts.Temperature,
		"max_tokens":    opts.MaxTokens,
		"top_p":         opts.TopP,
		"system_prompt": opts.SystemPrompt,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}

// goString copies a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var b []byte
	for {
		c := *(*byte)(unsafe.Pointer(p))
		if c == 0 {
			break
		}
		b = append(b, c)
		p++
	}
	return string(b)
}

// cString returns the NUL-terminated prefix of buf.
func cString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
