package component

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
)

// stubVLM is a scriptable in-process vision-language backend.
type stubVLM struct {
	mu          sync.Mutex
	cancelCalls int
	lastImage   []byte

	tokens []string
	final  *engine.GenerateResult
}

func (p *stubVLM) LoadModel(path string) error { return nil }
func (p *stubVLM) Unload() error { return nil }

func (p *stubVLM) Cancel() {
	p.mu.Lock()
	p.cancelCalls++
	p.mu.Unlock()
}

func (p *stubVLM) GenerateWithImage(prompt string, image []byte, opts engine.GenerateOptions) (*engine.GenerateResult, error) {
	p.lastImage = image
	if p.final != nil {
		return p.final, nil
	}
	return &engine.GenerateResult{Text: prompt, CompletionTokens: 1}, nil
}

func (p *stubVLM) GenerateStreamWithImage(prompt string, image []byte, opts engine.GenerateOptions, cbs engine.StreamCallbacks) error {
	p.lastImage = image
	go func() {
		for _, token := range p.tokens {
			if !cbs.OnToken(token) {
				cbs.OnComplete(nil)
				return
			}
		}
		cbs.OnComplete(p.final)
	}()
	return nil
}

func loadTestVLM(t *testing.T, provider engine.VLMProvider) *VLM {
	t.Helper()
	v := &VLM{provider: provider}
	v.kind = "vlm"
	v.state = StateCreated
	require.NoError(t, v.LoadModel("/models/vlm.bin", "vlm", "Stub VLM"))
	return v
}

func TestVLMGenerateWithImageForwardsPayload(t *testing.T) {
	stub := &stubVLM{final: &engine.GenerateResult{Text: "a cat", CompletionTokens: 2}}
	vlm := loadTestVLM(t, stub)

	image := []byte{0xFF, 0xD8, 0xFF}
	payload, err := vlm.GenerateWithImage("describe", image, "")
	require.NoError(t, err)

	assert.Equal(t, image, stub.lastImage)
	result := decodeResult(t, payload)
	assert.Equal(t, "a cat", result.Text)
	assert.Equal(t, 2, result.TokensGenerated)
}

func TestVLMGenerateWithImageRejectsEmptyInputs(t *testing.T) {
	vlm := loadTestVLM(t, &stubVLM{})

	_, err := vlm.GenerateWithImage("", []byte{1}, "")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = vlm.GenerateWithImage("describe", nil, "")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestVLMStreamWithoutCallbackConcatenatesTokens(t *testing.T) {
	stub := &stubVLM{tokens: []string{"red ", "square"}}
	vlm := loadTestVLM(t, stub)

	payload, err := vlm.GenerateStreamWithImage("describe", []byte{1, 2}, "", nil)
	require.NoError(t, err)

	result := decodeResult(t, payload)
	assert.Equal(t, "red square", result.Text)
	assert.Equal(t, 2, result.TokensGenerated)
}

func TestVLMStreamDeliversTokensToCallback(t *testing.T) {
	stub := &stubVLM{tokens: []string{"a", "b", "c"}}
	vlm := loadTestVLM(t, stub)

	cb := &countingCallback{stopAt: 100}
	payload, err := vlm.GenerateStreamWithImage("describe", []byte{1}, "", cb)
	require.NoError(t, err)

	result := decodeResult(t, payload)
	assert.Equal(t, "abc", result.Text)
	assert.Equal(t, []string{"a", "b", "c"}, cb.tokens())
}

func TestVLMStreamStopsWhenCallbackReturnsFalse(t *testing.T) {
	stub := &stubVLM{tokens: []string{"1", "2", "3", "4"}}
	vlm := loadTestVLM(t, stub)

	cb := &countingCallback{stopAt: 2}
	payload, err := vlm.GenerateStreamWithImage("describe", []byte{1}, "", cb)
	require.NoError(t, err)

	result := decodeResult(t, payload)
	assert.Equal(t, "12", result.Text)
	assert.Equal(t, 1, result.StopReason)
	stub.mu.Lock()
	assert.Equal(t, 1, stub.cancelCalls)
	stub.mu.Unlock()
}

func TestVLMRequiresLoadedModel(t *testing.T) {
	v := &VLM{provider: &stubVLM{}}
	v.kind = "vlm"
	v.state = StateCreated

	_, err := v.GenerateWithImage("describe", []byte{1}, "")
	assert.Equal(t, status.NotLoaded, status.CodeOf(err))
}

func TestVLMDestroyUnloadsAndRejectsSecondDestroy(t *testing.T) {
	vlm := loadTestVLM(t, &stubVLM{})

	require.NoError(t, vlm.Destroy())
	err := vlm.Destroy()
	assert.Equal(t, status.InvalidHandle, status.CodeOf(err))
}

func TestVLMStateTracksLoadAndUnload(t *testing.T) {
	vlm := loadTestVLM(t, &stubVLM{})
	assert.True(t, vlm.IsLoaded())
	assert.Equal(t, StateLoaded, vlm.GetState())

	require.NoError(t, vlm.Unload())
	assert.False(t, vlm.IsLoaded())
	assert.Equal(t, StateCreated, vlm.GetState())
}
