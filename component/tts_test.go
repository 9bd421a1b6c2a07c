package component

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/audio"
	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
)

// stubTTS renders a fixed PCM buffer.
type stubTTS struct {
	pcm      []byte
	lastOpts engine.SynthesizeOptions
}

func (p *stubTTS) LoadVoice(path string) error { return nil }
func (p *stubTTS) Unload() error { return nil }

func (p *stubTTS) Synthesize(text string, opts engine.SynthesizeOptions) ([]byte, error) {
	p.lastOpts = opts
	return p.pcm, nil
}

func loadTestTTS(t *testing.T, provider engine.TTSProvider) *TTS {
	t.Helper()
	tts := &TTS{provider: provider}
	tts.kind = "tts"
	tts.state = StateCreated
	require.NoError(t, tts.LoadVoice("/voices/en.bin", "en", "English"))
	return tts
}

func TestSynthesizeReturnsPCM(t *testing.T) {
	stub := &stubTTS{pcm: []byte{1, 0, 2, 0}}
	tts := loadTestTTS(t, stub)

	pcm, err := tts.Synthesize("hello", `{"sample_rate":16000,"speech_rate":1.5}`)
	require.NoError(t, err)
	assert.Equal(t, stub.pcm, pcm)
	assert.Equal(t, 16000, stub.lastOpts.SampleRate)
	assert.Equal(t, float32(1.5), stub.lastOpts.SpeechRate)
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	tts := loadTestTTS(t, &stubTTS{})

	_, err := tts.Synthesize("", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.InvalidArgument))
}

// wavCapturingAdapter records the WAV file written through the platform
// binding.
type wavCapturingAdapter struct {
	writtenPath string
	writtenData []byte
}

func (a *wavCapturingAdapter) Log(level platform.LogLevel, tag, message string) {}
func (a *wavCapturingAdapter) FileExists(path string) bool { return false }
func (a *wavCapturingAdapter) FileRead(path string) ([]byte, error) {
	return nil, errors.New("missing")
}

func (a *wavCapturingAdapter) FileWrite(path string, data []byte) bool {
	a.writtenPath = path
	a.writtenData = data
	return true
}

func (a *wavCapturingAdapter) FileDelete(path string) bool { return false }
func (a *wavCapturingAdapter) SecureGet(key string) (string, error) { return "", errors.New("miss") }
func (a *wavCapturingAdapter) SecureSet(key, value string) bool { return false }
func (a *wavCapturingAdapter) SecureDelete(key string) bool { return false }
func (a *wavCapturingAdapter) NowMs() int64 { return 0 }

func TestSynthesizeToFileWritesWAV(t *testing.T) {
	adapter := &wavCapturingAdapter{}
	require.NoError(t, platform.Set(adapter))
	t.Cleanup(platform.Clear)

	stub := &stubTTS{pcm: []byte{1, 0, 2, 0, 3, 0}}
	tts := loadTestTTS(t, stub)

	require.NoError(t, tts.SynthesizeToFile("hello", `{"sample_rate":16000}`, "/out/hello.wav"))
	assert.Equal(t, "/out/hello.wav", adapter.writtenPath)

	wav := adapter.writtenData
	require.Len(t, wav, audio.WAVHeaderSize+len(stub.pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, stub.pcm, wav[audio.WAVHeaderSize:])
}

func TestTTSStateTracksLoadAndUnload(t *testing.T) {
	tts := loadTestTTS(t, &stubTTS{})
	assert.True(t, tts.IsLoaded())
	assert.Equal(t, StateLoaded, tts.GetState())

	require.NoError(t, tts.Unload())
	assert.False(t, tts.IsLoaded())
	assert.Equal(t, StateCreated, tts.GetState())
}
