//go:build (linux || darwin) && (amd64 || arm64)

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/engine"
)

func TestStreamTableRoundTrip(t *testing.T) {
	id := registerStream(engine.StreamCallbacks{})
	require.NotZero(t, id)

	_, ok := lookupStream(id)
	assert.True(t, ok)

	dropStream(id)
	_, ok = lookupStream(id)
	assert.False(t, ok)
}

func TestReleaseStreamDropsAbandonedEntry(t *testing.T) {
	p := &llmProvider{h: 1}

	// A wedged engine never fires the complete/error bridge, so the
	// table entry survives until the component releases it.
	id := registerStream(engine.StreamCallbacks{})
	p.streamMu.Lock()
	p.streamID = id
	p.streamMu.Unlock()

	p.ReleaseStream()
	_, ok := lookupStream(id)
	assert.False(t, ok, "released stream must not stay in the table")
}

func TestReleaseStreamIsIdempotent(t *testing.T) {
	p := &llmProvider{h: 1}

	id := registerStream(engine.StreamCallbacks{})
	p.streamMu.Lock()
	p.streamID = id
	p.streamMu.Unlock()

	p.ReleaseStream()
	assert.NotPanics(t, p.ReleaseStream)

	// A fresh provider with no active stream is also a no-op.
	assert.NotPanics(t, (&llmProvider{h: 2}).ReleaseStream)
}

func TestBridgesIgnoreReleasedStream(t *testing.T) {
	fired := false
	id := registerStream(engine.StreamCallbacks{
		OnComplete: func(*engine.GenerateResult) { fired = true },
	})
	dropStream(id)

	onCompleteBridge(id, 0)
	assert.False(t, fired, "late callback on a released stream must be dropped")
	assert.Equal(t, int32(0), onTokenBridge(id, 0))
}

var _ engine.StreamReleaser = (*llmProvider)(nil)
