package component

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
)

// TokenCallback receives live per-token delivery during a streaming
// generation. OnToken is invoked from the provider's streaming
// goroutine, once per token, in generation order. Returning false stops
// the stream; the stop takes effect after the in-flight call returns.
type TokenCallback interface {
	OnToken(token string) bool
}

// ByteTokenCallback is optionally implemented by receivers that want raw
// UTF-8 bytes instead of a string. The choice between byte and string
// delivery is made once when the stream is set up, never re-probed per
// token.
type ByteTokenCallback interface {
	OnTokenBytes(token []byte) bool
}

// streamContext is the per-invocation record shared between the calling
// goroutine and the provider's streaming goroutine. The provider side
// mutates it under the mutex; the caller blocks on done until the
// completion or error signal fires, or the bounded wait elapses.
//
// Once complete is set no further mutation occurs: late tokens and
// duplicate completion signals are dropped.
type streamContext struct {
	mu         sync.Mutex
	text       strings.Builder
	tokenCount int
	complete   bool
	stopped    bool
	err        error
	final      engine.GenerateResult

	done chan struct{}
}

func newStreamContext() *streamContext {
	return &streamContext{done: make(chan struct{})}
}

// onToken accumulates one token and reports whether streaming should
// continue.
func (sc *streamContext) onToken(token string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.complete || sc.stopped {
		return false
	}
	sc.text.WriteString(token)
	sc.tokenCount++
	if sc.tokenCount%10 == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "onToken",
			"tokens":   sc.tokenCount,
		}).Debug("Streaming tokens accumulated")
	}
	return true
}

// onComplete records the final metrics and signals the waiter. When the
// provider reports no completion-token count, the observed token count
// stands in for it.
func (sc *streamContext) onComplete(result *engine.GenerateResult) {
	sc.mu.Lock()
	if sc.complete {
		sc.mu.Unlock()
		return
	}
	if result != nil {
		sc.final = *result
		if sc.final.CompletionTokens <= 0 {
			sc.final.CompletionTokens = sc.tokenCount
		}
	} else {
		sc.final.CompletionTokens = sc.tokenCount
	}
	sc.complete = true
	sc.mu.Unlock()
	close(sc.done)
}

// onError records a failure and signals the waiter. Text accumulated
// before the error is discarded when the result is assembled; the caller
// sees the error alone.
func (sc *streamContext) onError(code status.Code, message string) {
	sc.mu.Lock()
	if sc.complete {
		sc.mu.Unlock()
		return
	}
	sc.err = status.FromEngine(code, message)
	sc.complete = true
	sc.mu.Unlock()
	close(sc.done)

	logrus.WithFields(logrus.Fields{
		"function": "onError",
		"code":     int32(code),
		"message":  message,
	}).Error("Streaming generation failed")
}

// markStopped suppresses further token delivery after the receiver's
// callback asked to stop or panicked. The provider's own completion
// path still signals done.
func (sc *streamContext) markStopped() {
	sc.mu.Lock()
	sc.stopped = true
	sc.mu.Unlock()
}

// wait blocks until the completion or error signal, or until the bound
// elapses. Timeout is a safety net against a provider that never
// signals; it surfaces as TimedOut.
func (sc *streamContext) wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-sc.done:
	case <-timer.C:
		sc.mu.Lock()
		if !sc.complete {
			sc.err = status.New(status.TimedOut, "timed out waiting for stream completion")
			sc.complete = true
		}
		sc.mu.Unlock()
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.err
}

// snapshot returns the accumulated text, final metrics, and whether the
// receiver stopped the stream early. Valid only after wait has returned
// without error.
func (sc *streamContext) snapshot() (string, engine.GenerateResult, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.text.String(), sc.final, sc.stopped
}

// abandonStream is the timed-out wait's cleanup path. The waiter is
// gone, so suppress late token delivery, ask the backend to stop, and
// release any per-stream callback state it pins. Without the release a
// fully wedged backend would hold the stream's callbacks forever.
func abandonStream(sc *streamContext, provider interface{ Cancel() }) {
	sc.markStopped()
	provider.Cancel()
	if r, ok := provider.(engine.StreamReleaser); ok {
		r.ReleaseStream()
	}
}

// tokenDispatcher delivers tokens to a host TokenCallback with the
// delivery shape (bytes vs string) fixed at setup time. A panic in the
// host callback is recovered, logged, and treated as a stop request; it
// never unwinds into the provider's streaming goroutine.
type tokenDispatcher struct {
	stringCb TokenCallback
	byteCb   ByteTokenCallback
}

func newTokenDispatcher(cb TokenCallback) *tokenDispatcher {
	d := &tokenDispatcher{stringCb: cb}
	if bcb, ok := cb.(ByteTokenCallback); ok {
		d.byteCb = bcb
	}
	return d
}

func (d *tokenDispatcher) dispatch(token string) (cont bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{
				"function": "dispatch",
				"panic":    rec,
			}).Error("Recovered panic in token callback, stopping stream")
			cont = false
		}
	}()
	if d.byteCb != nil {
		return d.byteCb.OnTokenBytes([]byte(token))
	}
	return d.stringCb.OnToken(token)
}
