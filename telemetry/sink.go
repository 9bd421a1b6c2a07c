package telemetry

import "sync"

// Sink receives constructed events. The Manager is the production sink;
// tests install their own to observe emission.
type Sink interface {
	Track(event Event)
}

var sinkMu sync.RWMutex
var sink Sink

// SetSink installs the process-wide event sink. Passing nil disables
// emission.
func SetSink(s Sink) {
	sinkMu.Lock()
	sink = s
	sinkMu.Unlock()
}

func emit(event Event) {
	sinkMu.RLock()
	s := sink
	sinkMu.RUnlock()
	if s == nil {
		return
	}
	s.Track(event)
}
