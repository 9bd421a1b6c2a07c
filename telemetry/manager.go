package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/status"
)

// HTTPPostFunc posts a JSON body to a backend path and returns the HTTP
// status code, or a negative value when the request could not be made.
// The host supplies the transport; the Manager never opens sockets
// itself.
type HTTPPostFunc func(path string, body []byte) int

const (
	defaultBatchSize     = 20
	defaultFlushInterval = 30 * time.Second
	eventsPath           = "/v1/events"
	maxQueuedEvents      = 1000
)

// Manager buffers analytics events and delivers them in batches. Track
// never blocks on the network: delivery happens from the background
// flush loop or an explicit Flush.
type Manager struct {
	mu         sync.Mutex
	env        string
	deviceID   string
	platform   string
	sdkVersion string
	deviceInfo map[string]interface{}
	httpPost   HTTPPostFunc
	queue      []Event

	batchSize     int
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
	closed        bool
}

// batchPayload is the wire shape of one delivery.
type batchPayload struct {
	Environment string                 `json:"environment"`
	DeviceID    string                 `json:"device_id"`
	Platform    string                 `json:"platform"`
	SDKVersion  string                 `json:"sdk_version"`
	DeviceInfo  map[string]interface{} `json:"device_info,omitempty"`
	Events      []Event                `json:"events"`
}

// New creates a Manager and starts its background flush loop. Call
// Close to stop it.
func New(env, deviceID, platform, sdkVersion string) *Manager {
	m := &Manager{
		env:           env,
		deviceID:      deviceID,
		platform:      platform,
		sdkVersion:    sdkVersion,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.flushLoop()
	return m
}

// SetHTTPCallback installs the transport used for delivery. Until one
// is installed, flushes keep events queued (bounded).
func (m *Manager) SetHTTPCallback(post HTTPPostFunc) {
	m.mu.Lock()
	m.httpPost = post
	m.mu.Unlock()
}

// SetDeviceInfo attaches device properties to every subsequent batch.
func (m *Manager) SetDeviceInfo(info map[string]interface{}) {
	m.mu.Lock()
	m.deviceInfo = info
	m.mu.Unlock()
}

// Track enqueues one event. When the queue reaches the batch size a
// flush is triggered on a separate goroutine. The queue is bounded;
// once full, the oldest events are dropped first.
func (m *Manager) Track(event Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, event)
	if over := len(m.queue) - maxQueuedEvents; over > 0 {
		m.queue = m.queue[over:]
		logrus.WithFields(logrus.Fields{
			"function": "Track",
			"dropped":  over,
		}).Warn("Telemetry queue full, dropping oldest events")
	}
	ready := len(m.queue) >= m.batchSize && m.httpPost != nil
	m.mu.Unlock()
	if ready {
		go m.Flush()
	}
}

// Flush delivers all queued events now and reports the delivery
// failure, if any. Events are dropped after a failed delivery;
// telemetry is best effort. Flushing an empty queue, or one with no
// transport installed yet, is a successful no-op.
func (m *Manager) Flush() error {
	m.mu.Lock()
	if len(m.queue) == 0 || m.httpPost == nil {
		m.mu.Unlock()
		return nil
	}
	payload := batchPayload{
		Environment: m.env,
		DeviceID:    m.deviceID,
		Platform:    m.platform,
		SDKVersion:  m.sdkVersion,
		DeviceInfo:  m.deviceInfo,
		Events:      m.queue,
	}
	post := m.httpPost
	m.queue = nil
	m.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Flush",
			"error":    err.Error(),
		}).Error("Failed to marshal telemetry batch")
		return status.Errorf(status.StorageError, "marshal telemetry batch: %v", err)
	}
	code := post(eventsPath, body)
	if code < 200 || code >= 300 {
		logrus.WithFields(logrus.Fields{
			"function": "Flush",
			"status":   code,
			"events":   len(payload.Events),
		}).Warn("Telemetry delivery failed, batch dropped")
		if code < 0 {
			return status.Errorf(status.NetworkError, "telemetry delivery failed (%d)", code)
		}
		return status.Errorf(status.HTTPRequestFailed, "telemetry delivery failed (HTTP %d)", code)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Flush",
		"events":   len(payload.Events),
	}).Debug("Telemetry batch delivered")
	return nil
}

// Close flushes remaining events and stops the background loop. The
// Manager accepts no events afterward.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	close(m.stop)
	<-m.done
	m.Flush()
}

func (m *Manager) flushLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Flush()
		case <-m.stop:
			return
		}
	}
}
