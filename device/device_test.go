package device

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/inferbridge/status"
)

// fakeCallbacks is a scriptable host.
type fakeCallbacks struct {
	infoJSON   string
	deviceID   string
	registered bool
	postCode   int

	postCalls   int
	postBodies  [][]byte
	setCalls    int
	panicOnPost bool
	panicOnInfo bool
	reentrant   func()
}

func (f *fakeCallbacks) DeviceInfoJSON() string {
	if f.panicOnInfo {
		panic("info exploded")
	}
	return f.infoJSON
}

func (f *fakeCallbacks) DeviceID() string { return f.deviceID }
func (f *fakeCallbacks) IsRegistered() bool { return f.registered }

func (f *fakeCallbacks) SetRegistered(registered bool) {
	f.setCalls++
	f.registered = registered
}

func (f *fakeCallbacks) HTTPPost(path string, body []byte) int {
	if f.panicOnPost {
		panic("post exploded")
	}
	f.postCalls++
	f.postBodies = append(f.postBodies, body)
	if f.reentrant != nil {
		f.reentrant()
	}
	return f.postCode
}

func resetDeviceState(t *testing.T) {
	t.Helper()
	ClearCallbacks()
	t.Cleanup(ClearCallbacks)
}

func TestRegisterIfNeededWithoutCallbacks(t *testing.T) {
	resetDeviceState(t)

	err := RegisterIfNeeded("production", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NotInitialized))
}

func TestRegisterIfNeededPostsAndPersists(t *testing.T) {
	resetDeviceState(t)

	cb := &fakeCallbacks{
		infoJSON: `{"device_id":"dev-1","device_name":"Pixel 9","platform":"android"}`,
		deviceID: "dev-1",
		postCode: 201,
	}
	require.NoError(t, SetCallbacks(cb))

	require.NoError(t, RegisterIfNeeded("production", "build-token"))

	assert.Equal(t, 1, cb.postCalls)
	assert.Equal(t, 1, cb.setCalls)
	assert.True(t, cb.registered)
	assert.True(t, IsRegistered())
	assert.Equal(t, "dev-1", CachedDeviceID())

	var payload registrationPayload
	require.NoError(t, json.Unmarshal(cb.postBodies[0], &payload))
	assert.Equal(t, "production", payload.Environment)
	assert.Equal(t, "build-token", payload.BuildToken)
	assert.Equal(t, "dev-1", payload.DeviceID)
	assert.Equal(t, "android", payload.DeviceInfo["platform"])
}

func TestRegisterIfNeededSkipsWhenAlreadyRegistered(t *testing.T) {
	resetDeviceState(t)

	cb := &fakeCallbacks{deviceID: "dev-2", registered: true, postCode: 200}
	require.NoError(t, SetCallbacks(cb))

	require.NoError(t, RegisterIfNeeded("staging", ""))
	assert.Equal(t, 0, cb.postCalls, "no HTTP request when the host already persisted registration")
	assert.True(t, IsRegistered())
	assert.Equal(t, "dev-2", CachedDeviceID())
}

func TestRegisterIfNeededSurvivesReentrantCallback(t *testing.T) {
	resetDeviceState(t)

	// The host's HTTP implementation calls back into this package on
	// the same goroutine; a lock held across the callback would
	// deadlock here.
	cb := &fakeCallbacks{deviceID: "dev-3", postCode: 200}
	cb.reentrant = func() {
		_ = IsRegistered()
		_ = CachedDeviceID()
	}
	require.NoError(t, SetCallbacks(cb))

	require.NoError(t, RegisterIfNeeded("production", ""))
	assert.True(t, IsRegistered())
}

func TestRegisterIfNeededHTTPFailure(t *testing.T) {
	resetDeviceState(t)

	cb := &fakeCallbacks{deviceID: "dev-4", postCode: 500}
	require.NoError(t, SetCallbacks(cb))

	err := RegisterIfNeeded("production", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.HTTPRequestFailed))
	assert.False(t, IsRegistered())
	assert.Equal(t, 0, cb.setCalls)
}

func TestRegisterIfNeededTransportFailure(t *testing.T) {
	resetDeviceState(t)

	cb := &fakeCallbacks{deviceID: "dev-5", postCode: -1}
	require.NoError(t, SetCallbacks(cb))

	err := RegisterIfNeeded("production", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NetworkError))
}

func TestCallbackPanicsConvertToErrorCodes(t *testing.T) {
	resetDeviceState(t)

	post := &fakeCallbacks{deviceID: "dev-6", panicOnPost: true}
	require.NoError(t, SetCallbacks(post))
	err := RegisterIfNeeded("production", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.NetworkError))

	info := &fakeCallbacks{deviceID: "dev-7", panicOnInfo: true, postCode: 200}
	require.NoError(t, SetCallbacks(info))
	err = RegisterIfNeeded("production", "")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.InvalidState))
}

func TestSetCallbacksRejectsNil(t *testing.T) {
	resetDeviceState(t)

	err := SetCallbacks(nil)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.InvalidArgument))
}

func TestParseInfoDefaults(t *testing.T) {
	info := ParseInfo("")
	assert.Equal(t, runtime.GOOS, info.Platform)
	assert.Empty(t, info.DeviceID)
	assert.Zero(t, info.TotalMemory)
	assert.False(t, info.HasNeuralEngine)

	// Malformed payloads yield the same defaults.
	info = ParseInfo("{broken")
	assert.Equal(t, runtime.GOOS, info.Platform)
}

func TestParseInfoRoundTrip(t *testing.T) {
	original := Info{
		DeviceID:          "dev-9",
		DeviceName:        "iPhone 16",
		Platform:          "ios",
		OSVersion:         "18.2",
		FormFactor:        "phone",
		Architecture:      "arm64",
		ChipName:          "A18",
		GPUFamily:         "Apple9",
		BatteryState:      "charging",
		BatteryLevel:      0.82,
		LowPowerMode:      true,
		HasNeuralEngine:   true,
		NeuralEngineCores: 16,
		TotalMemory:       8 << 30,
		AvailableMemory:   3 << 30,
		CPUCores:          6,
		PerformanceCores:  2,
		EfficiencyCores:   4,
		Fingerprint:       "fp-abc123",
	}
	payload, err := json.Marshal(original)
	require.NoError(t, err)

	parsed := ParseInfo(string(payload))
	assert.Equal(t, original, parsed)
}

func TestParseInfoDefaultsMistypedFieldsIndividually(t *testing.T) {
	info := ParseInfo(`{"device_id":"dev-10","battery_level":"full","cpu_cores":8}`)
	assert.Equal(t, "dev-10", info.DeviceID)
	assert.Zero(t, info.BatteryLevel)
	assert.Equal(t, 8, info.CPUCores)
}
