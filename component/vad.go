package component

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge/engine"
	"github.com/opd-ai/inferbridge/status"
)

// MinVADFrameSamples is the smallest frame Process accepts. Shorter
// frames carry too little signal for the detector.
const MinVADFrameSamples = 512

// vadSampleRates are the sample rates the detector operates at.
var vadSampleRates = []int{16000}

// VAD wraps a voice-activity-detection backend behind the component
// lifecycle. Unlike the model-backed components, VAD has no weights to
// load; Initialize takes the place of LoadModel.
type VAD struct {
	base
	provider   engine.VADProvider
	sampleRate int
}

// NewVAD resolves the registered voice-activity backend and returns a
// component handle in the created state.
func NewVAD() (*VAD, error) {
	backend, err := engine.New(engine.CapabilityVAD)
	if err != nil {
		return nil, err
	}
	provider, ok := backend.(engine.VADProvider)
	if !ok {
		return nil, status.New(status.EngineFailure, "registered voice-activity backend does not implement VADProvider")
	}
	v := &VAD{provider: provider}
	v.kind = "vad"
	v.state = StateCreated
	return v, nil
}

// Initialize prepares the detector for the given sample rate.
func (v *VAD) Initialize(sampleRate int) error {
	supported := false
	for _, r := range vadSampleRates {
		if sampleRate == r {
			supported = true
			break
		}
	}
	if !supported {
		return status.Errorf(status.InvalidArgument, "unsupported sample rate %d", sampleRate)
	}
	if err := v.beginLoad(); err != nil {
		return err
	}
	if err := v.provider.Initialize(); err != nil {
		v.markUnloaded()
		return status.Convert(err)
	}
	v.sampleRate = sampleRate
	v.markLoaded("", "")
	logrus.WithFields(logrus.Fields{
		"function":    "Initialize",
		"sample_rate": sampleRate,
	}).Info("Voice activity detector initialized")
	return nil
}

// Process classifies one frame of float32 samples and returns the
// verdict as a JSON document.
func (v *VAD) Process(samples []float32) (string, error) {
	if len(samples) < MinVADFrameSamples {
		return "", status.Errorf(status.InvalidArgument, "frame too short: %d samples (minimum %d)", len(samples), MinVADFrameSamples)
	}
	if err := v.beginInvoke(); err != nil {
		return "", err
	}
	defer v.endInvoke()

	isSpeech, err := v.provider.Process(samples)
	if err != nil {
		return "", status.Convert(err)
	}
	return marshalVADResult(isSpeech), nil
}

// Reset clears accumulated detection state without tearing down the
// detector.
func (v *VAD) Reset() error {
	if err := v.checkAlive(); err != nil {
		return err
	}
	if !v.IsLoaded() {
		return status.New(status.NotLoaded, "detector not initialized")
	}
	v.provider.Reset()
	return nil
}

// Stop tears down the detector but keeps the component alive for a
// subsequent Initialize.
func (v *VAD) Stop() error {
	if err := v.checkAlive(); err != nil {
		return err
	}
	if !v.IsLoaded() {
		return nil
	}
	if err := v.provider.Cleanup(); err != nil {
		return status.Convert(err)
	}
	v.markUnloaded()
	return nil
}

// Destroy tears down the component. A second Destroy fails with
// InvalidHandle.
func (v *VAD) Destroy() error {
	if err := v.checkAlive(); err != nil {
		return err
	}
	if v.IsLoaded() {
		if err := v.provider.Cleanup(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Destroy",
				"error":    err.Error(),
			}).Warn("Cleanup during destroy failed")
		}
	}
	return v.markDestroyed()
}

// SampleRate returns the rate the detector was initialized with, or 0.
func (v *VAD) SampleRate() int {
	if !v.IsLoaded() {
		return 0
	}
	return v.sampleRate
}
