package device

import (
	"encoding/json"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Info describes the host device. Every field is independently
// optional in the payload the host supplies; absent or malformed fields
// take the zero defaults documented here, with Platform falling back to
// the host platform identifier.
type Info struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Platform   string `json:"platform"`
	OSVersion  string `json:"os_version"`
	FormFactor string `json:"form_factor"`

	Architecture string `json:"architecture"`
	ChipName     string `json:"chip_name"`
	GPUFamily    string `json:"gpu_family"`

	BatteryState string  `json:"battery_state"`
	BatteryLevel float64 `json:"battery_level"`
	LowPowerMode bool    `json:"low_power_mode"`

	HasNeuralEngine   bool `json:"has_neural_engine"`
	NeuralEngineCores int  `json:"neural_engine_cores"`

	TotalMemory     int64 `json:"total_memory"`
	AvailableMemory int64 `json:"available_memory"`

	CPUCores         int `json:"cpu_cores"`
	PerformanceCores int `json:"performance_cores"`
	EfficiencyCores  int `json:"efficiency_cores"`

	Fingerprint string `json:"fingerprint"`
}

// ParseInfo decodes a device-info payload field by field. A malformed
// document yields an Info holding only defaults; it never fails the
// caller. Fields the document omits or mistypes are defaulted
// individually without disturbing the rest.
func ParseInfo(payload string) Info {
	info := Info{Platform: runtime.GOOS}
	if payload == "" {
		return info
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ParseInfo",
			"error":    err.Error(),
		}).Warn("Malformed device-info payload, using defaults")
		return info
	}
	info.DeviceID = stringField(fields, "device_id", "")
	info.DeviceName = stringField(fields, "device_name", "")
	info.Platform = stringField(fields, "platform", runtime.GOOS)
	info.OSVersion = stringField(fields, "os_version", "")
	info.FormFactor = stringField(fields, "form_factor", "")
	info.Architecture = stringField(fields, "architecture", "")
	info.ChipName = stringField(fields, "chip_name", "")
	info.GPUFamily = stringField(fields, "gpu_family", "")
	info.BatteryState = stringField(fields, "battery_state", "")
	info.BatteryLevel = floatField(fields, "battery_level", 0)
	info.LowPowerMode = boolField(fields, "low_power_mode", false)
	info.HasNeuralEngine = boolField(fields, "has_neural_engine", false)
	info.NeuralEngineCores = int(floatField(fields, "neural_engine_cores", 0))
	info.TotalMemory = int64(floatField(fields, "total_memory", 0))
	info.AvailableMemory = int64(floatField(fields, "available_memory", 0))
	info.CPUCores = int(floatField(fields, "cpu_cores", 0))
	info.PerformanceCores = int(floatField(fields, "performance_cores", 0))
	info.EfficiencyCores = int(floatField(fields, "efficiency_cores", 0))
	info.Fingerprint = stringField(fields, "fingerprint", "")
	return info
}

// Map returns the populated fields as a generic map for inclusion in
// registration and telemetry payloads.
func (i Info) Map() map[string]interface{} {
	data, err := json.Marshal(i)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func stringField(fields map[string]interface{}, key, fallback string) string {
	if v, ok := fields[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatField(fields map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := fields[key].(float64); ok {
		return v
	}
	return fallback
}

func boolField(fields map[string]interface{}, key string, fallback bool) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return fallback
}
