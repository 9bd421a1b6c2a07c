// Package telemetry batches SDK analytics events and delivers them to
// the backend through a host-supplied HTTP callback. Emission is fire
// and forget: when no sink is installed events are dropped silently, so
// instrumented code never has to guard its telemetry calls.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Event types recognized by the analytics backend.
const (
	TypeLLMGeneration = "llm_generation"
	TypeModelLoad     = "model_load"
	TypeDownload      = "model_download"
	TypeSDKError      = "sdk_error"
	TypeDevice        = "device"
	TypeNetwork       = "network"
)

// Event is one analytics record. ID and TimestampMs are assigned at
// construction; Properties carries the type-specific payload.
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	TimestampMs int64                  `json:"timestamp_ms"`
	Properties  map[string]interface{} `json:"properties"`
}

func newEvent(eventType string, props map[string]interface{}) Event {
	return Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		TimestampMs: time.Now().UnixMilli(),
		Properties:  props,
	}
}

// LLMGenerationEvent describes one completed text generation.
type LLMGenerationEvent struct {
	GenerationID     string
	ModelID          string
	PromptTokens     int
	CompletionTokens int
	DurationMs       float64
	TokensPerSecond  float64
	Streamed         bool
}

// ModelLoadEvent describes one model or voice load.
type ModelLoadEvent struct {
	ModelID    string
	ModelName  string
	Component  string
	DurationMs int64
	Success    bool
	Error      string
}

// DownloadEvent describes one model download attempt.
type DownloadEvent struct {
	ModelID    string
	URL        string
	Bytes      int64
	DurationMs int64
	Success    bool
	Error      string
}

// SDKErrorEvent describes an error surfaced to the host.
type SDKErrorEvent struct {
	Code      int32
	Message   string
	Operation string
}

// DeviceEvent describes a device-level occurrence such as registration.
type DeviceEvent struct {
	Action   string
	DeviceID string
}

// NetworkEvent describes one backend HTTP exchange.
type NetworkEvent struct {
	URL        string
	StatusCode int
	DurationMs int64
}

// EmitLLMGeneration records a completed generation.
func EmitLLMGeneration(e LLMGenerationEvent) {
	emit(newEvent(TypeLLMGeneration, map[string]interface{}{
		"generation_id":     e.GenerationID,
		"model_id":          e.ModelID,
		"tokens_evaluated":  e.PromptTokens,
		"tokens_generated":  e.CompletionTokens,
		"duration_ms":       e.DurationMs,
		"tokens_per_second": e.TokensPerSecond,
		"streamed":          e.Streamed,
	}))
}

// EmitModelLoad records a model or voice load.
func EmitModelLoad(e ModelLoadEvent) {
	props := map[string]interface{}{
		"model_id":    e.ModelID,
		"model_name":  e.ModelName,
		"component":   e.Component,
		"duration_ms": e.DurationMs,
		"success":     e.Success,
	}
	if e.Error != "" {
		props["error"] = e.Error
	}
	emit(newEvent(TypeModelLoad, props))
}

// EmitDownload records a model download attempt.
func EmitDownload(e DownloadEvent) {
	props := map[string]interface{}{
		"model_id":    e.ModelID,
		"url":         e.URL,
		"bytes":       e.Bytes,
		"duration_ms": e.DurationMs,
		"success":     e.Success,
	}
	if e.Error != "" {
		props["error"] = e.Error
	}
	emit(newEvent(TypeDownload, props))
}

// EmitSDKError records an error surfaced to the host.
func EmitSDKError(e SDKErrorEvent) {
	emit(newEvent(TypeSDKError, map[string]interface{}{
		"code":      e.Code,
		"message":   e.Message,
		"operation": e.Operation,
	}))
}

// EmitDevice records a device-level occurrence.
func EmitDevice(e DeviceEvent) {
	emit(newEvent(TypeDevice, map[string]interface{}{
		"action":    e.Action,
		"device_id": e.DeviceID,
	}))
}

// EmitNetwork records one backend HTTP exchange.
func EmitNetwork(e NetworkEvent) {
	emit(newEvent(TypeNetwork, map[string]interface{}{
		"url":         e.URL,
		"status_code": e.StatusCode,
		"duration_ms": e.DurationMs,
	}))
}
