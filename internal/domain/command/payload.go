package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire payload envelopes. Internally commands carry one of the typed variants
// below; the generic JSON shape exists only at the device boundary.

const (
	wireTypePrepare = "sync.prepare"
	wireTypeStop    = "sync.stop"
)

// MediaSpec tells a device what to play and how.
type MediaSpec struct {
	Mode       string   `json:"mode"`
	MediaID    int64    `json:"media_id"`
	LocalPath  string   `json:"local_path"`
	Resolution *string  `json:"resolution,omitempty"`
	FPS        *float64 `json:"fps,omitempty"`
	Codec      string   `json:"codec"`
}

// LANConfig configures the optional LAN beacon transport between devices.
// The coordinator only ships the knobs; the transport itself is device-side.
type LANConfig struct {
	Enabled         bool  `json:"enabled"`
	BeaconHz        int   `json:"beacon_hz"`
	BeaconPort      int   `json:"beacon_port"`
	TimeoutMs       int64 `json:"timeout_ms"`
	FallbackToCloud bool  `json:"fallback_to_cloud"`
}

// SyncConfig carries the drift-correction tuning a device applies while playing.
type SyncConfig struct {
	HardResyncThresholdMs int64     `json:"hard_resync_threshold_ms"`
	SoftCorrectionRangeMs [2]int64  `json:"soft_correction_range_ms"`
	DeadbandMs            int64     `json:"deadband_ms"`
	WarmupLoops           int       `json:"warmup_loops"`
	LAN                   LANConfig `json:"lan"`
}

// FailoverMarker distinguishes a failover re-prepare from a fresh prepare.
type FailoverMarker struct {
	FromDeviceID int64 `json:"from_device_id"`
	ElectedAtMs  int64 `json:"elected_at_ms"`
}

// SyncPrepare schedules synchronized playback on one device.
type SyncPrepare struct {
	SessionID      int64           `json:"session_id"`
	PresetID       int64           `json:"preset_id"`
	StartAtMs      int64           `json:"start_at_ms"`
	DurationMs     int64           `json:"duration_ms"`
	MasterDeviceID *int64          `json:"master_device_id,omitempty"`
	TargetDeviceID int64           `json:"target_device_id"`
	Failover       *FailoverMarker `json:"failover,omitempty"`
	Media          MediaSpec       `json:"media"`
	SyncConfig     SyncConfig      `json:"sync_config"`
}

// SyncStop tells a device to halt playback for a session.
type SyncStop struct {
	SessionID int64  `json:"session_id"`
	Reason    string `json:"reason"`
}

type prepareEnvelope struct {
	Type string `json:"type"`
	SyncPrepare
}

type stopEnvelope struct {
	Type string `json:"type"`
	SyncStop
}

// MarshalPayload serializes a typed payload variant to its wire envelope.
func MarshalPayload(p any) (json.RawMessage, error) {
	switch v := p.(type) {
	case SyncPrepare:
		return json.Marshal(prepareEnvelope{Type: wireTypePrepare, SyncPrepare: v})
	case *SyncPrepare:
		return json.Marshal(prepareEnvelope{Type: wireTypePrepare, SyncPrepare: *v})
	case SyncStop:
		v.Reason = strings.ToLower(v.Reason)
		return json.Marshal(stopEnvelope{Type: wireTypeStop, SyncStop: v})
	case *SyncStop:
		s := *v
		s.Reason = strings.ToLower(s.Reason)
		return json.Marshal(stopEnvelope{Type: wireTypeStop, SyncStop: s})
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
}

// UnmarshalPayload decodes a wire envelope back to its typed variant. The
// device agent is the main consumer.
func UnmarshalPayload(raw json.RawMessage) (any, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	switch probe.Type {
	case wireTypePrepare:
		var env prepareEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode prepare payload: %w", err)
		}
		return env.SyncPrepare, nil
	case wireTypeStop:
		var env stopEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode stop payload: %w", err)
		}
		return env.SyncStop, nil
	default:
		return nil, fmt.Errorf("unknown payload type %q", probe.Type)
	}
}

// DefaultSyncConfig is the tuning shipped with every prepare until presets
// grow per-preset overrides.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		HardResyncThresholdMs: 250,
		SoftCorrectionRangeMs: [2]int64{40, 250},
		DeadbandMs:            15,
		WarmupLoops:           1,
		LAN: LANConfig{
			Enabled:         true,
			BeaconHz:        10,
			BeaconPort:      47800,
			TimeoutMs:       3000,
			FallbackToCloud: true,
		},
	}
}

// StopDedupeKey builds the dedupe key for a stop command so that overlapping
// stop triggers for the same session/device/reason collapse into one row.
func StopDedupeKey(sessionID, deviceID int64, reason string) string {
	return fmt.Sprintf("sync:%d:stop:%d:%s", sessionID, deviceID, strings.ToLower(reason))
}

// PrepareDedupeKey builds the dedupe key for the initial prepare of a session.
func PrepareDedupeKey(sessionID, deviceID int64) string {
	return fmt.Sprintf("sync:%d:prepare:%d:initial", sessionID, deviceID)
}

// FailoverDedupeKey builds the dedupe key for a failover re-prepare. It is
// derived from the old and new master so concurrent evaluations of the same
// election converge on the same key.
func FailoverDedupeKey(sessionID, deviceID, fromDeviceID, toDeviceID int64) string {
	return fmt.Sprintf("sync:%d:prepare:%d:failover:%d-%d", sessionID, deviceID, fromDeviceID, toDeviceID)
}
