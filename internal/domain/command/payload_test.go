package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPayload_Prepare(t *testing.T) {
	master := int64(1)
	raw, err := MarshalPayload(SyncPrepare{
		SessionID:      11,
		PresetID:       3,
		StartAtMs:      1700000000000,
		DurationMs:     60000,
		MasterDeviceID: &master,
		TargetDeviceID: 2,
		Media:          MediaSpec{Mode: "COMMON", MediaID: 5, Codec: "h264"},
		SyncConfig:     DefaultSyncConfig(),
	})
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "sync.prepare", env["type"])
	assert.Nil(t, env["failover"])
}

func TestMarshalPayload_Stop_LowercasesReason(t *testing.T) {
	raw, err := MarshalPayload(SyncStop{SessionID: 11, Reason: "USER_STOP"})
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "sync.stop", env["type"])
	assert.Equal(t, "user_stop", env["reason"])
}

func TestUnmarshalPayload_RoundTrip(t *testing.T) {
	raw, err := MarshalPayload(SyncStop{SessionID: 11, Reason: "ERROR"})
	require.NoError(t, err)

	decoded, err := UnmarshalPayload(raw)
	require.NoError(t, err)

	stop, ok := decoded.(SyncStop)
	require.True(t, ok)
	assert.Equal(t, int64(11), stop.SessionID)
	assert.Equal(t, "error", stop.Reason)
}

func TestUnmarshalPayload_UnknownType(t *testing.T) {
	_, err := UnmarshalPayload(json.RawMessage(`{"type":"sync.reboot"}`))
	assert.Error(t, err)
}

func TestDedupeKeys(t *testing.T) {
	assert.Equal(t, "sync:11:stop:2:user_stop", StopDedupeKey(11, 2, "USER_STOP"))
	assert.Equal(t, "sync:11:prepare:2:initial", PrepareDedupeKey(11, 2))
	assert.Equal(t, "sync:11:prepare:2:failover:1-3", FailoverDedupeKey(11, 2, 1, 3))

	// Concurrent failover evaluations of the same election must collide.
	assert.Equal(t,
		FailoverDedupeKey(11, 2, 1, 3),
		FailoverDedupeKey(11, 2, 1, 3))
}
