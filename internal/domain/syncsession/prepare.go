package syncsession

import (
	"fmt"

	"wallsync/internal/domain/command"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
)

// PrepareInput groups everything a SYNC_PREPARE payload needs for one device.
// Shared by session start and failover so both produce identical wire shapes.
type PrepareInput struct {
	SessionID      int64
	PresetID       int64
	Mode           preset.Mode
	DurationMs     int64
	StartAtMs      int64
	MasterDeviceID int64
	TargetDeviceID int64
	Media          media.Item
	Failover       *command.FailoverMarker
}

// NewPrepareInsert builds the command row for one device's prepare. The
// dedupe key distinguishes the initial prepare from failover re-prepares of
// a specific election.
func NewPrepareInsert(in PrepareInput) (command.Insert, error) {
	master := in.MasterDeviceID
	payload := command.SyncPrepare{
		SessionID:      in.SessionID,
		PresetID:       in.PresetID,
		StartAtMs:      in.StartAtMs,
		DurationMs:     in.DurationMs,
		MasterDeviceID: &master,
		TargetDeviceID: in.TargetDeviceID,
		Failover:       in.Failover,
		Media: command.MediaSpec{
			Mode:       string(in.Mode),
			MediaID:    in.Media.ID,
			LocalPath:  in.Media.LocalPath,
			Resolution: in.Media.Resolution,
			FPS:        in.Media.FPS,
			Codec:      in.Media.Codec,
		},
		SyncConfig: command.DefaultSyncConfig(),
	}

	raw, err := command.MarshalPayload(payload)
	if err != nil {
		return command.Insert{}, fmt.Errorf("marshal prepare payload: %w", err)
	}

	key := command.PrepareDedupeKey(in.SessionID, in.TargetDeviceID)
	if in.Failover != nil {
		key = command.FailoverDedupeKey(in.SessionID, in.TargetDeviceID, in.Failover.FromDeviceID, master)
	}

	return command.Insert{
		DeviceID:  in.TargetDeviceID,
		SessionID: in.SessionID,
		Type:      command.TypeSyncPrepare,
		Payload:   raw,
		DedupeKey: key,
	}, nil
}
