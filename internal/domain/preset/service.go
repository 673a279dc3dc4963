package preset

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/media"
)

type Servicer interface {
	Create(ctx context.Context, userID int64, req CreateRequest) (*SyncPreset, error)
	Get(ctx context.Context, userID, presetID int64) (*SyncPreset, error)
	List(ctx context.Context, userID int64) ([]SyncPreset, error)
}

// CreateRequest is a proposed preset before validation.
type CreateRequest struct {
	Name          string
	Mode          Mode
	DurationMs    int64
	PresetMediaID *int64
	Devices       []DeviceAssignment
}

// validated is the normalized assignment shape persisted after validation:
// COMMON keeps a single preset-level media id and nils out per-device media,
// PER_DEVICE keeps per-device media and no preset-level id.
type validated struct {
	PresetMediaID *int64
	Assignments   []DeviceAssignment
}

type Service struct {
	repo    Repository
	devices DeviceStore
	catalog media.Repository
	log     *slog.Logger
}

func NewService(repo Repository, devices DeviceStore, catalog media.Repository, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		devices: devices,
		catalog: catalog,
		log:     log.With("component", "preset_service"),
	}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*SyncPreset, error) {
	v, err := s.validate(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	p := &SyncPreset{
		UserID:        userID,
		Name:          req.Name,
		Mode:          req.Mode,
		DurationMs:    req.DurationMs,
		PresetMediaID: v.PresetMediaID,
		Devices:       v.Assignments,
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		s.log.Error("failed to create preset", "user_id", userID, "error", err)
		return nil, fmt.Errorf("create preset: %w", err)
	}
	p.ID = id

	s.log.Info("preset created",
		"preset_id", id, "user_id", userID, "mode", p.Mode, "devices", len(p.Devices))
	return p, nil
}

func (s *Service) Get(ctx context.Context, userID, presetID int64) (*SyncPreset, error) {
	return s.repo.Get(ctx, userID, presetID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]SyncPreset, error) {
	return s.repo.List(ctx, userID)
}

// validate enforces the preset rules: at least two distinct owned devices,
// and every referenced media item a video owned by the user whose duration
// matches the preset duration exactly.
func (s *Service) validate(ctx context.Context, userID int64, req CreateRequest) (*validated, error) {
	if !req.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	if len(req.Devices) < 2 {
		return nil, ErrTooFewDevices
	}

	ids := make([]int64, 0, len(req.Devices))
	seen := make(map[int64]bool, len(req.Devices))
	for _, d := range req.Devices {
		if seen[d.DeviceID] {
			return nil, ErrDuplicateDevices
		}
		seen[d.DeviceID] = true
		ids = append(ids, d.DeviceID)
	}

	owned, err := s.devices.OwnedIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("check device ownership: %w", err)
	}
	for _, id := range ids {
		if !owned[id] {
			return nil, fmt.Errorf("device %d: %w", id, ErrDeviceNotOwned)
		}
	}

	switch req.Mode {
	case ModeCommon:
		if req.PresetMediaID == nil {
			return nil, ErrMediaRequired
		}
		if err := s.checkMedia(ctx, userID, *req.PresetMediaID, req.DurationMs); err != nil {
			return nil, err
		}
		assignments := make([]DeviceAssignment, 0, len(req.Devices))
		for _, d := range req.Devices {
			assignments = append(assignments, DeviceAssignment{DeviceID: d.DeviceID})
		}
		return &validated{PresetMediaID: req.PresetMediaID, Assignments: assignments}, nil

	default: // ModePerDevice
		for _, d := range req.Devices {
			if d.MediaItemID == nil {
				return nil, fmt.Errorf("device %d: %w", d.DeviceID, ErrMediaRequired)
			}
			if err := s.checkMedia(ctx, userID, *d.MediaItemID, req.DurationMs); err != nil {
				return nil, err
			}
		}
		return &validated{Assignments: req.Devices}, nil
	}
}

func (s *Service) checkMedia(ctx context.Context, userID, mediaID, wantMs int64) error {
	item, err := s.catalog.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return fmt.Errorf("media item %d: %w", mediaID, ErrMediaNotOwned)
	}
	if item.Kind != media.KindVideo {
		return fmt.Errorf("media item %d: %w", mediaID, ErrMediaNotVideo)
	}
	if got := item.EffectiveDurationMs(); got != wantMs {
		return &DurationMismatchError{MediaItemID: mediaID, MediaMs: got, PresetMs: wantMs}
	}
	return nil
}
