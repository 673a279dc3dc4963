package preset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"wallsync/internal/domain/media"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *SyncPreset) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID, presetID int64) (*SyncPreset, error) {
	args := m.Called(ctx, userID, presetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncPreset), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, userID int64) ([]SyncPreset, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SyncPreset), args.Error(1)
}

type MockDeviceStore struct {
	mock.Mock
}

func (m *MockDeviceStore) OwnedIDs(ctx context.Context, userID int64, deviceIDs []int64) (map[int64]bool, error) {
	args := m.Called(ctx, userID, deviceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]bool), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(ctx context.Context, id int64) (*media.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Item), args.Error(1)
}

func (m *MockCatalog) GetMany(ctx context.Context, ids []int64) (map[int64]*media.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*media.Item), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func videoItem(id, userID, durationMs int64) *media.Item {
	return &media.Item{
		ID:         id,
		UserID:     userID,
		Kind:       media.KindVideo,
		DurationMs: &durationMs,
	}
}

func newTestService(repo *MockRepository, devices *MockDeviceStore, catalog *MockCatalog) *Service {
	return NewService(repo, devices, catalog, slog.Default())
}

func TestService_Create_Common(t *testing.T) {
	userID := int64(7)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(repo, devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(videoItem(5, userID, 60000), nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *SyncPreset) bool {
			// COMMON normalizes away per-device media.
			return p.PresetMediaID != nil && *p.PresetMediaID == 5 &&
				p.Devices[0].MediaItemID == nil && p.Devices[1].MediaItemID == nil
		})).Return(int64(10), nil)

		p, err := svc.Create(context.Background(), userID, CreateRequest{
			Name:          "lobby",
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices: []DeviceAssignment{
				{DeviceID: 1, MediaItemID: ptr(int64(9))},
				{DeviceID: 2},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(10), p.ID)
	})

	t.Run("Error_MediaRequired", func(t *testing.T) {
		devices := new(MockDeviceStore)
		svc := newTestService(new(MockRepository), devices, new(MockCatalog))

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:       ModeCommon,
			DurationMs: 60000,
			Devices:    []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.ErrorIs(t, err, ErrMediaRequired)
	})

	t.Run("Error_DurationMismatch", func(t *testing.T) {
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(new(MockRepository), devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(videoItem(5, userID, 30000), nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices:       []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		var mismatch *DurationMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, int64(5), mismatch.MediaItemID)
		assert.Equal(t, int64(30000), mismatch.MediaMs)
		assert.Equal(t, int64(60000), mismatch.PresetMs)
	})

	t.Run("Duration_Fallback_From_Seconds", func(t *testing.T) {
		repo := new(MockRepository)
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(repo, devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(&media.Item{
			ID:           5,
			UserID:       userID,
			Kind:         media.KindVideo,
			DurationSecs: ptr(int64(60)),
		}, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(int64(10), nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices:       []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.NoError(t, err)
	})
}

func TestService_Create_PerDevice(t *testing.T) {
	userID := int64(7)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(repo, devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(videoItem(5, userID, 60000), nil)
		catalog.On("Get", mock.Anything, int64(6)).Return(videoItem(6, userID, 60000), nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *SyncPreset) bool {
			return p.PresetMediaID == nil
		})).Return(int64(11), nil)

		p, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:       ModePerDevice,
			DurationMs: 60000,
			Devices: []DeviceAssignment{
				{DeviceID: 1, MediaItemID: ptr(int64(5))},
				{DeviceID: 2, MediaItemID: ptr(int64(6))},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(11), p.ID)
	})

	t.Run("Error_DeviceMissingMedia", func(t *testing.T) {
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(new(MockRepository), devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:       ModePerDevice,
			DurationMs: 60000,
			Devices: []DeviceAssignment{
				{DeviceID: 1, MediaItemID: ptr(int64(5))},
				{DeviceID: 2},
			},
		})

		assert.ErrorIs(t, err, ErrMediaRequired)
	})
}

func TestService_Create_Validation(t *testing.T) {
	userID := int64(7)

	t.Run("Error_InvalidMode", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockDeviceStore), new(MockCatalog))

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:    "SOMETHING",
			Devices: []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("Error_TooFewDevices", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockDeviceStore), new(MockCatalog))

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:    ModeCommon,
			Devices: []DeviceAssignment{{DeviceID: 1}},
		})

		assert.ErrorIs(t, err, ErrTooFewDevices)
	})

	t.Run("Error_DuplicateDevices", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockDeviceStore), new(MockCatalog))

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:    ModeCommon,
			Devices: []DeviceAssignment{{DeviceID: 1}, {DeviceID: 1}},
		})

		assert.ErrorIs(t, err, ErrDuplicateDevices)
	})

	t.Run("Error_DeviceNotOwned", func(t *testing.T) {
		devices := new(MockDeviceStore)
		svc := newTestService(new(MockRepository), devices, new(MockCatalog))

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true}, nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices:       []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.ErrorIs(t, err, ErrDeviceNotOwned)
	})

	t.Run("Error_MediaNotOwned", func(t *testing.T) {
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(new(MockRepository), devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(videoItem(5, 999, 60000), nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices:       []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.ErrorIs(t, err, ErrMediaNotOwned)
	})

	t.Run("Error_MediaNotVideo", func(t *testing.T) {
		devices := new(MockDeviceStore)
		catalog := new(MockCatalog)
		svc := newTestService(new(MockRepository), devices, catalog)

		devices.On("OwnedIDs", mock.Anything, userID, []int64{1, 2}).
			Return(map[int64]bool{1: true, 2: true}, nil)
		catalog.On("Get", mock.Anything, int64(5)).Return(&media.Item{
			ID: 5, UserID: userID, Kind: "image", DurationMs: ptr(int64(60000)),
		}, nil)

		_, err := svc.Create(context.Background(), userID, CreateRequest{
			Mode:          ModeCommon,
			DurationMs:    60000,
			PresetMediaID: ptr(int64(5)),
			Devices:       []DeviceAssignment{{DeviceID: 1}, {DeviceID: 2}},
		})

		assert.ErrorIs(t, err, ErrMediaNotVideo)
	})
}
