package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"wallsync/internal/app/server/api/http/middleware/auth"
	"wallsync/internal/domain/command"
	"wallsync/internal/domain/preset"
	"wallsync/internal/domain/syncsession"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Start(ctx context.Context, userID, presetID int64, overrideBufferMs *int64) (*syncsession.Session, error) {
	args := m.Called(ctx, userID, presetID, overrideBufferMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncsession.Session), args.Error(1)
}

func (m *MockService) Stop(ctx context.Context, userID, sessionID int64, reason syncsession.StopReason) (*syncsession.StopResult, error) {
	args := m.Called(ctx, userID, sessionID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncsession.StopResult), args.Error(1)
}

func (m *MockService) ActiveView(ctx context.Context, userID, sessionID int64) (*syncsession.View, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncsession.View), args.Error(1)
}

func (m *MockService) ApplyTelemetry(ctx context.Context, deviceID int64, t command.RuntimeTelemetry) error {
	args := m.Called(ctx, deviceID, t)
	return args.Error(0)
}

func (m *MockService) PrepareAcked(ctx context.Context, sessionID, deviceID int64) error {
	args := m.Called(ctx, sessionID, deviceID)
	return args.Error(0)
}

func (m *MockService) MarkDeviceErrored(ctx context.Context, sessionID, deviceID int64) error {
	args := m.Called(ctx, sessionID, deviceID)
	return args.Error(0)
}

func TestHandler_Start(t *testing.T) {
	userID := int64(7)
	authCtx := auth.WithUserID(context.Background(), userID)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		input := &startInput{}
		input.Body.PresetID = 3

		svc.On("Start", mock.Anything, userID, int64(3), (*int64)(nil)).
			Return(&syncsession.Session{ID: 11, PresetID: 3, Status: syncsession.StatusStarting}, nil)

		resp, err := h.start(authCtx, input)

		assert.NoError(t, err)
		assert.Equal(t, int64(11), resp.Body.ID)
		assert.Equal(t, syncsession.StatusStarting, resp.Body.Status)
	})

	t.Run("Error_PresetNotFound", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		input := &startInput{}
		input.Body.PresetID = 99

		svc.On("Start", mock.Anything, userID, int64(99), (*int64)(nil)).
			Return(nil, preset.ErrNotFound)

		resp, err := h.start(authCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestHandler_Stop(t *testing.T) {
	userID := int64(7)
	authCtx := auth.WithUserID(context.Background(), userID)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		input := &stopInput{ID: 11}
		input.Body.Reason = syncsession.ReasonUserStop

		svc.On("Stop", mock.Anything, userID, int64(11), syncsession.ReasonUserStop).
			Return(&syncsession.StopResult{
				Session: &syncsession.Session{ID: 11, Status: syncsession.StatusStopped},
			}, nil)

		resp, err := h.stop(authCtx, input)

		assert.NoError(t, err)
		assert.False(t, resp.Body.AlreadyStopped)
		assert.Equal(t, syncsession.StatusStopped, resp.Body.Session.Status)
	})

	t.Run("AlreadyStopped", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		input := &stopInput{ID: 11}
		input.Body.Reason = syncsession.ReasonUserStop

		svc.On("Stop", mock.Anything, userID, int64(11), syncsession.ReasonUserStop).
			Return(&syncsession.StopResult{
				AlreadyStopped: true,
				Session:        &syncsession.Session{ID: 11, Status: syncsession.StatusStopped},
			}, nil)

		resp, err := h.stop(authCtx, input)

		assert.NoError(t, err)
		assert.True(t, resp.Body.AlreadyStopped)
	})

	t.Run("Error_InvalidReason", func(t *testing.T) {
		h := NewHandler(nil, nil, nil)

		input := &stopInput{ID: 11}
		input.Body.Reason = "WHATEVER"

		resp, err := h.stop(authCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid stop reason")
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		input := &stopInput{ID: 99}
		input.Body.Reason = syncsession.ReasonError

		svc.On("Stop", mock.Anything, userID, int64(99), syncsession.ReasonError).
			Return(nil, syncsession.ErrNotFound)

		resp, err := h.stop(authCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestHandler_View(t *testing.T) {
	userID := int64(7)
	authCtx := auth.WithUserID(context.Background(), userID)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil)

		svc.On("ActiveView", mock.Anything, userID, int64(11)).
			Return(&syncsession.View{
				Session: &syncsession.Session{ID: 11, Status: syncsession.StatusRunning},
				Devices: []syncsession.SessionDevice{{SessionID: 11, DeviceID: 1}},
			}, nil)

		resp, err := h.view(authCtx, &viewInput{ID: 11})

		assert.NoError(t, err)
		assert.Equal(t, syncsession.StatusRunning, resp.Body.Session.Status)
		assert.Len(t, resp.Body.Devices, 1)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		h := NewHandler(nil, nil, nil)

		resp, err := h.view(context.Background(), &viewInput{ID: 11})

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}
