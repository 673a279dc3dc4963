package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"wallsync/internal/app/server/api/http/middleware/devauth"
	"wallsync/internal/domain/command"
	"wallsync/internal/domain/device"
)

type MockCommandService struct {
	mock.Mock
}

func (m *MockCommandService) Poll(ctx context.Context, deviceID int64, limit int) ([]command.Command, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]command.Command), args.Error(1)
}

func (m *MockCommandService) Ack(ctx context.Context, deviceID int64, req command.AckRequest) (command.AckResult, error) {
	args := m.Called(ctx, deviceID, req)
	return args.Get(0).(command.AckResult), args.Error(1)
}

type MockDeviceService struct {
	mock.Mock
}

func (m *MockDeviceService) ResolveToken(ctx context.Context, token string) (*device.Device, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*device.Device), args.Error(1)
}

func (m *MockDeviceService) Heartbeat(ctx context.Context, dev *device.Device, hb device.HeartbeatRequest) error {
	args := m.Called(ctx, dev, hb)
	return args.Error(0)
}

func TestHandler_Poll(t *testing.T) {
	dev := &device.Device{ID: 4}
	devCtx := devauth.WithDevice(context.Background(), dev)

	t.Run("Success", func(t *testing.T) {
		cmds := new(MockCommandService)
		h := NewHandler(cmds, nil, nil, nil)

		cmds.On("Poll", mock.Anything, int64(4), 10).
			Return([]command.Command{{ID: uuid.New(), DeviceID: 4}}, nil)

		resp, err := h.poll(devCtx, &pollInput{Limit: 10})

		assert.NoError(t, err)
		assert.Len(t, resp.Body.Commands, 1)
	})

	t.Run("Empty_Backlog_Is_Not_Null", func(t *testing.T) {
		cmds := new(MockCommandService)
		h := NewHandler(cmds, nil, nil, nil)

		cmds.On("Poll", mock.Anything, int64(4), 0).
			Return([]command.Command(nil), nil)

		resp, err := h.poll(devCtx, &pollInput{})

		assert.NoError(t, err)
		assert.NotNil(t, resp.Body.Commands)
		assert.Len(t, resp.Body.Commands, 0)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		h := NewHandler(nil, nil, nil, nil)

		resp, err := h.poll(context.Background(), &pollInput{})

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestHandler_Ack(t *testing.T) {
	dev := &device.Device{ID: 4}
	devCtx := devauth.WithDevice(context.Background(), dev)
	cmdID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		cmds := new(MockCommandService)
		h := NewHandler(cmds, nil, nil, nil)

		input := &ackInput{ID: cmdID}
		input.Body.Status = command.StatusAcked

		cmds.On("Ack", mock.Anything, int64(4), mock.MatchedBy(func(req command.AckRequest) bool {
			return req.CommandID == cmdID && req.Status == command.StatusAcked
		})).Return(command.AckResult{}, nil)

		resp, err := h.ack(devCtx, input)

		assert.NoError(t, err)
		assert.Equal(t, "Ok", resp.Body.Status)
		assert.False(t, resp.Body.Idempotent)
	})

	t.Run("Idempotent_Retry", func(t *testing.T) {
		cmds := new(MockCommandService)
		h := NewHandler(cmds, nil, nil, nil)

		input := &ackInput{ID: cmdID}
		input.Body.Status = command.StatusAcked

		cmds.On("Ack", mock.Anything, int64(4), mock.Anything).
			Return(command.AckResult{Idempotent: true}, nil)

		resp, err := h.ack(devCtx, input)

		assert.NoError(t, err)
		assert.True(t, resp.Body.Idempotent)
	})

	t.Run("Error_WrongDevice", func(t *testing.T) {
		cmds := new(MockCommandService)
		h := NewHandler(cmds, nil, nil, nil)

		input := &ackInput{ID: cmdID}
		input.Body.Status = command.StatusAcked

		cmds.On("Ack", mock.Anything, int64(4), mock.Anything).
			Return(command.AckResult{}, command.ErrWrongDevice)

		resp, err := h.ack(devCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "another device")
	})
}

func TestHandler_Heartbeat(t *testing.T) {
	dev := &device.Device{ID: 4}
	devCtx := devauth.WithDevice(context.Background(), dev)

	t.Run("Success_WithTelemetry", func(t *testing.T) {
		devices := new(MockDeviceService)
		h := NewHandler(nil, devices, nil, nil)

		driftMs := 12.5
		input := &heartbeatInput{}
		input.Body.Telemetry = &command.RuntimeTelemetry{
			SessionID: 11,
			Status:    "PLAYING",
			DriftMs:   &driftMs,
		}

		devices.On("Heartbeat", mock.Anything, dev, mock.MatchedBy(func(hb device.HeartbeatRequest) bool {
			return hb.Telemetry != nil && hb.Telemetry.SessionID == 11
		})).Return(nil)

		resp, err := h.heartbeat(devCtx, input)

		assert.NoError(t, err)
		assert.Equal(t, "Ok", resp.Body.Status)
	})

	t.Run("Error_InvalidPreviewFrame", func(t *testing.T) {
		h := NewHandler(nil, nil, nil, nil)

		input := &heartbeatInput{}
		input.Body.PreviewFrame = "!!!not-base64!!!"

		resp, err := h.heartbeat(devCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "base64")
	})
}
