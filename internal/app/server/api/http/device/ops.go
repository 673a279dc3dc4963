package device

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pollOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-poll",
		Method:      http.MethodGet,
		Path:        "/api/v1/device/commands",
		Summary:     "Poll pending commands",
		Description: "Returns the device's pending command backlog, oldest first. Polling never mutates state.",
		Tags:        []string{"device"},
		Security:    []map[string][]string{{"deviceToken": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) ackOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-ack",
		Method:      http.MethodPost,
		Path:        "/api/v1/device/commands/{id}/ack",
		Summary:     "Acknowledge a command",
		Description: "Reports command execution. Re-delivery of an applied ack is an idempotent no-op.",
		Tags:        []string{"device"},
		Security:    []map[string][]string{{"deviceToken": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) heartbeatOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-heartbeat",
		Method:      http.MethodPost,
		Path:        "/api/v1/device/heartbeat",
		Summary:     "Report device liveness",
		Description: "Records liveness and folds any attached runtime telemetry into the active session.",
		Tags:        []string{"device"},
		Security:    []map[string][]string{{"deviceToken": {}}},
		Middlewares: h.middleware,
	}
}
