package device

import (
	"github.com/google/uuid"

	"wallsync/internal/domain/command"
)

type pollInput struct {
	Limit int `query:"limit" doc:"Max commands to return, capped server-side" minimum:"0"`
}

type pollOutput struct {
	Body pollResponse
}

type pollResponse struct {
	Commands []command.Command `json:"commands"`
}

type ackInput struct {
	ID   uuid.UUID `path:"id" doc:"Command ID"`
	Body ackRequest
}

type ackRequest struct {
	Status    command.Status            `json:"status" doc:"ACKED or FAILED"`
	Error     *string                   `json:"error,omitempty" doc:"Failure detail when status is FAILED"`
	Telemetry *command.RuntimeTelemetry `json:"telemetry,omitempty" doc:"Optional session-scoped runtime block"`
}

type ackOutput struct {
	Body ackResponse
}

type ackResponse struct {
	Status     string `json:"status"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

type heartbeatInput struct {
	Body heartbeatRequest
}

type heartbeatRequest struct {
	PreviewFrame string                    `json:"preview_frame,omitempty" doc:"Base64-encoded preview thumbnail"`
	Telemetry    *command.RuntimeTelemetry `json:"telemetry,omitempty" doc:"Optional session-scoped runtime block"`
}

type heartbeatOutput struct {
	Body heartbeatResponse
}

type heartbeatResponse struct {
	Status string `json:"status"`
}
