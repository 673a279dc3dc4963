package session

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) startOp() huma.Operation {
	return huma.Operation{
		OperationID: "sessions-start",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/sessions",
		Summary:     "Start a sync session",
		Description: "Schedules a synchronized start behind the preparation buffer and queues one SYNC_PREPARE per device.",
		Tags:        []string{"sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) stopOp() huma.Operation {
	return huma.Operation{
		OperationID: "sessions-stop",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/sessions/{id}/stop",
		Summary:     "Stop a sync session",
		Description: "Terminates the session, persists the quality summary and queues SYNC_STOP commands. Idempotent for already-terminal sessions.",
		Tags:        []string{"sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) viewOp() huma.Operation {
	return huma.Operation{
		OperationID: "sessions-view",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/sessions/{id}",
		Summary:     "Get a sync session with live metrics",
		Tags:        []string{"sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
