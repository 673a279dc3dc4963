package preset

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "presets-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/presets",
		Summary:     "Create a sync preset",
		Description: "Validates device ownership and media durations, then stores an immutable preset.",
		Tags:        []string{"presets"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "presets-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/presets",
		Summary:     "List the user's sync presets",
		Tags:        []string{"presets"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "presets-find",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/presets/{id}",
		Summary:     "Get a sync preset",
		Tags:        []string{"presets"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
