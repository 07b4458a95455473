package errors

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RenderJSON writes err as a structured JSON error response. Non-structured
// errors are downgraded to a generic 500 body so internal detail never
// reaches the client.
func RenderJSON(w http.ResponseWriter, err error) {
	e, ok := err.(*Error)
	if !ok {
		e = New(ErrCodeInternal, "Internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatusCode())
	json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	})
}
