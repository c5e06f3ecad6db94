package mcp

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxRequestBody bounds the size of one JSON-RPC message over HTTP.
const maxRequestBody = 4 << 20

// Handler returns an http.Handler implementing the streamable HTTP
// transport: each POST carries one JSON-RPC message and receives either the
// corresponding response (200, application/json) or, for notifications, an
// empty 202.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var raw json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			writeJSON(w, http.StatusBadRequest,
				errorResponse(json.RawMessage("null"), errParse, "parse error", err.Error()))
			return
		}

		resp, err := s.handleRaw(r.Context(), raw)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError,
				errorResponse(json.RawMessage("null"), errInternal, "internal error", err.Error()))
			return
		}
		if resp == nil {
			// Notification: acknowledged, no body.
			w.WriteHeader(http.StatusAccepted)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	})
}

func writeJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
