package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/orchestrator"
	"github.com/harun/vtool/pkg/virtualtool"
)

const maxAskBody = 64 << 10

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAskBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "BadRequest")
		return
	}

	ctx := tracing.NewRequestContext(r.Context())
	if s.askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.askTimeout)
		defer cancel()
	}

	answer, err := s.asker.Ask(ctx, req.Question)
	if err != nil {
		kind := orchestrator.ErrorKind(err)
		writeJSON(w, askStatus(kind), ErrorResponse{Error: err.Error(), Kind: kind, Origin: answer.Origin})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// askStatus maps a failure kind to an HTTP status
func askStatus(kind string) int {
	switch kind {
	case orchestrator.KindEmptyQuestion:
		return http.StatusBadRequest
	case orchestrator.KindCancelled:
		return http.StatusServiceUnavailable
	case orchestrator.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ToolListResponse{Tools: s.catalog.ListNames()})
}

func (s *Server) handleDescribeTool(w http.ResponseWriter, r *http.Request) {
	desc, err := s.catalog.Describe(chi.URLParam(r, "name"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrUnknownTool) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error(), orchestrator.ErrorKind(err))
		return
	}
	writeJSON(w, http.StatusOK, ToolResponse{ToolDescriptor: desc, Text: desc.Text()})
}

func (s *Server) handleListVirtualTools(w http.ResponseWriter, r *http.Request) {
	entries := s.store.Entries()
	if r.URL.Query().Get("active") == "true" {
		active := make([]virtualtool.Entry, 0, len(entries))
		for _, e := range entries {
			if e.Active {
				active = append(active, e)
			}
		}
		entries = active
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"threshold":     s.store.Threshold(),
		"virtual_tools": entries,
	})
}

// writeJSON encodes v before writing the header so that an encoding failure
// is reported as 500 instead of after a success status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response: " + err.Error(), Kind: orchestrator.KindInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}
