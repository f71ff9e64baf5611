package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/ollama"
)

func handleListTools(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Tools.Definitions())
	}
}

// handleCallTool runs one tool directly. Tool failures are reported in the
// Result body with a 200; only unknown tools and unreadable bodies are HTTP
// errors.
func handleCallTool(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !deps.Tools.Has(name) {
			httpError(w, http.StatusNotFound, "not_found_error", "tool %q not found", name)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		args := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if args == nil {
			args = map[string]any{}
		}

		res := deps.Tools.Execute(r.Context(), name, args, userFrom(r.Context()))
		writeJSON(w, http.StatusOK, res)
	}
}

type turnRequest struct {
	Utterance string           `json:"utterance"`
	History   []ollama.Message `json:"history,omitempty"`
}

func handleTurn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req turnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Utterance) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "utterance is required")
			return
		}
		if len(req.History) > deps.HistoryCap {
			req.History = req.History[len(req.History)-deps.HistoryCap:]
		}

		uc := userFrom(r.Context())
		res, err := deps.Assistant.Turn(r.Context(), uc, req.Utterance, req.History)
		if err != nil {
			deps.Logger.Error("assistant turn failed", "user_id", uc.UserID, "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "assistant unavailable: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleDispatch runs an interpretation the caller produced itself, for
// clients that run their own model.
func handleDispatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}
		in, err := intent.Decode(string(body))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid interpretation: %v", err)
			return
		}

		out := deps.Dispatcher.Dispatch(r.Context(), userFrom(r.Context()), in)
		writeJSON(w, http.StatusOK, out)
	}
}
