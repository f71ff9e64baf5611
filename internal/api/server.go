package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/larder/internal/dispatch"
	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/metrics"
	"github.com/kalambet/larder/internal/ollama"
	"github.com/kalambet/larder/internal/pipeline"
	"github.com/kalambet/larder/internal/session"
	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Catalog is the tool surface exposed over HTTP and MCP. *tools.Registry
// implements it.
type Catalog interface {
	Definitions() []tools.Definition
	Has(name string) bool
	Execute(ctx context.Context, name string, args map[string]any, uc tools.UserContext) tools.Result
}

// Turner runs one assistant turn. *pipeline.Assistant implements it.
type Turner interface {
	Turn(ctx context.Context, uc tools.UserContext, utterance string, history []ollama.Message) (pipeline.TurnResult, error)
}

// Dispatcher runs an interpretation produced outside the assistant.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, uc tools.UserContext, in intent.Interpretation) dispatch.Outcome
}

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Store       *storage.Store
	Tools       Catalog
	Assistant   Turner
	Dispatcher  Dispatcher
	DefaultUser string
	HistoryCap  int
	Logger      *slog.Logger
}

// NewHandler returns the larder HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HistoryCap <= 0 {
		deps.HistoryCap = session.DefaultCapacity
	}

	r := chi.NewRouter()
	r.Use(countRequests)

	r.Get("/health", handleHealth(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(UserScope(deps.DefaultUser))

		r.Get("/tools", handleListTools(deps))
		r.Post("/tools/{name}", handleCallTool(deps))
		r.Post("/assistant/turns", handleTurn(deps))
		r.Post("/assistant/dispatch", handleDispatch(deps))
		r.Get("/assistant/voice", handleVoice(deps))
		r.Post("/recipes/import", handleImport(deps))
		r.Get("/recipes/import/{id}", handleImportStatus(deps))
	})

	return r
}

// countRequests records every request by its route pattern, so ids in the
// path do not explode the label set.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store != nil {
			if err := deps.Store.Ping(r.Context()); err != nil {
				httpError(w, http.StatusServiceUnavailable, "api_error", "storage unavailable: %v", err)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
