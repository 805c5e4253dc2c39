// Package api exposes the tool execution layer over HTTP. Handlers
// translate between JSON bodies and the dispatcher's request variants;
// every failure leaves as the same error envelope the dispatcher
// produces, with the status code derived from the error kind.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/archive"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/config"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/history"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/nl2sql"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/workflows"
)

type ReadinessCheck func(ctx context.Context) error

// ToolDispatcher is the dispatch boundary the tool routes call into.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, req copilot.Request) (any, error)
}

// DatasetCatalog serves the read-only dataset endpoints.
type DatasetCatalog interface {
	ListDatasets(ctx context.Context) ([]catalog.Dataset, error)
	GetDataset(ctx context.Context, name string) (catalog.DatasetDetail, error)
}

// ArchiveRunner triggers one snapshot cycle on demand.
type ArchiveRunner interface {
	RunOnce(ctx context.Context) (archive.Summary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Dispatcher        ToolDispatcher
	Translator        nl2sql.Translator
	Catalog           DatasetCatalog
	History           history.Store
	Workflows         *workflows.Registry
	Archive           ArchiveRunner
	AIUsage           func() ai.UsageStats
	AuthMiddleware    func(http.Handler) http.Handler
	AdminMiddleware   func(http.Handler) http.Handler
	Started           time.Time
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	started := deps.Started
	if started.IsZero() {
		started = time.Now()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, &copilot.Error{
				Kind:       copilot.KindExecution,
				Message:    err.Error(),
				Suggestion: "Check the warehouse connection and configuration.",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.HandleFunc("GET /v1/status", func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"status":         "ok",
			"service":        cfg.Service.Name,
			"profile":        string(cfg.Profile),
			"started_at":     started.UTC().Format(time.RFC3339),
			"uptime_seconds": int64(time.Since(started).Seconds()),
		}
		if deps.History != nil {
			payload["history"] = deps.History.Stats()
		}
		if deps.AIUsage != nil {
			payload["ai_usage"] = deps.AIUsage()
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/tools/execute-query", func(w http.ResponseWriter, r *http.Request) {
		handleExecuteQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/analyze-table", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyzeTable(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/detect-anomalies", func(w http.ResponseWriter, r *http.Request) {
		handleDetectAnomalies(deps, w, r)
	})
	protected.HandleFunc("POST /v1/tools/synthesize-insight", func(w http.ResponseWriter, r *http.Request) {
		handleSynthesizeInsight(deps, w, r)
	})
	protected.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})
	protected.HandleFunc("GET /v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		handleListDatasets(deps, w, r)
	})
	protected.HandleFunc("GET /v1/datasets/{table}", func(w http.ResponseWriter, r *http.Request) {
		handleGetDataset(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history/stats", func(w http.ResponseWriter, r *http.Request) {
		handleHistoryStats(deps, w, r)
	})
	protected.HandleFunc("GET /v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		handleListWorkflows(deps, w, r)
	})
	protected.HandleFunc("GET /v1/workflows/{name}", func(w http.ResponseWriter, r *http.Request) {
		handleRenderWorkflow(deps, w, r)
	})

	admin := http.NewServeMux()
	admin.HandleFunc("POST /v1/archive/run", func(w http.ResponseWriter, r *http.Request) {
		handleArchiveRun(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	var adminHandler http.Handler = admin
	if cfg.Auth.Required {
		missing := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusInternalServerError, &copilot.Error{
				Kind:    copilot.KindInternal,
				Message: "auth middleware is required by configuration",
			})
		})
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = missing
		} else {
			protectedHandler = deps.AuthMiddleware(protected)
		}
		if deps.AdminMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but admin middleware missing")
			}
			adminHandler = missing
		} else {
			adminHandler = deps.AdminMiddleware(admin)
		}
	}
	mux.Handle("POST /v1/tools/execute-query", protectedHandler)
	mux.Handle("POST /v1/tools/analyze-table", protectedHandler)
	mux.Handle("POST /v1/tools/detect-anomalies", protectedHandler)
	mux.Handle("POST /v1/tools/synthesize-insight", protectedHandler)
	mux.Handle("POST /v1/translate", protectedHandler)
	mux.Handle("GET /v1/datasets", protectedHandler)
	mux.Handle("GET /v1/datasets/{table}", protectedHandler)
	mux.Handle("GET /v1/history", protectedHandler)
	mux.Handle("GET /v1/history/stats", protectedHandler)
	mux.Handle("GET /v1/workflows", protectedHandler)
	mux.Handle("GET /v1/workflows/{name}", protectedHandler)
	mux.Handle("POST /v1/archive/run", adminHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckWarehouse reports readiness by pinging the analytical store.
func CheckWarehouse(store warehouse.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("warehouse store is not configured")
		}
		return store.Ping(ctx)
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, derr *copilot.Error) {
	writeJSON(w, status, derr.Envelope())
}

// writeDispatchError maps an error from the dispatch boundary to its
// status code and envelope.
func writeDispatchError(w http.ResponseWriter, err error) {
	derr := copilot.FromError(err)
	writeError(w, statusForKind(derr.Kind), derr)
}

func statusForKind(kind string) int {
	switch kind {
	case copilot.KindValidation:
		return http.StatusBadRequest
	case copilot.KindExecution:
		return http.StatusUnprocessableEntity
	case copilot.KindTranslation, copilot.KindAI:
		return http.StatusBadGateway
	case copilot.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func notConfigured(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotImplemented, &copilot.Error{
		Kind:    copilot.KindInternal,
		Message: what + " is not configured",
	})
}
