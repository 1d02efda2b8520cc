package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/pulsemsp/pulse/internal/application/reportsvc"
	"github.com/pulsemsp/pulse/internal/application/scoresvc"
	"github.com/pulsemsp/pulse/internal/application/syncsvc"
	"github.com/pulsemsp/pulse/internal/config"
	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/citations"
	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/narrative"
	"github.com/pulsemsp/pulse/internal/domain/reports"
	"github.com/pulsemsp/pulse/internal/middleware"
)

type Router struct {
	syncSvc   *syncsvc.Service
	scoreSvc  *scoresvc.Service
	reportSvc *reportsvc.Service
	log       *logrus.Logger
}

func NewRouter(syncSvc *syncsvc.Service, scoreSvc *scoresvc.Service, reportSvc *reportsvc.Service,
	apiKeys map[string]string, rateLimits config.RateLimit,
	checkers map[string]middleware.HealthChecker, log *logrus.Logger) http.Handler {

	r := &Router{syncSvc: syncSvc, scoreSvc: scoreSvc, reportSvc: reportSvc, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.RequestLogging(log))
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadyHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(apiKeys))
		rt.Use(middleware.RateLimitMiddleware(rateLimits, log))

		rt.Post("/sync", r.wrap(r.handleSync))
		rt.Get("/clients/{id}/scores", r.wrap(r.handleScores))
		rt.Post("/clients/{id}/reports", r.wrap(r.handleRequestReport))
		rt.Get("/clients/{id}/reports", r.wrap(r.handleListReports))
		rt.Get("/clients/{id}/sync-runs", r.wrap(r.handleSyncRuns))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks validation failures for the wrap mapping.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var br *badRequestError
		var hall *citations.HallucinationError
		var ae *adapters.Error
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, narrative.ErrQuotaExceeded):
			http.Error(w, "narrative quota exceeded", http.StatusTooManyRequests)
		case errors.As(err, &hall):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.As(err, &br):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &ae) && ae.Kind == adapters.KindInvalidCredentials:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/sync
// Body: {"client_id": "<uuid>", "vendors": ["cwpsa","immy","m365"]}
func (r *Router) handleSync(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ClientID string   `json:"client_id"`
		Vendors  []string `json:"vendors"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if body.ClientID == "" {
		return badRequest("client_id is required")
	}
	vendors, err := middleware.ValidateVendors(body.Vendors)
	if err != nil {
		return badRequest("%v", err)
	}

	results, err := r.syncSvc.TriggerSync(req.Context(), syncsvc.TriggerSyncCommand{
		TenantID: tenant,
		ClientID: entities.ClientID(body.ClientID),
		Vendors:  vendors,
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		middleware.IncrementSyncs()
		if res.Error != "" {
			middleware.IncrementSyncsFailed()
		}
	}
	return writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GET /v1/{tenant}/clients/{id}/scores
func (r *Router) handleScores(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return badRequest("%v", err)
	}

	bundle, err := r.scoreSvc.Scores(req.Context(), tenant, entities.ClientID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, bundle)
}

// POST /v1/{tenant}/clients/{id}/reports
func (r *Router) handleRequestReport(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return badRequest("%v", err)
	}

	rep, err := r.reportSvc.Request(req.Context(), tenant, entities.ClientID(id))
	if err != nil {
		return err
	}
	middleware.IncrementReports()
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"report_id": rep.ID,
		"status":    rep.Status,
		"quarter":   rep.Quarter,
	})
}

// GET /v1/{tenant}/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return badRequest("%v", err)
	}

	rep, err := r.reportSvc.Get(req.Context(), tenant, reports.ReportID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/{tenant}/clients/{id}/reports?page=&page_size=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return badRequest("%v", err)
	}
	page, size, err := middleware.ValidatePagination(req.URL.Query().Get("page"), req.URL.Query().Get("page_size"))
	if err != nil {
		return badRequest("%v", err)
	}

	list, err := r.reportSvc.List(req.Context(), tenant, entities.ClientID(id), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"reports": list, "page": page, "page_size": size})
}

// GET /v1/{tenant}/clients/{id}/sync-runs?limit=20
func (r *Router) handleSyncRuns(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	runs, err := r.syncSvc.LatestRuns(req.Context(), tenant, entities.ClientID(id), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
