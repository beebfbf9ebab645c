// Package v1 provides the v1 API routes.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/repolens/repolens/application/service"
	"github.com/repolens/repolens/infrastructure/api/middleware"
	"github.com/repolens/repolens/infrastructure/api/v1/dto"
)

// defaultTrendLimit bounds the bus-factor trend endpoint.
const defaultTrendLimit = 20

// RepositoriesRouter handles repository API endpoints.
type RepositoriesRouter struct {
	repositories *service.RepositoryService
	risk         *service.RiskService
	logger       *slog.Logger
}

// NewRepositoriesRouter creates a new RepositoriesRouter.
func NewRepositoriesRouter(repositories *service.RepositoryService, risk *service.RiskService, logger *slog.Logger) *RepositoriesRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoriesRouter{
		repositories: repositories,
		risk:         risk,
		logger:       logger,
	}
}

// Routes returns the chi router for repository endpoints.
func (r *RepositoriesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Submit)
	router.Get("/{id}", r.Get)
	router.Get("/{id}/findings", r.ListFindings)
	router.Get("/{id}/entities", r.ListEntities)
	router.Get("/{id}/report", r.GetReport)
	router.Get("/{id}/bus-factor", r.GetBusFactor)
	router.Get("/{id}/bus-factor/trend", r.GetBusFactorTrend)

	return router
}

// Submit handles POST /api/v1/repositories: it registers the repository and
// queues the clone, analyze, and history tasks.
func (r *RepositoriesRouter) Submit(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.SubmitRepositoryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}
	if body.RemoteURL == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "remote_url is required", nil), r.logger)
		return
	}

	owner, name := body.Owner, body.Name
	if owner == "" || name == "" {
		var err error
		owner, name, err = service.ParseRemoteURL(body.RemoteURL)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "owner/name not derivable from remote_url", err), r.logger)
			return
		}
	}

	repo, err := r.repositories.Submit(ctx, owner, name, body.RemoteURL)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, dto.FromRepository(repo))
}

// List handles GET /api/v1/repositories.
func (r *RepositoriesRouter) List(w http.ResponseWriter, req *http.Request) {
	repos, err := r.repositories.List(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRepositories(repos))
}

// Get handles GET /api/v1/repositories/{id}.
func (r *RepositoriesRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	repo, err := r.repositories.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRepository(repo))
}

// ListFindings handles GET /api/v1/repositories/{id}/findings.
func (r *RepositoriesRouter) ListFindings(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	findings, err := r.risk.Findings(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromFindings(findings))
}

// ListEntities handles GET /api/v1/repositories/{id}/entities.
func (r *RepositoriesRouter) ListEntities(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	entities, err := r.risk.Entities(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromEntities(entities))
}

// GetReport handles GET /api/v1/repositories/{id}/report.
func (r *RepositoriesRouter) GetReport(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	report, err := r.risk.Report(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRiskReport(report))
}

// GetBusFactor handles GET /api/v1/repositories/{id}/bus-factor.
func (r *RepositoriesRouter) GetBusFactor(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	metric, err := r.risk.BusFactor(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromBusFactor(metric))
}

// GetBusFactorTrend handles GET /api/v1/repositories/{id}/bus-factor/trend.
func (r *RepositoriesRouter) GetBusFactorTrend(w http.ResponseWriter, req *http.Request) {
	id, ok := r.pathID(w, req)
	if !ok {
		return
	}

	limit := defaultTrendLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	metrics, err := r.risk.BusFactorTrend(req.Context(), id, limit)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromBusFactors(metrics))
}

// pathID parses the {id} path parameter, writing a 400 on failure.
func (r *RepositoriesRouter) pathID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid repository id", err), r.logger)
		return 0, false
	}
	return id, true
}
