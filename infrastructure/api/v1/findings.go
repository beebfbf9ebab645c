package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/repolens/repolens/application/service"
	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/infrastructure/api/middleware"
	"github.com/repolens/repolens/infrastructure/api/v1/dto"
)

// FindingsRouter handles finding review endpoints.
type FindingsRouter struct {
	risk   *service.RiskService
	logger *slog.Logger
}

// NewFindingsRouter creates a new FindingsRouter.
func NewFindingsRouter(risk *service.RiskService, logger *slog.Logger) *FindingsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FindingsRouter{risk: risk, logger: logger}
}

// Routes returns the chi router for finding endpoints.
func (r *FindingsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Put("/{id}/status", r.UpdateStatus)
	return router
}

// UpdateStatus handles PUT /api/v1/findings/{id}/status: it records a
// reviewer verdict (open, false_positive, resolved) on one finding.
func (r *FindingsRouter) UpdateStatus(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid finding id", err), r.logger)
		return
	}

	var body dto.UpdateFindingStatusRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	status := analysis.FindingStatus(body.Status)
	if !status.IsValid() {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid finding status", nil), r.logger)
		return
	}

	if err := r.risk.UpdateFindingStatus(req.Context(), id, status); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}
