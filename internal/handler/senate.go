// Package handler exposes the senate and ghost-resolve services over HTTP
// with chi.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/ghostpass/senate/internal/application"
	"github.com/ghostpass/senate/internal/domain"
)

// maxHistoryLimit caps the ?limit= query parameter.
const maxHistoryLimit = 500

// SenateService runs senate evaluations.
type SenateService interface {
	Convene(ctx context.Context, req application.RunRequest) (*application.RunResult, error)
}

// CalibrationService reads and writes seat weights.
type CalibrationService interface {
	Get(ctx context.Context, actor domain.Actor) (application.CalibrationView, error)
	Update(ctx context.Context, actor domain.Actor, w domain.Weights) error
	History(ctx context.Context, actor domain.Actor, limit int) ([]domain.CalibrationAudit, error)
}

// SenateHandler serves the /v1/senate routes.
type SenateHandler struct {
	senate      SenateService
	calibration CalibrationService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewSenateHandler constructs a handler. A nil logger discards output.
func NewSenateHandler(senate SenateService, calibration CalibrationService, logger *slog.Logger) *SenateHandler {
	if logger == nil {
		logger = discardLogger()
	}
	return &SenateHandler{
		senate:      senate,
		calibration: calibration,
		validate:    newRequestValidator(),
		logger:      logger,
	}
}

// Register mounts the senate routes. Every route requires an identity.
func (h *SenateHandler) Register(r chi.Router) {
	r.Route("/v1/senate", func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Post("/runs", h.HandleRun)
		r.Get("/calibration", h.HandleGetCalibration)
		r.Put("/calibration", h.HandlePutCalibration)
		r.Get("/calibration/history", h.HandleCalibrationHistory)
	})
}

// RunRequest is the body of POST /v1/senate/runs.
type RunRequest struct {
	InputText string         `json:"input_text" validate:"required"`
	Weights   domain.Weights `json:"weights,omitempty"`
}

// HandleRun handles POST /v1/senate/runs.
func (h *SenateHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFrom(ctx)
	requestID := middleware.GetReqID(ctx)

	var req RunRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.senate.Convene(ctx, application.RunRequest{
		UserID:    actor.UserID,
		InputText: req.InputText,
		Weights:   req.Weights,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "senate run rejected",
			"request_id", requestID,
			"user_id", actor.UserID,
			"error", err,
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetCalibration handles GET /v1/senate/calibration.
func (h *SenateHandler) HandleGetCalibration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFrom(ctx)

	view, err := h.calibration.Get(ctx, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "calibration read failed",
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type updateResponse struct {
	Success bool `json:"success"`
}

// HandlePutCalibration handles PUT /v1/senate/calibration. The body is the
// weights object itself, e.g. {"1": 20, "2": 10, ...}.
func (h *SenateHandler) HandlePutCalibration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFrom(ctx)

	var weights domain.Weights
	if err := decodeJSON(w, r, nil, &weights); err != nil {
		writeError(w, err)
		return
	}
	if err := h.calibration.Update(ctx, actor, weights); err != nil {
		h.logger.WarnContext(ctx, "calibration update rejected",
			"request_id", middleware.GetReqID(ctx),
			"actor_id", actor.UserID,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true})
}

type historyResponse struct {
	Entries []domain.CalibrationAudit `json:"entries"`
}

// HandleCalibrationHistory handles GET /v1/senate/calibration/history.
func (h *SenateHandler) HandleCalibrationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFrom(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			verr := domain.NewValidationError("request")
			verr.AddErrorf("limit: must be an integer between 1 and %d", maxHistoryLimit)
			writeError(w, verr)
			return
		}
		limit = n
	}

	entries, err := h.calibration.History(ctx, actor, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.CalibrationAudit{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}
