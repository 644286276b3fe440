package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/ghostpass/senate/internal/application"
	"github.com/ghostpass/senate/internal/domain"
)

// ReasonInvalidRequest marks red packs returned for unreadable requests.
const ReasonInvalidRequest = "invalid_request"

// Resolver resolves ghost references.
type Resolver interface {
	Resolve(ctx context.Context, req application.ResolveRequest) application.Resolution
}

// GhostHandler serves the partner-facing resolve route.
type GhostHandler struct {
	resolver Resolver
	validate *validator.Validate
	logger   *slog.Logger
}

// NewGhostHandler constructs a handler. A nil logger discards output.
func NewGhostHandler(resolver Resolver, logger *slog.Logger) *GhostHandler {
	if logger == nil {
		logger = discardLogger()
	}
	return &GhostHandler{resolver: resolver, validate: newRequestValidator(), logger: logger}
}

// Register mounts POST /v1/ghost/resolve. It needs no user identity.
func (h *GhostHandler) Register(r chi.Router) {
	r.Post("/v1/ghost/resolve", h.HandleResolve)
}

// ResolveRequest is the body of POST /v1/ghost/resolve.
type ResolveRequest struct {
	GhostRef  string `json:"ghost_ref" validate:"max=512"`
	PartnerID string `json:"partner_id" validate:"max=128"`
}

var resolutionStatus = map[application.ResolutionStatus]int{
	application.ResolutionOK:          http.StatusOK,
	application.ResolutionNotFound:    http.StatusNotFound,
	application.ResolutionGone:        http.StatusGone,
	application.ResolutionUnavailable: http.StatusServiceUnavailable,
}

// HandleResolve handles POST /v1/ghost/resolve. The body of every outcome,
// failures included, is a signal pack.
func (h *GhostHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResolveRequest
	if err := decodeJSONLenient(w, r, h.validate, &req); err != nil {
		// Every response carries a grade; unreadable requests are red.
		h.logger.WarnContext(ctx, "rejected resolve request",
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		pack := domain.NewSignalPack(domain.GradeRed, domain.MessageInvalidRequest)
		pack.Reasons = []string{ReasonInvalidRequest}
		writeJSON(w, http.StatusBadRequest, pack)
		return
	}

	res := h.resolver.Resolve(ctx, application.ResolveRequest{
		GhostRef:  req.GhostRef,
		PartnerID: req.PartnerID,
	})
	status, ok := resolutionStatus[res.Status]
	if !ok {
		status = http.StatusServiceUnavailable
	}

	h.logger.InfoContext(ctx, "ghost reference resolved",
		"request_id", middleware.GetReqID(ctx),
		"partner_id", req.PartnerID,
		"status", res.Status,
		"grade", res.Pack.Grade,
	)
	writeJSON(w, status, res.Pack)
}
