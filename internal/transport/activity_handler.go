package transport

import (
	"encoding/json"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const anonymousActor = "Anonymous"

// ActivityRequest is a client-side activity record
type ActivityRequest struct {
	Action  string          `json:"action" validate:"required,max=100"`
	Details json.RawMessage `json:"details"`
}

// ActivityHandler records client activity in the server log
type ActivityHandler struct {
	users  service.UserService
	logger *zap.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(users service.UserService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{users: users, logger: logger.Named("activity")}
}

func (h *ActivityHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.With(optionalAuth).Post("/api/log", h.Log)
}

func (h *ActivityHandler) actor(r *http.Request) string {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return anonymousActor
	}
	user, err := h.users.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		return principal.UserID.String()
	}
	return user.Email
}

func (h *ActivityHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	h.logger.Info("Client activity",
		zap.String("actor", h.actor(r)),
		zap.String("action", req.Action),
		zap.ByteString("details", req.Details),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
