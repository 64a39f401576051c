package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"muse-backend/application/dispatcher"
	"muse-backend/domain/interaction"
	apperrors "muse-backend/pkg/errors"
)

// InteractionHandler serves the platform's interactions webhook
type InteractionHandler struct {
	dispatcher   *dispatcher.Dispatcher
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewInteractionHandler creates the handler
func NewInteractionHandler(d *dispatcher.Dispatcher, eh *apperrors.ErrorHandler, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{dispatcher: d, errorHandler: eh, logger: logger}
}

// Handle processes one signed interaction. The signature middleware has
// already verified the body it hands us.
func (h *InteractionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("unreadable body").WithCause(err))
		return
	}

	in, err := interaction.Parse(body)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("interaction received",
		zap.Int("type", int(in.Type)),
		zap.String("command", in.CommandName()),
		zap.String("user_id", in.UserID()),
	)

	response := h.dispatcher.Dispatch(r.Context(), in)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode interaction response", zap.Error(err))
	}
}
