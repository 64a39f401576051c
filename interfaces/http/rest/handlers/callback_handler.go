package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"muse-backend/infrastructure/spotify"
	"muse-backend/pkg/auth"
)

// CallbackHandler completes the identity provider's authorization handshake.
// The state token is stateless: the instance that started the handshake may
// no longer exist, so everything needed to finish is inside the token.
type CallbackHandler struct {
	signer *auth.StateSigner
	auth   *spotify.Authenticator
	logger *zap.Logger
}

// NewCallbackHandler creates the handler
func NewCallbackHandler(signer *auth.StateSigner, authenticator *spotify.Authenticator, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{signer: signer, auth: authenticator, logger: logger}
}

// Handle processes GET /callback?code&state&error
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("authorization declined", zap.String("error", errParam))
		h.page(w, http.StatusOK, "Link cancelled", "You declined the authorization. You can close this tab.")
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		h.page(w, http.StatusBadRequest, "Invalid request", "Missing code or state parameter.")
		return
	}

	payload := h.signer.Verify(state)
	if payload == nil {
		h.page(w, http.StatusUnauthorized, "Link expired", "This link is invalid or has expired. Run /link again to get a fresh one.")
		return
	}

	if err := h.auth.Exchange(r.Context(), payload.UserID, code); err != nil {
		h.logger.Error("token exchange failed", zap.String("user_id", payload.UserID), zap.Error(err))
		h.page(w, http.StatusBadGateway, "Something went wrong", "We couldn't complete the link. Please try /link again.")
		return
	}

	h.logger.Info("account linked", zap.String("user_id", payload.UserID))
	h.page(w, http.StatusOK, "Account linked", "All set. You can close this tab and go back to chat.")
}

func (h *CallbackHandler) page(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!doctype html>
<html><head><title>%s</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4rem;">
<h1>%s</h1><p>%s</p>
</body></html>`, title, title, message)
}
