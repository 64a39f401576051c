package middleware

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"

	"muse-backend/pkg/auth"
	apperrors "muse-backend/pkg/errors"
)

const (
	headerSignature = "X-Signature-Ed25519"
	headerTimestamp = "X-Signature-Timestamp"
)

// VerifySignature authenticates inbound interactions. The signature covers
// timestamp || rawBody, so the body is read and verified untouched before
// any JSON parsing happens downstream; the verified bytes are restored on
// the request for the handler.
func VerifySignature(publicKeyHex string, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(headerSignature)
			timestamp := r.Header.Get(headerTimestamp)
			if signature == "" || timestamp == "" {
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("missing signature headers"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				errorHandler.Handle(w, r, apperrors.NewValidationError("unreadable body").WithCause(err))
				return
			}
			r.Body.Close()

			if !auth.VerifyInteraction(publicKeyHex, signature, timestamp, body) {
				logger.Warn("interaction signature rejected",
					zap.String("remote", r.RemoteAddr),
				)
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("invalid request signature"))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
