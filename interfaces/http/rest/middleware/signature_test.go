package middleware

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "muse-backend/pkg/errors"
)

func signedRequest(t *testing.T, priv ed25519.PrivateKey, timestamp string, body []byte) *http.Request {
	t.Helper()
	payload := append([]byte(timestamp), body...)
	sig := ed25519.Sign(priv, payload)

	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set(headerSignature, hex.EncodeToString(sig))
	req.Header.Set(headerTimestamp, timestamp)
	return req
}

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var seenBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	handler := VerifySignature(hex.EncodeToString(pub), apperrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(next)

	body := []byte(`{"type":1,"id":"int-1"}`)

	t.Run("valid signature passes and body survives verification", func(t *testing.T) {
		seenBody = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(t, priv, "1700000000", body))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, seenBody, "handler must receive the exact verified bytes")
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		req := signedRequest(t, priv, "1700000000", body)
		req.Body = io.NopCloser(bytes.NewReader([]byte(`{"type":1,"id":"int-2"}`)))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong timestamp is rejected", func(t *testing.T) {
		req := signedRequest(t, priv, "1700000000", body)
		req.Header.Set(headerTimestamp, "1700000001")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing headers are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("key from a different pair is rejected", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(t, otherPriv, "1700000000", body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
