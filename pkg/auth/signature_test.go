package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, timestamp string, body []byte) (publicKeyHex, signatureHex string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signed := append([]byte(timestamp), body...)
	sig := ed25519.Sign(priv, signed)

	return hex.EncodeToString(pub), hex.EncodeToString(sig)
}

func TestVerifyInteraction_Valid(t *testing.T) {
	body := []byte(`{"type":1}`)
	pub, sig := signedRequest(t, "1700000000", body)

	assert.True(t, VerifyInteraction(pub, sig, "1700000000", body))
}

func TestVerifyInteraction_BodyMutation(t *testing.T) {
	body := []byte(`{"type":1,"id":"123"}`)
	pub, sig := signedRequest(t, "1700000000", body)

	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01
		assert.False(t, VerifyInteraction(pub, sig, "1700000000", mutated), "flipped byte %d", i)
	}
}

func TestVerifyInteraction_SignatureMutation(t *testing.T) {
	body := []byte(`{"type":1}`)
	pub, sig := signedRequest(t, "1700000000", body)

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)
	raw[0] ^= 0x01
	assert.False(t, VerifyInteraction(pub, hex.EncodeToString(raw), "1700000000", body))
}

func TestVerifyInteraction_WrongTimestamp(t *testing.T) {
	body := []byte(`{"type":1}`)
	pub, sig := signedRequest(t, "1700000000", body)

	assert.False(t, VerifyInteraction(pub, sig, "1700000001", body))
}

func TestVerifyInteraction_Malformed(t *testing.T) {
	body := []byte(`{"type":1}`)
	pub, sig := signedRequest(t, "1700000000", body)

	assert.False(t, VerifyInteraction("not-hex", sig, "1700000000", body))
	assert.False(t, VerifyInteraction(pub, "not-hex", "1700000000", body))
	assert.False(t, VerifyInteraction("abcd", sig, "1700000000", body), "short key")
	assert.False(t, VerifyInteraction(pub, "abcd", "1700000000", body), "short signature")
	assert.False(t, VerifyInteraction("", "", "", nil))
}
