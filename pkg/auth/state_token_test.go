package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateToken_RoundTrip(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)

	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	payload := signer.Verify(token)
	require.NotNil(t, payload)
	assert.Equal(t, "user-123", payload.UserID)
}

func TestStateToken_NotSingleUse(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)

	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	// A still-valid token verifies any number of times.
	for i := 0; i < 3; i++ {
		assert.NotNil(t, signer.Verify(token))
	}
}

func TestStateToken_Expiry(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)

	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	base := time.Now()
	signer.now = func() time.Time { return base.Add(10*time.Minute + time.Second) }
	assert.Nil(t, signer.Verify(token))
}

func TestStateToken_Tampered(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)

	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	// Altering any signature character must fail verification.
	body, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.Nil(t, signer.Verify(body+"."+string(flipped)))
}

func TestStateToken_WrongSecret(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)
	other := NewStateSigner("other-secret", 10*time.Minute)

	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	assert.Nil(t, other.Verify(token))
}

func TestStateToken_Garbage(t *testing.T) {
	signer := NewStateSigner("test-secret", 10*time.Minute)

	assert.Nil(t, signer.Verify(""))
	assert.Nil(t, signer.Verify("no-dot-here"))
	assert.Nil(t, signer.Verify("a.b"))
	assert.Nil(t, signer.Verify("!!!.deadbeef"))
}
