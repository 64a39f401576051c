package auth

import (
	"crypto/ed25519"
	"encoding/hex"
)

// VerifyInteraction verifies the platform's ed25519 signature over
// timestamp || rawBody. It must run on the untouched raw body bytes before
// any JSON parsing. Pure and side-effect free: malformed hex, wrong-length
// keys or signatures, and verification failures all return false.
func VerifyInteraction(publicKeyHex, signatureHex, timestamp string, rawBody []byte) bool {
	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	signed := make([]byte, 0, len(timestamp)+len(rawBody))
	signed = append(signed, timestamp...)
	signed = append(signed, rawBody...)

	return ed25519.Verify(ed25519.PublicKey(publicKey), signed, signature)
}
