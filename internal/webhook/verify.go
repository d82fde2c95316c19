package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is the scheme tag GitHub puts in front of the hex digest.
const SignaturePrefix = "sha256="

// Verify reports whether signature is the HMAC-SHA256 of body under secret,
// encoded as SignaturePrefix followed by lowercase hex. body must be the raw
// request body as received.
func Verify(body []byte, signature string, secret []byte) bool {
	if !strings.HasPrefix(signature, SignaturePrefix) {
		return false
	}
	digest := strings.TrimPrefix(signature, SignaturePrefix)
	if len(digest) != sha256.Size*2 || strings.ToLower(digest) != digest {
		return false
	}

	sig, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	return hmac.Equal(sig, Sign(body, secret))
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(body, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Signature returns the header value a trusted sender would attach to body.
func Signature(body, secret []byte) string {
	return SignaturePrefix + hex.EncodeToString(Sign(body, secret))
}
