// Package signature verifies HMAC-SHA256 webhook payload signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/igoorng/webhook/internal/constants"
)

const prefix = "sha256="

// Verify reports whether signature is the lowercase hex HMAC-SHA256 of
// payload keyed by secret, optionally prefixed with "sha256=". An empty
// secret disables verification.
func Verify(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, prefix)

	expected := hex.EncodeToString(Sign(payload, secret))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign returns the raw HMAC-SHA256 digest of payload.
func Sign(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignHex returns the signature as a sender would put it in a header.
func SignHex(payload []byte, secret string) string {
	return prefix + hex.EncodeToString(Sign(payload, secret))
}

// FromHeader returns the first non-empty signature header.
func FromHeader(header http.Header) string {
	for _, name := range constants.SignatureHeaders {
		if v := header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
