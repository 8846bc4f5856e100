package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// errVerification is the only error VerifySignature returns, so callers and
// responses never learn why a signature was refused.
var errVerification = errors.New("webhook verification failed")

// VerifySignature checks an HMAC-SHA256 signature over the raw request body.
//
// body must be the exact bytes received; re-encoded JSON hashes differently.
// The comparison is constant-time. Accepted formats:
//   - "<hex>"
//   - "sha256=<hex>"
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return errVerification
	}

	actual, err := parseSignature(strings.TrimSpace(signature))
	if err != nil {
		return errVerification
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if subtle.ConstantTimeCompare(mac.Sum(nil), actual) != 1 {
		return errVerification
	}
	return nil
}

func parseSignature(signature string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
}

// ComputeSignature returns the lowercase hex HMAC-SHA256 of body.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
