package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header webhook providers sign request bodies into.
const SignatureHeader = "X-Hub-Signature-256"

// VerifySignature checks an HMAC-SHA256 body signature against the shared
// secret. The header value may carry a "sha256=" prefix.
func VerifySignature(body []byte, header string, secret string) bool {
	if secret == "" || header == "" {
		return false
	}

	received := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(received))
}
