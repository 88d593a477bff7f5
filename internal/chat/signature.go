package chat

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
)

// VerifySignature checks the hex-encoded HMAC-SHA1 signature the chat
// platform attaches to interactive message posts. An empty secret disables
// verification (first-run scenario, mirrors the platform's optional setting).
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
