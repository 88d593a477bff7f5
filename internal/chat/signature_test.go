package chat

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"uuid":"u-1","data":{"actionType":"submitConfig"}}`)

	cases := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid signature", "s3cret", signBody("s3cret", body), true},
		{"wrong secret", "s3cret", signBody("other", body), false},
		{"tampered signature", "s3cret", "deadbeef", false},
		{"empty signature", "s3cret", "", false},
		{"no secret configured skips verification", "", "anything", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifySignature(tc.secret, body, tc.signature); got != tc.want {
				t.Fatalf("VerifySignature = %v, want %v", got, tc.want)
			}
		})
	}
}
