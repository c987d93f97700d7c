package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature checks a hex HMAC-SHA256 of payload. A "sha256="
// prefix on the header is accepted.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	sig = strings.TrimPrefix(sig, "sha256=")
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// SignWebhookPayload returns the hex signature VerifyWebhookSignature expects.
func SignWebhookPayload(payload []byte, webhookSecret string) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(webhookSecret)))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
