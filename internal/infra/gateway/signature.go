package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature checks the collector's webhook signature:
// HMAC-SHA256 over amount + transactionId + status, keyed by the shared
// secret. An empty secret disables the check (dev mode).
func VerifyWebhookSignature(secret string, data map[string]string, signature string) bool {
	if secret == "" {
		return true
	}

	signatureData := data["amount"] + data["transactionId"] + data["status"]

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signatureData))
	expectedSignature := hex.EncodeToString(h.Sum(nil))

	return strings.EqualFold(expectedSignature, signature)
}
