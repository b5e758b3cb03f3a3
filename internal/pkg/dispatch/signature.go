package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignPayment computes the authenticity signature embedded in webhook
// payloads: hex HMAC-SHA256 over the canonical ordering
// amount|buttonName|address|timestamp|txId.
func SignPayment(secret string, p PostParameters) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%s|%d|%s", p.Amount, p.ButtonName, p.Address, p.Timestamp, p.TxID)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature lets webhook consumers check a payload signature in
// constant time.
func VerifySignature(secret, signature string, p PostParameters) bool {
	expected := SignPayment(secret, p)
	return hmac.Equal([]byte(expected), []byte(signature))
}
