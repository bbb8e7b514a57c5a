// Package payment talks to the payment gateway: it creates orders and
// verifies the signed callback the gateway hands back to the customer.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingField is returned when an order id, payment id or signature is blank.
	ErrMissingField = errors.New("payment: missing verification field")
	// ErrSignatureMismatch is returned when the signature does not match.
	ErrSignatureMismatch = errors.New("payment: signature mismatch")
	// ErrNoSecret is returned when the verifier has no shared secret.
	ErrNoSecret = errors.New("payment: verifier secret not configured")
)

// Verifier checks callback signatures: lowercase hex
// HMAC-SHA256(orderID + "|" + paymentID) keyed by the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the expected signature for the pair.
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns nil only when signature is exactly Sign(orderID, paymentID).
// The comparison runs in constant time.
func (v *Verifier) Verify(orderID, paymentID, signature string) error {
	if len(v.secret) == 0 {
		return ErrNoSecret
	}
	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" || strings.TrimSpace(signature) == "" {
		return ErrMissingField
	}
	want := v.Sign(orderID, paymentID)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
