package tracking

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const signatureScheme = "sha512="

// SignatureResult reports the outcome of a webhook signature check.
type SignatureResult struct {
	Valid  bool
	Reason string
}

// Sign computes the webhook signature for a body: HMAC-SHA512 over the raw
// bytes, hex encoded uppercase, prefixed with the scheme. Used by tests and
// by operator tooling that simulates pharmacy callbacks.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return signatureScheme + strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// ValidateSignature checks an x-pharmacy-signature header against the raw
// request body. The comparison is constant-time over the digest bytes;
// length is compared first, leaking only that the digest is the wrong size.
func ValidateSignature(header string, body []byte, secret string) SignatureResult {
	if header == "" {
		return SignatureResult{Reason: "Missing signature header"}
	}
	if secret == "" {
		return SignatureResult{Reason: "No signing key configured"}
	}
	if !strings.HasPrefix(header, signatureScheme) {
		return SignatureResult{Reason: "Invalid signature format"}
	}

	expected := Sign(body, secret)
	got := []byte(header[len(signatureScheme):])
	want := []byte(expected[len(signatureScheme):])
	if len(got) != len(want) {
		return SignatureResult{Reason: "Invalid signature"}
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return SignatureResult{Reason: "Invalid signature"}
	}
	return SignatureResult{Valid: true}
}
