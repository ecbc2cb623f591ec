// Package crypto signs and verifies webhook payloads with HMAC-SHA256.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignaturePrefix precedes the hex digest in a signature header value.
const SignaturePrefix = "sha256="

// Signer computes and checks HMAC-SHA256 signatures with a shared secret.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer. The secret must not be empty.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	return &Signer{key: []byte(secret)}, nil
}

// Sign returns the header value for payload, "sha256=<hex>".
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches payload. Comparison is constant-time.
func (s *Signer) Verify(payload []byte, signature string) bool {
	digest, ok := strings.CutPrefix(strings.TrimSpace(signature), SignaturePrefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
