// Package webhook verifies the authenticity of inbound storefront
// notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/sirupsen/logrus"
)

// Verifier checks storefront webhook signatures: base64(HMAC-SHA256(secret,
// raw body)) compared in constant time against the signature header.
//
// An empty secret puts the verifier in insecure mode: every request is
// accepted regardless of signature. That mode exists for local development
// and is logged as a warning both at construction and on every use.
type Verifier struct {
	secret []byte
	log    *logrus.Logger
}

// NewVerifier builds a verifier for the given shared secret.
func NewVerifier(secret string, log *logrus.Logger) *Verifier {
	v := &Verifier{log: log}
	if secret == "" {
		log.Warn("webhook secret not configured: signature verification is DISABLED")
		return v
	}
	v.secret = []byte(secret)
	return v
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks the supplied signature header against the raw request body.
// In insecure mode it accepts anything and logs the fact.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if !v.Enabled() {
		v.log.Warn("accepting webhook without signature verification (no secret configured)")
		return true
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant-time.
	return hmac.Equal([]byte(expected), []byte(signature))
}
