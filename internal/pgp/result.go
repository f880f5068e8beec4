package pgp

import (
	"time"

	"github.com/rs/zerolog"
)

// Status is the outcome of a processed signature.
type Status string

const (
	StatusGood       Status = "good"
	StatusBad        Status = "bad"
	StatusNoKey      Status = "no-public-key"
	StatusExpiredSig Status = "expired-signature"
	StatusExpiredKey Status = "expired-key"
	StatusRevokedKey Status = "revoked-key"
	StatusError      Status = "error"
)

// Result is what an engine learned from a detached signature.
type Result struct {
	Valid       bool
	Status      Status
	KeyID       string // 16 upper-case hex digits
	Fingerprint string
	Signer      string
	Created     time.Time
	Trust       TrustLevel
}

// MarshalZerologObject adds the result fields to a log event.
func (r *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("valid", r.Valid).
		Str("status", string(r.Status)).
		Str("key_id", r.KeyID).
		Str("signer", r.Signer).
		Str("trust", r.Trust.String()).
		Int("trust_level", int(r.Trust))
	if r.Fingerprint != "" {
		e.Str("fingerprint", r.Fingerprint)
	}
	if !r.Created.IsZero() {
		e.Time("created", r.Created)
	}
}
