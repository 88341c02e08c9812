package models

import (
	"time"
)

// Identity is one registered member of the forum. The raw registration
// number is never stored: RegNoHash is a salted one-way hash used for
// authentication, RegNoIndex is a keyed deterministic digest used only to
// locate the record, and AnonymousHandle is the public pseudonym derived
// from the plaintext number at registration time.
type Identity struct {
	ID                string
	RegNoHash         string
	RegNoIndex        string
	PasswordHash      string
	AnonymousHandle   string // immutable once assigned, globally unique
	LoginAttempts     []time.Time
	LoginSuccessCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time // also the "recently active" signal
}
