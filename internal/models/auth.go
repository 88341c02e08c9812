package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims carried by a bearer token.
type TokenClaims struct {
	IdentityID      string `json:"identity_id"`
	AnonymousHandle string `json:"anonymous_handle"`
	jwt.RegisteredClaims
}

// Session is a server-side login session. The opaque token handed to the
// client is stored hashed; the record is keyed by identity id plus the
// handle snapshot taken at login.
type Session struct {
	TokenHash       string
	IdentityID      string
	AnonymousHandle string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// Principal is the resolved caller identity injected into request context
// by the authentication middleware, whichever resolver produced it.
type Principal struct {
	IdentityID      string
	AnonymousHandle string
}
