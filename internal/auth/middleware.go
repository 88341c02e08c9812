package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/openveil/veilforum/internal/models"
	pkgauth "github.com/openveil/veilforum/pkg/auth"
	httputil "github.com/openveil/veilforum/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// PrincipalContextKey is the key for storing the resolved principal in context
	PrincipalContextKey contextKey = "principal"
)

// SessionResolver resolves an opaque session token hash to a live session
type SessionResolver interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
}

// Middleware resolves the caller's identity from either a session cookie
// or a Bearer token. The cookie is tried first; a request carrying both
// authenticates by whichever succeeds, cookie winning. Requests with
// neither are rejected before reaching the handler.
func Middleware(tm *TokenManager, sessions SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal := resolveSession(r, sessions); principal != nil {
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
				return
			}

			principal, errMsg := resolveBearer(r, tm)
			if principal == nil {
				httputil.WriteUnauthorized(w, errMsg)
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

func resolveSession(r *http.Request, sessions SessionResolver) *models.Principal {
	if sessions == nil {
		return nil
	}

	token, err := GetSessionCookie(r)
	if err != nil || token == "" {
		return nil
	}

	session, err := sessions.GetByTokenHash(r.Context(), pkgauth.HashSessionToken(token))
	if err != nil {
		return nil
	}

	return &models.Principal{
		IdentityID:      session.IdentityID,
		AnonymousHandle: session.AnonymousHandle,
	}
}

func resolveBearer(r *http.Request, tm *TokenManager) (*models.Principal, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "authentication required"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "invalid authorization header format"
	}

	claims, err := tm.ValidateToken(parts[1])
	if err != nil {
		return nil, "invalid or expired token"
	}

	return &models.Principal{
		IdentityID:      claims.IdentityID,
		AnonymousHandle: claims.AnonymousHandle,
	}, ""
}

func withPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// GetPrincipalFromContext extracts the resolved principal from request context
func GetPrincipalFromContext(r *http.Request) *models.Principal {
	principal, ok := r.Context().Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
