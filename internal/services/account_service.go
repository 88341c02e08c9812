package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/identity"
	"github.com/openveil/veilforum/internal/models"
	pkgauth "github.com/openveil/veilforum/pkg/auth"
	pkglogger "github.com/openveil/veilforum/pkg/logger"
)

// IdentityRepository defines the interface for identity data access
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByRegNoIndex(ctx context.Context, index string) (*models.Identity, error)
	GetByHandle(ctx context.Context, handle string) (*models.Identity, error)
	ListAll(ctx context.Context) ([]*models.Identity, error)
	RecordLoginAttempt(ctx context.Context, id string, now, windowStart time.Time, maxAttempts int) (bool, error)
	RecordLoginSuccess(ctx context.Context, id string) (int, error)
}

// SessionStore defines the interface for session persistence
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, tokenHash string) error
}

// AccountService handles registration, login and logout
type AccountService struct {
	identities  IdentityRepository
	sessions    SessionStore
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	cfg         config.AuthConfig
}

// NewAccountService creates a new AccountService
func NewAccountService(identities IdentityRepository, sessions SessionStore, tm *auth.TokenManager, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, cfg config.AuthConfig) *AccountService {
	return &AccountService{
		identities:  identities,
		sessions:    sessions,
		tm:          tm,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
		cfg:         cfg,
	}
}

// RegisterResponse represents the outcome of a successful registration
type RegisterResponse struct {
	AnonymousHandle string `json:"anonymous_name"`
	CreatedAt       string `json:"created_at"`
}

// LoginResponse represents the outcome of a successful login
type LoginResponse struct {
	Token           string `json:"token"`
	AnonymousHandle string `json:"anonymous_name"`
	LoginCount      int    `json:"login_count"`
	ExpiresAt       string `json:"expires_at"`

	// SessionToken rides in an httpOnly cookie, never in the body
	SessionToken string `json:"-"`
}

// normalizeRegNo strips an optional institutional prefix and validates that
// the remainder is purely numeric. Returns the canonical digit string.
func normalizeRegNo(regNo string) (string, int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(regNo))
	normalized = strings.TrimPrefix(normalized, "RA")

	if normalized == "" {
		return "", 0, models.ErrBadRequest
	}

	value, err := strconv.ParseInt(normalized, 10, 64)
	if err != nil {
		return "", 0, models.ErrBadRequest
	}

	return normalized, value, nil
}

// Register enrolls a registration number and derives its anonymous handle.
// The registration number is stored only as a salted hash plus a keyed
// lookup digest; the plaintext never touches the database.
func (s *AccountService) Register(ctx context.Context, regNo, password, ipAddress string) (*RegisterResponse, error) {
	normalized, value, err := normalizeRegNo(regNo)
	if err != nil {
		s.logger.Info("registration rejected: malformed registration number")
		return nil, models.ErrBadRequest
	}

	if value < s.cfg.RegistrationMin || value > s.cfg.RegistrationMax {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "register_failed",
			IPAddress:     ipAddress,
			MaskedRegNo:   pkglogger.SanitizedRegNo(normalized),
			Success:       false,
			FailureReason: "not_eligible",
		})
		return nil, models.ErrPolicyViolation
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrBadRequest
	}

	index := pkgauth.RegistrationIndex(normalized, s.cfg.RegNoIndexKey)
	if _, err := s.identities.GetByRegNoIndex(ctx, index); err == nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "register_failed",
			IPAddress:     ipAddress,
			MaskedRegNo:   pkglogger.SanitizedRegNo(normalized),
			Success:       false,
			FailureReason: "already_registered",
		})
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing registration", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	handle := identity.Generate(normalized)
	if _, err := s.identities.GetByHandle(ctx, handle); err == nil {
		// Deterministic derivation collided with an existing member.
		s.logger.Error("anonymous handle collision", slog.String("handle", handle))
		return nil, models.ErrHandleCollision
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check handle uniqueness", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	regNoHash, err := pkgauth.HashSecret(normalized)
	if err != nil {
		s.logger.Error("failed to hash registration number", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashSecret(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.identities.Create(ctx, &models.Identity{
		RegNoHash:       regNoHash,
		RegNoIndex:      index,
		PasswordHash:    passwordHash,
		AnonymousHandle: handle,
	})
	if err != nil {
		if errors.Is(err, models.ErrHandleCollision) || errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  "register_success",
		IdentityID: created.ID,
		IPAddress:  ipAddress,
		Success:    true,
	})

	return &RegisterResponse{
		AnonymousHandle: created.AnonymousHandle,
		CreatedAt:       created.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Login authenticates a registration number and password, records the
// attempt for throttling, and issues both a bearer token and a session
// token. Unknown numbers and wrong passwords are indistinguishable to the
// caller.
func (s *AccountService) Login(ctx context.Context, regNo, password, ipAddress string) (*LoginResponse, error) {
	normalized, _, err := normalizeRegNo(regNo)
	if err != nil {
		s.timing.Wait(false)
		return nil, models.ErrInvalidCredentials
	}

	candidate, err := s.findCandidate(ctx, normalized)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.timing.Wait(false)
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     ipAddress,
				Success:       false,
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// The attempt is recorded before credential verification so that
	// guessing cannot probe the password of a throttled identity.
	now := time.Now()
	allowed, err := s.identities.RecordLoginAttempt(ctx, candidate.ID, now, now.Add(-s.cfg.LoginWindow), s.cfg.LoginMaxAttempts)
	if err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !allowed {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_throttled",
			IdentityID:    candidate.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "too_many_attempts",
		})
		return nil, &models.RateLimitError{
			RetryAfterSeconds: s.throttleRetryAfter(candidate.LoginAttempts, now),
			Err:               models.ErrLoginThrottled,
		}
	}

	if pkgauth.CompareSecret(candidate.RegNoHash, normalized) != nil || pkgauth.CompareSecret(candidate.PasswordHash, password) != nil {
		s.timing.Wait(false)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IdentityID:    candidate.ID,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	loginCount, err := s.identities.RecordLoginSuccess(ctx, candidate.ID)
	if err != nil {
		s.logger.Error("failed to record login success", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.GenerateToken(candidate.ID, candidate.AnonymousHandle)
	if err != nil {
		s.logger.Error("failed to generate token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sessionToken, err := pkgauth.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.sessions.Create(ctx, &models.Session{
		TokenHash:       pkgauth.HashSessionToken(sessionToken),
		IdentityID:      candidate.ID,
		AnonymousHandle: candidate.AnonymousHandle,
		ExpiresAt:       now.Add(s.cfg.SessionTTL),
		CreatedAt:       now,
	}); err != nil {
		s.logger.Error("failed to persist session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  "login_success",
		IdentityID: candidate.ID,
		IPAddress:  ipAddress,
		Success:    true,
	})

	// expires_at describes the bearer token; the session cookie carries its
	// own lifetime via max-age.
	return &LoginResponse{
		Token:           token,
		AnonymousHandle: candidate.AnonymousHandle,
		LoginCount:      loginCount,
		ExpiresAt:       now.Add(s.tm.TokenExpiry()).Format(time.RFC3339),
		SessionToken:    sessionToken,
	}, nil
}

// throttleRetryAfter computes how many seconds remain until the oldest
// attempt inside the window ages out and a login slot opens again.
func (s *AccountService) throttleRetryAfter(attempts []time.Time, now time.Time) int {
	windowStart := now.Add(-s.cfg.LoginWindow)

	var oldest time.Time
	for _, at := range attempts {
		if at.After(windowStart) && (oldest.IsZero() || at.Before(oldest)) {
			oldest = at
		}
	}
	if oldest.IsZero() {
		return int(s.cfg.LoginWindow.Seconds())
	}

	retry := int(oldest.Add(s.cfg.LoginWindow).Sub(now).Seconds()) + 1
	if retry < 1 {
		retry = 1
	}
	return retry
}

// findCandidate resolves the identity for a registration number. The keyed
// digest answers in one lookup for rows written by this version; rows
// enrolled before the index column existed fall back to a salted-hash scan
// over the bounded cohort.
func (s *AccountService) findCandidate(ctx context.Context, normalized string) (*models.Identity, error) {
	index := pkgauth.RegistrationIndex(normalized, s.cfg.RegNoIndexKey)

	candidate, err := s.identities.GetByRegNoIndex(ctx, index)
	if err == nil {
		return candidate, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	all, err := s.identities.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range all {
		if row.RegNoIndex == "" && pkgauth.CompareSecret(row.RegNoHash, normalized) == nil {
			return row, nil
		}
	}

	return nil, models.ErrNotFound
}

// Logout invalidates the caller's session. A missing or already expired
// session is not an error; logout is idempotent.
func (s *AccountService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, pkgauth.HashSessionToken(sessionToken)); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete session", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// SessionTTLSeconds exposes the session lifetime for cookie max-age
func (s *AccountService) SessionTTLSeconds() int {
	return int(s.cfg.SessionTTL.Seconds())
}
