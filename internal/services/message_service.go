package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/crypto"
	"github.com/openveil/veilforum/internal/models"
	pkglogger "github.com/openveil/veilforum/pkg/logger"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) (*models.Message, error)
	ListVisible(ctx context.Context, cutoff time.Time, limit int) ([]*models.Message, error)
	ListVisibleByIdentity(ctx context.Context, identityID string, cutoff time.Time) ([]*models.Message, error)
	CountByIdentitySince(ctx context.Context, identityID string, since time.Time) (int, error)
	ToggleLike(ctx context.Context, messageID, identityID string) (bool, int, error)
	Report(ctx context.Context, messageID, identityID, reason string) (int, error)
}

// Markup that must never reach another member's browser, even though
// clients are expected to escape content themselves.
var forbiddenContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)<\s*iframe`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// MessageService handles posting, reading and engagement
type MessageService struct {
	messages    MessageRepository
	cipher      *crypto.MessageCipher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	cfg         config.ForumConfig
}

// NewMessageService creates a new MessageService
func NewMessageService(messages MessageRepository, cipher *crypto.MessageCipher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, cfg config.ForumConfig) *MessageService {
	return &MessageService{
		messages:    messages,
		cipher:      cipher,
		logger:      logger,
		auditLogger: auditLogger,
		cfg:         cfg,
	}
}

// MessageResponse represents a readable message in HTTP responses
type MessageResponse struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	AnonymousHandle string `json:"anonymous_name"`
	PostedAt        string `json:"posted_at"`
	LikeCount       int    `json:"like_count"`
	ReportCount     int    `json:"report_count"`
}

// QuotaResponse reports the caller's posting allowance for the current window
type QuotaResponse struct {
	Used          int `json:"used"`
	Remaining     int `json:"remaining"`
	WindowSeconds int `json:"window_seconds"`
}

// LikeResponse reports the outcome of a like toggle
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ReportResponse reports the outcome of filing a report
type ReportResponse struct {
	ReportCount int `json:"report_count"`
}

// validateContent enforces the content policy: non-blank after trimming,
// within the length cap, and free of active markup.
func (s *MessageService) validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", models.ErrContentInvalid
	}
	// The cap counts characters, not bytes; multibyte text gets the full
	// allowance.
	if utf8.RuneCountInString(trimmed) > s.cfg.MaxContentLen {
		return "", models.ErrContentInvalid
	}
	for _, pattern := range forbiddenContentPatterns {
		if pattern.MatchString(trimmed) {
			return "", models.ErrContentInvalid
		}
	}
	return trimmed, nil
}

// Post validates, rate-limits, encrypts and stores a new message. The
// plaintext exists only in memory; the stored row carries ciphertext and
// the author's anonymous handle.
func (s *MessageService) Post(ctx context.Context, principal *models.Principal, content string) (*MessageResponse, error) {
	trimmed, err := s.validateContent(content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	used, err := s.messages.CountByIdentitySince(ctx, principal.IdentityID, now.Add(-s.cfg.PostWindow))
	if err != nil {
		s.logger.Error("failed to count recent posts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if used >= s.cfg.PostMaxPerWindow {
		return nil, &models.RateLimitError{RetryAfterSeconds: int(s.cfg.PostWindow.Seconds())}
	}

	cipherText, err := s.cipher.Encrypt(trimmed)
	if err != nil {
		s.logger.Error("failed to encrypt message", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.messages.Create(ctx, &models.Message{
		IdentityID:    principal.IdentityID,
		CipherText:    cipherText,
		DisplayHandle: principal.AnonymousHandle,
		PostedAt:      now,
	})
	if err != nil {
		s.logger.Error("failed to store message", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &MessageResponse{
		ID:              created.ID,
		Content:         trimmed,
		AnonymousHandle: created.DisplayHandle,
		PostedAt:        created.PostedAt.Format(time.RFC3339),
		LikeCount:       created.LikeCount,
		ReportCount:     created.ReportCount,
	}, nil
}

// List returns the visible feed, newest first, decrypted for the caller.
// A record that fails to decrypt is dropped from the feed and logged; one
// bad row must not take down the whole feed.
func (s *MessageService) List(ctx context.Context) ([]*MessageResponse, error) {
	rows, err := s.messages.ListVisible(ctx, time.Now().Add(-s.cfg.VisibilityWindow), s.cfg.FeedLimit)
	if err != nil {
		s.logger.Error("failed to list messages", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return s.decryptAll(rows), nil
}

// ListMine returns the caller's own visible messages
func (s *MessageService) ListMine(ctx context.Context, identityID string) ([]*MessageResponse, error) {
	rows, err := s.messages.ListVisibleByIdentity(ctx, identityID, time.Now().Add(-s.cfg.VisibilityWindow))
	if err != nil {
		s.logger.Error("failed to list own messages", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return s.decryptAll(rows), nil
}

func (s *MessageService) decryptAll(rows []*models.Message) []*MessageResponse {
	responses := make([]*MessageResponse, 0, len(rows))
	for _, row := range rows {
		content, err := s.cipher.Decrypt(row.CipherText)
		if err != nil {
			s.logger.Warn("skipping undecryptable message", slog.String("message_id", row.ID))
			continue
		}
		responses = append(responses, &MessageResponse{
			ID:              row.ID,
			Content:         content,
			AnonymousHandle: row.DisplayHandle,
			PostedAt:        row.PostedAt.Format(time.RFC3339),
			LikeCount:       row.LikeCount,
			ReportCount:     row.ReportCount,
		})
	}
	return responses
}

// Quota reports how much of the posting window the caller has used
func (s *MessageService) Quota(ctx context.Context, identityID string) (*QuotaResponse, error) {
	used, err := s.messages.CountByIdentitySince(ctx, identityID, time.Now().Add(-s.cfg.PostWindow))
	if err != nil {
		s.logger.Error("failed to count recent posts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	remaining := s.cfg.PostMaxPerWindow - used
	if remaining < 0 {
		remaining = 0
	}

	return &QuotaResponse{
		Used:          used,
		Remaining:     remaining,
		WindowSeconds: int(s.cfg.PostWindow.Seconds()),
	}, nil
}

// ToggleLike flips the caller's like on a message
func (s *MessageService) ToggleLike(ctx context.Context, messageID, identityID string) (*LikeResponse, error) {
	liked, likeCount, err := s.messages.ToggleLike(ctx, messageID, identityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to toggle like", slog.String("message_id", messageID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LikeResponse{Liked: liked, LikeCount: likeCount}, nil
}

// Report files the caller's report against a message. Reporting the same
// message twice fails with ErrAlreadyReported; the count never moves down.
func (s *MessageService) Report(ctx context.Context, messageID, identityID, reason string) (*ReportResponse, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		trimmed = "unspecified"
	}
	if len(trimmed) > 500 {
		return nil, models.ErrBadRequest
	}

	reportCount, err := s.messages.Report(ctx, messageID, identityID, trimmed)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrAlreadyReported) {
			return nil, err
		}
		s.logger.Error("failed to file report", slog.String("message_id", messageID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogModeration("message_reported", messageID, identityID)

	return &ReportResponse{ReportCount: reportCount}, nil
}
