package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/models"
)

// MemberCounter provides the identity-side community counters
type MemberCounter interface {
	CountMembers(ctx context.Context) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
	FirstCreatedAt(ctx context.Context) (*time.Time, error)
}

// MessageCounter provides the message-side community counters
type MessageCounter interface {
	Stats(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error)
}

// StatsService aggregates community statistics
type StatsService struct {
	members  MemberCounter
	messages MessageCounter
	logger   *slog.Logger
	cfg      config.ForumConfig
}

// NewStatsService creates a new StatsService
func NewStatsService(members MemberCounter, messages MessageCounter, logger *slog.Logger, cfg config.ForumConfig) *StatsService {
	return &StatsService{
		members:  members,
		messages: messages,
		logger:   logger,
		cfg:      cfg,
	}
}

// StatsResponse represents the community statistics payload
type StatsResponse struct {
	Members        int    `json:"members"`
	ActiveMembers  int    `json:"active_members"`
	TotalMessages  int    `json:"total_messages"`
	ActiveMessages int    `json:"active_messages"`
	MessagesToday  int    `json:"messages_today"`
	CommunitySince string `json:"community_since,omitempty"`
}

// Stats assembles the community statistics. Active members are those seen
// within the configured activity window; messages today counts from local
// midnight.
func (s *StatsService) Stats(ctx context.Context) (*StatsResponse, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	members, err := s.members.CountMembers(ctx)
	if err != nil {
		s.logger.Error("failed to count members", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	activeMembers, err := s.members.CountActiveSince(ctx, now.Add(-s.cfg.ActiveMemberWindow))
	if err != nil {
		s.logger.Error("failed to count active members", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	messageStats, err := s.messages.Stats(ctx, now.Add(-s.cfg.VisibilityWindow), dayStart)
	if err != nil {
		s.logger.Error("failed to gather message stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	response := &StatsResponse{
		Members:        members,
		ActiveMembers:  activeMembers,
		TotalMessages:  messageStats.Total,
		ActiveMessages: messageStats.Active,
		MessagesToday:  messageStats.Today,
	}

	since, err := s.members.FirstCreatedAt(ctx)
	if err != nil {
		s.logger.Error("failed to fetch first member timestamp", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if since != nil {
		response.CommunitySince = since.Format(time.RFC3339)
	}

	return response, nil
}
