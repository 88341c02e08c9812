package services

import (
	"context"
	"time"

	"github.com/openveil/veilforum/internal/models"
)

// MockIdentityRepository implements IdentityRepository for testing
type MockIdentityRepository struct {
	CreateFunc              func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByRegNoIndexFunc     func(ctx context.Context, index string) (*models.Identity, error)
	GetByHandleFunc         func(ctx context.Context, handle string) (*models.Identity, error)
	ListAllFunc             func(ctx context.Context) ([]*models.Identity, error)
	RecordLoginAttemptFunc  func(ctx context.Context, id string, now, windowStart time.Time, maxAttempts int) (bool, error)
	RecordLoginSuccessFunc  func(ctx context.Context, id string) (int, error)
	CountMembersFunc        func(ctx context.Context) (int, error)
	CountActiveSinceFunc    func(ctx context.Context, since time.Time) (int, error)
	FirstCreatedAtFunc      func(ctx context.Context) (*time.Time, error)
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdentityRepository) GetByRegNoIndex(ctx context.Context, index string) (*models.Identity, error) {
	if m.GetByRegNoIndexFunc != nil {
		return m.GetByRegNoIndexFunc(ctx, index)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) GetByHandle(ctx context.Context, handle string) (*models.Identity, error) {
	if m.GetByHandleFunc != nil {
		return m.GetByHandleFunc(ctx, handle)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) ListAll(ctx context.Context) ([]*models.Identity, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.Identity{}, nil
}

func (m *MockIdentityRepository) RecordLoginAttempt(ctx context.Context, id string, now, windowStart time.Time, maxAttempts int) (bool, error) {
	if m.RecordLoginAttemptFunc != nil {
		return m.RecordLoginAttemptFunc(ctx, id, now, windowStart, maxAttempts)
	}
	return true, nil
}

func (m *MockIdentityRepository) RecordLoginSuccess(ctx context.Context, id string) (int, error) {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return 1, nil
}

func (m *MockIdentityRepository) CountMembers(ctx context.Context) (int, error) {
	if m.CountMembersFunc != nil {
		return m.CountMembersFunc(ctx)
	}
	return 0, nil
}

func (m *MockIdentityRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	if m.CountActiveSinceFunc != nil {
		return m.CountActiveSinceFunc(ctx, since)
	}
	return 0, nil
}

func (m *MockIdentityRepository) FirstCreatedAt(ctx context.Context) (*time.Time, error) {
	if m.FirstCreatedAtFunc != nil {
		return m.FirstCreatedAtFunc(ctx)
	}
	return nil, nil
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	CreateFunc func(ctx context.Context, session *models.Session) error
	DeleteFunc func(ctx context.Context, tokenHash string) error
}

func (m *MockSessionStore) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, tokenHash string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tokenHash)
	}
	return nil
}

// MockMessageRepository implements MessageRepository for testing
type MockMessageRepository struct {
	CreateFunc                func(ctx context.Context, message *models.Message) (*models.Message, error)
	ListVisibleFunc           func(ctx context.Context, cutoff time.Time, limit int) ([]*models.Message, error)
	ListVisibleByIdentityFunc func(ctx context.Context, identityID string, cutoff time.Time) ([]*models.Message, error)
	CountByIdentitySinceFunc  func(ctx context.Context, identityID string, since time.Time) (int, error)
	ToggleLikeFunc            func(ctx context.Context, messageID, identityID string) (bool, int, error)
	ReportFunc                func(ctx context.Context, messageID, identityID, reason string) (int, error)
	StatsFunc                 func(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error)
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message)
	}
	return nil, models.ErrInternalServer
}

func (m *MockMessageRepository) ListVisible(ctx context.Context, cutoff time.Time, limit int) ([]*models.Message, error) {
	if m.ListVisibleFunc != nil {
		return m.ListVisibleFunc(ctx, cutoff, limit)
	}
	return []*models.Message{}, nil
}

func (m *MockMessageRepository) ListVisibleByIdentity(ctx context.Context, identityID string, cutoff time.Time) ([]*models.Message, error) {
	if m.ListVisibleByIdentityFunc != nil {
		return m.ListVisibleByIdentityFunc(ctx, identityID, cutoff)
	}
	return []*models.Message{}, nil
}

func (m *MockMessageRepository) CountByIdentitySince(ctx context.Context, identityID string, since time.Time) (int, error) {
	if m.CountByIdentitySinceFunc != nil {
		return m.CountByIdentitySinceFunc(ctx, identityID, since)
	}
	return 0, nil
}

func (m *MockMessageRepository) ToggleLike(ctx context.Context, messageID, identityID string) (bool, int, error) {
	if m.ToggleLikeFunc != nil {
		return m.ToggleLikeFunc(ctx, messageID, identityID)
	}
	return false, 0, models.ErrNotFound
}

func (m *MockMessageRepository) Report(ctx context.Context, messageID, identityID, reason string) (int, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, messageID, identityID, reason)
	}
	return 0, models.ErrNotFound
}

func (m *MockMessageRepository) Stats(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, visibilityCutoff, dayStart)
	}
	return &models.MessageStats{}, nil
}
