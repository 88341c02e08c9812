package handlers

import (
	"context"

	"github.com/openveil/veilforum/internal/models"
	"github.com/openveil/veilforum/internal/services"
)

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	RegisterFunc func(ctx context.Context, regNo, password, ipAddress string) (*services.RegisterResponse, error)
	LoginFunc    func(ctx context.Context, regNo, password, ipAddress string) (*services.LoginResponse, error)
	LogoutFunc   func(ctx context.Context, sessionToken string) error
}

func (m *MockAccountService) Register(ctx context.Context, regNo, password, ipAddress string) (*services.RegisterResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, regNo, password, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) Login(ctx context.Context, regNo, password, ipAddress string) (*services.LoginResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, regNo, password, ipAddress)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAccountService) Logout(ctx context.Context, sessionToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionToken)
	}
	return nil
}

func (m *MockAccountService) SessionTTLSeconds() int {
	return 3600
}

// MockMessageService implements MessageServiceInterface for testing
type MockMessageService struct {
	PostFunc       func(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error)
	ListFunc       func(ctx context.Context) ([]*services.MessageResponse, error)
	ListMineFunc   func(ctx context.Context, identityID string) ([]*services.MessageResponse, error)
	QuotaFunc      func(ctx context.Context, identityID string) (*services.QuotaResponse, error)
	ToggleLikeFunc func(ctx context.Context, messageID, identityID string) (*services.LikeResponse, error)
	ReportFunc     func(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error)
}

func (m *MockMessageService) Post(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, principal, content)
	}
	return nil, models.ErrInternalServer
}

func (m *MockMessageService) List(ctx context.Context) ([]*services.MessageResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*services.MessageResponse{}, nil
}

func (m *MockMessageService) ListMine(ctx context.Context, identityID string) ([]*services.MessageResponse, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx, identityID)
	}
	return []*services.MessageResponse{}, nil
}

func (m *MockMessageService) Quota(ctx context.Context, identityID string) (*services.QuotaResponse, error) {
	if m.QuotaFunc != nil {
		return m.QuotaFunc(ctx, identityID)
	}
	return &services.QuotaResponse{}, nil
}

func (m *MockMessageService) ToggleLike(ctx context.Context, messageID, identityID string) (*services.LikeResponse, error) {
	if m.ToggleLikeFunc != nil {
		return m.ToggleLikeFunc(ctx, messageID, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockMessageService) Report(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, messageID, identityID, reason)
	}
	return nil, models.ErrNotFound
}

// MockStatsService implements StatsServiceInterface for testing
type MockStatsService struct {
	StatsFunc func(ctx context.Context) (*services.StatsResponse, error)
}

func (m *MockStatsService) Stats(ctx context.Context) (*services.StatsResponse, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &services.StatsResponse{}, nil
}
