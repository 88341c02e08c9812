package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/crypto"
	"github.com/openveil/veilforum/internal/models"
	pkglogger "github.com/openveil/veilforum/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testForumConfig() config.ForumConfig {
	return config.ForumConfig{
		EncryptionKey:      []byte("0123456789abcdef0123456789abcdef"),
		PostWindow:         time.Minute,
		PostMaxPerWindow:   5,
		MaxContentLen:      1000,
		FeedLimit:          100,
		VisibilityWindow:   24 * time.Hour,
		ActiveMemberWindow: time.Hour,
	}
}

func newMessageService(t *testing.T, messages *MockMessageRepository) *MessageService {
	t.Helper()

	cfg := testForumConfig()
	cipher, err := crypto.NewMessageCipher(cfg.EncryptionKey)
	require.NoError(t, err)

	logger := testLogger()
	return NewMessageService(messages, cipher, logger, pkglogger.NewAuditLogger(logger), cfg)
}

func testPrincipal() *models.Principal {
	return &models.Principal{IdentityID: "identity-1", AnonymousHandle: "SilentOwl1a2b"}
}

func TestMessageService_Post(t *testing.T) {
	var stored *models.Message
	messages := &MockMessageRepository{
		CreateFunc: func(ctx context.Context, message *models.Message) (*models.Message, error) {
			message.ID = "message-1"
			stored = message
			return message, nil
		},
	}

	svc := newMessageService(t, messages)

	resp, err := svc.Post(context.Background(), testPrincipal(), "  hello forum  ")
	require.NoError(t, err)

	assert.Equal(t, "message-1", resp.ID)
	assert.Equal(t, "hello forum", resp.Content)
	assert.Equal(t, "SilentOwl1a2b", resp.AnonymousHandle)

	require.NotNil(t, stored)
	assert.NotEqual(t, "hello forum", stored.CipherText)
	assert.NotContains(t, stored.CipherText, "hello")
}

func TestMessageService_Post_OverQuota(t *testing.T) {
	messages := &MockMessageRepository{
		CountByIdentitySinceFunc: func(ctx context.Context, identityID string, since time.Time) (int, error) {
			return 5, nil
		},
	}

	svc := newMessageService(t, messages)

	_, err := svc.Post(context.Background(), testPrincipal(), "hello")
	var rateErr *models.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 60, rateErr.RetryAfterSeconds)
}

func TestMessageService_Post_InvalidContent(t *testing.T) {
	svc := newMessageService(t, &MockMessageRepository{})

	cases := map[string]string{
		"blank":      "   ",
		"too long":   strings.Repeat("a", 1001),
		"script":     "hello <script>alert(1)</script>",
		"iframe":     "<  iframe src=x>",
		"js scheme":  "click javascript:alert(1)",
		"handler":    `<img onerror = "x">`,
	}

	for name, content := range cases {
		_, err := svc.Post(context.Background(), testPrincipal(), content)
		assert.ErrorIs(t, err, models.ErrContentInvalid, name)
	}
}

func TestMessageService_Post_MaxLengthAccepted(t *testing.T) {
	messages := &MockMessageRepository{
		CreateFunc: func(ctx context.Context, message *models.Message) (*models.Message, error) {
			message.ID = "message-1"
			return message, nil
		},
	}

	svc := newMessageService(t, messages)

	content := strings.Repeat("a", 1000)
	resp, err := svc.Post(context.Background(), testPrincipal(), content)
	require.NoError(t, err)
	assert.Equal(t, content, resp.Content)
}

func TestMessageService_Post_MaxLengthCountsRunesNotBytes(t *testing.T) {
	messages := &MockMessageRepository{
		CreateFunc: func(ctx context.Context, message *models.Message) (*models.Message, error) {
			message.ID = "message-1"
			return message, nil
		},
	}

	svc := newMessageService(t, messages)

	// 1000 characters but 2000 bytes; still within the cap.
	content := strings.Repeat("é", 1000)
	resp, err := svc.Post(context.Background(), testPrincipal(), content)
	require.NoError(t, err)
	assert.Equal(t, content, resp.Content)

	_, err = svc.Post(context.Background(), testPrincipal(), strings.Repeat("é", 1001))
	assert.ErrorIs(t, err, models.ErrContentInvalid)
}

func TestMessageService_List_SkipsUndecryptable(t *testing.T) {
	cfg := testForumConfig()
	cipher, err := crypto.NewMessageCipher(cfg.EncryptionKey)
	require.NoError(t, err)

	good, err := cipher.Encrypt("readable")
	require.NoError(t, err)

	messages := &MockMessageRepository{
		ListVisibleFunc: func(ctx context.Context, cutoff time.Time, limit int) ([]*models.Message, error) {
			return []*models.Message{
				{ID: "m1", CipherText: good, DisplayHandle: "SilentOwl1a2b", PostedAt: time.Now()},
				{ID: "m2", CipherText: "not-even-base64!!", DisplayHandle: "BraveFox3c4d", PostedAt: time.Now()},
			}, nil
		},
	}

	svc := newMessageService(t, messages)

	resp, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, "m1", resp[0].ID)
	assert.Equal(t, "readable", resp[0].Content)
}

func TestMessageService_Quota(t *testing.T) {
	messages := &MockMessageRepository{
		CountByIdentitySinceFunc: func(ctx context.Context, identityID string, since time.Time) (int, error) {
			return 3, nil
		},
	}

	svc := newMessageService(t, messages)

	resp, err := svc.Quota(context.Background(), "identity-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Used)
	assert.Equal(t, 2, resp.Remaining)
	assert.Equal(t, 60, resp.WindowSeconds)
}

func TestMessageService_ToggleLike(t *testing.T) {
	messages := &MockMessageRepository{
		ToggleLikeFunc: func(ctx context.Context, messageID, identityID string) (bool, int, error) {
			return true, 4, nil
		},
	}

	svc := newMessageService(t, messages)

	resp, err := svc.ToggleLike(context.Background(), "message-1", "identity-1")
	require.NoError(t, err)
	assert.True(t, resp.Liked)
	assert.Equal(t, 4, resp.LikeCount)
}

func TestMessageService_ToggleLike_NotFound(t *testing.T) {
	svc := newMessageService(t, &MockMessageRepository{})

	_, err := svc.ToggleLike(context.Background(), "missing", "identity-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMessageService_Report(t *testing.T) {
	var reasonSeen string
	messages := &MockMessageRepository{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (int, error) {
			reasonSeen = reason
			return 2, nil
		},
	}

	svc := newMessageService(t, messages)

	resp, err := svc.Report(context.Background(), "message-1", "identity-1", "  spam  ")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ReportCount)
	assert.Equal(t, "spam", reasonSeen)
}

func TestMessageService_Report_DefaultReason(t *testing.T) {
	var reasonSeen string
	messages := &MockMessageRepository{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (int, error) {
			reasonSeen = reason
			return 1, nil
		},
	}

	svc := newMessageService(t, messages)

	_, err := svc.Report(context.Background(), "message-1", "identity-1", "")
	require.NoError(t, err)
	assert.Equal(t, "unspecified", reasonSeen)
}

func TestMessageService_Report_Repeated(t *testing.T) {
	messages := &MockMessageRepository{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (int, error) {
			return 0, models.ErrAlreadyReported
		},
	}

	svc := newMessageService(t, messages)

	_, err := svc.Report(context.Background(), "message-1", "identity-1", "spam")
	assert.ErrorIs(t, err, models.ErrAlreadyReported)
}
