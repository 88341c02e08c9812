package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/models"
	"github.com/openveil/veilforum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageRouter(service *MockMessageService) *chi.Mux {
	handler := NewMessageHandler(service)

	r := chi.NewRouter()
	r.Get("/messages", handler.List)
	r.Post("/messages", handler.Create)
	r.Get("/messages/mine", handler.ListMine)
	r.Get("/messages/quota", handler.Quota)
	r.Post("/messages/{id}/like", handler.Like)
	r.Post("/messages/{id}/report", handler.Report)
	return r
}

func authedRequest(method, path string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}

	principal := &models.Principal{IdentityID: "identity-1", AnonymousHandle: "SilentOwl1a2b"}
	return req.WithContext(context.WithValue(req.Context(), auth.PrincipalContextKey, principal))
}

func TestMessageHandler_Create(t *testing.T) {
	service := &MockMessageService{
		PostFunc: func(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error) {
			assert.Equal(t, "identity-1", principal.IdentityID)
			return &services.MessageResponse{ID: "message-1", Content: content, AnonymousHandle: principal.AnonymousHandle}, nil
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages", `{"content":"hello"}`))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp services.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "message-1", resp.ID)
	assert.Equal(t, "hello", resp.Content)
}

func TestMessageHandler_Create_Unauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"content":"hello"}`))
	messageRouter(&MockMessageService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMessageHandler_Create_RateLimited(t *testing.T) {
	service := &MockMessageService{
		PostFunc: func(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error) {
			return nil, &models.RateLimitError{RetryAfterSeconds: 60}
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages", `{"content":"hello"}`))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"retry_after":60`)
}

func TestMessageHandler_Create_InvalidContent(t *testing.T) {
	service := &MockMessageService{
		PostFunc: func(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error) {
			return nil, models.ErrContentInvalid
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages", `{"content":"<script>x</script>"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_Create_OverlongContentRejectedByValidation(t *testing.T) {
	body, err := json.Marshal(CreateMessageRequest{Content: strings.Repeat("a", 1001)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	messageRouter(&MockMessageService{}).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages", string(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_List(t *testing.T) {
	service := &MockMessageService{
		ListFunc: func(ctx context.Context) ([]*services.MessageResponse, error) {
			return []*services.MessageResponse{
				{ID: "m1", Content: "first", AnonymousHandle: "SilentOwl1a2b"},
				{ID: "m2", Content: "second", AnonymousHandle: "BraveFox3c4d"},
			}, nil
		},
	}

	// The feed is public: no principal on the request.
	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp MessageListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "m1", resp.Messages[0].ID)
}

func TestMessageHandler_Quota(t *testing.T) {
	service := &MockMessageService{
		QuotaFunc: func(ctx context.Context, identityID string) (*services.QuotaResponse, error) {
			return &services.QuotaResponse{Used: 2, Remaining: 3, WindowSeconds: 60}, nil
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodGet, "/messages/quota", ""))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.QuotaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Remaining)
}

func TestMessageHandler_Like(t *testing.T) {
	service := &MockMessageService{
		ToggleLikeFunc: func(ctx context.Context, messageID, identityID string) (*services.LikeResponse, error) {
			assert.Equal(t, "message-1", messageID)
			return &services.LikeResponse{Liked: true, LikeCount: 5}, nil
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages/message-1/like", ""))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.LikeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Liked)
	assert.Equal(t, 5, resp.LikeCount)
}

func TestMessageHandler_Like_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	messageRouter(&MockMessageService{}).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages/missing/like", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageHandler_Report(t *testing.T) {
	service := &MockMessageService{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error) {
			assert.Equal(t, "spam", reason)
			return &services.ReportResponse{ReportCount: 1}, nil
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages/message-1/report", `{"reason":"spam"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMessageHandler_Report_EmptyBodyAllowed(t *testing.T) {
	service := &MockMessageService{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error) {
			assert.Empty(t, reason)
			return &services.ReportResponse{ReportCount: 1}, nil
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages/message-1/report", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMessageHandler_Report_Repeated(t *testing.T) {
	service := &MockMessageService{
		ReportFunc: func(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error) {
			return nil, models.ErrAlreadyReported
		},
	}

	rec := httptest.NewRecorder()
	messageRouter(service).ServeHTTP(rec, authedRequest(http.MethodPost, "/messages/message-1/report", `{"reason":"spam"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
