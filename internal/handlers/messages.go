package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/models"
	"github.com/openveil/veilforum/internal/services"
	pkghttp "github.com/openveil/veilforum/pkg/http"
)

// MessageServiceInterface defines the interface for message business logic
type MessageServiceInterface interface {
	Post(ctx context.Context, principal *models.Principal, content string) (*services.MessageResponse, error)
	List(ctx context.Context) ([]*services.MessageResponse, error)
	ListMine(ctx context.Context, identityID string) ([]*services.MessageResponse, error)
	Quota(ctx context.Context, identityID string) (*services.QuotaResponse, error)
	ToggleLike(ctx context.Context, messageID, identityID string) (*services.LikeResponse, error)
	Report(ctx context.Context, messageID, identityID, reason string) (*services.ReportResponse, error)
}

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// CreateMessageRequest represents the request body for posting a message
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// ReportMessageRequest represents the request body for reporting a message
type ReportMessageRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// MessageListResponse wraps a message feed
type MessageListResponse struct {
	Messages []*services.MessageResponse `json:"messages"`
	Count    int                         `json:"count"`
}

// Create handles posting a new message
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Post(r.Context(), principal, req.Content)
	if err != nil {
		var rateErr *models.RateLimitError
		switch {
		case errors.Is(err, models.ErrContentInvalid):
			pkghttp.WriteBadRequest(w, "Message content is not allowed")
		case errors.As(err, &rateErr):
			pkghttp.WriteTooManyRequests(w, "Posting limit reached. Please wait before posting again.", rateErr.RetryAfterSeconds)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// List handles reading the visible feed
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.List(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeMessageList(w, messages)
}

// ListMine handles reading the caller's own visible messages
func (h *MessageHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	messages, err := h.service.ListMine(r.Context(), principal.IdentityID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeMessageList(w, messages)
}

// Quota reports the caller's remaining posting allowance
func (h *MessageHandler) Quota(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.Quota(r.Context(), principal.IdentityID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Like toggles the caller's like on a message
func (h *MessageHandler) Like(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	messageID := chi.URLParam(r, "id")

	resp, err := h.service.ToggleLike(r.Context(), messageID, principal.IdentityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Message not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Report files the caller's report against a message. The body is optional;
// a missing or empty body files a report without a reason.
func (h *MessageHandler) Report(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ReportMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	messageID := chi.URLParam(r, "id")

	resp, err := h.service.Report(r.Context(), messageID, principal.IdentityID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Message not found")
		case errors.Is(err, models.ErrAlreadyReported):
			pkghttp.WriteConflict(w, "Message already reported")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid report")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func writeMessageList(w http.ResponseWriter, messages []*services.MessageResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(MessageListResponse{
		Messages: messages,
		Count:    len(messages),
	})
}
