package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event. MaskedRegNo must already be
// masked with SanitizedRegNo; the raw number never reaches logs.
type AuditEvent struct {
	EventType     string
	IdentityID    string
	IPAddress     string
	MaskedRegNo   string
	Success       bool
	FailureReason string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs registration and login attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.IdentityID != "" {
		attrs = append(attrs, slog.String("identity_id", event.IdentityID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.MaskedRegNo != "" {
		attrs = append(attrs, slog.String("reg_no_masked", event.MaskedRegNo))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogModeration logs like/report activity against a message
func (al *AuditLogger) LogModeration(eventType, messageID, identityID string) {
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("audit_type", "moderation"),
		slog.String("event_type", eventType),
		slog.String("message_id", messageID),
		slog.String("identity_id", identityID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
