package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogAuthAttempt_MasksRegNo(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(AuditEvent{
		EventType:     "register_failed",
		IPAddress:     "10.0.0.1",
		MaskedRegNo:   SanitizedRegNo("2411033010099"),
		Success:       false,
		FailureReason: "not_eligible",
	})

	out := buf.String()
	assert.Contains(t, out, `"reg_no_masked":"***********99"`)
	assert.NotContains(t, out, "2411033010099")
}

func TestLogAuthAttempt_OmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(AuditEvent{EventType: "login_success", Success: true})

	out := buf.String()
	assert.Contains(t, out, `"event_type":"login_success"`)
	assert.NotContains(t, out, "reg_no_masked")
	assert.NotContains(t, out, "ip_address")
}
