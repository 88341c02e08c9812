package logger

import (
	"strings"
)

// SanitizedRegNo masks a registration number for logging, keeping only the
// last two digits (e.g. "***********42"). The raw number never reaches logs.
func SanitizedRegNo(regNo string) string {
	if len(regNo) < 4 {
		return "[invalid-regno]"
	}
	return strings.Repeat("*", len(regNo)-2) + regNo[len(regNo)-2:]
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"token",
		"reg_no",
		"regno",
		"secret",
		"session",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param+"=") {
			return true
		}
	}
	return false
}
