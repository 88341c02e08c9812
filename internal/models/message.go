package models

import "time"

// Message is one encrypted forum post. CipherText is the only stored form
// of the body; DisplayHandle is a snapshot of the poster's anonymous handle
// at post time.
type Message struct {
	ID            string
	IdentityID    string
	CipherText    string
	DisplayHandle string
	PostedAt      time.Time
	Active        bool
	LikeCount     int
	ReportCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Report is one entry in a message's append-only report log. The
// (message, reporter) pair is unique: reports are monotonic, there is no
// un-report.
type Report struct {
	MessageID  string
	IdentityID string
	Reason     string
	ReportedAt time.Time
}

// MessageStats aggregates sweep and stats-endpoint counters.
type MessageStats struct {
	Total  int
	Active int
	Today  int
}
