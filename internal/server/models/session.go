package models

import "time"

// SessionLog is an append-only row of the sessions table. TokenHash holds
// the token fingerprint for logins, or an activity tag such as
// "download_report_42".
type SessionLog struct {
	ID        string
	AccountID int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
