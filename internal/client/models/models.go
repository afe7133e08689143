// Package models defines the API payloads the DiagNexus CLI exchanges with
// the server.
package models

import "time"

// Roles known to the server.
const (
	RoleAdmin   = "Admin"
	RoleDoctor  = "Doctor"
	RolePatient = "Patient"
)

// Account is a user as returned by the login and user endpoints.
type Account struct {
	UserID      int64      `json:"UserId"`
	Role        string     `json:"Role"`
	Name        string     `json:"Name"`
	Mail        string     `json:"Mail"`
	UpdatedBy   *int64     `json:"UpdatedBy"`
	UpdatedDate *time.Time `json:"UpdatedDate"`
	IsActive    bool       `json:"IsActive"`
	CreatedAt   time.Time  `json:"CreatedAt"`
}

// IsStaff reports whether the account may act on other patients' reports.
func (a *Account) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleDoctor
}

// Session is the result of a successful login.
type Session struct {
	Account
	Token     string    `json:"Token"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

// Report is report metadata.
type Report struct {
	ReportID      int64     `json:"ReportId"`
	UserID        int64     `json:"UserId"`
	Name          string    `json:"Name"`
	Path          string    `json:"Path"`
	FileSize      int64     `json:"FileSize"`
	FileType      string    `json:"FileType"`
	Comments      *string   `json:"Comments"`
	UpdatedBy     int64     `json:"UpdatedBy"`
	UpdatedDate   time.Time `json:"UpdatedDate"`
	IsActive      bool      `json:"IsActive"`
	PatientName   string    `json:"PatientName"`
	UpdatedByName string    `json:"UpdatedByName"`
	CreatedAt     time.Time `json:"CreatedAt"`
}

// Link is a temporary direct download URL.
type Link struct {
	URL       string    `json:"Url"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

// StoredObject is one raw object in the report bucket.
type StoredObject struct {
	Key          string    `json:"Key"`
	Size         int64     `json:"Size"`
	LastModified time.Time `json:"LastModified"`
}

// ObjectListing is the admin view of the report bucket.
type ObjectListing struct {
	Bucket  string         `json:"bucket"`
	Prefix  string         `json:"prefix"`
	Count   int            `json:"count"`
	Objects []StoredObject `json:"objects"`
}

// Download is a fetched report file.
type Download struct {
	ReportID    int64
	FileName    string
	ContentType string
	Body        []byte
}

// NewUser is the body of a create-user request.
type NewUser struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is a partial update; nil fields are not sent.
type UserUpdate struct {
	Role     *string `json:"role,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// HistoryItem is one locally recorded download.
type HistoryItem struct {
	ID           int64
	ReportID     int64
	Name         string
	LocalPath    string
	Size         int64
	DownloadedAt time.Time
}
