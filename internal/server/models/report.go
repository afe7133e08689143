package models

import "time"

// Report is a row of the reports table. The file bytes live in object
// storage under StorageKey.
type Report struct {
	ID          int64
	OwnerID     int64
	Name        string
	StorageKey  string
	Size        int64
	ContentType string
	Comment     string
	UpdatedBy   int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Filled by list/get queries joining users.
	OwnerName     string
	UpdatedByName string
}
