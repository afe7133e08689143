// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a row of the users table.
type Account struct {
	ID           int64
	Role         Role
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	// UpdatedBy is nil for seeded accounts.
	UpdatedBy *int64
	UpdatedAt time.Time
	CreatedAt time.Time
}
