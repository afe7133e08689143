// Package common contains shared constants and sentinel errors used across
// the DiagNexus server and client.
package common

// AuthTokenHeaderName is the response header carrying a freshly minted
// bearer token after a successful login.
const AuthTokenHeaderName = "X-Auth-Token"

// IdempotencyKeyHeaderName lets clients retry uploads without creating
// duplicate reports.
const IdempotencyKeyHeaderName = "Idempotency-Key"

// MaxReportSize is the largest report payload accepted for upload (10 MiB).
const MaxReportSize int64 = 10 * 1024 * 1024
