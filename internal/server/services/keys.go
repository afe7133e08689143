package services

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// StorageKeyPrefix is the top-level folder holding every report object.
const StorageKeyPrefix = "medical-reports"

// AllowedContentTypes are the MIME types accepted for reports.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeFileName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// NormalizeContentType lowercases a MIME type and drops its parameters.
func NormalizeContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// ExtensionFor maps a report MIME type to a file extension.
func ExtensionFor(contentType string) string {
	switch NormalizeContentType(contentType) {
	case "application/pdf":
		return "pdf"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	default:
		return "file"
	}
}

// StorageKey builds medical-reports/user_<owner>/<unix-millis>_<nonce>_<base>.<ext>
// from the uploaded file name. The nonce keeps keys apart when the same owner
// uploads the same file name within one millisecond; an empty nonce drops
// that segment. Without an extension in the name, one is derived from the
// content type.
func StorageKey(ownerID int64, fileName, contentType string, now time.Time, nonce string) string {
	sanitized := SanitizeFileName(filepath.Base(fileName))
	ext := strings.TrimPrefix(filepath.Ext(sanitized), ".")
	base := strings.TrimSuffix(sanitized, filepath.Ext(sanitized))
	if ext == "" {
		ext = ExtensionFor(contentType)
	}
	if base == "" || base == "_" {
		base = "report"
	}
	if nonce != "" {
		base = SanitizeFileName(nonce) + "_" + base
	}
	return fmt.Sprintf("%s/user_%d/%d_%s.%s", StorageKeyPrefix, ownerID, now.UnixMilli(), base, ext)
}

// DownloadFileName is the attachment name offered for a report.
func DownloadFileName(displayName, contentType string) string {
	return SanitizeFileName(displayName) + "." + ExtensionFor(contentType)
}
