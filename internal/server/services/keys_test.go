package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStorageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		fileName string
		ct       string
		want     string
	}{
		{"plain", "blood.pdf", "application/pdf", "medical-reports/user_3/1700000000123_blood.pdf"},
		{"unsafe chars", "x ray (1).png", "image/png", "medical-reports/user_3/1700000000123_x_ray__1_.png"},
		{"no extension", "scan", "image/jpeg", "medical-reports/user_3/1700000000123_scan.jpg"},
		{"path stripped", "../../etc/passwd.pdf", "application/pdf", "medical-reports/user_3/1700000000123_passwd.pdf"},
		{"only extension", ".pdf", "application/pdf", "medical-reports/user_3/1700000000123_report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StorageKey(3, tt.fileName, tt.ct, now, ""))
		})
	}
}

func TestStorageKey_Nonce(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "medical-reports/user_3/1700000000123_0f1e2d3c_blood.pdf",
		StorageKey(3, "blood.pdf", "application/pdf", now, "0f1e2d3c"))
	assert.NotEqual(t,
		StorageKey(3, "blood.pdf", "application/pdf", now, "aaaa0000"),
		StorageKey(3, "blood.pdf", "application/pdf", now, "bbbb1111"))
}

func TestDownloadFileName(t *testing.T) {
	assert.Equal(t, "Blood_test_2024.pdf", DownloadFileName("Blood test 2024", "application/pdf"))
	assert.Equal(t, "x.jpg", DownloadFileName("x", "image/jpg"))
	assert.Equal(t, "x.png", DownloadFileName("x", "image/png"))
	assert.Equal(t, "x.file", DownloadFileName("x", "text/plain"))
}

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", NormalizeContentType("Application/PDF; charset=binary"))
	assert.Equal(t, "image/png", NormalizeContentType(" image/png "))
}
