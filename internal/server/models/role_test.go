package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"Admin", RoleAdmin, true},
		{"doctor", RoleDoctor, true},
		{"PATIENT", RolePatient, true},
		{"nurse", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRole_ValidAndStaff(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("Janitor").Valid())

	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleDoctor.IsStaff())
	assert.False(t, RolePatient.IsStaff())
}
