package rest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// accountDTO keeps the field names the web client already consumes.
type accountDTO struct {
	UserID      int64      `json:"UserId"`
	Role        string     `json:"Role"`
	Name        string     `json:"Name"`
	Mail        string     `json:"Mail"`
	UpdatedBy   *int64     `json:"UpdatedBy"`
	UpdatedDate *time.Time `json:"UpdatedDate"`
	IsActive    bool       `json:"IsActive"`
	CreatedAt   time.Time  `json:"CreatedAt"`
}

func toAccountDTO(a *models.Account) accountDTO {
	d := accountDTO{
		UserID:    a.ID,
		Role:      string(a.Role),
		Name:      a.Name,
		Mail:      a.Email,
		UpdatedBy: a.UpdatedBy,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		d.UpdatedDate = &t
	}
	return d
}

type loginDTO struct {
	accountDTO
	Token     string    `json:"Token"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

type reportDTO struct {
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
	PatientName   string    `json:"PatientName,omitempty"`
	UpdatedByName string    `json:"UpdatedByName,omitempty"`
	CreatedAt     time.Time `json:"CreatedAt"`
}

func toReportDTO(r *models.Report) reportDTO {
	d := reportDTO{
		ReportID:      r.ID,
		UserID:        r.OwnerID,
		Name:          r.Name,
		Path:          r.StorageKey,
		FileSize:      r.Size,
		FileType:      r.ContentType,
		UpdatedBy:     r.UpdatedBy,
		UpdatedDate:   r.UpdatedAt,
		IsActive:      r.IsActive,
		PatientName:   r.OwnerName,
		UpdatedByName: r.UpdatedByName,
		CreatedAt:     r.CreatedAt,
	}
	if r.Comment != "" {
		c := r.Comment
		d.Comments = &c
	}
	return d
}

type linkDTO struct {
	URL       string    `json:"Url"`
	ExpiresAt time.Time `json:"ExpiresAt"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Role     string `json:"role" validate:"required,oneof=Admin Doctor Patient"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type updateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,oneof=Admin Doctor Patient"`
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,max=72"`
	IsActive *bool   `json:"is_active"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct validation and flattens the result into one
// readable message.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
