package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/logging"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
	"github.com/dmitrijs2005/diagnexus/internal/server/storage"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var (
	admin   = &models.Account{ID: 1, Role: models.RoleAdmin, Name: "Alice Johnson", Email: "alice@example.com", IsActive: true}
	doctor  = &models.Account{ID: 2, Role: models.RoleDoctor, Name: "Dr. Smith", Email: "smith@hospital.com", IsActive: true}
	patient = &models.Account{ID: 3, Role: models.RolePatient, Name: "John Doe", Email: "john.doe@example.com", IsActive: true}
)

// fakeAuth maps tokens "admin", "doctor" and "patient" to the accounts above.
type fakeAuth struct {
	loginErr error
	warnings []common.Warning
}

func (f *fakeAuth) Authenticate(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		Account:   admin,
		Token:     "signed.jwt.token",
		ExpiresAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Warnings:  f.warnings,
	}, nil
}

func (f *fakeAuth) ResolveToken(ctx context.Context, token string) (*models.Account, error) {
	switch token {
	case "admin":
		return admin, nil
	case "doctor":
		return doctor, nil
	case "patient":
		return patient, nil
	case "down":
		return nil, common.ErrorServiceUnavailable
	default:
		return nil, common.ErrorUnauthorized
	}
}

type fakeAccounts struct {
	err       error
	created   services.CreateAccountInput
	updated   services.UpdateAccountInput
	updatedID int64
	deletedID int64
}

func (f *fakeAccounts) List(ctx context.Context, actor *models.Account) ([]models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Account{*patient, *doctor, *admin}, nil
}

func (f *fakeAccounts) Create(ctx context.Context, actor *models.Account, in services.CreateAccountInput) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = in
	by := actor.ID
	return &models.Account{ID: 10, Role: in.Role, Name: in.Name, Email: in.Email, IsActive: true, UpdatedBy: &by}, nil
}

func (f *fakeAccounts) Update(ctx context.Context, actor *models.Account, id int64, in services.UpdateAccountInput) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated, f.updatedID = in, id
	a := *patient
	a.ID = id
	if in.Name != nil {
		a.Name = *in.Name
	}
	return &a, nil
}

func (f *fakeAccounts) SoftDelete(ctx context.Context, actor *models.Account, id int64) error {
	f.deletedID = id
	return f.err
}

type fakeReports struct {
	maxSize   int64
	err       error
	uploaded  *services.UploadInput
	replayed  bool
	listOwner *int64
	warnings  []common.Warning
	deletedID int64
}

func (f *fakeReports) MaxSize() int64 { return f.maxSize }

func (f *fakeReports) Upload(ctx context.Context, actor *models.Account, in services.UploadInput) (*services.UploadResult, error) {
	if f.err != nil {
		return &services.UploadResult{Warnings: f.warnings}, f.err
	}
	f.uploaded = &in
	owner := in.OwnerID
	if owner == 0 {
		owner = actor.ID
	}
	return &services.UploadResult{
		Report: &models.Report{
			ID: 7, OwnerID: owner, Name: in.Name, StorageKey: "medical-reports/user_3/1_scan.pdf",
			Size: int64(len(in.Body)), ContentType: in.ContentType, Comment: in.Comment,
			UpdatedBy: actor.ID, IsActive: true,
		},
		Replayed: f.replayed,
		Warnings: f.warnings,
	}, nil
}

func (f *fakeReports) Download(ctx context.Context, actor *models.Account, id int64) (*services.DownloadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.DownloadResult{
		Report:      &models.Report{ID: id, Name: "Blood test", ContentType: "application/pdf"},
		Body:        []byte("%PDF-1.4"),
		ContentType: "application/pdf",
		FileName:    "Blood_test.pdf",
		Warnings:    f.warnings,
	}, nil
}

func (f *fakeReports) List(ctx context.Context, actor *models.Account, ownerID *int64) ([]models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listOwner = ownerID
	return []models.Report{
		{ID: 2, OwnerID: 3, Name: "X-ray", ContentType: "image/png", Size: 10, IsActive: true, OwnerName: "John Doe", UpdatedByName: "Dr. Smith"},
		{ID: 1, OwnerID: 3, Name: "Blood", ContentType: "application/pdf", Size: 5, Comment: "fasting", IsActive: true},
	}, nil
}

func (f *fakeReports) Delete(ctx context.Context, actor *models.Account, id int64) error {
	f.deletedID = id
	return f.err
}

func (f *fakeReports) PresignDownload(ctx context.Context, actor *models.Account, id int64) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "https://s3.local/key?sig=1", time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC), nil
}

type fakeObjects struct {
	items  []storage.ObjectInfo
	prefix string
	err    error
}

func (f *fakeObjects) Bucket() string { return "test-bucket" }

func (f *fakeObjects) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.prefix = prefix
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}
