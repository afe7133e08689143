// Package rest exposes the report and account services over a JSON HTTP API.
package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/logging"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
	"github.com/dmitrijs2005/diagnexus/internal/server/storage"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*services.LoginResult, error)
	ResolveToken(ctx context.Context, token string) (*models.Account, error)
}

type AccountManager interface {
	List(ctx context.Context, actor *models.Account) ([]models.Account, error)
	Create(ctx context.Context, actor *models.Account, in services.CreateAccountInput) (*models.Account, error)
	Update(ctx context.Context, actor *models.Account, id int64, in services.UpdateAccountInput) (*models.Account, error)
	SoftDelete(ctx context.Context, actor *models.Account, id int64) error
}

type ReportManager interface {
	Upload(ctx context.Context, actor *models.Account, in services.UploadInput) (*services.UploadResult, error)
	Download(ctx context.Context, actor *models.Account, id int64) (*services.DownloadResult, error)
	List(ctx context.Context, actor *models.Account, ownerID *int64) ([]models.Report, error)
	Delete(ctx context.Context, actor *models.Account, id int64) error
	PresignDownload(ctx context.Context, actor *models.Account, id int64) (string, time.Time, error)
	MaxSize() int64
}

// ObjectLister exposes the raw object store for the admin storage view.
type ObjectLister interface {
	Bucket() string
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Probe checks that a dependency is reachable.
type Probe func(ctx context.Context) error

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	auth     Authenticator
	accounts AccountManager
	reports  ReportManager
	objects  ObjectLister
	dbProbe  Probe
	s3Probe  Probe
	logger   logging.Logger
	version  string
	now      func() time.Time
}

type Deps struct {
	Auth          Authenticator
	Accounts      AccountManager
	Reports       ReportManager
	Objects       ObjectLister
	DatabaseProbe Probe
	StorageProbe  Probe
	Logger        logging.Logger
	Version       string
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		auth:     d.Auth,
		accounts: d.Accounts,
		reports:  d.Reports,
		objects:  d.Objects,
		dbProbe:  d.DatabaseProbe,
		s3Probe:  d.StorageProbe,
		logger:   d.Logger.With("module", "rest"),
		version:  d.Version,
		now:      time.Now,
	}
}
