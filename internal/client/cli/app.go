package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/client/api"
	"github.com/dmitrijs2005/diagnexus/internal/client/config"
	"github.com/dmitrijs2005/diagnexus/internal/client/history"
	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/dmitrijs2005/diagnexus/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// apiClient is the subset of *api.Client the commands use.
type apiClient interface {
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	Logout()
	Health(ctx context.Context) error
	ListReports(ctx context.Context, ownerID int64) ([]models.Report, error)
	UploadReport(ctx context.Context, in api.UploadRequest) (*models.Report, error)
	DownloadReport(ctx context.Context, id int64) (*models.Download, error)
	ReportLink(ctx context.Context, id int64) (*models.Link, error)
	DeleteReport(ctx context.Context, id int64) error
	ListObjects(ctx context.Context, prefix string) (*models.ObjectListing, error)
	ListUsers(ctx context.Context) ([]models.Account, error)
	CreateUser(ctx context.Context, u models.NewUser) (*models.Account, error)
	UpdateUser(ctx context.Context, id int64, u models.UserUpdate) (*models.Account, error)
	DeleteUser(ctx context.Context, id int64) error
}

type App struct {
	config  *config.Config
	api     apiClient
	history history.Repository
	db      *sql.DB
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	mu      sync.RWMutex
	session *models.Session
	mode    Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := history.InitDatabase(ctx, c.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("init history database: %w", err)
	}

	return &App{
		config:  c,
		api:     api.NewClient(c.ServerURL, c.RequestTimeout),
		history: history.NewSQLiteRepository(db),
		db:      db,
		logger:  logging.New(logging.BackendZerolog, c.LogLevel, os.Stderr),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "connectivity changed", "mode", string(mode))
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) getMode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
}

func (a *App) currentSession() *models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

func (a *App) isLoggedIn() bool {
	return a.currentSession() != nil
}

func (a *App) role() string {
	if s := a.currentSession(); s != nil {
		return s.Role
	}
	return ""
}

// getStatus renders the prompt suffix, e.g. "(jane@x.io Doctor online)".
func (a *App) getStatus() string {
	s := ""
	if sess := a.currentSession(); sess != nil {
		s = sess.Mail + " " + sess.Role + " "
	}
	if m := a.getMode(); m != "" {
		s += string(m)
	}
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

// Run logs in, starts the connectivity watcher and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	fmt.Fprintln(a.out, "Welcome to DiagNexus CLI (type 'help' for commands)")

	if err := a.Login(ctx); err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartOnlineStatusWatcher polls the health endpoint until ctx is done and
// flips between online and offline mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Health(pctx)
	cancel()

	if err != nil {
		a.logger.Debug(ctx, "health check failed", "error", err)
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}
