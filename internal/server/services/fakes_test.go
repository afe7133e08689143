package services

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/cryptox"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/reports"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/diagnexus/internal/server/storage"
	"golang.org/x/crypto/bcrypt"
)

var errDBDown = errors.New("db down")

type fakeAccounts struct {
	mu     sync.Mutex
	rows   map[int64]*models.Account
	nextID int64
	err    error
}

func (f *fakeAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.Email == a.Email {
			return nil, common.ErrorConflict
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now()
	cp := *a
	f.rows[a.ID] = &cp
	return a, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) List(ctx context.Context) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Account
	for _, r := range f.rows {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeAccounts) Update(ctx context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[a.ID]; !ok {
		return common.ErrorNotFound
	}
	for _, r := range f.rows {
		if r.Email == a.Email && r.ID != a.ID {
			return common.ErrorConflict
		}
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) SoftDelete(ctx context.Context, id, updatedBy int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	r, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.IsActive = false
	r.UpdatedBy = &updatedBy
	return nil
}

func (f *fakeAccounts) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.rows)), nil
}

type fakeReports struct {
	mu        sync.Mutex
	rows      map[int64]*models.Report
	nextID    int64
	createErr error
	err       error
	lastList  reports.ListFilter
}

func (f *fakeReports) Create(ctx context.Context, r *models.Report) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	r.ID = f.nextID
	r.IsActive = true
	cp := *r
	f.rows[r.ID] = &cp
	return r, nil
}

func (f *fakeReports) GetActive(ctx context.Context, id int64) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[id]
	if !ok || !r.IsActive {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReports) List(ctx context.Context, filter reports.ListFilter) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Report{}
	for _, r := range f.rows {
		if r.IsActive && (filter.OwnerID == nil || *filter.OwnerID == r.OwnerID) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeReports) SoftDelete(ctx context.Context, id, updatedBy int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || !r.IsActive {
		return common.ErrorNotFound
	}
	r.IsActive = false
	r.UpdatedBy = updatedBy
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	rows []models.SessionLog
	err  error
}

func (f *fakeSessions) Create(ctx context.Context, s *models.SessionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *s)
	return nil
}

type fakeManager struct {
	accounts *fakeAccounts
	reports  *fakeReports
	sessions *fakeSessions
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		accounts: &fakeAccounts{rows: map[int64]*models.Account{}},
		reports:  &fakeReports{rows: map[int64]*models.Report{}},
		sessions: &fakeSessions{},
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Accounts(dbx.DBTX) accounts.Repository        { return m.accounts }
func (m *fakeManager) Reports(dbx.DBTX) reports.Repository          { return m.reports }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }

// addAccount stores an account with a MinCost hash of password.
func (m *fakeManager) addAccount(role models.Role, name, email, password string, active bool) *models.Account {
	hash, err := cryptox.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	a, err := m.accounts.Create(context.Background(), &models.Account{
		Role: role, Name: name, Email: email, PasswordHash: hash, IsActive: active,
	})
	if err != nil {
		panic(err)
	}
	return a
}

type fakeObjectStore struct {
	mu        sync.Mutex
	objects   map[string]storage.Object
	puts      int
	putErr    error
	getErr    error
	deleteErr error
	existsErr error
	deleted   []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]storage.Object{}}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = storage.Object{Body: slices.Clone(body), ContentType: contentType}
	return nil
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &o, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.local/" + strings.TrimPrefix(key, "/") + "?ttl=" + ttl.String(), nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.PasswordHashCost = bcrypt.MinCost
	return cfg
}
