// Package services contains server-side business logic: authentication,
// account administration and report management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/cryptox"
	"github.com/dmitrijs2005/diagnexus/internal/server/auth"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/repomanager"
)

// LoginResult is returned by a successful Authenticate.
type LoginResult struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
	Warnings  []common.Warning
}

// AuthService verifies credentials and session tokens.
type AuthService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	jwtSecret        []byte
	validityDuration time.Duration
	hashCost         int
	now              func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:               db,
		repomanager:      m,
		jwtSecret:        []byte(cfg.SecretKey),
		validityDuration: cfg.TokenValidityDuration,
		hashCost:         cfg.PasswordHashCost,
		now:              time.Now,
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks email and password and mints a session token.
// Recording the session row is best-effort; its failure shows up in
// LoginResult.Warnings.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnHash(password)
			return nil, common.ErrorInvalidCredentials
		}
		return nil, classify("find account", err)
	}

	ok, err := cryptox.CheckPassword(account.PasswordHash, password)
	if err != nil || !ok {
		return nil, common.ErrorInvalidCredentials
	}

	if !account.IsActive {
		return nil, common.ErrorAccountInactive
	}

	token, expiresAt, err := auth.GenerateToken(account, s.jwtSecret, s.validityDuration, s.now())
	if err != nil {
		return nil, classify("sign token", err)
	}

	res := &LoginResult{Account: account, Token: token, ExpiresAt: expiresAt}

	if err := s.repomanager.Sessions(s.db).Create(ctx, &models.SessionLog{
		AccountID: account.ID,
		TokenHash: cryptox.Fingerprint(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		res.Warnings = append(res.Warnings, common.Warning{Op: "record session", Err: err})
	}

	return res, nil
}

// ResolveToken returns the active account a token was minted for.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, errors.Join(common.ErrorUnauthorized, err)
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, classify("find account", err)
	}

	if !account.IsActive {
		return nil, common.ErrorUnauthorized
	}

	return account, nil
}

// burnHash spends roughly one bcrypt comparison so unknown emails take as
// long as wrong passwords.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword(string(common.GenerateRandByteArray(16)), s.hashCost)
	})
	if s.dummyHash != "" {
		_, _ = cryptox.CheckPassword(s.dummyHash, password)
	}
}
