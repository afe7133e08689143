package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/diagnexus/internal/cryptox"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/repomanager"
)

// maxPasswordLen is bcrypt's input limit.
const maxPasswordLen = 72

type CreateAccountInput struct {
	Role     models.Role
	Name     string
	Email    string
	Password string
}

// UpdateAccountInput is a partial update; nil fields are left unchanged.
type UpdateAccountInput struct {
	Name     *string
	Email    *string
	Role     *models.Role
	Password *string
	IsActive *bool
}

// AccountService implements account administration. Every operation except
// SeedDemoData requires an Admin actor.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hashCost    int
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{db: db, repomanager: m, hashCost: cfg.PasswordHashCost}
}

// List returns active accounts, newest first.
func (s *AccountService) List(ctx context.Context, actor *models.Account) ([]models.Account, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Accounts(s.db).List(ctx)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	return list, nil
}

func (s *AccountService) Create(ctx context.Context, actor *models.Account, in CreateAccountInput) (*models.Account, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || in.Role == "" {
		return nil, invalid("role, name, email and password are required")
	}
	if !in.Role.Valid() {
		return nil, invalid("unknown role")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, classify("hash password", err)
	}

	updatedBy := actor.ID
	account, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Role:         in.Role,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		UpdatedBy:    &updatedBy,
	})
	if err != nil {
		return nil, classify("create account", err)
	}
	return account, nil
}

func (s *AccountService) Update(ctx context.Context, actor *models.Account, id int64, in UpdateAccountInput) (*models.Account, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	if in.IsActive != nil && !*in.IsActive && id == actor.ID {
		return nil, invalid("cannot deactivate your own account")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, classify("find account", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		account.Name = name
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email == "" {
			return nil, invalid("email must not be empty")
		}
		account.Email = email
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, invalid("unknown role")
		}
		account.Role = *in.Role
	}
	if in.Password != nil {
		if err := checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := cryptox.HashPassword(*in.Password, s.hashCost)
		if err != nil {
			return nil, classify("hash password", err)
		}
		account.PasswordHash = hash
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}

	updatedBy := actor.ID
	account.UpdatedBy = &updatedBy

	if err := repo.Update(ctx, account); err != nil {
		return nil, classify("update account", err)
	}
	return account, nil
}

// SoftDelete deactivates the account. Rows are never removed.
func (s *AccountService) SoftDelete(ctx context.Context, actor *models.Account, id int64) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}
	if id == actor.ID {
		return invalid("cannot deactivate your own account")
	}
	if err := s.repomanager.Accounts(s.db).SoftDelete(ctx, id, actor.ID); err != nil {
		return classify("delete account", err)
	}
	return nil
}

type demoAccount struct {
	role     models.Role
	name     string
	email    string
	password string
}

var demoAccounts = []demoAccount{
	{models.RoleAdmin, "Alice Johnson", "alice@example.com", "admin123"},
	{models.RoleDoctor, "Dr. Smith", "smith@hospital.com", "docpass"},
	{models.RolePatient, "John Doe", "john.doe@example.com", "patientpass"},
}

// SeedDemoData creates the demo accounts when the users table is empty and
// reports how many were created.
func (s *AccountService) SeedDemoData(ctx context.Context) (int, error) {
	created := 0

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		for _, d := range demoAccounts {
			hash, err := cryptox.HashPassword(d.password, s.hashCost)
			if err != nil {
				return err
			}
			if _, err := repo.Create(ctx, &models.Account{
				Role:         d.role,
				Name:         d.name,
				Email:        d.email,
				PasswordHash: hash,
				IsActive:     true,
			}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, classify("seed demo data", err)
	}

	return created, nil
}

func checkPassword(p string) error {
	if p == "" {
		return invalid("password must not be empty")
	}
	if len(p) > maxPasswordLen {
		return invalid("password is too long")
	}
	return nil
}
