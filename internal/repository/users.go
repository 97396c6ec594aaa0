package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type userRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// Create stores a user. A taken email yields common.ErrConflict.
func (r *userRepository) Create(ctx context.Context, username, email, passwordHash string) (*entity.User, error) {
	u := &entity.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	exists, err := r.emailTaken(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("email %s already registered: %w", u.Email, common.ErrConflict)
	}

	ins := r.db.builder().Insert(usersTable.Name).
		Columns(userColumns...).
		Values(u.ID.String(), u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if _, err := execBuilder(ctx, r.db.drv, ins); err != nil {
		r.logger.Error("failed to create user", "email", u.Email, "error", err)
		return nil, fmt.Errorf("create user: %w", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("user created", "user_id", u.ID)
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("email", strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("id", id.String()))
}

func (r *userRepository) getOne(ctx context.Context, pred *entsql.Predicate) (*entity.User, error) {
	sel := r.db.builder().Select(userColumns...).From(r.db.builder().Table(usersTable.Name)).Where(pred).Limit(1)
	var found *entity.User
	err := queryBuilder(ctx, r.db.drv, sel, func(rs entsql.ColumnScanner) error {
		var u entity.User
		var id string
		if err := rs.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return err
		}
		u.ID = parsed
		found = &u
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query user", "error", err)
		return nil, fmt.Errorf("get user: %w", errors.Join(common.ErrDatabase, err))
	}
	if found == nil {
		return nil, fmt.Errorf("user: %w", common.ErrNotFound)
	}
	return found, nil
}

func (r *userRepository) emailTaken(ctx context.Context, email string) (bool, error) {
	sel := r.db.builder().Select("id").From(r.db.builder().Table(usersTable.Name)).Where(entsql.EQ("email", email)).Limit(1)
	taken := false
	err := queryBuilder(ctx, r.db.drv, sel, func(entsql.ColumnScanner) error {
		taken = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check email: %w", errors.Join(common.ErrDatabase, err))
	}
	return taken, nil
}
