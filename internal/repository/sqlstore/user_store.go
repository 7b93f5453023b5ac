// internal/repository/sqlstore/user_store.go
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"talos-store/internal/domain"
	"talos-store/internal/repository"
	"talos-store/internal/util"
	"talos-store/pkg/orm"
)

// Duplicate-key codes reported by the supported drivers.
const (
	mysqlDuplicateEntry = 1062
	pqUniqueViolation   = "23505"
)

// UserStore implements repository.UserRepository on the generic orm engine.
type UserStore struct {
	users *orm.Repository[domain.User]
}

var _ repository.UserRepository = (*UserStore)(nil)

// NewUserStore creates a UserStore bound to domain.User's table.
func NewUserStore(engine *orm.Engine) (*UserStore, error) {
	users, err := orm.NewRepository[domain.User](engine)
	if err != nil {
		return nil, fmt.Errorf("failed to bind user repository: %w", err)
	}
	return &UserStore{users: users}, nil
}

// CreateUser inserts a new user row.
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	if _, err := s.users.Insert(ctx, *user); err != nil {
		return mapError(fmt.Sprintf("failed to create user %q", user.UserName), err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.Find(ctx, "id", id)
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to get user by ID %s", id), err)
	}
	return user, nil
}

// GetUserByUserName retrieves a user by their user name.
func (s *UserStore) GetUserByUserName(ctx context.Context, userName string) (*domain.User, error) {
	user, err := s.users.Find(ctx, "user_name", userName)
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to get user by name '%s'", userName), err)
	}
	return user, nil
}

// UserNameExists reports whether a user with this name is stored.
func (s *UserStore) UserNameExists(ctx context.Context, userName string) (bool, error) {
	ok, err := s.users.Exists(ctx, "user_name = ?", orm.String(userName))
	if err != nil {
		return false, mapError("failed to check user existence", err)
	}
	return ok, nil
}

// ListUsers returns every stored user.
func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, mapError("failed to list users", err)
	}
	return users, nil
}

// UpdateUser overwrites every column of the user with user.ID.
func (s *UserStore) UpdateUser(ctx context.Context, user *domain.User) error {
	n, err := s.users.Update(ctx, *user, "id")
	if err != nil {
		return mapError(fmt.Sprintf("failed to update user %s", user.ID), err)
	}
	if n > 0 {
		return nil
	}
	// MySQL reports zero affected rows when nothing changed, so tell that
	// apart from a missing row.
	ok, err := s.users.Exists(ctx, "id = ?", orm.String(user.ID))
	if err != nil {
		return mapError(fmt.Sprintf("failed to update user %s", user.ID), err)
	}
	if !ok {
		return fmt.Errorf("failed to update user %s: %w", user.ID, util.ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes the user with the given ID.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	n, err := s.users.Delete(ctx, "id", id)
	if err != nil {
		return mapError(fmt.Sprintf("failed to delete user %s", id), err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete user %s: %w", id, util.ErrUserNotFound)
	}
	return nil
}

// mapError translates engine and driver errors into the application taxonomy,
// keeping the original error in the chain.
func mapError(msg string, err error) error {
	switch {
	case errors.Is(err, orm.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", msg, util.ErrUserNotFound, err)
	case isDuplicateKey(err):
		return fmt.Errorf("%s: %w: %w", msg, util.ErrDuplicateEntry, err)
	case errors.Is(err, orm.ErrAcquireTimeout), errors.Is(err, orm.ErrInitialization):
		return fmt.Errorf("%s: %w: %w", msg, util.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
