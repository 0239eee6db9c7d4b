package service

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/ports"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Directory ports.UserDirectory
	Logger    *slog.Logger
}

// UserService validates admin user edits before handing them to the backend.
type UserService struct {
	dir    ports.UserDirectory
	logger *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	if opts.Directory == nil {
		panic("UserService requires a user directory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{dir: opts.Directory, logger: logger}
}

// List returns every user.
func (s *UserService) List(ctx context.Context, c Caller) ([]domainauth.Identity, error) {
	return withCaller(ctx, c, func(token string) ([]domainauth.Identity, error) {
		return s.dir.ListUsers(ctx, token)
	})
}

// Get finds user id in the directory listing; the backend has no single-user endpoint.
func (s *UserService) Get(ctx context.Context, c Caller, id string) (domainauth.Identity, error) {
	users, err := s.List(ctx, c)
	if err != nil {
		return domainauth.Identity{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return domainauth.Identity{}, apperrors.NotFoundf("Usuário %s não encontrado", id)
}

// Create validates and creates a user.
func (s *UserService) Create(ctx context.Context, c Caller, in domainauth.UserInput) (domainauth.Identity, error) {
	in.Normalize()
	if err := in.ValidateCreate(); err != nil {
		return domainauth.Identity{}, err
	}
	u, err := withCaller(ctx, c, func(token string) (domainauth.Identity, error) {
		return s.dir.CreateUser(ctx, token, in)
	})
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Update validates and applies changes to user id. An empty password keeps the current one.
func (s *UserService) Update(ctx context.Context, c Caller, id string, in domainauth.UserInput) (domainauth.Identity, error) {
	if id == "" {
		return domainauth.Identity{}, apperrors.Validation("ID do usuário é obrigatório")
	}
	in.Normalize()
	if err := in.ValidateUpdate(); err != nil {
		return domainauth.Identity{}, err
	}
	u, err := withCaller(ctx, c, func(token string) (domainauth.Identity, error) {
		return s.dir.UpdateUser(ctx, token, id, in)
	})
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete removes user id.
func (s *UserService) Delete(ctx context.Context, c Caller, id string) error {
	if err := withCallerErr(ctx, c, func(token string) error { return s.dir.DeleteUser(ctx, token, id) }); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}
