package services

import (
	"context"

	"github.com/alumnihub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateRole(ctx context.Context, id int, role string) error
	List(ctx context.Context, offset, limit int) ([]types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, email, passwordHash)
}

func (s *UserService) UpdateRole(ctx context.Context, id int, role string) error {
	return s.repo.UpdateRole(ctx, id, role)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, error) {
	return s.repo.List(ctx, offset, limit)
}
