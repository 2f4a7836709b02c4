package service

import (
	"context"
	"log/slog"

	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/repository"
)

// AdminService backs the role-gated account management and analytics endpoints.
type AdminService struct {
	accounts
	postRepo      repository.PostRepository
	commentRepo   repository.CommentRepository
	analyticsRepo repository.AnalyticsRepository
	images        ImageStore
}

type AdminUpdateUserInput struct {
	UserID   uint
	Username *string
	Email    *string
	Password *string
	IsAdmin  *bool
}

func NewAdminService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	analyticsRepo repository.AnalyticsRepository,
	images ImageStore,
	hashCost int,
) *AdminService {
	return &AdminService{
		accounts:      accounts{users: userRepo, hashCost: hashCost},
		postRepo:      postRepo,
		commentRepo:   commentRepo,
		analyticsRepo: analyticsRepo,
		images:        images,
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.users.ListAdmins(ctx)
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// CreateUser creates an account with the same rules as registration, optionally as admin.
func (s *AdminService) CreateUser(ctx context.Context, in NewAccountInput) (*models.User, error) {
	user, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user created by admin",
		slog.Uint64("created_user_id", uint64(user.ID)),
		slog.Bool("is_admin", user.IsAdmin),
	)
	return user, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, in AdminUpdateUserInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.applyChanges(ctx, user, in.Username, in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAdmin grants or revokes the admin flag.
func (s *AdminService) SetAdmin(ctx context.Context, userID uint, isAdmin bool) (*models.User, error) {
	return s.UpdateUser(ctx, AdminUpdateUserInput{UserID: userID, IsAdmin: &isAdmin})
}

// DeleteUser removes the account and everything attached to it, then the images of the
// removed posts.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	images, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	for _, name := range images {
		s.images.Remove(ctx, name)
	}
	middleware.Logger.InfoContext(ctx, "user deleted", slog.Uint64("deleted_user_id", uint64(id)))
	return nil
}

func (s *AdminService) UserActivity(ctx context.Context, id uint) (*models.UserActivity, error) {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListSummariesByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListSummariesByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserActivity{Posts: posts, Comments: comments}, nil
}

func (s *AdminService) Analytics(ctx context.Context) (*models.Analytics, error) {
	return s.analyticsRepo.Snapshot(ctx)
}
