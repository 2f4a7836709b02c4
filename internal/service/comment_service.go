package service

import (
	"context"
	"strings"

	"amber/internal/models"
	"amber/internal/notifications"
	"amber/internal/observability"
	"amber/internal/repository"
	"amber/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	events      EventPublisher
}

type CreateCommentInput struct {
	Kind    models.PostKind
	PostID  uint
	UserID  uint
	Content string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		events:      publisherOrNoop(events),
	}
}

// CreateComment attaches a comment to an existing post of the given kind. The author must
// still exist: a deleted account's unexpired token is rejected with "User not found".
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, in.Kind, in.PostID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > validation.MaxFieldLength {
		return nil, models.NewValidationError("Comment must be at most 255 characters.")
	}

	comment := &models.Comment{
		Content: content,
		UserID:  in.UserID,
		PostID:  in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.CommentsCreated.Inc()
	s.events.Publish(ctx, notifications.EventCommentCreated, comment)
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, kind models.PostKind, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, kind, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}
