package repository

import (
	"context"

	"amber/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	ListSummariesByUser(ctx context.Context, userID uint) ([]models.CommentSummary, error)
	Count(ctx context.Context) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User", "Post").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Preload("User").First(comment, comment.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	comment.Normalize()
	return nil
}

// ListByPost returns the post's comments in insertion order.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range comments {
		c.Normalize()
	}
	return comments, nil
}

func (r *commentRepository) ListSummariesByUser(ctx context.Context, userID uint) ([]models.CommentSummary, error) {
	summaries := []models.CommentSummary{}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("id", "content", "date_posted").
		Where("user_id = ?", userID).
		Order("date_posted ASC, id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return summaries, nil
}

func (r *commentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Count(&count).Error
	return count, err
}
