package repository

import (
	"context"

	"amber/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository persists user-to-user reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListForUser(ctx context.Context, reviewedUserID uint) ([]*models.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit("Reviewer", "ReviewedUser").Create(review).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Preload("Reviewer").First(review, review.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	review.Normalize()
	return nil
}

// ListForUser returns the reviews a user has received, newest first.
func (r *reviewRepository) ListForUser(ctx context.Context, reviewedUserID uint) ([]*models.Review, error) {
	reviews := []*models.Review{}
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("reviewed_user_id = ?", reviewedUserID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, rv := range reviews {
		rv.Normalize()
	}
	return reviews, nil
}
