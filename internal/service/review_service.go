package service

import (
	"context"
	"math"

	"amber/internal/models"
	"amber/internal/repository"
	"amber/internal/validation"
)

type ReviewService struct {
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
}

type CreateReviewInput struct {
	ReviewerID     uint    `validate:"required"`
	ReviewedUserID uint    `validate:"required"`
	Rating         int     `validate:"min=1,max=5"`
	Review         *string `validate:"omitempty,max=255"`
}

// UserReviews is the public review listing of one user.
type UserReviews struct {
	UserID        uint             `json:"user_id"`
	Username      string           `json:"username"`
	AverageRating *float64         `json:"average_rating"`
	Count         int              `json:"count"`
	Reviews       []*models.Review `json:"reviews"`
}

func NewReviewService(reviewRepo repository.ReviewRepository, userRepo repository.UserRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, userRepo: userRepo}
}

func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.ReviewerID == in.ReviewedUserID {
		return nil, models.NewValidationError("You cannot review yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, in.ReviewerID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.ReviewedUserID); err != nil {
		return nil, err
	}

	review := &models.Review{
		Rating:         in.Rating,
		Review:         trimmedOrNil(in.Review),
		UserID:         in.ReviewerID,
		ReviewedUserID: in.ReviewedUserID,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListReviews(ctx context.Context, userID uint) (*UserReviews, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &UserReviews{
		UserID:   user.ID,
		Username: user.Username,
		Count:    len(reviews),
		Reviews:  reviews,
	}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		avg := math.Round(float64(total)/float64(len(reviews))*100) / 100
		out.AverageRating = &avg
	}
	return out, nil
}

