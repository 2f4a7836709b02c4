package models

import "time"

// Review is a rating one user leaves for another.
type Review struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Review           *string   `gorm:"size:255" json:"review"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Reviewer         User      `gorm:"foreignKey:UserID" json:"-"`
	ReviewerUsername string    `gorm:"-" json:"reviewer_username"`
	ReviewedUserID   uint      `gorm:"not null;index" json:"reviewed_user_id"`
	ReviewedUser     User      `gorm:"foreignKey:ReviewedUserID" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Normalize copies the reviewer's username from the preloaded relation.
func (r *Review) Normalize() {
	if r.Reviewer.ID != 0 {
		r.ReviewerUsername = r.Reviewer.Username
	}
}
