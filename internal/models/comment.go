package models

import "time"

// Comment is a short reply attached to a post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"size:255;not null" json:"content"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Username   string    `gorm:"-" json:"username"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Post       *Post     `gorm:"foreignKey:PostID" json:"-"`
	DatePosted time.Time `gorm:"autoCreateTime" json:"date_posted"`
}

// Normalize copies the author's username from the preloaded relation.
func (c *Comment) Normalize() {
	if c.User.ID != 0 {
		c.Username = c.User.Username
	}
}

// CommentSummary is the base-field projection used by user activity reports.
type CommentSummary struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	DatePosted time.Time `json:"date_posted"`
}
