// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered member of the community.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false;not null" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the shape returned by admin listings and the /me endpoint.
type PublicUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
