package models

import (
	"encoding/json"
	"time"
)

// PostKind discriminates the four post variants stored in the posts table.
type PostKind string

const (
	PostKindFound   PostKind = "found"
	PostKindLost    PostKind = "lost"
	PostKindLooking PostKind = "looking"
	PostKindStolen  PostKind = "stolen"
)

// PostKinds lists every kind in route registration order.
var PostKinds = []PostKind{PostKindFound, PostKindLost, PostKindLooking, PostKindStolen}

// ParsePostKind reports whether raw names a known kind.
func ParsePostKind(raw string) (PostKind, bool) {
	for _, k := range PostKinds {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// HasVehicleDetails is true only for stolen reports.
func (k PostKind) HasVehicleDetails() bool {
	return k == PostKindStolen
}

// Post is a single lost-and-found report. Kind is fixed at creation;
// VehicleDetails is only ever set when Kind is PostKindStolen.
type Post struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Kind           PostKind  `gorm:"column:post_type;size:20;not null;index" json:"post_type"`
	Description    string    `gorm:"size:255;not null" json:"description"`
	Location       string    `gorm:"size:255;not null" json:"location"`
	ContactInfo    string    `gorm:"size:255;not null" json:"contact_info"`
	VehicleDetails *string   `gorm:"size:255" json:"vehicle_details,omitempty"`
	Image          *string   `gorm:"size:255" json:"image"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	Username       string    `gorm:"-" json:"username"`
	DatePosted     time.Time `gorm:"autoCreateTime" json:"date_posted"`
}

// Normalize enforces the kind-specific payload and copies the owner's username.
func (p *Post) Normalize() {
	if !p.Kind.HasVehicleDetails() {
		p.VehicleDetails = nil
	}
	if p.User.ID != 0 {
		p.Username = p.User.Username
	}
}

// MarshalJSON always emits vehicle_details for stolen posts, null included.
func (p Post) MarshalJSON() ([]byte, error) {
	type alias Post
	if p.Kind.HasVehicleDetails() {
		return json.Marshal(struct {
			alias
			VehicleDetails *string `json:"vehicle_details"`
		}{alias(p), p.VehicleDetails})
	}
	return json.Marshal(alias(p))
}

// PostSummary is the base-field projection used by user activity reports.
type PostSummary struct {
	ID          uint      `json:"id"`
	Description string    `json:"description"`
	DatePosted  time.Time `json:"date_posted"`
}
