package models

// DailyCount is one point of a per-day series.
type DailyCount struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

// UserDailyActivity is a per-user per-day tally of posts and comments.
type UserDailyActivity struct {
	Username      string `json:"username"`
	Date          string `json:"date"`
	TotalPosts    int64  `json:"total_posts"`
	TotalComments int64  `json:"total_comments"`
}

// Analytics is the admin dashboard payload.
type Analytics struct {
	TotalUsers     int64               `json:"total_users"`
	TotalPosts     int64               `json:"total_posts"`
	TotalComments  int64               `json:"total_comments"`
	UsersPerDay    []DailyCount        `json:"users_per_day"`
	PostsPerDay    []DailyCount        `json:"posts_per_day"`
	CommentsPerDay []DailyCount        `json:"comments_per_day"`
	UserActivity   []UserDailyActivity `json:"user_activity"`
}

// UserActivity lists a user's posts and comments using base fields only.
type UserActivity struct {
	Posts    []PostSummary    `json:"posts"`
	Comments []CommentSummary `json:"comments"`
}
