package repository

import (
	"context"
	"sort"
	"time"

	"amber/internal/models"

	"gorm.io/gorm"
)

// AnalyticsRepository aggregates site-wide usage for the admin dashboard.
type AnalyticsRepository interface {
	Snapshot(ctx context.Context) (*models.Analytics, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

type authoredAt struct {
	Username string
	At       time.Time
}

// Snapshot loads creation timestamps and buckets them per calendar day in Go, which keeps the
// query identical on Postgres and SQLite.
func (r *analyticsRepository) Snapshot(ctx context.Context) (*models.Analytics, error) {
	db := r.db.WithContext(ctx)

	var userTimes []time.Time
	if err := db.Model(&models.User{}).Pluck("created_at", &userTimes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var posts []authoredAt
	err := db.Table("posts").
		Select("users.username AS username, posts.date_posted AS at").
		Joins("JOIN users ON users.id = posts.user_id").
		Scan(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var comments []authoredAt
	err = db.Table("comments").
		Select("users.username AS username, comments.date_posted AS at").
		Joins("JOIN users ON users.id = comments.user_id").
		Scan(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &models.Analytics{
		TotalUsers:     int64(len(userTimes)),
		TotalPosts:     int64(len(posts)),
		TotalComments:  int64(len(comments)),
		UsersPerDay:    dailySeries(userTimes),
		PostsPerDay:    dailySeries(timesOf(posts)),
		CommentsPerDay: dailySeries(timesOf(comments)),
		UserActivity:   activityRows(posts, comments),
	}, nil
}

func timesOf(rows []authoredAt) []time.Time {
	out := make([]time.Time, len(rows))
	for i, r := range rows {
		out[i] = r.At
	}
	return out
}

func dailySeries(times []time.Time) []models.DailyCount {
	counts := map[string]int64{}
	for _, t := range times {
		counts[dayKey(t)]++
	}
	series := make([]models.DailyCount, 0, len(counts))
	for day, total := range counts {
		series = append(series, models.DailyCount{Date: day, Total: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// activityRows tallies posts and comments per (username, day). Each row is keyed by one date,
// so a user's posts and comments on the same day share a row instead of multiplying.
func activityRows(posts, comments []authoredAt) []models.UserDailyActivity {
	type key struct{ username, day string }
	rows := map[key]*models.UserDailyActivity{}
	get := func(a authoredAt) *models.UserDailyActivity {
		k := key{a.Username, dayKey(a.At)}
		row, ok := rows[k]
		if !ok {
			row = &models.UserDailyActivity{Username: k.username, Date: k.day}
			rows[k] = row
		}
		return row
	}
	for _, p := range posts {
		get(p).TotalPosts++
	}
	for _, c := range comments {
		get(c).TotalComments++
	}

	out := make([]models.UserDailyActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].Date < out[j].Date
	})
	return out
}
