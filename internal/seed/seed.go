package seed

import (
	"fmt"
	"log/slog"

	"amber/internal/middleware"
	"amber/internal/models"

	"gorm.io/gorm"
)

// Options configure the seeder.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	ReviewsPerUser  int
	ShouldClean     bool
	// MaxDays bounds how far back post dates are spread.
	MaxDays int
	// FastHash hashes the demo password at bcrypt.MinCost.
	FastHash   bool
	DryRun     bool
	BatchSize  int
	RandomSeed int64
	// Distribution weights the post kinds; nil uses DefaultDistribution.
	Distribution Distribution
}

// Distribution is a relative weight per post kind.
type Distribution map[models.PostKind]int

// DefaultDistribution mirrors what a lost-and-found board usually looks like.
var DefaultDistribution = Distribution{
	models.PostKindLost:    4,
	models.PostKindFound:   3,
	models.PostKindLooking: 2,
	models.PostKindStolen:  1,
}

// Result counts what a run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Reviews  int
}

// Seeder fills a database with demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed runs a complete seeding pass with opts.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	return NewSeeder(db, opts).Run()
}

// Run creates users, then posts spread over the kinds, then comments and reviews between the
// seeded users.
func (s *Seeder) Run() (*Result, error) {
	log := middleware.Logger
	log.Info("starting database seeding",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("posts", s.opts.NumPosts),
		slog.Bool("dry_run", s.opts.DryRun),
	)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	result := &Result{}
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	result.Users = len(users)
	if len(users) == 0 {
		return result, nil
	}

	posts, err := s.seedPosts(users)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	result.Posts = len(posts)

	for _, post := range posts {
		for i := 0; i < s.opts.CommentsPerPost; i++ {
			author := users[s.factory.rng.Intn(len(users))]
			if _, err := s.factory.CreateComment(author, post); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			result.Comments++
		}
	}

	if len(users) > 1 {
		for i, reviewer := range users {
			for j := 0; j < s.opts.ReviewsPerUser; j++ {
				// Never the reviewer itself.
				reviewed := users[(i+1+s.factory.rng.Intn(len(users)-1))%len(users)]
				if _, err := s.factory.CreateReview(reviewer, reviewed); err != nil {
					return nil, fmt.Errorf("failed to create reviews: %w", err)
				}
				result.Reviews++
			}
		}
	}

	log.Info("database seeding completed",
		slog.Int("users", result.Users),
		slog.Int("posts", result.Posts),
		slog.Int("comments", result.Comments),
		slog.Int("reviews", result.Reviews),
	)
	return result, nil
}

func (s *Seeder) seedPosts(users []*models.User) ([]*models.Post, error) {
	dist := s.opts.Distribution
	if len(dist) == 0 {
		dist = DefaultDistribution
	}

	counts := computeCounts(s.opts.NumPosts, dist)
	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for _, kind := range models.PostKinds {
		for i := 0; i < counts[kind]; i++ {
			owner := users[s.factory.rng.Intn(len(users))]
			posts = append(posts, s.factory.BuildPost(owner, kind))
		}
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ClearAll deletes every row, children first.
func (s *Seeder) ClearAll() error {
	middleware.Logger.Info("clearing existing data")
	for _, model := range []any{&models.Review{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// computeCounts splits total across the kinds proportionally to dist. Rounding leftovers go
// to the kinds in PostKinds order, so the counts always add up to total.
func computeCounts(total int, dist Distribution) map[models.PostKind]int {
	out := make(map[models.PostKind]int, len(models.PostKinds))
	weights := 0
	for _, kind := range models.PostKinds {
		if w := dist[kind]; w > 0 {
			weights += w
		}
	}
	if total <= 0 || weights == 0 {
		return out
	}

	assigned := 0
	for _, kind := range models.PostKinds {
		if w := dist[kind]; w > 0 {
			out[kind] = total * w / weights
			assigned += out[kind]
		}
	}
	for i := 0; assigned < total; i++ {
		kind := models.PostKinds[i%len(models.PostKinds)]
		if dist[kind] > 0 {
			out[kind]++
			assigned++
		}
	}
	return out
}

func batchSize(opts Options) int {
	if opts.BatchSize > 0 {
		return opts.BatchSize
	}
	return 100
}
