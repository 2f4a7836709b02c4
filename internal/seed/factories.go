// Package seed provides helpers to create demo data for the application database. These
// helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"amber/internal/middleware"
	"amber/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

var (
	lostItems = []string{
		"wallet", "phone", "keys", "backpack", "umbrella", "laptop", "passport",
		"watch", "glasses", "headphones", "scarf", "ring", "tablet", "jacket",
	}
	vehicles = []string{"bicycle", "scooter", "motorbike", "car", "e-bike"}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// serial keeps generated usernames and e-mails unique
	serial int
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// passwordHash hashes DemoPassword once per factory.
func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// pastTime spreads timestamps over the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) persist(value any, assignID func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		assignID(f.nextID)
		return nil
	}
	return f.db.Create(value).Error
}

// CreateUser constructs and persists a sample user. Optional overrides may modify it before
// saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	f.serial++
	username := fmt.Sprintf("%s%d", truncate(strings.ToLower(gofakeit.Username()), 24), f.serial)
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, strings.ToLower(gofakeit.DomainName())),
		Password: hashed,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.persist(user, func(id uint) { user.ID = id }); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post of kind without persisting it.
func (f *Factory) BuildPost(user *models.User, kind models.PostKind, overrides ...func(*models.Post)) *models.Post {
	item := lostItems[f.rng.Intn(len(lostItems))]
	post := &models.Post{
		Kind:        kind,
		UserID:      user.ID,
		Location:    truncate(fmt.Sprintf("%s, %s", gofakeit.Street(), gofakeit.City()), 255),
		ContactInfo: gofakeit.Phone(),
		DatePosted:  f.pastTime(),
	}

	switch kind {
	case models.PostKindFound:
		post.Description = fmt.Sprintf("Found a %s %s. %s", gofakeit.Color(), item, gofakeit.Sentence(8))
	case models.PostKindLost:
		post.Description = fmt.Sprintf("Lost my %s %s. %s", gofakeit.Color(), item, gofakeit.Sentence(8))
	case models.PostKindLooking:
		post.Description = fmt.Sprintf("Looking for the owner of a %s. %s", item, gofakeit.Sentence(8))
	case models.PostKindStolen:
		vehicle := vehicles[f.rng.Intn(len(vehicles))]
		post.Description = fmt.Sprintf("My %s was stolen. %s", vehicle, gofakeit.Sentence(8))
		details := fmt.Sprintf("%s %s %s, plate %s", gofakeit.Color(), gofakeit.CarMaker(), vehicle,
			strings.ToUpper(gofakeit.Password(false, true, true, false, false, 7)))
		post.VehicleDetails = &details
	}
	post.Description = truncate(post.Description, 255)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a post.
func (f *Factory) CreatePost(user *models.User, kind models.PostKind, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, kind, overrides...)
	if err := f.persist(post, func(id uint) { post.ID = id }); err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Info("dry-run post batch, nothing written", slog.Int("posts", len(posts)))
		return nil
	}
	return f.db.CreateInBatches(posts, batchSize(f.opts)).Error
}

// CreateComment constructs and persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:    truncate(gofakeit.Sentence(10), 255),
		UserID:     user.ID,
		PostID:     post.ID,
		DatePosted: post.DatePosted.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour),
	}
	if comment.DatePosted.After(time.Now()) {
		comment.DatePosted = time.Now()
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.persist(comment, func(id uint) { comment.ID = id }); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReview persists a rating from reviewer for reviewed.
func (f *Factory) CreateReview(reviewer, reviewed *models.User, overrides ...func(*models.Review)) (*models.Review, error) {
	text := truncate(gofakeit.Sentence(12), 255)
	review := &models.Review{
		Rating:         f.rng.Intn(5) + 1,
		Review:         &text,
		UserID:         reviewer.ID,
		ReviewedUserID: reviewed.ID,
	}
	for _, override := range overrides {
		override(review)
	}
	if err := f.persist(review, func(id uint) { review.ID = id }); err != nil {
		return nil, err
	}
	return review, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
