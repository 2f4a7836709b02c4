package seed

import (
	"testing"

	"amber/internal/database"
	"amber/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestComputeCounts_Default(t *testing.T) {
	counts := computeCounts(10, DefaultDistribution)
	assert.Equal(t, map[models.PostKind]int{
		models.PostKindLost:    4,
		models.PostKindFound:   3,
		models.PostKindLooking: 2,
		models.PostKindStolen:  1,
	}, counts)
}

func TestComputeCounts_Rounding(t *testing.T) {
	counts := computeCounts(7, Distribution{models.PostKindFound: 1, models.PostKindStolen: 1})
	assert.Equal(t, 7, counts[models.PostKindFound]+counts[models.PostKindStolen])
	assert.Equal(t, 4, counts[models.PostKindFound], "leftovers go to the first kind in order")
	assert.Zero(t, counts[models.PostKindLost])

	assert.Empty(t, computeCounts(0, DefaultDistribution))
	assert.Empty(t, computeCounts(5, Distribution{}))
}

func TestBuildPost_KindPayload(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, MaxDays: 30, RandomSeed: 7})
	user := &models.User{ID: 1}

	for _, kind := range models.PostKinds {
		p := f.BuildPost(user, kind)
		assert.Equal(t, kind, p.Kind)
		assert.NotEmpty(t, p.Description)
		assert.LessOrEqual(t, len(p.Description), 255)
		assert.NotEmpty(t, p.Location)
		assert.NotEmpty(t, p.ContactInfo)
		assert.False(t, p.DatePosted.IsZero())
		if kind == models.PostKindStolen {
			assert.NotNil(t, p.VehicleDetails)
		} else {
			assert.Nil(t, p.VehicleDetails)
		}
	}
}

func TestDryRunAssignsSyntheticIDs(t *testing.T) {
	res, err := Seed(nil, Options{NumUsers: 3, NumPosts: 5, CommentsPerPost: 1, ReviewsPerUser: 1, DryRun: true, FastHash: true})
	require.NoError(t, err)
	assert.Equal(t, &Result{Users: 3, Posts: 5, Comments: 5, Reviews: 3}, res)
}

func TestSeedInMemory(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	opts := Options{
		NumUsers:        4,
		NumPosts:        10,
		CommentsPerPost: 2,
		ReviewsPerUser:  1,
		FastHash:        true,
		BatchSize:       3,
	}
	res, err := Seed(db, opts)
	require.NoError(t, err)
	assert.Equal(t, &Result{Users: 4, Posts: 10, Comments: 20, Reviews: 4}, res)

	var stolen []models.Post
	require.NoError(t, db.Where("post_type = ?", models.PostKindStolen).Find(&stolen).Error)
	require.Len(t, stolen, 1)
	assert.NotNil(t, stolen[0].VehicleDetails)

	var selfReviews int64
	require.NoError(t, db.Model(&models.Review{}).Where("user_id = reviewed_user_id").Count(&selfReviews).Error)
	assert.Zero(t, selfReviews)

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword)))

	opts.ShouldClean = true
	opts.NumPosts = 2
	_, err = Seed(db, opts)
	require.NoError(t, err)
	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(2), posts, "clean removes the previous run")
}
