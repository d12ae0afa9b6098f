package seed

import (
	"context"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}))
	return db
}

func newTestSeeder(db *gorm.DB, opts Options) *Seeder {
	opts.Seed = 7
	return NewSeeder(db, auth.NewPasswordHasher(bcrypt.MinCost), opts)
}

func TestSeeder_Run(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := newTestSeeder(db, Options{NumUsers: 3, NumPosts: 8, ShouldClean: true, MaxDays: 10})
	require.NoError(t, s.Run(ctx))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 3)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	for _, u := range users {
		assert.True(t, hasher.Verify(ctx, DefaultPassword, u.PasswordHash), u.Email)
	}

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 8)
	for _, p := range posts {
		assert.Equal(t, models.MakeExcerpt(p.Content), p.Excerpt)
		assert.NotZero(t, p.AuthorID)
		assert.False(t, p.CreatedAt.IsZero())
	}

	t.Run("Clean Run Replaces Data", func(t *testing.T) {
		again := newTestSeeder(db, Options{NumUsers: 1, NumPosts: 2, ShouldClean: true})
		require.NoError(t, again.Run(ctx))

		var userCount, postCount int64
		db.Model(&models.User{}).Count(&userCount)
		db.Model(&models.Post{}).Count(&postCount)
		assert.Equal(t, int64(1), userCount)
		assert.Equal(t, int64(2), postCount)
	})
}

func TestSeeder_NothingRequested(t *testing.T) {
	db := setupTestDB(t)
	s := newTestSeeder(db, Options{})

	users, err := s.SeedUsers(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	posts, err := s.SeedPosts(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestBuildPostInput_AlwaysValid(t *testing.T) {
	s := newTestSeeder(nil, Options{})
	for i := 0; i < 50; i++ {
		in := s.BuildPostInput()
		assert.GreaterOrEqual(t, len([]rune(in.Title)), 3, in.Title)
		assert.LessOrEqual(t, len([]rune(in.Title)), 100, in.Title)
		assert.GreaterOrEqual(t, len([]rune(in.Content)), 10)
	}
}
