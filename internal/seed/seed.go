// Package seed fills a development database with fake users and posts.
// It is intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded user signs in with.
const DefaultPassword = "password123"

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads post creation times over this many past days.
	MaxDays int
	// Seed makes the generated data reproducible when non-zero.
	Seed int64
}

// Seeder creates users directly through the user store and posts through
// PostService, so seeded posts follow the same validation and excerpt rules
// as posts created over the API.
type Seeder struct {
	db     *gorm.DB
	users  repository.UserRepository
	posts  *service.PostService
	hasher *auth.PasswordHasher
	faker  *gofakeit.Faker
	rng    *rand.Rand
	opts   Options
}

// NewSeeder binds a Seeder to db. Passwords are hashed at hasher's cost.
func NewSeeder(db *gorm.DB, hasher *auth.PasswordHasher, opts Options) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	// Seeded posts never go through token checks, so the guard needs no secret.
	guard := auth.NewGuard(auth.NewTokenManager(auth.TokenConfig{}))
	return &Seeder{
		db:     db,
		users:  repository.NewUserRepository(db),
		posts:  service.NewPostService(repository.NewPostRepository(db), guard),
		hasher: hasher,
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)),
		opts:   opts,
	}
}

// Run cleans (if asked) and then seeds users and posts.
func (s *Seeder) Run(ctx context.Context) error {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return err
		}
	}
	users, err := s.SeedUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return err
	}
	_, err = s.SeedPosts(ctx, users, s.opts.NumPosts)
	return err
}

// ClearAll deletes every post and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	if err := db.Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "seed: cleared posts and users")
	return nil
}

// SeedUsers creates n password accounts. Every account shares
// DefaultPassword, so it is hashed once.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	if n <= 0 {
		return nil, nil
	}
	hash, err := s.hasher.Hash(ctx, DefaultPassword)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		user := &models.User{
			Name:         first + " " + last,
			Email:        fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), i+1),
			PasswordHash: hash,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", user.Email, err)
		}
		users = append(users, user)
	}
	middleware.Logger.InfoContext(ctx, "seed: users created", "count", len(users))
	return users, nil
}

// SeedPosts creates n posts spread across authors with backdated creation times.
func (s *Seeder) SeedPosts(ctx context.Context, authors []*models.User, n int) ([]*models.Post, error) {
	if n <= 0 || len(authors) == 0 {
		return nil, nil
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := authors[s.rng.Intn(len(authors))]
		session := &auth.Session{UserID: author.ID, Email: author.Email}

		post, err := s.posts.CreatePost(ctx, session, s.BuildPostInput())
		if err != nil {
			return nil, fmt.Errorf("create post %d: %w", i+1, err)
		}

		createdAt := s.backdate()
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumns(map[string]interface{}{"created_at": createdAt, "updated_at": createdAt}).Error; err != nil {
			return nil, fmt.Errorf("backdate post %d: %w", post.ID, err)
		}
		post.CreatedAt, post.UpdatedAt = createdAt, createdAt
		posts = append(posts, post)
	}
	middleware.Logger.InfoContext(ctx, "seed: posts created", "count", len(posts))
	return posts, nil
}

// BuildPostInput returns a random post that passes validation.
func (s *Seeder) BuildPostInput() service.CreatePostInput {
	title := strings.TrimSuffix(s.faker.Sentence(s.rng.Intn(5)+3), ".")
	if len([]rune(title)) > 100 {
		title = string([]rune(title)[:100])
	}
	return service.CreatePostInput{
		Title:   title,
		Content: s.faker.Paragraph(s.rng.Intn(3)+1, s.rng.Intn(4)+3, 12, "\n\n"),
	}
}

func (s *Seeder) backdate() time.Time {
	back := time.Duration(s.rng.Intn(s.opts.MaxDays))*24*time.Hour +
		time.Duration(s.rng.Intn(24))*time.Hour +
		time.Duration(s.rng.Intn(60))*time.Minute
	return time.Now().Add(-back).UTC()
}
