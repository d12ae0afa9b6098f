package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	// Update writes title, content and excerpt of post.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", "posts")
	defer span.End()
	defer observability.TrackQuery("insert", "posts")()

	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return internal(ctx, "create post", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "posts")
	defer span.End()
	defer observability.TrackQuery("select", "posts")()

	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, internal(ctx, "get post by id", err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", "posts")
	defer span.End()
	defer observability.TrackQuery("select", "posts")()

	posts := make([]*models.Post, 0, limit)
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, internal(ctx, "list posts", err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Update", "posts")
	defer span.End()
	defer observability.TrackQuery("update", "posts")()

	post.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Updates(map[string]interface{}{
			"title":      post.Title,
			"content":    post.Content,
			"excerpt":    post.Excerpt,
			"updated_at": post.UpdatedAt,
		})
	if res.Error != nil {
		return internal(ctx, "update post", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Delete", "posts")
	defer span.End()
	defer observability.TrackQuery("delete", "posts")()

	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return internal(ctx, "delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}
