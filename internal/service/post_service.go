package service

import (
	"context"
	"math"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type PostService struct {
	posts repository.PostRepository
	guard *auth.Guard
}

type CreatePostInput struct {
	Title   string
	Content string
}

type UpdatePostInput struct {
	PostID  uint
	Title   string
	Content string
}

type ListPostsInput struct {
	Page  int
	Limit int
}

// PostPage is one page of posts, newest first, with the pagination actually applied.
type PostPage struct {
	Posts []*models.Post
	Page  int
	Limit int
}

func NewPostService(posts repository.PostRepository, guard *auth.Guard) *PostService {
	return &PostService{
		posts: posts,
		guard: guard,
	}
}

// ListPosts returns a page of posts. Page below 1 becomes 1; limit below 1
// becomes DefaultLimit and is capped at MaxLimit. Pages past the last one are empty.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	page, limit := normalizePage(in.Page, in.Limit)

	posts, err := s.posts.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Page: page, Limit: limit}, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// CreatePost stores a post authored by the session's user.
func (s *PostService) CreatePost(ctx context.Context, session *auth.Session, in CreatePostInput) (*models.Post, error) {
	if session == nil {
		return nil, models.NewAuthenticationRequiredError()
	}
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	post, err := s.createPost(ctx, session, in)
	observability.EndSpan(span, err)
	return post, err
}

func (s *PostService) createPost(ctx context.Context, session *auth.Session, in CreatePostInput) (*models.Post, error) {
	title, content, err := cleanPostInput(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		Excerpt:  models.MakeExcerpt(content),
		AuthorID: session.UserID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostMutations.WithLabelValues("create").Inc()
	middleware.Logger.InfoContext(ctx, "post created", "post_id", post.ID)

	return s.posts.GetByID(ctx, post.ID)
}

// UpdatePost replaces title and content of a post owned by the session's user.
func (s *PostService) UpdatePost(ctx context.Context, session *auth.Session, in UpdatePostInput) (*models.Post, error) {
	if session == nil {
		return nil, models.NewAuthenticationRequiredError()
	}
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "UpdatePost")
	post, err := s.updatePost(ctx, session, in)
	observability.EndSpan(span, err)
	return post, err
}

func (s *PostService) updatePost(ctx context.Context, session *auth.Session, in UpdatePostInput) (*models.Post, error) {
	title, content, err := cleanPostInput(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(session, post.AuthorID, "Unauthorized to update this post"); err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content
	post.Excerpt = models.MakeExcerpt(content)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	observability.PostMutations.WithLabelValues("update").Inc()

	return post, nil
}

// DeletePost removes a post owned by the session's user.
func (s *PostService) DeletePost(ctx context.Context, session *auth.Session, postID uint) error {
	if session == nil {
		return models.NewAuthenticationRequiredError()
	}
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeletePost")

	err := s.deletePost(ctx, session, postID)
	observability.EndSpan(span, err)
	return err
}

func (s *PostService) deletePost(ctx context.Context, session *auth.Session, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(session, post.AuthorID, "Unauthorized to delete this post"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	observability.PostMutations.WithLabelValues("delete").Inc()
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", postID)
	return nil
}

// cleanPostInput validates the raw fields, then strips script blocks.
// Sanitized values are checked again so stripping cannot leave an
// undersized post behind.
func cleanPostInput(title, content string) (string, string, error) {
	if res := validation.ValidateBlogPost(title, content); !res.IsValid {
		return "", "", models.NewFieldValidationError("Validation failed", res.Errors)
	}

	title = validation.SanitizeInput(title)
	content = validation.SanitizeInput(content)
	if res := validation.ValidateBlogPost(title, content); !res.IsValid {
		return "", "", models.NewFieldValidationError("Validation failed", res.Errors)
	}
	return title, content, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// Keeps (page-1)*limit from overflowing into a negative offset.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}
