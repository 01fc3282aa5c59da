package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"socialposts/internal/models"
	"socialposts/internal/repository"
	"socialposts/internal/storage"
)

const (
	minTitleLength   = 3
	maxTitleLength   = 255
	minContentLength = 10
	maxPostImages    = 5
)

type CreatePostRequest struct {
	UserID  string
	Title   string
	Content string
	Images  []models.PostImageRef
}

// PostPatch lists the only post fields a client may change. Nil means unchanged.
type PostPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

type PostService interface {
	CreatePost(ctx context.Context, req CreatePostRequest) (*models.Post, error)
	CreatePostWithImages(ctx context.Context, req CreatePostRequest, files []UploadFile) (*models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	UpdatePost(ctx context.Context, postID string, patch PostPatch, userID string) (*models.Post, error)
	DeletePost(ctx context.Context, postID, userID string) (CleanupReport, error)
	ListPosts(ctx context.Context, page, limit int) (*PostPage, error)
	ListPostsByUser(ctx context.Context, userID string, page, limit int) (*PostPage, error)
}

type postService struct {
	postRepo  repository.PostRepository
	uploads   UploadService
	store     storage.Store
	log       *slog.Logger
	maxImages int
}

func NewPostService(postRepo repository.PostRepository, uploads UploadService, store storage.Store, maxImages int, log *slog.Logger) PostService {
	if maxImages <= 0 || maxImages > maxPostImages {
		maxImages = maxPostImages
	}
	return &postService{
		postRepo:  postRepo,
		uploads:   uploads,
		store:     store,
		log:       log,
		maxImages: maxImages,
	}
}

func (p *postService) CreatePost(ctx context.Context, req CreatePostRequest) (*models.Post, error) {
	title, content, err := p.validateCreate(req, len(req.Images))
	if err != nil {
		return nil, err
	}

	images := req.Images
	if images == nil {
		images = []models.PostImageRef{}
	}

	post := &models.Post{
		UserID:  req.UserID,
		Title:   title,
		Content: content,
		Images:  images,
	}

	if err := p.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	p.log.InfoContext(ctx, "post created", "post_id", post.PostID, "user_id", post.UserID, "images", len(post.Images))
	return post, nil
}

// CreatePostWithImages validates the text fields first, then uploads the files
// and persists the post. If persisting fails the uploaded objects are deleted.
func (p *postService) CreatePostWithImages(ctx context.Context, req CreatePostRequest, files []UploadFile) (*models.Post, error) {
	if _, _, err := p.validateCreate(req, len(req.Images)+len(files)); err != nil {
		return nil, err
	}

	uploaded, err := p.uploads.UploadMultiple(ctx, files, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки изображений: %w", err)
	}

	for _, res := range uploaded {
		req.Images = append(req.Images, res.ImageRef())
	}

	post, err := p.CreatePost(ctx, req)
	if err != nil {
		if len(uploaded) > 0 {
			p.uploads.Discard(context.WithoutCancel(ctx), uploaded)
		}
		return nil, err
	}

	return post, nil
}

func (p *postService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("post not found")
		}
		return nil, err
	}
	return post, nil
}

func (p *postService) UpdatePost(ctx context.Context, postID string, patch PostPatch, userID string) (*models.Post, error) {
	post, err := p.ownedPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		post.Title = title
	}
	if patch.Content != nil {
		content, err := validateContent(*patch.Content)
		if err != nil {
			return nil, err
		}
		post.Content = content
	}

	if err := p.postRepo.Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("post not found")
		}
		return nil, err
	}

	return post, nil
}

// DeletePost removes every referenced stored object independently, then the
// post record regardless of how the object deletes went.
func (p *postService) DeletePost(ctx context.Context, postID, userID string) (CleanupReport, error) {
	post, err := p.ownedPost(ctx, postID, userID)
	if err != nil {
		return CleanupReport{}, err
	}

	ids := make([]string, len(post.Images))
	for i, img := range post.Images {
		ids[i] = img.FileID
	}
	report := deleteObjects(ctx, p.store, p.log, "post "+post.PostID, ids)

	if err := p.postRepo.Delete(ctx, post.PostID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report, notFoundError("post not found")
		}
		return report, err
	}

	p.log.InfoContext(ctx, "post deleted",
		"post_id", post.PostID,
		"images_deleted", report.Count(OutcomeDeleted),
		"images_missing", report.Count(OutcomeNotFound),
		"images_failed", report.Count(OutcomeFailed),
	)
	return report, nil
}

func (p *postService) ListPosts(ctx context.Context, page, limit int) (*PostPage, error) {
	total, err := p.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	posts, err := p.postRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return newPostPage(posts, page, limit, total), nil
}

func (p *postService) ListPostsByUser(ctx context.Context, userID string, page, limit int) (*PostPage, error) {
	total, err := p.postRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts, err := p.postRepo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return newPostPage(posts, page, limit, total), nil
}

func (p *postService) ownedPost(ctx context.Context, postID, userID string) (*models.Post, error) {
	post, err := p.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, forbiddenError("you can only modify your own posts")
	}
	return post, nil
}

func (p *postService) validateCreate(req CreatePostRequest, images int) (string, string, error) {
	if req.UserID == "" {
		return "", "", newError(ErrUnauthorized, "authentication required")
	}

	title, err := validateTitle(req.Title)
	if err != nil {
		return "", "", err
	}
	content, err := validateContent(req.Content)
	if err != nil {
		return "", "", err
	}

	if images > p.maxImages {
		return "", "", validationError("a post can have at most %d images", p.maxImages)
	}
	return title, content, nil
}

func newPostPage(posts []models.Post, page, limit, total int) *PostPage {
	if posts == nil {
		posts = []models.Post{}
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &PostPage{
		Posts:      posts,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minTitleLength {
		return "", validationError("title must be at least %d characters", minTitleLength)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", validationError("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) < minContentLength {
		return "", validationError("content must be at least %d characters", minContentLength)
	}
	return content, nil
}
