package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"socialposts/internal/models"
	"socialposts/internal/repository"
	"socialposts/internal/storage"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User, password string) error {
	args := m.Called(ctx, user, password)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) VerifyPassword(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRefreshToken(ctx context.Context, userID, refreshToken string, expiryTime time.Time) error {
	args := m.Called(ctx, userID, refreshToken, expiryTime)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockWorkoutRepository struct {
	mock.Mock
}

func (m *MockWorkoutRepository) Create(ctx context.Context, workout *models.Workout) error {
	args := m.Called(ctx, workout)
	return args.Error(0)
}

func (m *MockWorkoutRepository) GetByID(ctx context.Context, workoutID string) (*models.Workout, error) {
	args := m.Called(ctx, workoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workout), args.Error(1)
}

func (m *MockWorkoutRepository) ListByUser(ctx context.Context, userID string) ([]models.Workout, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Workout), args.Error(1)
}

func (m *MockWorkoutRepository) Update(ctx context.Context, workout *models.Workout) error {
	args := m.Called(ctx, workout)
	return args.Error(0)
}

func (m *MockWorkoutRepository) Delete(ctx context.Context, workoutID string) error {
	args := m.Called(ctx, workoutID)
	return args.Error(0)
}

type MockTablesRepository struct {
	mock.Mock
}

func (m *MockTablesRepository) CountTablesDB(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTablesRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakePostRepository is an in-memory PostRepository.
type fakePostRepository struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	createErr error
}

func newFakePostRepository() *fakePostRepository {
	return &fakePostRepository{posts: make(map[string]models.Post)}
}

func (r *fakePostRepository) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	if post.PostID == "" {
		post.PostID = uuid.New().String()
	}
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	for i := range post.Images {
		post.Images[i].PostID = post.PostID
		post.Images[i].Position = i
	}
	r.posts[post.PostID] = clonePost(*post)
	return nil
}

func (r *fakePostRepository) GetByID(_ context.Context, postID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := clonePost(post)
	return &p, nil
}

func (r *fakePostRepository) List(_ context.Context, limit, offset int) ([]models.Post, error) {
	return r.page("", limit, offset), nil
}

func (r *fakePostRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Post, error) {
	return r.page(userID, limit, offset), nil
}

func (r *fakePostRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts), nil
}

func (r *fakePostRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.posts {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakePostRepository) Update(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[post.PostID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = post.Title
	stored.Content = post.Content
	stored.UpdatedAt = time.Now()
	r.posts[post.PostID] = stored
	return nil
}

func (r *fakePostRepository) Delete(_ context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[postID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, postID)
	return nil
}

func (r *fakePostRepository) page(userID string, limit, offset int) []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []models.Post
	for _, p := range r.posts {
		if userID == "" || p.UserID == userID {
			all = append(all, clonePost(p))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []models.Post{}
	}
	return all[offset:min(offset+limit, len(all))]
}

func clonePost(p models.Post) models.Post {
	p.Images = append([]models.PostImageRef{}, p.Images...)
	return p
}

// faultyStore wraps a store and fails selected operations.
type faultyStore struct {
	storage.Store
	failCloseFor string
	failDeleteOf string
}

var errInjected = errors.New("injected store failure")

func (s *faultyStore) OpenUploadStream(ctx context.Context, name string, meta models.ObjectMetadata) (storage.UploadStream, error) {
	stream, err := s.Store.OpenUploadStream(ctx, name, meta)
	if err != nil {
		return nil, err
	}
	if meta.OriginalName == s.failCloseFor {
		return &failingUpload{UploadStream: stream}, nil
	}
	return stream, nil
}

func (s *faultyStore) Delete(ctx context.Context, id string) error {
	if id == s.failDeleteOf {
		return errInjected
	}
	return s.Store.Delete(ctx, id)
}

type failingUpload struct {
	storage.UploadStream
}

func (u *failingUpload) Close() error {
	_ = u.UploadStream.Abort()
	return errInjected
}
