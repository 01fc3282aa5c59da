package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"socialposts/internal/models"
	"socialposts/internal/repository"
	"socialposts/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req repository.CreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, string, string, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) ValidateToken(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) CreatePost(ctx context.Context, req service.CreatePostRequest) (*models.Post, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) CreatePostWithImages(ctx context.Context, req service.CreatePostRequest, files []service.UploadFile) (*models.Post, error) {
	args := m.Called(ctx, req, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) UpdatePost(ctx context.Context, postID string, patch service.PostPatch, userID string) (*models.Post, error) {
	args := m.Called(ctx, postID, patch, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) DeletePost(ctx context.Context, postID, userID string) (service.CleanupReport, error) {
	args := m.Called(ctx, postID, userID)
	return args.Get(0).(service.CleanupReport), args.Error(1)
}

func (m *MockPostService) ListPosts(ctx context.Context, page, limit int) (*service.PostPage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PostPage), args.Error(1)
}

func (m *MockPostService) ListPostsByUser(ctx context.Context, userID string, page, limit int) (*service.PostPage, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PostPage), args.Error(1)
}

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) OpenByName(ctx context.Context, storageName string) (*service.ImageStream, error) {
	args := m.Called(ctx, storageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImageStream), args.Error(1)
}

func (m *MockImageService) OpenByID(ctx context.Context, id string) (*service.ImageStream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImageStream), args.Error(1)
}

type MockWorkoutService struct {
	mock.Mock
}

func (m *MockWorkoutService) Create(ctx context.Context, userID string, req service.CreateWorkoutRequest) (*models.Workout, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workout), args.Error(1)
}

func (m *MockWorkoutService) Get(ctx context.Context, workoutID, userID string) (*models.Workout, error) {
	args := m.Called(ctx, workoutID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workout), args.Error(1)
}

func (m *MockWorkoutService) ListByUser(ctx context.Context, userID string) ([]models.Workout, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Workout), args.Error(1)
}

func (m *MockWorkoutService) Update(ctx context.Context, workoutID string, patch service.WorkoutPatch, userID string) (*models.Workout, error) {
	args := m.Called(ctx, workoutID, patch, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workout), args.Error(1)
}

func (m *MockWorkoutService) Delete(ctx context.Context, workoutID, userID string) error {
	args := m.Called(ctx, workoutID, userID)
	return args.Error(0)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) service.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(service.HealthReport)
}
