package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialposts/internal/storage"
)

const DefaultImageContentType = "image/jpeg"

// ImageStream is an open stored object that passed the image gate. The
// caller must Close it.
type ImageStream struct {
	storage.DownloadStream
	ContentType  string
	OriginalName string
	Length       int64
}

type ImageService interface {
	OpenByName(ctx context.Context, storageName string) (*ImageStream, error)
	OpenByID(ctx context.Context, id string) (*ImageStream, error)
}

type imageService struct {
	store storage.Store
}

func NewImageService(store storage.Store) ImageService {
	return &imageService{store: store}
}

func (s *imageService) OpenByName(ctx context.Context, storageName string) (*ImageStream, error) {
	if storageName == "" {
		return nil, notFoundError("image not found")
	}

	stream, err := s.store.OpenDownloadStreamByName(ctx, storageName)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return gateImage(stream)
}

func (s *imageService) OpenByID(ctx context.Context, id string) (*ImageStream, error) {
	if !storage.IsValidObjectID(id) {
		return nil, validationError("invalid image id")
	}

	stream, err := s.store.OpenDownloadStream(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return gateImage(stream)
}

// gateImage refuses to serve anything that is not an image.
func gateImage(stream storage.DownloadStream) (*ImageStream, error) {
	obj := stream.Object()

	contentType := obj.Metadata.ContentType
	if contentType == "" {
		contentType = DefaultImageContentType
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		stream.Close()
		return nil, notFoundError("not an image")
	}

	return &ImageStream{
		DownloadStream: stream,
		ContentType:    contentType,
		OriginalName:   obj.Metadata.OriginalName,
		Length:         obj.Length,
	}, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return notFoundError("image not found")
	case errors.Is(err, storage.ErrInvalidObjectID):
		return validationError("invalid image id")
	default:
		return fmt.Errorf("ошибка чтения изображения: %w", err)
	}
}
