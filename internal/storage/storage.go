package storage

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialposts/internal/models"
)

var (
	ErrObjectNotFound  = errors.New("stored object not found")
	ErrInvalidObjectID = errors.New("invalid object id")
	ErrStreamClosed    = errors.New("stream already closed")
)

// Store is the object store gateway: chunked binary storage keyed by id and by storage name.
type Store interface {
	OpenUploadStream(ctx context.Context, storageName string, metadata models.ObjectMetadata) (UploadStream, error)
	OpenDownloadStreamByName(ctx context.Context, storageName string) (DownloadStream, error)
	OpenDownloadStream(ctx context.Context, id string) (DownloadStream, error)
	Delete(ctx context.Context, id string) error
}

// UploadStream is a write sink for one object. Nothing is visible to readers
// until Close returns nil; FileID is empty before that.
type UploadStream interface {
	io.Writer
	Close() error
	Abort() error
	FileID() string
}

// DownloadStream yields the object bytes in storage order. It cannot be rewound.
type DownloadStream interface {
	io.ReadCloser
	Object() *models.StoredObject
}

// NewObjectID returns a fresh id in the format every backend uses.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}

func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
