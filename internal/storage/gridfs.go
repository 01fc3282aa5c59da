package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"socialposts/internal/config"
	"socialposts/internal/models"
)

// GridFSStore keeps objects in a MongoDB GridFS bucket (<bucket>.files + <bucket>.chunks).
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database, bucketName string, chunkSize int32) (*GridFSStore, error) {
	opts := options.GridFSBucket().SetName(bucketName)
	if chunkSize > 0 {
		opts.SetChunkSizeBytes(chunkSize)
	}

	bucket, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GridFS bucket %s: %w", bucketName, err)
	}

	return &GridFSStore{bucket: bucket}, nil
}

// GridFSConnector waits for the Mongo connection before opening the bucket.
func GridFSConnector(client *mongo.Client, cfg config.Mongo) Connector {
	return func(ctx context.Context) (Store, error) {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return nil, fmt.Errorf("MongoDB недоступна: %w", err)
		}
		return NewGridFSStore(client.Database(cfg.Database), cfg.Bucket, cfg.ChunkSizeBytes)
	}
}

func (s *GridFSStore) OpenUploadStream(_ context.Context, storageName string, metadata models.ObjectMetadata) (UploadStream, error) {
	opts := options.GridFSUpload().SetMetadata(metadata)

	stream, err := s.bucket.OpenUploadStream(storageName, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия потока загрузки: %w", err)
	}

	return &gridfsUpload{stream: stream}, nil
}

func (s *GridFSStore) OpenDownloadStreamByName(_ context.Context, storageName string) (DownloadStream, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(storageName)
	if err != nil {
		return nil, mapGridFSError(err, "ошибка открытия потока чтения "+storageName)
	}

	return newGridFSDownload(stream)
}

func (s *GridFSStore) OpenDownloadStream(_ context.Context, id string) (DownloadStream, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidObjectID
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		return nil, mapGridFSError(err, "ошибка открытия потока чтения "+id)
	}

	return newGridFSDownload(stream)
}

func (s *GridFSStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidObjectID
	}

	if err := s.bucket.DeleteContext(ctx, oid); err != nil {
		return mapGridFSError(err, "ошибка удаления объекта "+id)
	}

	return nil
}

type gridfsUpload struct {
	stream *gridfs.UploadStream
	id     string
}

func (u *gridfsUpload) Write(p []byte) (int, error) {
	return u.stream.Write(p)
}

// Close flushes the last chunk and writes the files document.
func (u *gridfsUpload) Close() error {
	if err := u.stream.Close(); err != nil {
		return fmt.Errorf("ошибка завершения загрузки: %w", err)
	}
	u.id = formatFileID(u.stream.FileID)
	return nil
}

func (u *gridfsUpload) Abort() error {
	return u.stream.Abort()
}

func (u *gridfsUpload) FileID() string {
	return u.id
}

type gridfsDownload struct {
	stream *gridfs.DownloadStream
	object models.StoredObject
}

func newGridFSDownload(stream *gridfs.DownloadStream) (*gridfsDownload, error) {
	object, err := objectFromGridFSFile(stream.GetFile())
	if err != nil {
		stream.Close()
		return nil, err
	}

	return &gridfsDownload{stream: stream, object: object}, nil
}

// objectFromGridFSFile converts a files-collection document, decoding the
// metadata sub-document.
func objectFromGridFSFile(file *gridfs.File) (models.StoredObject, error) {
	var metadata models.ObjectMetadata
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &metadata); err != nil {
			return models.StoredObject{}, fmt.Errorf("ошибка чтения метаданных файла: %w", err)
		}
	}

	return models.StoredObject{
		ID:          formatFileID(file.ID),
		StorageName: file.Name,
		Length:      file.Length,
		ChunkSize:   file.ChunkSize,
		UploadDate:  file.UploadDate,
		Metadata:    metadata,
	}, nil
}

func mapGridFSError(err error, msg string) error {
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return ErrObjectNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (d *gridfsDownload) Read(p []byte) (int, error) {
	return d.stream.Read(p)
}

func (d *gridfsDownload) Close() error {
	return d.stream.Close()
}

func (d *gridfsDownload) Object() *models.StoredObject {
	obj := d.object
	return &obj
}

func formatFileID(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}
