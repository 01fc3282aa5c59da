package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialposts/internal/config"
	"socialposts/internal/models"
)

func TestMapMinIOError(t *testing.T) {
	t.Run("NoSuchKey", func(t *testing.T) {
		err := mapMinIOError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("Прочие ошибки оборачиваются", func(t *testing.T) {
		cause := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
		err := mapMinIOError(cause)
		assert.NotErrorIs(t, err, ErrObjectNotFound)
		assert.Contains(t, err.Error(), "MinIO")
	})

	t.Run("Сетевая ошибка", func(t *testing.T) {
		cause := errors.New("connection reset")
		assert.ErrorIs(t, mapMinIOError(cause), cause)
	})
}

func TestPutOptionsRoundTrip(t *testing.T) {
	uploadedAt := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	meta := models.ObjectMetadata{
		OriginalName: "мой отпуск & друзья.png",
		UploadedBy:   "user-1",
		UploadedAt:   uploadedAt,
		ContentType:  "image/png",
	}

	opts := putOptions("abc.png", meta)
	assert.Equal(t, "image/png", opts.ContentType)

	// S3 returns user metadata with canonicalized header keys
	stored := map[string]string{}
	for k, v := range opts.UserMetadata {
		stored["X-Amz-Meta-"+k] = v
	}

	id := NewObjectID()
	obj := objectFromMinIO(id, minio.ObjectInfo{
		Size:         42,
		ContentType:  opts.ContentType,
		LastModified: uploadedAt,
		UserMetadata: stored,
	})

	assert.Equal(t, id, obj.ID)
	assert.Equal(t, "abc.png", obj.StorageName)
	assert.Equal(t, int64(42), obj.Length)
	assert.Equal(t, meta.OriginalName, obj.Metadata.OriginalName)
	assert.Equal(t, "user-1", obj.Metadata.UploadedBy)
	assert.Equal(t, "image/png", obj.Metadata.ContentType)
	assert.True(t, uploadedAt.Equal(obj.Metadata.UploadedAt))
}

func TestPutOptions_DefaultContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", putOptions("a.bin", models.ObjectMetadata{}).ContentType)
}

func TestMinIOClient_LocalChecks(t *testing.T) {
	// nothing here reaches the network
	m, err := NewMinIOClient(config.MinIO{Endpoint: "127.0.0.1:1", AccessKey: "k", SecretKey: "s", BucketName: "uploads"})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Имя с косой чертой", func(t *testing.T) {
		_, err := m.OpenUploadStream(ctx, "names/evil", models.ObjectMetadata{})
		assert.Error(t, err)
	})

	t.Run("Некорректный id", func(t *testing.T) {
		_, err := m.OpenDownloadStream(ctx, "zzz")
		assert.ErrorIs(t, err, ErrInvalidObjectID)
		assert.ErrorIs(t, m.Delete(ctx, "zzz"), ErrInvalidObjectID)
	})

	t.Run("Прерванная загрузка закрыта", func(t *testing.T) {
		stream, err := m.OpenUploadStream(ctx, "a.png", models.ObjectMetadata{})
		require.NoError(t, err)

		_, err = stream.Write([]byte("data"))
		require.NoError(t, err)
		require.NoError(t, stream.Abort())

		_, err = stream.Write([]byte("more"))
		assert.ErrorIs(t, err, ErrStreamClosed)
		assert.ErrorIs(t, stream.Close(), ErrStreamClosed)
		assert.Empty(t, stream.FileID())
	})
}
