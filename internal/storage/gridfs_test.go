package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialposts/internal/models"
)

func TestObjectFromGridFSFile(t *testing.T) {
	uploadedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := models.ObjectMetadata{
		OriginalName: "holiday.png",
		UploadedBy:   "user-1",
		UploadedAt:   uploadedAt,
		ContentType:  "image/png",
	}
	raw, err := bson.Marshal(meta)
	require.NoError(t, err)

	oid := primitive.NewObjectID()

	t.Run("Метаданные декодируются", func(t *testing.T) {
		obj, err := objectFromGridFSFile(&gridfs.File{
			ID:         oid,
			Name:       "abc.png",
			Length:     1234,
			ChunkSize:  255 * 1024,
			UploadDate: uploadedAt,
			Metadata:   raw,
		})
		require.NoError(t, err)

		assert.Equal(t, oid.Hex(), obj.ID)
		assert.Equal(t, "abc.png", obj.StorageName)
		assert.Equal(t, int64(1234), obj.Length)
		assert.Equal(t, int32(255*1024), obj.ChunkSize)
		assert.Equal(t, "image/png", obj.Metadata.ContentType)
		assert.Equal(t, "holiday.png", obj.Metadata.OriginalName)
		assert.Equal(t, "user-1", obj.Metadata.UploadedBy)
		assert.True(t, uploadedAt.Equal(obj.Metadata.UploadedAt))
	})

	t.Run("Без метаданных", func(t *testing.T) {
		obj, err := objectFromGridFSFile(&gridfs.File{ID: oid, Name: "legacy.jpg"})
		require.NoError(t, err)
		assert.Empty(t, obj.Metadata.ContentType)
	})

	t.Run("Повреждённые метаданные", func(t *testing.T) {
		_, err := objectFromGridFSFile(&gridfs.File{ID: oid, Metadata: bson.Raw{0x01, 0x02}})
		assert.Error(t, err)
	})

	t.Run("Нестандартный id", func(t *testing.T) {
		obj, err := objectFromGridFSFile(&gridfs.File{ID: "custom-id"})
		require.NoError(t, err)
		assert.Equal(t, "custom-id", obj.ID)
	})
}

func TestMapGridFSError(t *testing.T) {
	assert.ErrorIs(t, mapGridFSError(gridfs.ErrFileNotFound, "ошибка"), ErrObjectNotFound)

	cause := errors.New("socket closed")
	err := mapGridFSError(cause, "ошибка удаления объекта x")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "ошибка удаления объекта x")
}

func TestGridFSStore_InvalidID(t *testing.T) {
	// the client connects lazily, so invalid ids never reach the server
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	s, err := NewGridFSStore(client.Database("test"), "uploads", 0)
	require.NoError(t, err)

	_, err = s.OpenDownloadStream(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidObjectID)
	assert.ErrorIs(t, s.Delete(context.Background(), "not-an-id"), ErrInvalidObjectID)
}
