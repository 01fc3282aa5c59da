package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"socialposts/internal/config"
	"socialposts/internal/models"
)

const (
	minioObjectsPrefix = "objects/"
	minioNamesPrefix   = "names/"
)

// MinIOClient stores object content under objects/<id> and keeps a small
// names/<storageName> index object whose body is the id of the latest upload.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(cfg config.MinIO) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента MinIO: %w", err)
	}

	return &MinIOClient{client: client, bucket: cfg.BucketName}, nil
}

// EnsureBucket creates the bucket if it is missing.
func (m *MinIOClient) EnsureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("ошибка создания бакета %s: %w", m.bucket, err)
	}
	return nil
}

func MinIOConnector(cfg config.MinIO) Connector {
	return func(ctx context.Context) (Store, error) {
		m, err := NewMinIOClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (m *MinIOClient) OpenUploadStream(ctx context.Context, storageName string, metadata models.ObjectMetadata) (UploadStream, error) {
	if strings.Contains(storageName, "/") {
		return nil, fmt.Errorf("недопустимое имя объекта: %s", storageName)
	}

	return &minioUpload{
		ctx:      ctx,
		client:   m,
		name:     storageName,
		metadata: metadata,
	}, nil
}

// putOptions carries the object metadata as S3 user metadata.
func putOptions(storageName string, metadata models.ObjectMetadata) minio.PutObjectOptions {
	contentType := metadata.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"storage-name":  url.QueryEscape(storageName),
			"original-name": url.QueryEscape(metadata.OriginalName),
			"uploaded-by":   url.QueryEscape(metadata.UploadedBy),
			"uploaded-at":   metadata.UploadedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (m *MinIOClient) OpenDownloadStreamByName(ctx context.Context, storageName string) (DownloadStream, error) {
	if strings.Contains(storageName, "/") {
		return nil, ErrObjectNotFound
	}

	obj, err := m.client.GetObject(ctx, m.bucket, minioNamesPrefix+storageName, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinIOError(err)
	}

	return m.OpenDownloadStream(ctx, strings.TrimSpace(string(raw)))
}

func (m *MinIOClient) OpenDownloadStream(ctx context.Context, id string) (DownloadStream, error) {
	if !IsValidObjectID(id) {
		return nil, ErrInvalidObjectID
	}

	info, err := m.client.StatObject(ctx, m.bucket, minioObjectsPrefix+id, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, minioObjectsPrefix+id, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}

	return &minioDownload{object: obj, info: objectFromMinIO(id, info)}, nil
}

func (m *MinIOClient) Delete(ctx context.Context, id string) error {
	if !IsValidObjectID(id) {
		return ErrInvalidObjectID
	}

	key := minioObjectsPrefix + id
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return mapMinIOError(err)
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{GovernanceBypass: true}); err != nil {
		return fmt.Errorf("ошибка удаления из MinIO: %w", err)
	}

	// drop the name index only if it still points at this object
	name := objectFromMinIO(id, info).StorageName
	if name != "" {
		m.removeNameIfCurrent(ctx, name, id)
	}
	return nil
}

func (m *MinIOClient) removeNameIfCurrent(ctx context.Context, name, id string) {
	obj, err := m.client.GetObject(ctx, m.bucket, minioNamesPrefix+name, minio.GetObjectOptions{})
	if err != nil {
		return
	}
	raw, err := io.ReadAll(obj)
	obj.Close()
	if err != nil || strings.TrimSpace(string(raw)) != id {
		return
	}
	_ = m.client.RemoveObject(ctx, m.bucket, minioNamesPrefix+name, minio.RemoveObjectOptions{})
}

func (m *MinIOClient) putNameIndex(ctx context.Context, name, id string) error {
	_, err := m.client.PutObject(ctx, m.bucket, minioNamesPrefix+name, strings.NewReader(id), int64(len(id)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("ошибка записи индекса имени %s: %w", name, err)
	}
	return nil
}

func mapMinIOError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return fmt.Errorf("ошибка чтения из MinIO: %w", err)
}

func objectFromMinIO(id string, info minio.ObjectInfo) models.StoredObject {
	uploadedAt, _ := time.Parse(time.RFC3339Nano, userMeta(info.UserMetadata, "uploaded-at"))

	return models.StoredObject{
		ID:          id,
		StorageName: unescapeMeta(userMeta(info.UserMetadata, "storage-name")),
		Length:      info.Size,
		UploadDate:  info.LastModified,
		Metadata: models.ObjectMetadata{
			OriginalName: unescapeMeta(userMeta(info.UserMetadata, "original-name")),
			UploadedBy:   unescapeMeta(userMeta(info.UserMetadata, "uploaded-by")),
			UploadedAt:   uploadedAt,
			ContentType:  info.ContentType,
		},
	}
}

// userMeta looks a key up ignoring the header canonicalization S3 applies.
func userMeta(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) || strings.EqualFold(k, "X-Amz-Meta-"+key) {
			return v
		}
	}
	return ""
}

func unescapeMeta(v string) string {
	if s, err := url.QueryUnescape(v); err == nil {
		return s
	}
	return v
}

// minioUpload buffers the object so PutObject gets its exact size.
type minioUpload struct {
	ctx      context.Context
	client   *MinIOClient
	name     string
	metadata models.ObjectMetadata
	buf      bytes.Buffer
	closed   bool
	fileID   string
}

func (u *minioUpload) Write(p []byte) (int, error) {
	if u.closed {
		return 0, ErrStreamClosed
	}
	return u.buf.Write(p)
}

func (u *minioUpload) Close() error {
	if u.closed {
		return ErrStreamClosed
	}
	u.closed = true

	id := NewObjectID()
	data := u.buf.Bytes()
	_, err := u.client.client.PutObject(u.ctx, u.client.bucket, minioObjectsPrefix+id,
		bytes.NewReader(data), int64(len(data)), putOptions(u.name, u.metadata))
	u.buf.Reset()
	if err != nil {
		return fmt.Errorf("ошибка загрузки в MinIO: %w", err)
	}

	if err := u.client.putNameIndex(u.ctx, u.name, id); err != nil {
		_ = u.client.client.RemoveObject(u.ctx, u.client.bucket, minioObjectsPrefix+id, minio.RemoveObjectOptions{})
		return err
	}

	u.fileID = id
	return nil
}

func (u *minioUpload) Abort() error {
	if u.closed {
		return ErrStreamClosed
	}
	u.closed = true
	u.buf.Reset()
	return nil
}

func (u *minioUpload) FileID() string {
	return u.fileID
}

type minioDownload struct {
	object *minio.Object
	info   models.StoredObject
}

func (d *minioDownload) Read(p []byte) (int, error) {
	return d.object.Read(p)
}

func (d *minioDownload) Close() error {
	return d.object.Close()
}

func (d *minioDownload) Object() *models.StoredObject {
	obj := d.info
	return &obj
}
