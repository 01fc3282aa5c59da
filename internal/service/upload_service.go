package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"socialposts/internal/models"
	"socialposts/internal/storage"
)

// UploadFile is one in-memory file as received from the client.
type UploadFile struct {
	Data         []byte
	OriginalName string
	ContentType  string
}

type UploadResult struct {
	FileID      string `json:"fileId"`
	StorageName string `json:"storageName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ImageRef converts the result into the reference kept on a post.
func (r UploadResult) ImageRef() models.PostImageRef {
	return models.PostImageRef{
		FileID:      r.FileID,
		Filename:    r.StorageName,
		ContentType: r.ContentType,
		Size:        r.Size,
	}
}

type UploadService interface {
	Upload(ctx context.Context, file UploadFile, uploadedBy string) (*UploadResult, error)
	UploadMultiple(ctx context.Context, files []UploadFile, uploadedBy string) ([]UploadResult, error)
	Discard(ctx context.Context, results []UploadResult) CleanupReport
}

type uploadService struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewUploadService(store storage.Store, log *slog.Logger) UploadService {
	return &uploadService{store: store, log: log, now: time.Now}
}

func (s *uploadService) Upload(ctx context.Context, file UploadFile, uploadedBy string) (*UploadResult, error) {
	name, err := generateStorageName(file.OriginalName)
	if err != nil {
		return nil, err
	}

	metadata := models.ObjectMetadata{
		OriginalName: file.OriginalName,
		UploadedBy:   uploadedBy,
		UploadedAt:   s.now().UTC(),
		ContentType:  file.ContentType,
	}

	stream, err := s.store.OpenUploadStream(ctx, name, metadata)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия загрузки %s: %w", name, err)
	}

	if _, err := stream.Write(file.Data); err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("ошибка записи файла %s: %w", name, err)
	}

	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("ошибка сохранения файла %s: %w", name, err)
	}

	return &UploadResult{
		FileID:      stream.FileID(),
		StorageName: name,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
	}, nil
}

// UploadMultiple uploads all files concurrently. If any upload fails, the
// ones that finished are deleted again and the first error is returned.
// Results keep the input order.
func (s *uploadService) UploadMultiple(ctx context.Context, files []UploadFile, uploadedBy string) ([]UploadResult, error) {
	if len(files) == 0 {
		return []UploadResult{}, nil
	}

	done := make([]*UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)

	for i, file := range files {
		g.Go(func() error {
			res, err := s.Upload(gctx, file, uploadedBy)
			if err != nil {
				return err
			}
			done[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var stored []UploadResult
		for _, res := range done {
			if res != nil {
				stored = append(stored, *res)
			}
		}
		if len(stored) > 0 {
			s.Discard(context.WithoutCancel(ctx), stored)
		}
		return nil, err
	}

	results := make([]UploadResult, len(done))
	for i, res := range done {
		results[i] = *res
	}
	return results, nil
}

func (s *uploadService) Discard(ctx context.Context, results []UploadResult) CleanupReport {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.FileID
	}

	report := deleteObjects(ctx, s.store, s.log, "upload compensation", ids)
	if !report.Complete() {
		s.log.ErrorContext(ctx, "compensating delete left objects behind",
			"failed", report.Count(OutcomeFailed), "total", len(ids))
	}
	return report
}

const maxExtensionLength = 16

// generateStorageName returns 16 random bytes as hex plus the original extension.
func generateStorageName(originalName string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации имени файла: %w", err)
	}
	return hex.EncodeToString(buf) + safeExtension(originalName), nil
}

// safeExtension keeps a short alphanumeric extension and drops anything else.
func safeExtension(originalName string) string {
	ext := filepath.Ext(originalName)
	if len(ext) < 2 || len(ext) > maxExtensionLength {
		return ""
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return ""
		}
	}
	return ext
}
