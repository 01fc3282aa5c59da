package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"socialposts/internal/models"
)

const defaultChunkSize = 255 * 1024

// MemoryStore keeps objects in process memory, split into fixed-size chunks.
// Used for local development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	chunkSize int
	objects   map[string]*memoryObject
	names     map[string]string
	now       func() time.Time
}

type memoryObject struct {
	object models.StoredObject
	chunks [][]byte
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithChunkSize(defaultChunkSize)
}

func NewMemoryStoreWithChunkSize(chunkSize int) *MemoryStore {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &MemoryStore{
		chunkSize: chunkSize,
		objects:   make(map[string]*memoryObject),
		names:     make(map[string]string),
		now:       time.Now,
	}
}

// MemoryConnector adapts a MemoryStore to the gateway.
func MemoryConnector(s *MemoryStore) Connector {
	return func(context.Context) (Store, error) {
		return s, nil
	}
}

func (s *MemoryStore) OpenUploadStream(ctx context.Context, storageName string, metadata models.ObjectMetadata) (UploadStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryUpload{store: s, name: storageName, metadata: metadata}, nil
}

func (s *MemoryStore) OpenDownloadStreamByName(ctx context.Context, storageName string) (DownloadStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[storageName]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return newMemoryDownload(s.objects[id]), nil
}

func (s *MemoryStore) OpenDownloadStream(ctx context.Context, id string) (DownloadStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsValidObjectID(id) {
		return nil, ErrInvalidObjectID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return newMemoryDownload(obj), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsValidObjectID(id) {
		return ErrInvalidObjectID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return ErrObjectNotFound
	}

	delete(s.objects, id)
	if s.names[obj.object.StorageName] == id {
		delete(s.names, obj.object.StorageName)
	}
	return nil
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) finalize(name string, metadata models.ObjectMetadata, data []byte) string {
	var chunks [][]byte
	for start := 0; start < len(data); start += s.chunkSize {
		end := min(start+s.chunkSize, len(data))
		chunk := make([]byte, end-start)
		copy(chunk, data[start:end])
		chunks = append(chunks, chunk)
	}

	id := NewObjectID()
	obj := &memoryObject{
		object: models.StoredObject{
			ID:          id,
			StorageName: name,
			Length:      int64(len(data)),
			ChunkSize:   int32(s.chunkSize),
			UploadDate:  s.now(),
			Metadata:    metadata,
		},
		chunks: chunks,
	}

	s.mu.Lock()
	s.objects[id] = obj
	// the latest revision wins a name lookup, as in GridFS
	s.names[name] = id
	s.mu.Unlock()

	return id
}

type memoryUpload struct {
	store    *MemoryStore
	name     string
	metadata models.ObjectMetadata
	buf      bytes.Buffer
	closed   bool
	id       string
}

func (u *memoryUpload) Write(p []byte) (int, error) {
	if u.closed {
		return 0, ErrStreamClosed
	}
	return u.buf.Write(p)
}

func (u *memoryUpload) Close() error {
	if u.closed {
		return ErrStreamClosed
	}
	u.closed = true
	u.id = u.store.finalize(u.name, u.metadata, u.buf.Bytes())
	return nil
}

func (u *memoryUpload) Abort() error {
	if u.closed {
		return ErrStreamClosed
	}
	u.closed = true
	u.buf.Reset()
	return nil
}

func (u *memoryUpload) FileID() string {
	return u.id
}

type memoryDownload struct {
	object models.StoredObject
	chunks [][]byte
	chunk  int
	offset int
	closed bool
}

func newMemoryDownload(obj *memoryObject) *memoryDownload {
	// chunks are never mutated after finalize, sharing them is safe
	return &memoryDownload{object: obj.object, chunks: obj.chunks}
}

func (d *memoryDownload) Read(p []byte) (int, error) {
	if d.closed {
		return 0, ErrStreamClosed
	}

	for d.chunk < len(d.chunks) && d.offset == len(d.chunks[d.chunk]) {
		d.chunk++
		d.offset = 0
	}
	if d.chunk >= len(d.chunks) {
		return 0, io.EOF
	}

	n := copy(p, d.chunks[d.chunk][d.offset:])
	d.offset += n
	return n, nil
}

func (d *memoryDownload) Close() error {
	d.closed = true
	return nil
}

func (d *memoryDownload) Object() *models.StoredObject {
	obj := d.object
	return &obj
}
