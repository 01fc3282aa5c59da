package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"socialposts/internal/models"
)

// Connector opens the backing store. It is called until it succeeds once.
type Connector func(ctx context.Context) (Store, error)

// Gateway initializes its backend on first use. Concurrent callers that
// arrive while initialization is in flight share that single attempt; a
// failed attempt is not remembered, so the next call tries again. Once set,
// the backend handle is never replaced.
type Gateway struct {
	connect Connector
	group   singleflight.Group
	backend atomic.Pointer[backendBox]
}

type backendBox struct {
	store Store
}

func NewGateway(connect Connector) *Gateway {
	return &Gateway{connect: connect}
}

// Ready returns the initialized backend, initializing it if needed.
func (g *Gateway) Ready(ctx context.Context) (Store, error) {
	if b := g.backend.Load(); b != nil {
		return b.store, nil
	}

	ch := g.group.DoChan("init", func() (interface{}, error) {
		if b := g.backend.Load(); b != nil {
			return b.store, nil
		}

		// shared by every waiter, so one caller's cancellation must not abort it
		s, err := g.connect(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		g.backend.Store(&backendBox{store: s})
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("ошибка инициализации хранилища: %w", res.Err)
		}
		return res.Val.(Store), nil
	}
}

func (g *Gateway) OpenUploadStream(ctx context.Context, storageName string, metadata models.ObjectMetadata) (UploadStream, error) {
	s, err := g.Ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.OpenUploadStream(ctx, storageName, metadata)
}

func (g *Gateway) OpenDownloadStreamByName(ctx context.Context, storageName string) (DownloadStream, error) {
	s, err := g.Ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.OpenDownloadStreamByName(ctx, storageName)
}

func (g *Gateway) OpenDownloadStream(ctx context.Context, id string) (DownloadStream, error) {
	s, err := g.Ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.OpenDownloadStream(ctx, id)
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	s, err := g.Ready(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}
