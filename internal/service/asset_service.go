package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/ids"
	"humanityclub/site/internal/media/sniffer"
	"humanityclub/site/internal/queue"
	"humanityclub/site/internal/storage"
)

var ErrNoImage = apperr.New(apperr.KindValidation, "No image file provided")

type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}

type UploadInput struct {
	Folder   string
	File     io.Reader
	Declared string
	MaxBytes int64
	Allowed  []sniffer.MediaType
}

type StoredAsset struct {
	Key    string
	URL    string
	Format sniffer.MediaType
	Size   int64
}

// AssetService puts validated images into the object store and disposes of
// replaced ones through the worker.
type AssetService struct {
	store ObjectStorage
	queue TaskQueue
	log   zerolog.Logger
	now   func() time.Time
}

func NewAssetService(store ObjectStorage, queue TaskQueue, log zerolog.Logger) *AssetService {
	return &AssetService{
		store: store,
		queue: queue,
		log:   log,
		now:   time.Now,
	}
}

func (s *AssetService) Store(ctx context.Context, input UploadInput) (StoredAsset, error) {
	if input.File == nil {
		return StoredAsset{}, ErrNoImage
	}

	data, err := io.ReadAll(io.LimitReader(input.File, input.MaxBytes+1))
	if err != nil {
		return StoredAsset{}, apperr.Wrap(err, apperr.KindValidation, "Error processing file upload")
	}
	if len(data) == 0 {
		return StoredAsset{}, ErrNoImage
	}
	if int64(len(data)) > input.MaxBytes {
		return StoredAsset{}, apperr.New(apperr.KindValidation, fmt.Sprintf("File too large, the limit is %d MB", input.MaxBytes>>20))
	}

	result, err := sniffer.DetectHead(data)
	if err != nil {
		return StoredAsset{}, apperr.Wrap(err, apperr.KindValidation, "Only image files are allowed!")
	}
	if err := sniffer.Require(result, input.Allowed...); err != nil {
		return StoredAsset{}, apperr.Wrap(err, apperr.KindValidation, "Unsupported image format")
	}
	if input.Declared != "" && input.Declared != "application/octet-stream" && input.Declared != result.MIME {
		return StoredAsset{}, apperr.New(apperr.KindValidation,
			fmt.Sprintf("Content type mismatch: declared %s, actual %s", input.Declared, result.MIME))
	}

	key := storage.ObjectKey(input.Folder, ids.New(), string(result.Type), s.now())
	size, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		return StoredAsset{}, apperr.Wrap(err, apperr.KindInternal, "Error uploading image")
	}

	return StoredAsset{
		Key:    key,
		URL:    s.store.PublicURL(key),
		Format: result.Type,
		Size:   size,
	}, nil
}

// Discard schedules removal of key. When the queue is down the object is
// removed inline; failures are logged and left for the nightly sweep.
func (s *AssetService) Discard(ctx context.Context, key *string) {
	if key == nil || *key == "" {
		return
	}
	err := s.queue.Enqueue(ctx, queue.TypeObjectDelete, queue.ObjectDeletePayload{Key: *key})
	if err == nil {
		return
	}
	if !errors.Is(err, queue.ErrUnavailable) {
		s.log.Warn().Err(err).Str("key", *key).Msg("enqueue object delete failed, removing inline")
	}
	if err := s.store.Remove(ctx, *key); err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("remove object failed")
	}
}
