package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/cache"
	"humanityclub/site/internal/ids"
	"humanityclub/site/internal/media/sniffer"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/storage"
)

var (
	ErrAlbumNotFound = apperr.New(apperr.KindNotFound, "Project not found")
	ErrImageNotFound = apperr.New(apperr.KindNotFound, "Image not found")
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type GalleryStore interface {
	ListAlbums(ctx context.Context) ([]models.GalleryAlbum, error)
	GetAlbum(ctx context.Context, id string) (models.GalleryAlbum, error)
	AlbumAt(ctx context.Context, index int) (models.GalleryAlbum, error)
	AddImage(ctx context.Context, image models.GalleryImage) (models.GalleryImage, error)
	ListImages(ctx context.Context, limit, offset int) ([]models.GalleryImage, int, error)
	DeleteImage(ctx context.Context, id string) (models.GalleryImage, error)
}

type GalleryService struct {
	gallery  GalleryStore
	assets   *AssetService
	cache    *cache.ContentCache
	maxBytes int64
	log      zerolog.Logger
}

func NewGalleryService(gallery GalleryStore, assets *AssetService, contentCache *cache.ContentCache, maxBytes int64, log zerolog.Logger) *GalleryService {
	return &GalleryService{
		gallery:  gallery,
		assets:   assets,
		cache:    contentCache,
		maxBytes: maxBytes,
		log:      log,
	}
}

func (s *GalleryService) Albums(ctx context.Context) ([]models.GalleryAlbum, error) {
	var cached []models.GalleryAlbum
	if s.cache.Get(ctx, cache.KeyGallery, &cached) {
		return cached, nil
	}

	albums, err := s.gallery.ListAlbums(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "Error fetching gallery projects")
	}
	s.cache.Set(ctx, cache.KeyGallery, albums)
	return albums, nil
}

type ImagePage struct {
	Images  []models.GalleryImage
	Page    int
	PerPage int
	Total   int
}

func (s *GalleryService) Images(ctx context.Context, page, perPage int) (ImagePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	images, total, err := s.gallery.ListImages(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return ImagePage{}, apperr.Wrap(err, apperr.KindInternal, "Error fetching gallery images")
	}
	return ImagePage{Images: images, Page: page, PerPage: perPage, Total: total}, nil
}

// AlbumRef names the target album either by id or by the positional index
// older admin clients send.
type AlbumRef struct {
	AlbumID      string
	ProjectIndex string
}

func (s *GalleryService) resolveAlbum(ctx context.Context, ref AlbumRef) (models.GalleryAlbum, error) {
	var (
		album models.GalleryAlbum
		err   error
	)
	switch {
	case strings.TrimSpace(ref.AlbumID) != "":
		album, err = s.gallery.GetAlbum(ctx, strings.TrimSpace(ref.AlbumID))
	case strings.TrimSpace(ref.ProjectIndex) != "":
		index, convErr := strconv.Atoi(strings.TrimSpace(ref.ProjectIndex))
		if convErr != nil {
			return models.GalleryAlbum{}, apperr.Wrap(convErr, apperr.KindValidation, "Project index is required and must be a number")
		}
		album, err = s.gallery.AlbumAt(ctx, index)
	default:
		return models.GalleryAlbum{}, apperr.New(apperr.KindValidation, "Album id or project index is required")
	}

	if errors.Is(err, repository.ErrAlbumNotFound) {
		return models.GalleryAlbum{}, ErrAlbumNotFound
	}
	if err != nil {
		return models.GalleryAlbum{}, apperr.Wrap(err, apperr.KindInternal, "Error uploading image")
	}
	return album, nil
}

// Upload validates the target album first so a bad reference never leaves
// an orphaned object behind.
func (s *GalleryService) Upload(ctx context.Context, ref AlbumRef, upload UploadInput) (models.GalleryImage, error) {
	album, err := s.resolveAlbum(ctx, ref)
	if err != nil {
		return models.GalleryImage{}, err
	}

	upload.Folder = storage.FolderGallery
	upload.MaxBytes = s.maxBytes
	upload.Allowed = []sniffer.MediaType{sniffer.TypeJPEG, sniffer.TypePNG, sniffer.TypeGIF}

	asset, err := s.assets.Store(ctx, upload)
	if err != nil {
		return models.GalleryImage{}, err
	}

	image, err := s.gallery.AddImage(ctx, models.GalleryImage{
		ID:        ids.New(),
		AlbumID:   album.ID,
		URL:       asset.URL,
		ObjectKey: asset.Key,
		Format:    string(asset.Format),
		SizeBytes: asset.Size,
	})
	if err != nil {
		s.assets.Discard(ctx, &asset.Key)
		return models.GalleryImage{}, apperr.Wrap(err, apperr.KindInternal, "Error uploading image")
	}

	s.cache.Invalidate(ctx, cache.KeyGallery)
	s.log.Info().Str("album", album.Title).Str("image_id", image.ID).Msg("gallery image uploaded")
	return image, nil
}

func (s *GalleryService) DeleteImage(ctx context.Context, id string) error {
	image, err := s.gallery.DeleteImage(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return ErrImageNotFound
		}
		return apperr.Wrap(err, apperr.KindInternal, "Error deleting image")
	}
	s.assets.Discard(ctx, &image.ObjectKey)
	s.cache.Invalidate(ctx, cache.KeyGallery)
	return nil
}
