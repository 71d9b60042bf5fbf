package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"humanityclub/site/internal/models"
)

var (
	ErrAlbumNotFound = errors.New("album not found")
	ErrImageNotFound = errors.New("image not found")
)

const galleryImageColumns = `id, album_id, url, object_key, format, size_bytes, created_at`

type GalleryRepository struct {
	pool *pgxpool.Pool
}

func NewGalleryRepository(pool *pgxpool.Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ListAlbums returns every album, newest first, with its images attached.
func (r *GalleryRepository) ListAlbums(ctx context.Context) ([]models.GalleryAlbum, error) {
	const query = `
		SELECT id, title, description, position, created_at
		FROM gallery_albums
		ORDER BY created_at DESC, position ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := make([]models.GalleryAlbum, 0)
	index := make(map[string]int)
	for rows.Next() {
		var album models.GalleryAlbum
		if err := rows.Scan(&album.ID, &album.Title, &album.Description, &album.Position, &album.CreatedAt); err != nil {
			return nil, err
		}
		album.Images = make([]models.GalleryImage, 0)
		index[album.ID] = len(albums)
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	images, err := r.pool.Query(ctx, `SELECT `+galleryImageColumns+` FROM gallery_images ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer images.Close()

	for images.Next() {
		image, err := scanGalleryImage(images)
		if err != nil {
			return nil, err
		}
		if i, ok := index[image.AlbumID]; ok {
			albums[i].Images = append(albums[i].Images, image)
		}
	}
	return albums, images.Err()
}

func (r *GalleryRepository) GetAlbum(ctx context.Context, id string) (models.GalleryAlbum, error) {
	const query = `SELECT id, title, description, position, created_at FROM gallery_albums WHERE id = $1`

	var album models.GalleryAlbum
	err := r.pool.QueryRow(ctx, query, id).Scan(&album.ID, &album.Title, &album.Description, &album.Position, &album.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GalleryAlbum{}, ErrAlbumNotFound
	}
	return album, err
}

// AlbumAt resolves the positional index older clients send, using the same
// ordering as ListAlbums.
func (r *GalleryRepository) AlbumAt(ctx context.Context, index int) (models.GalleryAlbum, error) {
	if index < 0 {
		return models.GalleryAlbum{}, ErrAlbumNotFound
	}
	const query = `
		SELECT id, title, description, position, created_at
		FROM gallery_albums
		ORDER BY created_at DESC, position ASC
		LIMIT 1 OFFSET $1
	`

	var album models.GalleryAlbum
	err := r.pool.QueryRow(ctx, query, index).Scan(&album.ID, &album.Title, &album.Description, &album.Position, &album.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GalleryAlbum{}, ErrAlbumNotFound
	}
	return album, err
}

func (r *GalleryRepository) AddImage(ctx context.Context, image models.GalleryImage) (models.GalleryImage, error) {
	query := `
		INSERT INTO gallery_images (id, album_id, url, object_key, format, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + galleryImageColumns

	return scanGalleryImage(r.pool.QueryRow(ctx, query,
		image.ID,
		image.AlbumID,
		image.URL,
		image.ObjectKey,
		image.Format,
		image.SizeBytes,
	))
}

func (r *GalleryRepository) ListImages(ctx context.Context, limit, offset int) ([]models.GalleryImage, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gallery_images`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + galleryImageColumns + `
		FROM gallery_images
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	images := make([]models.GalleryImage, 0, limit)
	for rows.Next() {
		image, err := scanGalleryImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, image)
	}
	return images, total, rows.Err()
}

func (r *GalleryRepository) DeleteImage(ctx context.Context, id string) (models.GalleryImage, error) {
	query := `DELETE FROM gallery_images WHERE id = $1 RETURNING ` + galleryImageColumns
	return scanGalleryImage(r.pool.QueryRow(ctx, query, id))
}

func scanGalleryImage(row pgx.Row) (models.GalleryImage, error) {
	var image models.GalleryImage
	if err := row.Scan(
		&image.ID,
		&image.AlbumID,
		&image.URL,
		&image.ObjectKey,
		&image.Format,
		&image.SizeBytes,
		&image.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GalleryImage{}, ErrImageNotFound
		}
		return models.GalleryImage{}, err
	}
	return image, nil
}
