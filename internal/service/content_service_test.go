package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/media/sniffer"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/queue"
	"humanityclub/site/internal/repository"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func pngUpload() UploadInput {
	return UploadInput{File: bytes.NewReader(pngHead), Declared: "image/png"}
}

func TestAssetStoreValidates(t *testing.T) {
	store := newFakeObjectStorage()
	assets := NewAssetService(store, &fakeQueue{}, zerolog.Nop())
	ctx := context.Background()

	asset, err := assets.Store(ctx, UploadInput{
		Folder:   "gallery",
		File:     bytes.NewReader(pngHead),
		MaxBytes: 1 << 20,
		Allowed:  []sniffer.MediaType{sniffer.TypePNG},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(asset.Key, "gallery/"))
	require.True(t, strings.HasSuffix(asset.Key, ".png"))
	require.Equal(t, "https://assets.example.org/"+asset.Key, asset.URL)
	require.Equal(t, int64(len(pngHead)), asset.Size)

	_, err = assets.Store(ctx, UploadInput{Folder: "qr", File: bytes.NewReader(pngHead), MaxBytes: 4, Allowed: []sniffer.MediaType{sniffer.TypePNG}})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = assets.Store(ctx, UploadInput{Folder: "qr", File: strings.NewReader("plain text"), MaxBytes: 1 << 20, Allowed: []sniffer.MediaType{sniffer.TypePNG}})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = assets.Store(ctx, UploadInput{Folder: "qr", File: bytes.NewReader([]byte("GIF89a....")), MaxBytes: 1 << 20, Allowed: []sniffer.MediaType{sniffer.TypePNG}})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = assets.Store(ctx, UploadInput{Folder: "qr", File: bytes.NewReader(pngHead), Declared: "image/jpeg", MaxBytes: 1 << 20, Allowed: []sniffer.MediaType{sniffer.TypePNG}})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = assets.Store(ctx, UploadInput{Folder: "qr", MaxBytes: 1 << 20})
	require.ErrorIs(t, err, ErrNoImage)

	require.Len(t, store.objects, 1)
}

func TestAssetDiscard(t *testing.T) {
	store := newFakeObjectStorage()
	q := &fakeQueue{}
	assets := NewAssetService(store, q, zerolog.Nop())
	key := "gallery/2024/05/a.png"

	assets.Discard(context.Background(), nil)
	assets.Discard(context.Background(), &key)
	require.Len(t, q.tasks, 1)
	require.Equal(t, queue.TypeObjectDelete, q.tasks[0].taskType)
	require.Empty(t, store.removed)

	q.err = queue.ErrUnavailable
	assets.Discard(context.Background(), &key)
	require.Equal(t, []string{key}, store.removed)
}

type fakeProjectStore struct {
	projects []models.Project
}

func (f *fakeProjectStore) List(context.Context) ([]models.Project, error) {
	out := append([]models.Project(nil), f.projects...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeProjectStore) Create(_ context.Context, p models.Project) (models.Project, error) {
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeProjectStore) UpdateText(_ context.Context, id, title, description string) (models.Project, error) {
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects[i].Title, f.projects[i].Description = title, description
			return f.projects[i], nil
		}
	}
	return models.Project{}, repository.ErrProjectNotFound
}

func (f *fakeProjectStore) UpdateImage(_ context.Context, id, url string, key *string) (models.Project, models.Project, error) {
	for i := range f.projects {
		if f.projects[i].ID == id {
			prev := f.projects[i]
			f.projects[i].ImageURL, f.projects[i].ImageKey = url, key
			return prev, f.projects[i], nil
		}
	}
	return models.Project{}, models.Project{}, repository.ErrProjectNotFound
}

func (f *fakeProjectStore) Delete(_ context.Context, id string) (models.Project, error) {
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return p, nil
		}
	}
	return models.Project{}, repository.ErrProjectNotFound
}

func newProjectService(store *fakeProjectStore, objects *fakeObjectStorage, q *fakeQueue) *ProjectService {
	return NewProjectService(store, NewAssetService(objects, q, zerolog.Nop()), nil, 10<<20, zerolog.Nop())
}

func TestProjectListShowsNewestPerTitle(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeProjectStore{projects: []models.Project{
		{ID: "old", Title: "Project Taleem", CreatedAt: base},
		{ID: "new", Title: "Project Taleem", CreatedAt: base.Add(time.Hour)},
		{ID: "ahaar", Title: "Project Ahaar", CreatedAt: base},
	}}
	svc := newProjectService(store, newFakeObjectStorage(), &fakeQueue{})

	projects, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, "ahaar", projects[0].ID)
	require.Equal(t, "new", projects[1].ID)
}

func TestProjectCreate(t *testing.T) {
	store := &fakeProjectStore{}
	svc := newProjectService(store, newFakeObjectStorage(), &fakeQueue{})

	project, err := svc.Create(context.Background(), ProjectInput{Title: " Project Ehsaas ", Description: "Visits"})
	require.NoError(t, err)
	require.Equal(t, "Project Ehsaas", project.Title)
	require.Equal(t, models.DefaultProjectImage, project.ImageURL)
	require.NotEmpty(t, project.ID)
}

func TestProjectReplaceImageDisposesPrevious(t *testing.T) {
	oldKey := "projects/2024/01/old.png"
	store := &fakeProjectStore{projects: []models.Project{{ID: "p1", Title: "Workshops", ImageKey: &oldKey}}}
	objects := newFakeObjectStorage()
	q := &fakeQueue{}
	svc := newProjectService(store, objects, q)

	project, err := svc.ReplaceImage(context.Background(), "p1", pngUpload())
	require.NoError(t, err)
	require.NotNil(t, project.ImageKey)
	require.Contains(t, objects.objects, *project.ImageKey)

	require.Len(t, q.tasks, 1)
	require.Equal(t, queue.ObjectDeletePayload{Key: oldKey}, q.tasks[0].payload)
}

func TestProjectReplaceImageUnknownProject(t *testing.T) {
	objects := newFakeObjectStorage()
	q := &fakeQueue{}
	svc := newProjectService(&fakeProjectStore{}, objects, q)

	_, err := svc.ReplaceImage(context.Background(), "missing", pngUpload())
	require.ErrorIs(t, err, ErrProjectNotFound)
	// The freshly stored object is handed back for deletion.
	require.Len(t, q.tasks, 1)
}

func TestProjectDeleteMissing(t *testing.T) {
	svc := newProjectService(&fakeProjectStore{}, newFakeObjectStorage(), &fakeQueue{})
	require.ErrorIs(t, svc.Delete(context.Background(), "missing"), ErrProjectNotFound)
}

type fakeGalleryStore struct {
	albums []models.GalleryAlbum
	images []models.GalleryImage
}

func (f *fakeGalleryStore) ListAlbums(context.Context) ([]models.GalleryAlbum, error) {
	return f.albums, nil
}

func (f *fakeGalleryStore) GetAlbum(_ context.Context, id string) (models.GalleryAlbum, error) {
	for _, a := range f.albums {
		if a.ID == id {
			return a, nil
		}
	}
	return models.GalleryAlbum{}, repository.ErrAlbumNotFound
}

func (f *fakeGalleryStore) AlbumAt(_ context.Context, index int) (models.GalleryAlbum, error) {
	if index < 0 || index >= len(f.albums) {
		return models.GalleryAlbum{}, repository.ErrAlbumNotFound
	}
	return f.albums[index], nil
}

func (f *fakeGalleryStore) AddImage(_ context.Context, image models.GalleryImage) (models.GalleryImage, error) {
	f.images = append(f.images, image)
	return image, nil
}

func (f *fakeGalleryStore) ListImages(_ context.Context, limit, offset int) ([]models.GalleryImage, int, error) {
	if offset >= len(f.images) {
		return []models.GalleryImage{}, len(f.images), nil
	}
	end := offset + limit
	if end > len(f.images) {
		end = len(f.images)
	}
	return f.images[offset:end], len(f.images), nil
}

func (f *fakeGalleryStore) DeleteImage(_ context.Context, id string) (models.GalleryImage, error) {
	for i, img := range f.images {
		if img.ID == id {
			f.images = append(f.images[:i], f.images[i+1:]...)
			return img, nil
		}
	}
	return models.GalleryImage{}, repository.ErrImageNotFound
}

func newGalleryFixture() (*GalleryService, *fakeGalleryStore, *fakeObjectStorage, *fakeQueue) {
	store := &fakeGalleryStore{albums: []models.GalleryAlbum{
		{ID: "album-shakti", Title: "Project Shakti"},
		{ID: "album-workshops", Title: "Workshops"},
	}}
	objects := newFakeObjectStorage()
	q := &fakeQueue{}
	svc := NewGalleryService(store, NewAssetService(objects, q, zerolog.Nop()), nil, 10<<20, zerolog.Nop())
	return svc, store, objects, q
}

func TestGalleryUploadByIDAndIndex(t *testing.T) {
	svc, store, objects, _ := newGalleryFixture()

	image, err := svc.Upload(context.Background(), AlbumRef{AlbumID: "album-workshops"}, pngUpload())
	require.NoError(t, err)
	require.Equal(t, "album-workshops", image.AlbumID)
	require.Equal(t, "png", image.Format)

	image, err = svc.Upload(context.Background(), AlbumRef{ProjectIndex: "0"}, pngUpload())
	require.NoError(t, err)
	require.Equal(t, "album-shakti", image.AlbumID)

	require.Len(t, store.images, 2)
	require.Len(t, objects.objects, 2)
}

func TestGalleryUploadRejectsBadAlbumWithoutStoring(t *testing.T) {
	svc, _, objects, _ := newGalleryFixture()

	_, err := svc.Upload(context.Background(), AlbumRef{ProjectIndex: "abc"}, pngUpload())
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Upload(context.Background(), AlbumRef{ProjectIndex: "7"}, pngUpload())
	require.ErrorIs(t, err, ErrAlbumNotFound)

	_, err = svc.Upload(context.Background(), AlbumRef{}, pngUpload())
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.Empty(t, objects.objects)
}

func TestGalleryImagesPagination(t *testing.T) {
	svc, store, _, _ := newGalleryFixture()
	for i := 0; i < 5; i++ {
		store.images = append(store.images, models.GalleryImage{ID: string(rune('a' + i))})
	}

	page, err := svc.Images(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Equal(t, []models.GalleryImage{{ID: "c"}, {ID: "d"}}, page.Images)

	page, err = svc.Images(context.Background(), 0, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, maxPerPage, page.PerPage)
}

func TestGalleryDeleteImage(t *testing.T) {
	svc, store, _, q := newGalleryFixture()
	store.images = []models.GalleryImage{{ID: "img-1", ObjectKey: "gallery/2024/05/x.png"}}

	require.NoError(t, svc.DeleteImage(context.Background(), "img-1"))
	require.Empty(t, store.images)
	require.Len(t, q.tasks, 1)

	require.ErrorIs(t, svc.DeleteImage(context.Background(), "img-1"), ErrImageNotFound)
}

func TestContactSubmit(t *testing.T) {
	q := &fakeQueue{}
	svc := NewContactService(q, zerolog.Nop())

	require.NoError(t, svc.Submit(context.Background(), " Asha ", "asha@example.org", "Hello there\n"))
	require.Len(t, q.tasks, 1)
	require.Equal(t, queue.TypeContactSend, q.tasks[0].taskType)
	msg := q.tasks[0].payload.(models.ContactMessage)
	require.Equal(t, "Asha", msg.Name)
	require.Equal(t, "Hello there", msg.Message)

	q.err = errors.New("redis down")
	err := svc.Submit(context.Background(), "Asha", "asha@example.org", "Hello")
	require.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
