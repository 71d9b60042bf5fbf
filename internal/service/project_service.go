package service

import (
	"context"
	"errors"
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

var ErrProjectNotFound = apperr.New(apperr.KindNotFound, "Project not found")

type ProjectStore interface {
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, project models.Project) (models.Project, error)
	UpdateText(ctx context.Context, id, title, description string) (models.Project, error)
	UpdateImage(ctx context.Context, id, imageURL string, imageKey *string) (models.Project, models.Project, error)
	Delete(ctx context.Context, id string) (models.Project, error)
}

type ProjectService struct {
	projects ProjectStore
	assets   *AssetService
	cache    *cache.ContentCache
	maxBytes int64
	log      zerolog.Logger
}

func NewProjectService(projects ProjectStore, assets *AssetService, contentCache *cache.ContentCache, maxBytes int64, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		assets:   assets,
		cache:    contentCache,
		maxBytes: maxBytes,
		log:      log,
	}
}

// List returns projects sorted by title. Only the newest project per title
// is shown; older duplicates are removed by the nightly dedupe job.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	var cached []models.Project
	if s.cache.Get(ctx, cache.KeyProjects, &cached) {
		return cached, nil
	}

	all, err := s.projects.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "Error fetching projects")
	}

	projects := make([]models.Project, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, p := range all {
		if _, dup := seen[p.Title]; dup {
			continue
		}
		seen[p.Title] = struct{}{}
		projects = append(projects, p)
	}

	s.cache.Set(ctx, cache.KeyProjects, projects)
	return projects, nil
}

type ProjectInput struct {
	Title       string
	Description string
	Image       string
}

func (s *ProjectService) Create(ctx context.Context, input ProjectInput) (models.Project, error) {
	title, description := strings.TrimSpace(input.Title), strings.TrimSpace(input.Description)
	image := strings.TrimSpace(input.Image)
	if image == "" {
		image = models.DefaultProjectImage
	}

	project, err := s.projects.Create(ctx, models.Project{
		ID:          ids.New(),
		Title:       title,
		Description: description,
		ImageURL:    image,
	})
	if err != nil {
		return models.Project{}, apperr.Wrap(err, apperr.KindInternal, "Error creating project")
	}
	s.cache.Invalidate(ctx, cache.KeyProjects)
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, id string, input ProjectInput) (models.Project, error) {
	title, description := strings.TrimSpace(input.Title), strings.TrimSpace(input.Description)

	project, err := s.projects.UpdateText(ctx, id, title, description)
	if err != nil {
		return models.Project{}, projectErr(err, "Error updating project")
	}
	s.cache.Invalidate(ctx, cache.KeyProjects)
	return project, nil
}

func (s *ProjectService) ReplaceImage(ctx context.Context, id string, upload UploadInput) (models.Project, error) {
	upload.Folder = storage.FolderProjects
	upload.MaxBytes = s.maxBytes
	upload.Allowed = []sniffer.MediaType{sniffer.TypeJPEG, sniffer.TypePNG, sniffer.TypeGIF}

	asset, err := s.assets.Store(ctx, upload)
	if err != nil {
		return models.Project{}, err
	}

	previous, project, err := s.projects.UpdateImage(ctx, id, asset.URL, &asset.Key)
	if err != nil {
		s.assets.Discard(ctx, &asset.Key)
		return models.Project{}, projectErr(err, "Error updating project image")
	}
	s.assets.Discard(ctx, previous.ImageKey)
	s.cache.Invalidate(ctx, cache.KeyProjects)
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	project, err := s.projects.Delete(ctx, id)
	if err != nil {
		return projectErr(err, "Error deleting project")
	}
	s.assets.Discard(ctx, project.ImageKey)
	s.cache.Invalidate(ctx, cache.KeyProjects)
	return nil
}

func projectErr(err error, message string) error {
	if errors.Is(err, repository.ErrProjectNotFound) {
		return ErrProjectNotFound
	}
	return apperr.Wrap(err, apperr.KindInternal, message)
}
