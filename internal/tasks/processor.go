package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/mail"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/queue"
	"humanityclub/site/internal/storage"
)

type ContactMailer interface {
	SendContact(ctx context.Context, msg models.ContactMessage) error
}

type ObjectStore interface {
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

type ProjectDeduper interface {
	DeleteDuplicates(ctx context.Context) ([]models.Project, error)
}

type KeySource interface {
	ReferencedObjectKeys(ctx context.Context) (map[string]struct{}, error)
}

type Processor struct {
	logger      zerolog.Logger
	mailer      ContactMailer
	objects     ObjectStore
	projects    ProjectDeduper
	keys        KeySource
	sweepMinAge time.Duration
	now         func() time.Time
}

func NewProcessor(logger zerolog.Logger, mailer ContactMailer, objects ObjectStore, projects ProjectDeduper, keys KeySource, sweepMinAge time.Duration) *Processor {
	return &Processor{
		logger:      logger,
		mailer:      mailer,
		objects:     objects,
		projects:    projects,
		keys:        keys,
		sweepMinAge: sweepMinAge,
		now:         time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case queue.TypeContactSend:
		return p.handleContact(ctx, task)
	case queue.TypeObjectDelete:
		return p.handleObjectDelete(ctx, task)
	case queue.TypeProjectsDedupe:
		return p.handleDedupe(ctx)
	case queue.TypeObjectsSweep:
		return p.handleSweep(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleContact(ctx context.Context, task queue.Task) error {
	var msg models.ContactMessage
	if err := task.Decode(&msg); err != nil {
		return err
	}
	if err := p.mailer.SendContact(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			// Nothing will change until the relay is configured; keep the
			// submission in the log instead of redelivering forever.
			p.logger.Warn().Str("from", msg.Email).Msg("mail relay not configured, contact message dropped")
			return nil
		}
		return fmt.Errorf("send contact mail: %w", err)
	}
	p.logger.Info().Str("task_id", task.ID).Msg("contact message delivered")
	return nil
}

func (p *Processor) handleObjectDelete(ctx context.Context, task queue.Task) error {
	var payload queue.ObjectDeletePayload
	if err := task.Decode(&payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.Key) == "" {
		return fmt.Errorf("%w: empty object key", queue.ErrMalformedTask)
	}
	if err := p.objects.Remove(ctx, payload.Key); err != nil {
		return err
	}
	p.logger.Debug().Str("key", payload.Key).Msg("object removed")
	return nil
}

func (p *Processor) handleDedupe(ctx context.Context) error {
	removed, err := p.projects.DeleteDuplicates(ctx)
	if err != nil {
		return fmt.Errorf("dedupe projects: %w", err)
	}
	for _, project := range removed {
		if project.ImageKey == nil {
			continue
		}
		if err := p.objects.Remove(ctx, *project.ImageKey); err != nil {
			p.logger.Warn().Err(err).Str("project_id", project.ID).Msg("remove duplicate project image failed")
		}
	}
	p.logger.Info().Int("removed", len(removed)).Msg("duplicate projects removed")
	return nil
}

// handleSweep removes objects no row references. Objects younger than
// sweepMinAge are left alone so an upload whose row is still being written
// is never swept.
func (p *Processor) handleSweep(ctx context.Context) error {
	referenced, err := p.keys.ReferencedObjectKeys(ctx)
	if err != nil {
		return fmt.Errorf("load referenced keys: %w", err)
	}

	cutoff := p.now().Add(-p.sweepMinAge)
	swept := 0
	for _, folder := range []string{storage.FolderGallery, storage.FolderProjects, storage.FolderQR, storage.FolderFounder} {
		objects, err := p.objects.List(ctx, folder+"/")
		if err != nil {
			return fmt.Errorf("list %s: %w", folder, err)
		}
		for _, obj := range objects {
			if _, ok := referenced[obj.Key]; ok || obj.LastModified.After(cutoff) {
				continue
			}
			if err := p.objects.Remove(ctx, obj.Key); err != nil {
				p.logger.Warn().Err(err).Str("key", obj.Key).Msg("sweep remove failed")
				continue
			}
			swept++
		}
	}
	p.logger.Info().Int("swept", swept).Msg("orphaned objects swept")
	return nil
}
