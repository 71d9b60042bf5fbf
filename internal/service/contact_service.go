package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/queue"
)

type ContactService struct {
	queue TaskQueue
	log   zerolog.Logger
	now   func() time.Time
}

func NewContactService(queue TaskQueue, log zerolog.Logger) *ContactService {
	return &ContactService{queue: queue, log: log, now: time.Now}
}

// Submit hands a bound contact form to the worker for delivery.
func (s *ContactService) Submit(ctx context.Context, name, email, message string) error {
	msg := models.ContactMessage{
		Name:       strings.TrimSpace(name),
		Email:      strings.TrimSpace(email),
		Message:    strings.TrimSpace(message),
		ReceivedAt: s.now().UTC(),
	}

	if err := s.queue.Enqueue(ctx, queue.TypeContactSend, msg); err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "Failed to send message. Please try again later.")
	}
	s.log.Info().Str("from", msg.Email).Msg("contact message queued")
	return nil
}
