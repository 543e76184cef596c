package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CaioWing/filedrop/internal/domain"
)

// EventService records upload events. Without a repository it only logs.
type EventService struct {
	repo domain.EventRepository
	log  *slog.Logger
}

func NewEventService(repo domain.EventRepository, log *slog.Logger) *EventService {
	return &EventService{repo: repo, log: log}
}

// Log records an event. It is fire-and-forget: errors are logged but not propagated.
func (s *EventService) Log(ctx context.Context, event *domain.UploadEvent) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.log.Warn("failed to write upload event", "action", event.Action, "filename", event.Filename, "err", err)
	}
}

func (s *EventService) List(ctx context.Context, filter domain.EventFilter) ([]*domain.UploadEvent, int, error) {
	if filter.Action != nil && *filter.Action != domain.ActionFileStore && *filter.Action != domain.ActionFileDeleteAll {
		return nil, 0, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, *filter.Action)
	}
	if filter.SortOrder != "" && filter.SortOrder != "asc" && filter.SortOrder != "desc" {
		return nil, 0, fmt.Errorf("%w: order must be asc or desc", domain.ErrInvalidInput)
	}
	if s == nil || s.repo == nil {
		return []*domain.UploadEvent{}, 0, nil
	}
	return s.repo.List(ctx, filter)
}

// Enabled reports whether events are persisted.
func (s *EventService) Enabled() bool {
	return s != nil && s.repo != nil
}
