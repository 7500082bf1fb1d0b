package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// SpecialEventsLimit caps the homepage promotional section.
const SpecialEventsLimit = 6

type DBLayer interface {
	ListUpcoming(ctx context.Context, now time.Time) ([]models.EventWithVenue, error)
	ListSpecial(ctx context.Context, now time.Time, limit int) ([]models.EventWithVenue, error)
	ListAll(ctx context.Context) ([]models.EventWithVenue, error)
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event models.Event) (int64, error)
	DeleteEvent(ctx context.Context, id int64) (int64, error)
}

// Publisher pushes event changes onto the catalog change feed.
type Publisher interface {
	PublishEventChange(action string, event models.Event) error
}

type EventService struct {
	DB        DBLayer
	Publisher Publisher
	Logger    *logger.Logger

	// Now supplies the query-time clock for the upcoming/past split. The
	// classification is computed per read, never stored.
	Now func() time.Time
}

func NewEventService(db DBLayer) *EventService {
	return &EventService{DB: db, Now: time.Now}
}

// IsUpcoming classifies an event start against a reference time.
func IsUpcoming(start, now time.Time) bool {
	return !start.Before(now)
}

func (s *EventService) ListUpcoming(ctx context.Context) ([]models.EventWithVenue, error) {
	events, err := s.DB.ListUpcoming(ctx, s.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, nil
}

func (s *EventService) ListSpecial(ctx context.Context) ([]models.EventWithVenue, error) {
	events, err := s.DB.ListSpecial(ctx, s.Now(), SpecialEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list special events: %w", err)
	}
	return events, nil
}

func (s *EventService) ListAll(ctx context.Context) ([]models.EventWithVenue, error) {
	events, err := s.DB.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all events: %w", err)
	}
	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, id int64) (*models.EventDetail, error) {
	detail, err := s.DB.GetEventDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return detail, nil
}

func (s *EventService) CreateEvent(ctx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	event, err := req.ToEvent()
	if err != nil {
		return nil, err
	}
	if err := s.DB.CreateEvent(ctx, &event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.publish("created", event)
	return &event, nil
}

// UpdateEvent merges the patch over the stored record and persists the result.
// Fields absent from the patch keep their prior values.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, patch models.EventPatch) (int64, error) {
	existing, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, err
	}

	merged, err := patch.Apply(*existing)
	if err != nil {
		return 0, err
	}
	changes, err := s.DB.UpdateEvent(ctx, merged)
	if err != nil {
		return 0, fmt.Errorf("failed to update event %d: %w", id, err)
	}
	s.publish("updated", merged)
	return changes, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	deleted, err := s.DB.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	if deleted == 0 {
		return ErrEventNotFound
	}
	s.publish("deleted", models.Event{ID: id})
	return nil
}

func (s *EventService) publish(action string, event models.Event) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishEventChange(action, event); err != nil && s.Logger != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish event %s: %v", action, err))
	}
}
