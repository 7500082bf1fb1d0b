package venues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

var (
	ErrVenueNotFound  = errors.New("venue not found")
	ErrVenueHasEvents = errors.New("cannot delete venue with existing events")
)

type DBLayer interface {
	ListVenues(ctx context.Context) ([]models.Venue, error)
	GetVenueByID(ctx context.Context, id int64) (*models.Venue, error)
	CreateVenue(ctx context.Context, venue *models.Venue) error
	UpdateVenue(ctx context.Context, venue models.Venue) (int64, error)
	DeleteVenue(ctx context.Context, id int64) (int64, error)
	CountEventsForVenue(ctx context.Context, venueID int64) (int, error)
	ListUpcomingEventsForVenue(ctx context.Context, venueID int64, now time.Time) ([]models.EventWithVenue, error)
}

// Publisher pushes venue changes onto the catalog change feed.
type Publisher interface {
	PublishVenueChange(action string, venue models.Venue) error
}

type VenueService struct {
	DB        DBLayer
	Publisher Publisher
	Logger    *logger.Logger

	// Now supplies the query-time clock for the upcoming filter.
	Now func() time.Time
}

func NewVenueService(db DBLayer) *VenueService {
	return &VenueService{DB: db, Now: time.Now}
}

func (s *VenueService) ListVenues(ctx context.Context) ([]models.Venue, error) {
	venues, err := s.DB.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	return venues, nil
}

func (s *VenueService) GetVenue(ctx context.Context, id int64) (*models.Venue, error) {
	venue, err := s.DB.GetVenueByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

func (s *VenueService) CreateVenue(ctx context.Context, req models.CreateVenueRequest) (*models.Venue, error) {
	venue := req.ToVenue()
	if err := s.DB.CreateVenue(ctx, &venue); err != nil {
		return nil, fmt.Errorf("failed to create venue: %w", err)
	}
	s.publish("created", venue)
	return &venue, nil
}

// UpdateVenue merges the patch over the stored record and persists the result.
// Fields absent from the patch keep their prior values.
func (s *VenueService) UpdateVenue(ctx context.Context, id int64, patch models.VenuePatch) (int64, error) {
	existing, err := s.GetVenue(ctx, id)
	if err != nil {
		return 0, err
	}

	merged := patch.Apply(*existing)
	changes, err := s.DB.UpdateVenue(ctx, merged)
	if err != nil {
		return 0, fmt.Errorf("failed to update venue %d: %w", id, err)
	}
	s.publish("updated", merged)
	return changes, nil
}

// DeleteVenue refuses to remove a venue that still has events.
func (s *VenueService) DeleteVenue(ctx context.Context, id int64) error {
	count, err := s.DB.CountEventsForVenue(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count events for venue %d: %w", id, err)
	}
	if count > 0 {
		return ErrVenueHasEvents
	}

	deleted, err := s.DB.DeleteVenue(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete venue %d: %w", id, err)
	}
	if deleted == 0 {
		return ErrVenueNotFound
	}
	s.publish("deleted", models.Venue{ID: id})
	return nil
}

func (s *VenueService) ListUpcomingEvents(ctx context.Context, venueID int64) ([]models.EventWithVenue, error) {
	events, err := s.DB.ListUpcomingEventsForVenue(ctx, venueID, s.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list events for venue %d: %w", venueID, err)
	}
	return events, nil
}

func (s *VenueService) publish(action string, venue models.Venue) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishVenueChange(action, venue); err != nil && s.Logger != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish venue %s: %v", action, err))
	}
}
