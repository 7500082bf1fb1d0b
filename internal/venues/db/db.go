package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-catalog/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ListVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := d.Bun.NewSelect().
		Model(&venues).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return venues, nil
}

func (d *DB) GetVenueByID(ctx context.Context, id int64) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

// CreateVenue inserts the venue and fills in its store-assigned id.
func (d *DB) CreateVenue(ctx context.Context, venue *models.Venue) error {
	now := time.Now()
	venue.CreatedAt = now
	venue.UpdatedAt = now
	_, err := d.Bun.NewInsert().Model(venue).Exec(ctx)
	return err
}

// UpdateVenue persists a full venue record and returns the changed row count.
func (d *DB) UpdateVenue(ctx context.Context, venue models.Venue) (int64, error) {
	venue.UpdatedAt = time.Now()
	res, err := d.Bun.NewUpdate().
		Model(&venue).
		Column("name", "description", "address", "city", "image_url", "logo_url", "website", "phone", "updated_at").
		Where("id = ?", venue.ID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) DeleteVenue(ctx context.Context, id int64) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Venue)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) CountEventsForVenue(ctx context.Context, venueID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("venue_id = ?", venueID).
		Count(ctx)
}

// ListUpcomingEventsForVenue returns events at the venue starting at or after
// now, soonest first.
func (d *DB) ListUpcomingEventsForVenue(ctx context.Context, venueID int64, now time.Time) ([]models.EventWithVenue, error) {
	var events []models.EventWithVenue
	err := d.Bun.NewSelect().
		Model(&events).
		ModelTableExpr("events AS e").
		ColumnExpr("e.*").
		ColumnExpr("v.name AS venue_name, v.city AS venue_city").
		Join("JOIN venues AS v ON v.id = e.venue_id").
		Where("e.venue_id = ?", venueID).
		Where("e.start_date_time >= ?", now).
		OrderExpr("e.start_date_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}
