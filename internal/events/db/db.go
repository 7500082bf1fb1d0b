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

const listColumns = "v.name AS venue_name, v.city AS venue_city"

// ListUpcoming returns events starting at or after now joined with their
// venue's name and city, soonest first.
func (d *DB) ListUpcoming(ctx context.Context, now time.Time) ([]models.EventWithVenue, error) {
	var events []models.EventWithVenue
	err := d.Bun.NewSelect().
		Model(&events).
		ModelTableExpr("events AS e").
		ColumnExpr("e.*").
		ColumnExpr(listColumns).
		Join("JOIN venues AS v ON v.id = e.venue_id").
		Where("e.start_date_time >= ?", now).
		OrderExpr("e.start_date_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListSpecial returns up to limit upcoming events flagged is_special.
func (d *DB) ListSpecial(ctx context.Context, now time.Time, limit int) ([]models.EventWithVenue, error) {
	var events []models.EventWithVenue
	err := d.Bun.NewSelect().
		Model(&events).
		ModelTableExpr("events AS e").
		ColumnExpr("e.*").
		ColumnExpr(listColumns).
		Join("JOIN venues AS v ON v.id = e.venue_id").
		Where("e.is_special = 1").
		Where("e.start_date_time >= ?", now).
		OrderExpr("e.start_date_time ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListAll returns every event, past included, newest start first. Used by the
// admin dashboard which splits upcoming/past client-side.
func (d *DB) ListAll(ctx context.Context) ([]models.EventWithVenue, error) {
	var events []models.EventWithVenue
	err := d.Bun.NewSelect().
		Model(&events).
		ModelTableExpr("events AS e").
		ColumnExpr("e.*").
		ColumnExpr(listColumns).
		Join("JOIN venues AS v ON v.id = e.venue_id").
		OrderExpr("e.start_date_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventDetail joins the full venue contact columns for the detail page.
func (d *DB) GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error) {
	var detail models.EventDetail
	err := d.Bun.NewSelect().
		Model(&detail).
		ModelTableExpr("events AS e").
		ColumnExpr("e.*").
		ColumnExpr("v.name AS venue_name, v.address AS venue_address, v.city AS venue_city").
		ColumnExpr("v.phone AS venue_phone, v.website AS venue_website, v.logo_url AS venue_logo_url").
		Join("JOIN venues AS v ON v.id = e.venue_id").
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateEvent inserts the event and fills in its store-assigned id.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// UpdateEvent persists a full event record and returns the changed row count.
func (d *DB) UpdateEvent(ctx context.Context, event models.Event) (int64, error) {
	event.UpdatedAt = time.Now()
	res, err := d.Bun.NewUpdate().
		Model(&event).
		Column("title", "description", "venue_id", "start_date_time", "end_date_time",
			"price", "image_url", "ticket_url", "is_featured", "is_special", "updated_at").
		Where("id = ?", event.ID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) DeleteEvent(ctx context.Context, id int64) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
