package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Title         string     `bun:"title,notnull" json:"title"`
	Description   *string    `bun:"description" json:"description"`
	VenueID       int64      `bun:"venue_id,notnull" json:"venue_id"`
	StartDateTime time.Time  `bun:"start_date_time,notnull" json:"start_date_time"`
	EndDateTime   *time.Time `bun:"end_date_time" json:"end_date_time"`
	Price         *float64   `bun:"price" json:"price"`
	ImageURL      *string    `bun:"image_url" json:"image_url"`
	TicketURL     *string    `bun:"ticket_url" json:"ticket_url"`
	IsFeatured    int        `bun:"is_featured,notnull" json:"is_featured"`
	IsSpecial     int        `bun:"is_special,notnull" json:"is_special"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// EventWithVenue carries the venue columns joined onto event list rows.
type EventWithVenue struct {
	Event `bun:",extend"`

	VenueName string  `bun:"venue_name,scanonly" json:"venue_name"`
	VenueCity *string `bun:"venue_city,scanonly" json:"venue_city,omitempty"`
}

// EventDetail is the full join used by the event detail page.
type EventDetail struct {
	Event `bun:",extend"`

	VenueName    string  `bun:"venue_name,scanonly" json:"venue_name"`
	VenueAddress *string `bun:"venue_address,scanonly" json:"venue_address,omitempty"`
	VenueCity    *string `bun:"venue_city,scanonly" json:"venue_city,omitempty"`
	VenuePhone   *string `bun:"venue_phone,scanonly" json:"venue_phone,omitempty"`
	VenueWebsite *string `bun:"venue_website,scanonly" json:"venue_website,omitempty"`
	VenueLogoURL *string `bun:"venue_logo_url,scanonly" json:"venue_logo_url,omitempty"`
}

type CreateEventRequest struct {
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	VenueID       int64    `json:"venue_id"`
	StartDateTime string   `json:"start_date_time"`
	EndDateTime   *string  `json:"end_date_time"`
	Price         *float64 `json:"price"`
	ImageURL      *string  `json:"image_url"`
	TicketURL     *string  `json:"ticket_url"`
	IsFeatured    int      `json:"is_featured"`
	IsSpecial     int      `json:"is_special"`
}

func (r CreateEventRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.VenueID <= 0 {
		return errors.New("venue_id must be a positive integer")
	}
	if r.StartDateTime == "" {
		return errors.New("start_date_time is required")
	}
	if _, err := ParseDateTime(r.StartDateTime); err != nil {
		return errors.New("start_date_time is not a valid date-time")
	}
	if r.EndDateTime != nil {
		if _, err := ParseDateTime(*r.EndDateTime); err != nil {
			return errors.New("end_date_time is not a valid date-time")
		}
	}
	if r.Price != nil && *r.Price <= 0 {
		return errors.New("price must be positive")
	}
	for field, value := range map[string]*string{
		"image_url":  r.ImageURL,
		"ticket_url": r.TicketURL,
	} {
		if value != nil && !IsURL(*value) {
			return errors.New(field + " must be a valid URL")
		}
	}
	if err := validateFlag("is_featured", r.IsFeatured); err != nil {
		return err
	}
	return validateFlag("is_special", r.IsSpecial)
}

func (r CreateEventRequest) ToEvent() (Event, error) {
	start, err := ParseDateTime(r.StartDateTime)
	if err != nil {
		return Event{}, err
	}
	event := Event{
		Title:         r.Title,
		Description:   r.Description,
		VenueID:       r.VenueID,
		StartDateTime: start,
		Price:         r.Price,
		ImageURL:      r.ImageURL,
		TicketURL:     r.TicketURL,
		IsFeatured:    r.IsFeatured,
		IsSpecial:     r.IsSpecial,
	}
	if r.EndDateTime != nil {
		end, err := ParseDateTime(*r.EndDateTime)
		if err != nil {
			return Event{}, err
		}
		event.EndDateTime = &end
	}
	return event, nil
}

// EventPatch is a partial event update. Nil fields keep the stored value.
type EventPatch struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	VenueID       *int64   `json:"venue_id"`
	StartDateTime *string  `json:"start_date_time"`
	EndDateTime   *string  `json:"end_date_time"`
	Price         *float64 `json:"price"`
	ImageURL      *string  `json:"image_url"`
	TicketURL     *string  `json:"ticket_url"`
	IsFeatured    *int     `json:"is_featured"`
	IsSpecial     *int     `json:"is_special"`
}

func (p EventPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return errors.New("title cannot be empty")
	}
	if p.VenueID != nil && *p.VenueID <= 0 {
		return errors.New("venue_id must be a positive integer")
	}
	for field, value := range map[string]*string{
		"start_date_time": p.StartDateTime,
		"end_date_time":   p.EndDateTime,
	} {
		if value != nil {
			if _, err := ParseDateTime(*value); err != nil {
				return errors.New(field + " is not a valid date-time")
			}
		}
	}
	if p.Price != nil && *p.Price <= 0 {
		return errors.New("price must be positive")
	}
	for field, value := range map[string]*string{
		"image_url":  p.ImageURL,
		"ticket_url": p.TicketURL,
	} {
		if value != nil && !IsURL(*value) {
			return errors.New(field + " must be a valid URL")
		}
	}
	if p.IsFeatured != nil {
		if err := validateFlag("is_featured", *p.IsFeatured); err != nil {
			return err
		}
	}
	if p.IsSpecial != nil {
		if err := validateFlag("is_special", *p.IsSpecial); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch over an existing event and returns the merged record.
func (p EventPatch) Apply(e Event) (Event, error) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.VenueID != nil {
		e.VenueID = *p.VenueID
	}
	if p.StartDateTime != nil {
		start, err := ParseDateTime(*p.StartDateTime)
		if err != nil {
			return Event{}, err
		}
		e.StartDateTime = start
	}
	if p.EndDateTime != nil {
		end, err := ParseDateTime(*p.EndDateTime)
		if err != nil {
			return Event{}, err
		}
		e.EndDateTime = &end
	}
	if p.Price != nil {
		e.Price = p.Price
	}
	if p.ImageURL != nil {
		e.ImageURL = p.ImageURL
	}
	if p.TicketURL != nil {
		e.TicketURL = p.TicketURL
	}
	if p.IsFeatured != nil {
		e.IsFeatured = *p.IsFeatured
	}
	if p.IsSpecial != nil {
		e.IsSpecial = *p.IsSpecial
	}
	return e, nil
}

func validateFlag(field string, v int) error {
	if v != 0 && v != 1 {
		return errors.New(field + " must be 0 or 1")
	}
	return nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDateTime accepts RFC 3339 timestamps and the shapes produced by
// browser datetime-local inputs.
func ParseDateTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
