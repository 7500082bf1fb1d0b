package models

import (
	"errors"
	"net/url"
	"time"

	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description *string   `bun:"description" json:"description"`
	Address     *string   `bun:"address" json:"address"`
	City        *string   `bun:"city" json:"city"`
	ImageURL    *string   `bun:"image_url" json:"image_url"`
	LogoURL     *string   `bun:"logo_url" json:"logo_url"`
	Website     *string   `bun:"website" json:"website"`
	Phone       *string   `bun:"phone" json:"phone"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateVenueRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	ImageURL    *string `json:"image_url"`
	LogoURL     *string `json:"logo_url"`
	Website     *string `json:"website"`
	Phone       *string `json:"phone"`
}

func (r CreateVenueRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	for field, value := range map[string]*string{
		"image_url": r.ImageURL,
		"logo_url":  r.LogoURL,
		"website":   r.Website,
	} {
		if value != nil && !IsURL(*value) {
			return errors.New(field + " must be a valid URL")
		}
	}
	return nil
}

func (r CreateVenueRequest) ToVenue() Venue {
	return Venue{
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		City:        r.City,
		ImageURL:    r.ImageURL,
		LogoURL:     r.LogoURL,
		Website:     r.Website,
		Phone:       r.Phone,
	}
}

// VenuePatch is a partial venue update. Nil fields keep the stored value.
type VenuePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	ImageURL    *string `json:"image_url"`
	LogoURL     *string `json:"logo_url"`
	Website     *string `json:"website"`
	Phone       *string `json:"phone"`
}

func (p VenuePatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return errors.New("name cannot be empty")
	}
	for field, value := range map[string]*string{
		"image_url": p.ImageURL,
		"logo_url":  p.LogoURL,
		"website":   p.Website,
	} {
		if value != nil && !IsURL(*value) {
			return errors.New(field + " must be a valid URL")
		}
	}
	return nil
}

// Apply merges the patch over an existing venue and returns the merged record.
func (p VenuePatch) Apply(v Venue) Venue {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Description != nil {
		v.Description = p.Description
	}
	if p.Address != nil {
		v.Address = p.Address
	}
	if p.City != nil {
		v.City = p.City
	}
	if p.ImageURL != nil {
		v.ImageURL = p.ImageURL
	}
	if p.LogoURL != nil {
		v.LogoURL = p.LogoURL
	}
	if p.Website != nil {
		v.Website = p.Website
	}
	if p.Phone != nil {
		v.Phone = p.Phone
	}
	return v
}

// IsURL reports whether s is an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
