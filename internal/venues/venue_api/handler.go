package venue_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
	"ms-catalog/internal/utils"
	"ms-catalog/internal/venues"
)

type Handler struct {
	VenueService *venues.VenueService
	Logger       *logger.Logger
}

func NewHandler(venueService *venues.VenueService, log *logger.Logger) *Handler {
	return &Handler{
		VenueService: venueService,
		Logger:       log,
	}
}

// RegisterRoutes mounts the venue endpoints under /api/venues.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/venues", func(r chi.Router) {
		r.Get("/", h.ListVenues)
		r.Post("/", h.CreateVenue)
		r.Get("/{id}", h.GetVenue)
		r.Put("/{id}", h.UpdateVenue)
		r.Delete("/{id}", h.DeleteVenue)
		r.Get("/{id}/events", h.ListVenueEvents)
	})
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venueList, err := h.VenueService.ListVenues(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListVenues: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list venues")
		return
	}
	if venueList == nil {
		venueList = []models.Venue{}
	}
	utils.WriteJSON(w, http.StatusOK, venueList)
}

func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	venue, err := h.VenueService.CreateVenue(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateVenue: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create venue")
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateVenue: created venue %d", venue.ID))
	utils.WriteJSON(w, http.StatusCreated, venue)
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.venueID(w, r)
	if !ok {
		return
	}

	venue, err := h.VenueService.GetVenue(r.Context(), id)
	if err != nil {
		if errors.Is(err, venues.ErrVenueNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetVenue: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch venue")
		return
	}
	utils.WriteJSON(w, http.StatusOK, venue)
}

func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.venueID(w, r)
	if !ok {
		return
	}

	var patch models.VenuePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.VenueService.UpdateVenue(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, venues.ErrVenueNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UpdateVenue: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update venue")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "changes": changes})
}

func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.venueID(w, r)
	if !ok {
		return
	}

	err := h.VenueService.DeleteVenue(r.Context(), id)
	switch {
	case errors.Is(err, venues.ErrVenueHasEvents):
		utils.WriteError(w, http.StatusBadRequest, "Cannot delete venue with existing events")
	case errors.Is(err, venues.ErrVenueNotFound):
		utils.WriteError(w, http.StatusNotFound, "Venue not found")
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("DeleteVenue: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete venue")
	default:
		h.Logger.Info("API", fmt.Sprintf("DeleteVenue: deleted venue %d", id))
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func (h *Handler) ListVenueEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.venueID(w, r)
	if !ok {
		return
	}

	events, err := h.VenueService.ListUpcomingEvents(r.Context(), id)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListVenueEvents: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list venue events")
		return
	}
	if events == nil {
		events = []models.EventWithVenue{}
	}
	utils.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) venueID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid venue id")
		return 0, false
	}
	return id, true
}
