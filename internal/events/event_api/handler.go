package event_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-catalog/internal/blob"
	"ms-catalog/internal/config"
	"ms-catalog/internal/events"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
	"ms-catalog/internal/qr"
	"ms-catalog/internal/utils"
)

// MIME types accepted for uploaded event images.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type Handler struct {
	EventService *events.EventService
	Blob         blob.Store
	Logger       *logger.Logger

	MaxUploadBytes int64
	ImageBasePath  string
	PublicURL      string
}

func NewHandler(eventService *events.EventService, store blob.Store, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		EventService:   eventService,
		Blob:           store,
		Logger:         log,
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
		ImageBasePath:  cfg.Blob.ImageBasePath,
		PublicURL:      cfg.Server.PublicURL,
	}
}

// RegisterRoutes mounts the event endpoints under /api/events.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListUpcoming)
		r.Get("/special", h.ListSpecial)
		r.Get("/all", h.ListAll)
		r.Post("/", h.CreateEvent)
		r.Post("/upload-image", h.UploadImage)
		r.Get("/images/{filename}", h.GetImage)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Get("/{id}/qr", h.EventQR)
	})
}

func (h *Handler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.EventService.ListUpcoming, "ListUpcoming")
}

func (h *Handler) ListSpecial(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.EventService.ListSpecial, "ListSpecial")
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.writeEventList(w, r, h.EventService.ListAll, "ListAll")
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	detail, err := h.EventService.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}
	utils.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest

	if isMultipart(r) {
		parsed, err := h.eventRequestFromForm(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = *parsed
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateEvent: created event %d", event.ID))
	utils.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var patch models.EventPatch
	if isMultipart(r) {
		parsed, err := h.eventPatchFromForm(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch = *parsed
	} else if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := patch.Validate(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.EventService.UpdateEvent(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UpdateEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "changes": changes})
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.EventService.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("DeleteEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeleteEvent: deleted event %d", id))
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UploadImage stores a multipart image and returns the URL it is served from.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	imageURL, err := h.storeUploadedImage(r)
	if err != nil {
		var ve *validationError
		if errors.As(err, &ve) {
			utils.WriteError(w, http.StatusBadRequest, ve.msg)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UploadImage: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}
	if imageURL == nil {
		utils.WriteError(w, http.StatusBadRequest, "An image file is required")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"image_url": *imageURL})
}

// GetImage streams a stored blob back with its content type and entity tag.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	obj, err := h.Blob.Get(r.Context(), filename)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Image not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetImage: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch image")
		return
	}

	w.Header().Set("ETag", `"`+obj.ETag+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Trim(match, `"`) == obj.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Write(obj.Data)
}

// EventQR renders a QR code for the event's ticket link, falling back to the
// public detail page when no ticket URL is set.
func (h *Handler) EventQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	detail, err := h.EventService.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("EventQR: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}

	target := fmt.Sprintf("%s/events/%d", h.PublicURL, id)
	if detail.TicketURL != nil {
		target = *detail.TicketURL
	}

	png, err := qr.EncodePNG(target)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("EventQR: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// storeUploadedImage validates and stores the "image" file part, returning
// the served URL. A nil URL with nil error means no file was attached.
func (h *Handler) storeUploadedImage(r *http.Request) (*string, error) {
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		return nil, &validationError{msg: "Failed to parse form data"}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, &validationError{msg: "Failed to read image file"}
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return nil, &validationError{msg: "Image must be a JPEG, PNG or WebP file"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	filename := utils.GenerateImageFilename(header.Filename, contentType)
	if err := h.Blob.Put(r.Context(), filename, blob.NewObject(data, contentType)); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	imageURL := h.ImageBasePath + "/" + filename
	h.Logger.Info("BLOB", fmt.Sprintf("Stored image %s (%d bytes, %s)", filename, len(data), contentType))
	return &imageURL, nil
}

// eventRequestFromForm builds a create request from an admin multipart form,
// storing the attached image (if any) before the record is persisted.
func (h *Handler) eventRequestFromForm(r *http.Request) (*models.CreateEventRequest, error) {
	imageURL, err := h.storeUploadedImage(r)
	if err != nil {
		return nil, err
	}

	req := models.CreateEventRequest{
		Title:         r.FormValue("title"),
		Description:   formPtr(r, "description"),
		StartDateTime: r.FormValue("start_date_time"),
		EndDateTime:   formPtr(r, "end_date_time"),
		ImageURL:      formPtr(r, "image_url"),
		TicketURL:     formPtr(r, "ticket_url"),
	}

	if v := r.FormValue("venue_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &validationError{msg: "venue_id must be a positive integer"}
		}
		req.VenueID = id
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &validationError{msg: "price must be a number"}
		}
		req.Price = &price
	}
	if v := r.FormValue("is_featured"); v != "" {
		req.IsFeatured, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("is_special"); v != "" {
		req.IsSpecial, _ = strconv.Atoi(v)
	}

	// An uploaded file wins over a pasted image_url
	if imageURL != nil {
		req.ImageURL = imageURL
	}
	return &req, nil
}

// eventPatchFromForm builds a patch from an admin multipart form. Only fields
// present in the form override stored values.
func (h *Handler) eventPatchFromForm(r *http.Request) (*models.EventPatch, error) {
	imageURL, err := h.storeUploadedImage(r)
	if err != nil {
		return nil, err
	}

	patch := models.EventPatch{
		Title:         formPtr(r, "title"),
		Description:   formPtr(r, "description"),
		StartDateTime: formPtr(r, "start_date_time"),
		EndDateTime:   formPtr(r, "end_date_time"),
		ImageURL:      formPtr(r, "image_url"),
		TicketURL:     formPtr(r, "ticket_url"),
	}

	if v := r.FormValue("venue_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &validationError{msg: "venue_id must be a positive integer"}
		}
		patch.VenueID = &id
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &validationError{msg: "price must be a number"}
		}
		patch.Price = &price
	}
	if v := r.FormValue("is_featured"); v != "" {
		flag, _ := strconv.Atoi(v)
		patch.IsFeatured = &flag
	}
	if v := r.FormValue("is_special"); v != "" {
		flag, _ := strconv.Atoi(v)
		patch.IsSpecial = &flag
	}

	if imageURL != nil {
		patch.ImageURL = imageURL
	}
	return &patch, nil
}

func (h *Handler) writeEventList(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context) ([]models.EventWithVenue, error), name string) {
	eventList, err := list(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", name, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if eventList == nil {
		eventList = []models.EventWithVenue{}
	}
	utils.WriteJSON(w, http.StatusOK, eventList)
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id")
		return 0, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func formPtr(r *http.Request, key string) *string {
	if v := r.FormValue(key); v != "" {
		return &v
	}
	return nil
}
