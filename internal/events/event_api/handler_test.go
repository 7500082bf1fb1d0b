package event_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-catalog/internal/blob"
	"ms-catalog/internal/config"
	"ms-catalog/internal/events"
	eventdb "ms-catalog/internal/events/db"
	"ms-catalog/internal/events/event_api"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

// MemoryBlobStore is a map-backed blob.Store used in place of Redis
type MemoryBlobStore struct {
	objects map[string]blob.Object
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string]blob.Object)}
}

func (m *MemoryBlobStore) Put(ctx context.Context, filename string, obj blob.Object) error {
	m.objects[filename] = obj
	return nil
}

func (m *MemoryBlobStore) Get(ctx context.Context, filename string) (*blob.Object, error) {
	obj, exists := m.objects[filename]
	if !exists {
		return nil, blob.ErrNotFound
	}
	return &obj, nil
}

var fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) (chi.Router, *eventdb.DB, *MemoryBlobStore) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.Venue)(nil), (*models.Event)(nil)); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	store := &eventdb.DB{Bun: bunDB}
	svc := events.NewEventService(store)
	svc.Now = func() time.Time { return fixedNow }

	blobStore := NewMemoryBlobStore()
	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: "http://localhost:8083"},
		Blob: config.BlobConfig{
			MaxUploadBytes: 10 << 20,
			ImageBasePath:  "/api/events/images",
		},
	}

	r := chi.NewRouter()
	event_api.NewHandler(svc, blobStore, cfg, &logger.Logger{}).RegisterRoutes(r)
	return r, store, blobStore
}

func seedVenue(t *testing.T, store *eventdb.DB, name string) models.Venue {
	t.Helper()
	venue := models.Venue{
		Name:      name,
		City:      ptr("Portsmouth"),
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	if _, err := store.Bun.NewInsert().Model(&venue).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert venue: %v", err)
	}
	return venue
}

func ptr(s string) *string { return &s }

func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// multipartBody builds a form with the given fields and an optional image part
func multipartBody(t *testing.T, fields map[string]string, imageName, imageType string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("Failed to write form field %s: %v", key, err)
		}
	}
	if imageName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, imageName))
		header.Set("Content-Type", imageType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("Failed to create image part: %v", err)
		}
		if _, err := part.Write(imageData); err != nil {
			t.Fatalf("Failed to write image data: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestCreateAndGetEvent(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "The Velvet Room")

	rec := doJSON(t, r, http.MethodPost, "/api/events/", map[string]interface{}{
		"title":           "Open Mic Night",
		"venue_id":        venue.ID,
		"start_date_time": "2026-09-04T20:00:00Z",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created models.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var detail models.EventDetail
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Open Mic Night", detail.Title)
	assert.Equal(t, "The Velvet Room", detail.VenueName)
}

func TestCreateEventValidation(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "The Velvet Room")

	cases := []map[string]interface{}{
		{"venue_id": venue.ID, "start_date_time": "2026-09-04T20:00:00Z"},
		{"title": "X", "start_date_time": "2026-09-04T20:00:00Z"},
		{"title": "X", "venue_id": -1, "start_date_time": "2026-09-04T20:00:00Z"},
		{"title": "X", "venue_id": venue.ID, "start_date_time": "soon"},
		{"title": "X", "venue_id": venue.ID, "start_date_time": "2026-09-04T20:00:00Z", "price": -5},
		{"title": "X", "venue_id": venue.ID, "start_date_time": "2026-09-04T20:00:00Z", "is_special": 2},
		{"title": "X", "venue_id": venue.ID, "start_date_time": "2026-09-04T20:00:00Z", "ticket_url": "nope"},
	}
	for i, body := range cases {
		rec := doJSON(t, r, http.MethodPost, "/api/events/", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
	}
}

func TestListEndpoints(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "Granite Hall")

	seed := []models.Event{
		{Title: "Past Show", VenueID: venue.ID, StartDateTime: fixedNow.Add(-24 * time.Hour)},
		{Title: "Tomorrow", VenueID: venue.ID, StartDateTime: fixedNow.Add(24 * time.Hour)},
		{Title: "Special Night", VenueID: venue.ID, StartDateTime: fixedNow.Add(48 * time.Hour), IsSpecial: 1},
	}
	for i := range seed {
		if err := store.CreateEvent(context.Background(), &seed[i]); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}

	rec := doJSON(t, r, http.MethodGet, "/api/events/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var upcoming []models.EventWithVenue
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upcoming))
	assert.Len(t, upcoming, 2)

	rec = doJSON(t, r, http.MethodGet, "/api/events/special", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var special []models.EventWithVenue
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &special))
	if assert.Len(t, special, 1) {
		assert.Equal(t, "Special Night", special[0].Title)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/events/all", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var all []models.EventWithVenue
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)
}

func TestUpdateEventMerges(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "Granite Hall")

	rec := doJSON(t, r, http.MethodPost, "/api/events/", map[string]interface{}{
		"title":           "Winter Jazz Series",
		"description":     "Quartet residency.",
		"venue_id":        venue.ID,
		"start_date_time": "2026-12-05T19:30:00Z",
		"price":           25.0,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created models.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/events/%d", created.ID), map[string]interface{}{
		"title": "Winter Jazz Series: Night Two",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d", created.ID), nil)
	var detail models.EventDetail
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Winter Jazz Series: Night Two", detail.Title)

	// Fields absent from the update keep their stored values
	assert.Equal(t, "Quartet residency.", *detail.Description)
	assert.Equal(t, 25.0, *detail.Price)
}

func TestDeleteEvent(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "Granite Hall")

	rec := doJSON(t, r, http.MethodPost, "/api/events/", map[string]interface{}{
		"title":           "Open Mic Night",
		"venue_id":        venue.ID,
		"start_date_time": "2026-09-04T20:00:00Z",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created models.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/events/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/events/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImageRoundTrip(t *testing.T) {
	r, _, _ := setupRouter(t)
	imageData := []byte("png-bytes-here")

	body, contentType := multipartBody(t, nil, "flyer.png", "image/png", imageData)
	req := httptest.NewRequest(http.MethodPost, "/api/events/upload-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	imageURL := result["image_url"]
	assert.True(t, strings.HasPrefix(imageURL, "/api/events/images/"), imageURL)

	req = httptest.NewRequest(http.MethodGet, imageURL, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, imageData, rec.Body.Bytes())

	etag := rec.Header().Get("ETag")
	assert.NotEmpty(t, etag)

	// A conditional request with the same tag is served from cache
	req = httptest.NewRequest(http.MethodGet, imageURL, nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestUploadImageRejectsWrongType(t *testing.T) {
	r, _, _ := setupRouter(t)

	body, contentType := multipartBody(t, nil, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/events/upload-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var result map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Image must be a JPEG, PNG or WebP file", result["error"])
}

func TestUploadImageRequiresFile(t *testing.T) {
	r, _, _ := setupRouter(t)

	body, contentType := multipartBody(t, map[string]string{"other": "field"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/events/upload-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var result map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "An image file is required", result["error"])
}

func TestGetImageNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/events/images/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEventFromMultipartForm(t *testing.T) {
	r, store, blobStore := setupRouter(t)
	venue := seedVenue(t, store, "The Velvet Room")

	fields := map[string]string{
		"title":           "Open Mic Night",
		"venue_id":        fmt.Sprintf("%d", venue.ID),
		"start_date_time": "2026-09-04T20:00",
		"is_special":      "1",
	}
	body, contentType := multipartBody(t, fields, "flyer.jpg", "image/jpeg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/events/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Open Mic Night", created.Title)
	assert.Equal(t, 1, created.IsSpecial)

	// The uploaded file becomes the event image
	if assert.NotNil(t, created.ImageURL) {
		assert.True(t, strings.HasPrefix(*created.ImageURL, "/api/events/images/"), *created.ImageURL)
		filename := strings.TrimPrefix(*created.ImageURL, "/api/events/images/")
		_, exists := blobStore.objects[filename]
		assert.True(t, exists, "uploaded image should be in the blob store")
	}
}

func TestEventQR(t *testing.T) {
	r, store, _ := setupRouter(t)
	venue := seedVenue(t, store, "Granite Hall")

	rec := doJSON(t, r, http.MethodPost, "/api/events/", map[string]interface{}{
		"title":           "Winter Jazz Series",
		"venue_id":        venue.ID,
		"start_date_time": "2026-12-05T19:30:00Z",
		"ticket_url":      "https://tickets.example.com/jazz",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created models.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d/qr", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = doJSON(t, r, http.MethodGet, "/api/events/999/qr", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
