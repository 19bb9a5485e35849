package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// Service is the pipeline surface the API exposes.
type Service interface {
	ReportPanic(ctx context.Context, r pipeline.PanicReport) (pipeline.PanicResult, error)
	ReportLocation(ctx context.Context, r pipeline.LocationReport) (pipeline.LocationResult, error)
	ResolveAlert(ctx context.Context, alertID, resolvedBy, notes string) (domain.Alert, error)
	Alert(ctx context.Context, id string) (domain.Alert, error)
	TouristAlerts(ctx context.Context, touristID string, limit, offset int) ([]domain.Alert, error)
	ActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	LocationHistory(ctx context.Context, touristID string, limit, offset int) ([]domain.LocationSample, error)
	LatestLocation(ctx context.Context, touristID string) (domain.LocationSample, error)
	NearbyTourists(ctx context.Context, c domain.Coordinate, radiusM float64) ([]pipeline.NearbyTourist, error)
	Zones() domain.ZoneSnapshot
	AddZone(z domain.Zone) (domain.ZoneID, error)
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes"`
}

type zoneRequest struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Latitude    *float64           `json:"latitude"`
	Longitude   *float64           `json:"longitude"`
	RadiusM     float64            `json:"radius_m"`
	Type        string             `json:"type"`
	Severity    string             `json:"severity"`
	Description string             `json:"description"`
	TimeWindow  *domain.TimeWindow `json:"time_window,omitempty"`
}

func (s *Server) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/alerts/panic", s.handlePanic)
	mux.HandleFunc("GET /api/v1/alerts/active", s.handleActiveAlerts)
	mux.HandleFunc("GET /api/v1/alerts/{id}", s.handleGetAlert)
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", s.handleResolveAlert)
	mux.HandleFunc("GET /api/v1/tourists/{id}/alerts", s.handleTouristAlerts)

	mux.HandleFunc("POST /api/v1/locations", s.handleLocation)
	mux.HandleFunc("GET /api/v1/locations/nearby", s.handleNearbyTourists)
	mux.HandleFunc("GET /api/v1/tourists/{id}/locations", s.handleLocationHistory)
	mux.HandleFunc("GET /api/v1/tourists/{id}/locations/latest", s.handleLatestLocation)

	mux.HandleFunc("GET /api/v1/zones", s.handleListZones)
	mux.HandleFunc("POST /api/v1/zones", s.handleAddZone)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "route not found"})
	})
	return mux
}

// --- alerts ---

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request) {
	var req pipeline.PanicReport
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.service.ReportPanic(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Panic alert sent successfully",
		"alert":   res,
	})
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.service.ActiveAlerts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, "alerts", alerts)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Alert(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "alert": a})
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.service.ResolveAlert(r.Context(), r.PathValue("id"), req.ResolvedBy, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Alert resolved",
		"alert":   a,
	})
}

func (s *Server) handleTouristAlerts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	alerts, err := s.service.TouristAlerts(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, "alerts", alerts)
}

// --- locations ---

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req pipeline.LocationReport
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.service.ReportLocation(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Location updated successfully",
		"location": res,
	})
}

func (s *Server) handleLocationHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	samples, err := s.service.LocationHistory(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, "locations", samples)
}

func (s *Server) handleLatestLocation(w http.ResponseWriter, r *http.Request) {
	sample, err := s.service.LatestLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "location": sample})
}

func (s *Server) handleNearbyTourists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("longitude") == "" || q.Get("latitude") == "" {
		s.writeError(w, r, fmt.Errorf("longitude and latitude are required: %w", domain.ErrInvalidInput))
		return
	}
	var c domain.Coordinate
	var radius float64
	var err error
	if c.Lon, err = floatParam("longitude", q.Get("longitude")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.Lat, err = floatParam("latitude", q.Get("latitude")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if radius, err = floatParam("radius", q.Get("radius")); err != nil {
		s.writeError(w, r, err)
		return
	}

	nearby, err := s.service.NearbyTourists(r.Context(), c, radius)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, "nearby_tourists", nearby)
}

// --- zones ---

func (s *Server) handleListZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "zones": s.service.Zones()})
}

func (s *Server) handleAddZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.writeError(w, r, fmt.Errorf("latitude and longitude are required: %w", domain.ErrInvalidInput))
		return
	}
	category := domain.ZoneCategory(req.Type)
	if category == "" {
		category = domain.CategoryCustom
	}

	id, err := s.service.AddZone(domain.Zone{
		ID:          domain.ZoneID(req.ID),
		Name:        req.Name,
		Center:      domain.Coordinate{Lon: *req.Longitude, Lat: *req.Latitude},
		RadiusM:     req.RadiusM,
		Category:    category,
		Severity:    domain.Severity(req.Severity),
		Description: req.Description,
		Window:      req.TimeWindow,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "zone_id": id})
}

// --- helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// pageParams reads limit and offset. Missing values are zero and take the
// pipeline's defaults.
func pageParams(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if limit, err = intParam(q.Get("limit")); err != nil {
		return 0, 0, fmt.Errorf("limit: %w", err)
	}
	if offset, err = intParam(q.Get("offset")); err != nil {
		return 0, 0, fmt.Errorf("offset: %w", err)
	}
	return limit, offset, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a non-negative integer: %w", raw, domain.ErrInvalidInput)
	}
	return n, nil
}

func floatParam(name, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %q is not a number: %w", name, raw, domain.ErrInvalidInput)
	}
	return f, nil
}

func writeList[T any](w http.ResponseWriter, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		key:       items,
		"count":   len(items),
	})
}

// writeError maps the domain error classes onto status codes. Server-side
// failures are logged and reported without internal detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status, msg = http.StatusServiceUnavailable, "service temporarily unavailable"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
		)
	}
	writeJSON(w, status, errorBody{Message: msg})
}
