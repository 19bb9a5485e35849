package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/tourist-safety-service/internal/adapter/http"
	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/observability"
	"github.com/couchcryptid/tourist-safety-service/internal/pipeline"
)

var _ httpadapter.Service = (*pipeline.Pipeline)(nil)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// mockService records the arguments of the last call and returns canned values.
type mockService struct {
	err error

	panicReq    pipeline.PanicReport
	locationReq pipeline.LocationReport
	touristID   string
	limit       int
	offset      int
	resolvedBy  string
	notes       string
	addedZone   domain.Zone
	nearbyAt    domain.Coordinate
	radius      float64

	alerts []domain.Alert

	// registry, when set, backs Zones and AddZone.
	registry *domain.ZoneRegistry
}

func (m *mockService) ReportPanic(_ context.Context, r pipeline.PanicReport) (pipeline.PanicResult, error) {
	m.panicReq = r
	if m.err != nil {
		return pipeline.PanicResult{}, m.err
	}
	return pipeline.PanicResult{AlertID: "ALERT1", Status: domain.StatusPending, Notified: 2}, nil
}

func (m *mockService) ReportLocation(_ context.Context, r pipeline.LocationReport) (pipeline.LocationResult, error) {
	m.locationReq = r
	if m.err != nil {
		return pipeline.LocationResult{}, m.err
	}
	return pipeline.LocationResult{
		LocationID:    "LOC1",
		Status:        domain.LocationDanger,
		GeofenceAlert: true,
		AlertID:       "ALERT2",
	}, nil
}

func (m *mockService) ResolveAlert(_ context.Context, id, by, notes string) (domain.Alert, error) {
	m.resolvedBy, m.notes = by, notes
	if m.err != nil {
		return domain.Alert{}, m.err
	}
	return domain.Alert{ID: id, Status: domain.StatusResolved, ResolvedBy: by, Notes: notes}, nil
}

func (m *mockService) Alert(_ context.Context, id string) (domain.Alert, error) {
	if m.err != nil {
		return domain.Alert{}, m.err
	}
	return domain.Alert{ID: id, Status: domain.StatusPending}, nil
}

func (m *mockService) TouristAlerts(_ context.Context, touristID string, limit, offset int) ([]domain.Alert, error) {
	m.touristID, m.limit, m.offset = touristID, limit, offset
	return m.alerts, m.err
}

func (m *mockService) ActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	return m.alerts, m.err
}

func (m *mockService) LocationHistory(_ context.Context, touristID string, limit, offset int) ([]domain.LocationSample, error) {
	m.touristID, m.limit, m.offset = touristID, limit, offset
	return nil, m.err
}

func (m *mockService) LatestLocation(_ context.Context, touristID string) (domain.LocationSample, error) {
	m.touristID = touristID
	if m.err != nil {
		return domain.LocationSample{}, m.err
	}
	return domain.LocationSample{ID: "LOC9", TouristID: touristID}, nil
}

func (m *mockService) NearbyTourists(_ context.Context, c domain.Coordinate, radiusM float64) ([]pipeline.NearbyTourist, error) {
	m.nearbyAt, m.radius = c, radiusM
	if m.err != nil {
		return nil, m.err
	}
	return []pipeline.NearbyTourist{{
		Tourist:        pipeline.TouristSummary{ID: "T1", Name: "Asha Rao", Status: domain.TouristActive},
		Location:       domain.LocationSample{ID: "LOC1", TouristID: "T1", Coordinate: c},
		DistanceMeters: 0,
	}}, nil
}

func (m *mockService) Zones() domain.ZoneSnapshot {
	if m.registry != nil {
		return m.registry.Snapshot()
	}
	active, night := domain.DefaultZones()
	return domain.ZoneSnapshot{Active: active, Night: night}
}

func (m *mockService) AddZone(z domain.Zone) (domain.ZoneID, error) {
	m.addedZone = z
	if m.registry != nil {
		return m.registry.AddZone(z)
	}
	if err := z.Validate(); err != nil {
		return "", err
	}
	return "CUSTOM_001", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(svc *mockService, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(httpadapter.Options{Addr: ":0"}, svc, &mockReadiness{err: readyErr},
		observability.NewMetricsForTesting(), discardLogger())
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAllReady(t *testing.T) {
	ok := httpadapter.ReadinessFunc(func(context.Context) error { return nil })
	down := httpadapter.ReadinessFunc(func(context.Context) error { return errors.New("database closed") })

	require.NoError(t, httpadapter.AllReady(ok, nil, ok).CheckReadiness(context.Background()))

	err := httpadapter.AllReady(ok, down, &mockReadiness{err: errors.New("consumer idle")}).CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database closed")
	assert.Contains(t, err.Error(), "consumer idle")
}

// --- request ids ---

func TestRequestIDPropagatedOrGenerated(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-abc")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "trace-abc", rec.Header().Get("X-Request-ID"))

	rec = do(t, srv, http.MethodGet, "/healthz", "")
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

// --- alerts ---

func TestPanicCreatesAlert(t *testing.T) {
	svc := &mockService{}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/api/v1/alerts/panic",
		`{"tourist_id":"T1","latitude":26.1445,"longitude":91.7362,"address":"Fancy Bazaar"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	alert := body["alert"].(map[string]any)
	assert.Equal(t, "ALERT1", alert["alert_id"])
	assert.Equal(t, "pending", alert["status"])
	assert.InDelta(t, 2, alert["notified"], 0)

	assert.Equal(t, "T1", svc.panicReq.TouristID)
	require.NotNil(t, svc.panicReq.Latitude)
	assert.InDelta(t, 26.1445, *svc.panicReq.Latitude, 1e-9)
	assert.Equal(t, "Fancy Bazaar", svc.panicReq.Address)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid input", fmt.Errorf("tourist_id is required: %w", domain.ErrInvalidInput), http.StatusBadRequest, "tourist_id is required: invalid input"},
		{"not found", fmt.Errorf("find tourist: %w", domain.ErrNotFound), http.StatusNotFound, "find tourist: not found"},
		{"upstream", fmt.Errorf("append alert: %w: dial tcp: refused", domain.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockService{err: tt.err}, nil)
			rec := do(t, srv, http.MethodPost, "/api/v1/alerts/panic", `{"tourist_id":"T1","latitude":1,"longitude":1}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodPost, "/api/v1/locations", `{"tourist_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAlert(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/api/v1/alerts/ALERT42", "")

	require.Equal(t, http.StatusOK, rec.Code)
	alert := decode(t, rec)["alert"].(map[string]any)
	assert.Equal(t, "ALERT42", alert["id"])
}

func TestActiveAlertsRouteWinsOverID(t *testing.T) {
	svc := &mockService{alerts: []domain.Alert{{ID: "A1", Status: domain.StatusPending}}}
	rec := do(t, newTestServer(svc, nil), http.MethodGet, "/api/v1/alerts/active", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 1, body["count"], 0)
	assert.Len(t, body["alerts"], 1)
}

func TestResolveAlert(t *testing.T) {
	svc := &mockService{}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/api/v1/alerts/ALERT7/resolve",
		`{"resolved_by":"Inspector Baruah","notes":"Tourist safe at hotel"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Inspector Baruah", svc.resolvedBy)
	assert.Equal(t, "Tourist safe at hotel", svc.notes)
	alert := decode(t, rec)["alert"].(map[string]any)
	assert.Equal(t, "resolved", alert["status"])
}

func TestTouristAlertsPaging(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/tourists/T1/alerts?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T1", svc.touristID)
	assert.Equal(t, 5, svc.limit)
	assert.Equal(t, 10, svc.offset)

	body := decode(t, rec)
	assert.Equal(t, []any{}, body["alerts"], "empty list encodes as []")
	assert.InDelta(t, 0, body["count"], 0)

	for _, q := range []string{"limit=abc", "limit=-1", "offset=1.5"} {
		rec = do(t, srv, http.MethodGet, "/api/v1/tourists/T1/alerts?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// --- locations ---

func TestReportLocation(t *testing.T) {
	svc := &mockService{}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/api/v1/locations",
		`{"tourist_id":"T1","latitude":26.6337,"longitude":92.7933,"accuracy":5,"heading":90}`)

	require.Equal(t, http.StatusOK, rec.Code)
	loc := decode(t, rec)["location"].(map[string]any)
	assert.Equal(t, "LOC1", loc["location_id"])
	assert.Equal(t, true, loc["geofence_alert"])
	assert.Equal(t, "ALERT2", loc["alert_id"])

	require.NotNil(t, svc.locationReq.Accuracy)
	assert.InDelta(t, 5, *svc.locationReq.Accuracy, 0)
	assert.Nil(t, svc.locationReq.Speed)
}

func TestLocationHistoryAndLatest(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/tourists/T3/locations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T3", svc.touristID)
	assert.Equal(t, 0, svc.limit, "defaults are applied by the pipeline")

	rec = do(t, srv, http.MethodGet, "/api/v1/tourists/T3/locations/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	loc := decode(t, rec)["location"].(map[string]any)
	assert.Equal(t, "LOC9", loc["id"])
}

// --- zones ---

func TestNearbyTourists(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/locations/nearby?longitude=91.7362&latitude=26.1445&radius=250", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.InDelta(t, 1, body["count"], 0)
	nearby := body["nearby_tourists"].([]any)
	require.Len(t, nearby, 1)
	assert.Equal(t, "Asha Rao", nearby[0].(map[string]any)["tourist"].(map[string]any)["name"])
	assert.Equal(t, domain.Coordinate{Lon: 91.7362, Lat: 26.1445}, svc.nearbyAt)
	assert.InDelta(t, 250, svc.radius, 0)

	rec = do(t, srv, http.MethodGet, "/api/v1/locations/nearby?longitude=91.7362&latitude=26.1445", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0, svc.radius, 0, "an absent radius is left to the pipeline default")

	for _, path := range []string{
		"/api/v1/locations/nearby?latitude=26.1445",
		"/api/v1/locations/nearby?longitude=abc&latitude=26.1445",
		"/api/v1/locations/nearby?longitude=91.7&latitude=26.1&radius=far",
	} {
		rec = do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestListZones(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/api/v1/zones", "")

	require.Equal(t, http.StatusOK, rec.Code)
	zones := decode(t, rec)["zones"].(map[string]any)
	assert.Len(t, zones["restricted"], 4)
	assert.Len(t, zones["night_time"], 1)
}

func TestAddZone(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/zones",
		`{"name":"Landslide Area","latitude":25.57,"longitude":91.88,"radius_m":1500,"severity":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "CUSTOM_001", decode(t, rec)["zone_id"])
	assert.Equal(t, domain.CategoryCustom, svc.addedZone.Category)
	assert.InDelta(t, 91.88, svc.addedZone.Center.Lon, 1e-9)

	rec = do(t, srv, http.MethodPost, "/api/v1/zones", `{"name":"No Center","radius_m":10,"severity":"low"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/zones",
		`{"name":"Bad","latitude":1,"longitude":1,"radius_m":0,"severity":"low"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddZoneRejectsTimeWindow(t *testing.T) {
	svc := &mockService{registry: domain.NewDefaultZoneRegistry()}
	srv := newTestServer(svc, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/zones",
		`{"name":"Late Market","latitude":24,"longitude":91,"radius_m":500,"severity":"high","time_window":{"start_hour":22,"end_hour":4}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Len(t, svc.registry.ActiveZones(), 4)
}

func TestUnknownAPIRouteIs404(t *testing.T) {
	rec := do(t, newTestServer(&mockService{}, nil), http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- rate limiting ---

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(httpadapter.Options{Addr: ":0", RateLimit: 0.001}, &mockService{},
		&mockReadiness{}, metrics, discardLogger())

	rec := do(t, srv, http.MethodGet, "/api/v1/zones", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/zones", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.APIRateLimited), 0)

	rec = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
