package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestResolveAddress_NilGeocoder(t *testing.T) {
	got := ResolveAddress(context.Background(), "", Coordinate{Lon: 91.7, Lat: 26.1}, nil, discardLogger())
	assert.Empty(t, got)
}

func TestResolveAddress_KeepsReportedAddress(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{FormattedAddress: "Guwahati, Assam"}}

	got := ResolveAddress(context.Background(), "Pan Bazaar", Coordinate{Lon: 91.7, Lat: 26.1}, geo, discardLogger())

	assert.Equal(t, "Pan Bazaar", got)
	assert.Equal(t, 0, geo.calls, "should not call geocoder when address is present")
}

func TestResolveAddress_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{FormattedAddress: "Tezpur, Assam, India", PlaceName: "Tezpur"}}

	got := ResolveAddress(context.Background(), "", Coordinate{Lon: 92.7933, Lat: 26.6337}, geo, discardLogger())

	assert.Equal(t, "Tezpur, Assam, India", got)
	assert.Equal(t, 1, geo.calls)
}

func TestResolveAddress_Failure(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("api down")}

	got := ResolveAddress(context.Background(), "", Coordinate{Lon: 92.7933, Lat: 26.6337}, geo, discardLogger())

	assert.Empty(t, got)
	assert.Equal(t, 1, geo.calls)
}
