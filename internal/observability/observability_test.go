package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")

	logger.Debug("zone loaded", "zone_id", "DANGER_001")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "zone loaded", entry["msg"])
	assert.Equal(t, "DANGER_001", entry["zone_id"])
	assert.Equal(t, "tourist-safety", entry["service"])
}

func TestNewLogger_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.True(t, strings.Contains(out, "msg=kept"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.PanicAlerts.Inc()
	a.GeofenceAlerts.WithLabelValues("critical").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.PanicAlerts), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.PanicAlerts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.GeofenceAlerts.WithLabelValues("critical")), 0)
}
