package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitpoint/fitpoint/agent/internal/config"
	"github.com/fitpoint/fitpoint/pkg/compute"
)

const gaugeMetrics = `
# HELP standpipe_pressure_psi Standpipe pressure.
# TYPE standpipe_pressure_psi gauge
standpipe_pressure_psi{rig="r12"} 412.5
# HELP pump_strokes_total Cumulative pump strokes.
# TYPE pump_strokes_total counter
pump_strokes_total{rig="r12"} 38
`

func gaugeServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGauge(srv *httptest.Server, strokes string, now func() time.Time) *gaugeScraper {
	return &gaugeScraper{
		src: config.Source{
			ID: "standpipe", Type: config.SourceGauge, Endpoint: srv.URL,
			PressureMetric: "standpipe_pressure_psi", StrokesMetric: strokes,
		},
		client: srv.Client(),
		now:    now,
	}
}

func TestGaugeScraper_Scrape(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)
	s := newGauge(gaugeServer(t, gaugeMetrics, nil), "pump_strokes_total", func() time.Time { return at })

	rows, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "3/5/24 2:07:09 PM", rows[0].Time)
	require.NotNil(t, rows[0].Pressure)
	assert.Equal(t, 412.5, *rows[0].Pressure)
	require.NotNil(t, rows[0].Strokes)
	assert.Equal(t, 38.0, *rows[0].Strokes)

	parsed, ok := compute.ParseTime(rows[0].Time)
	require.True(t, ok)
	assert.Equal(t, []int{14, 7, 9}, []int{parsed.Hour(), parsed.Minute(), parsed.Second()})
}

func TestGaugeScraper_SkipsRepeatedTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)
	s := newGauge(gaugeServer(t, gaugeMetrics, nil), "", func() time.Time { return at })

	first, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Nil(t, first[0].Strokes)

	again, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)

	at = at.Add(time.Second)
	next, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, next, 1)
}

func TestGaugeScraper_UsesExpositionTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)
	body := "standpipe_pressure_psi 100 " + itoa(at.UnixMilli()) + "\n"
	s := newGauge(gaugeServer(t, body, nil), "", func() time.Time { return at.Add(time.Hour) })

	rows, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, compute.FormatTime(at), rows[0].Time)
}

func TestGaugeScraper_MissingMetric(t *testing.T) {
	s := newGauge(gaugeServer(t, "other_metric 1\n", nil), "", time.Now)
	_, err := s.Scrape(context.Background())
	assert.ErrorContains(t, err, "standpipe_pressure_psi")
}

func TestGaugeScraper_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newGauge(srv, "", time.Now)
	_, err := s.Scrape(context.Background())
	assert.ErrorContains(t, err, "503")
}

func TestAuthRoundTripper(t *testing.T) {
	t.Setenv("RIG_KEY", "k1")
	t.Setenv("RIG_TOKEN", "t1")
	t.Setenv("RIG_PASS", "p1")

	tests := []struct {
		name  string
		auth  config.AuthConfig
		check func(t *testing.T, r *http.Request)
	}{
		{
			name: "apikey default header",
			auth: config.AuthConfig{Mode: "apikey", KeyEnv: "RIG_KEY"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "k1", r.Header.Get("x-api-key"))
			},
		},
		{
			name: "bearer",
			auth: config.AuthConfig{Mode: "bearer", TokenEnv: "RIG_TOKEN"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
			},
		},
		{
			name: "basic",
			auth: config.AuthConfig{Mode: "basic", Username: "rig", PasswordEnv: "RIG_PASS"},
			check: func(t *testing.T, r *http.Request) {
				u, p, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "rig", u)
				assert.Equal(t, "p1", p)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got *http.Request
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r
				_, _ = w.Write([]byte(gaugeMetrics))
			}))
			defer srv.Close()

			src := config.Source{
				ID: "g", Type: config.SourceGauge, Endpoint: srv.URL,
				PressureMetric: "standpipe_pressure_psi", Auth: tc.auth,
			}
			sc, err := New(src)
			require.NoError(t, err)
			_, err = sc.Scrape(context.Background())
			require.NoError(t, err)
			require.NotNil(t, got)
			tc.check(t, got)
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.Source{ID: "x", Type: "modbus"})
	assert.Error(t, err)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
