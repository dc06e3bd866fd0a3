package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/fitpoint/fitpoint/agent/internal/config"
	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// gaugeScraper polls a rig gateway that exposes the standpipe pressure and
// pump stroke counter as Prometheus gauges.
type gaugeScraper struct {
	src    config.Source
	client *http.Client
	now    func() time.Time

	last string // timestamp text of the last emitted row
}

// Scrape returns at most one row per call. A reading whose timestamp text
// equals the previous one is skipped, since two rows sharing a timestamp
// would make the series unusable.
func (s *gaugeScraper) Scrape(ctx context.Context) ([]types.RawRow, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("gauge scrape %q: %w", s.src.ID, err)
	}

	p, tsMs, ok := firstValue(mfs[s.src.PressureMetric])
	if !ok {
		return nil, fmt.Errorf("gauge scrape %q: metric %q not found", s.src.ID, s.src.PressureMetric)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		slog.Warn("scraper: non-finite pressure reading", "source", s.src.ID, "value", p)
		return nil, nil
	}

	at := s.now()
	if tsMs > 0 {
		at = time.UnixMilli(tsMs)
	}
	stamp := compute.FormatTime(at.Local())
	if stamp == s.last {
		return nil, nil
	}
	s.last = stamp

	row := types.RawRow{Time: stamp, Pressure: types.Float(p)}
	if s.src.StrokesMetric != "" {
		if v, _, ok := firstValue(mfs[s.src.StrokesMetric]); ok {
			row.Strokes = types.Float(v)
		}
	}
	return []types.RawRow{row}, nil
}
