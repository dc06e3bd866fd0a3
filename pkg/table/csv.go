package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// Column names recognised in a header row, compared case-insensitively.
const (
	ColTime     = "time"
	ColPressure = "pressure"
	ColStrokes  = "strokes"
)

// ErrNoTimeColumn is returned when a header row is present but has no Time column.
var ErrNoTimeColumn = errors.New("table: header has no time column")

// ExportHeader is the header row written by WriteDerivedCSV.
var ExportHeader = []string{"Time", "Elapsed (s)", "Pressure", "dP/dt", "d2P/dt2"}

// ReadCSV parses a FIT table.
//
// The first record is treated as a header when one of its cells names a known
// column. Without a header, columns are taken positionally as Time, Pressure,
// Strokes. Cells that do not parse as numbers become nil so the cleaner can
// account for them. Blank lines are skipped.
func ReadCSV(r io.Reader) ([]types.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table: read csv: %w", err)
	}
	if len(records) == 0 {
		return []types.RawRow{}, nil
	}

	idx := columnIndex{time: 0, pressure: 1, strokes: 2}
	if h, ok := parseHeader(records[0]); ok {
		if h.time < 0 {
			return nil, ErrNoTimeColumn
		}
		idx = h
		records = records[1:]
	}

	rows := make([]types.RawRow, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		rows = append(rows, types.RawRow{
			Time:     cell(rec, idx.time),
			Pressure: number(cell(rec, idx.pressure)),
			Strokes:  number(cell(rec, idx.strokes)),
		})
	}
	return rows, nil
}

// WriteDerivedCSV writes one line per sample with elapsed time and both
// derivatives. Derivative columns are left empty when d has none.
func WriteDerivedCSV(w io.Writer, d compute.DerivedSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("table: write header: %w", err)
	}
	for i, s := range d.Samples {
		rec := []string{compute.FormatTime(s.Time), "", formatFloat(s.Pressure), "", ""}
		if d.HasDerivatives() {
			rec[1] = formatFloat(d.Elapsed[i])
			rec[3] = formatFloat(d.First[i])
			rec[4] = formatFloat(d.Second[i])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("table: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type columnIndex struct {
	time, pressure, strokes int
}

func parseHeader(rec []string) (columnIndex, bool) {
	idx := columnIndex{time: -1, pressure: -1, strokes: -1}
	found := false
	for i, name := range rec {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColTime:
			idx.time, found = i, true
		case ColPressure:
			idx.pressure, found = i, true
		case ColStrokes:
			idx.strokes, found = i, true
		}
	}
	return idx, found
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func number(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
