package scraper

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/fitpoint/fitpoint/agent/internal/config"
	"github.com/fitpoint/fitpoint/pkg/table"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// csvScraper tails a CSV file that a rig data logger appends to. Only
// complete lines are read; a trailing partial line waits for the next call.
type csvScraper struct {
	src config.Source

	seen int   // rows already returned
	size int64 // bytes consumed at the last read
}

func (s *csvScraper) Scrape(ctx context.Context) ([]types.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv scrape %q: %w", s.src.ID, err)
	}

	// Logger rotated or truncated the file.
	if int64(len(data)) < s.size {
		s.seen, s.size = 0, 0
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, nil
	}
	complete := data[:end+1]
	if int64(len(complete)) == s.size {
		return nil, nil
	}

	rows, err := table.ReadCSV(bytes.NewReader(complete))
	if err != nil {
		return nil, fmt.Errorf("csv scrape %q: %w", s.src.ID, err)
	}
	s.size = int64(len(complete))
	if len(rows) <= s.seen {
		return nil, nil
	}
	fresh := rows[s.seen:]
	s.seen = len(rows)
	return fresh, nil
}
