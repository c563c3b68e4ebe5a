package ingest

import (
	"context"
	"fmt"

	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/store"
)

// SourceStatus is a monthly export and whether a successful run already loaded it.
type SourceStatus struct {
	source.Monthly
	Ingested bool
}

// Sources lists the monthly exports for a year. A file counts as ingested
// when a succeeded run recorded its checksum, whatever the file's path was then.
func (s *Service) Sources(ctx context.Context, year int) ([]SourceStatus, error) {
	files, err := s.layout.Discover(year)
	if err != nil {
		return nil, fmt.Errorf("scan %d exports: %w", year, err)
	}

	runs, err := s.store.Runs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	seen := make(map[string]bool)
	for _, r := range runs {
		if r.Status != store.RunSucceeded {
			continue
		}
		for _, sum := range r.Checksums {
			seen[sum] = true
		}
	}

	out := make([]SourceStatus, len(files))
	for i, f := range files {
		out[i] = SourceStatus{Monthly: f, Ingested: seen[f.Checksum]}
	}
	return out, nil
}
