// Package export writes run results as JSON documents and an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const WorkbookFileName = "promotions.xlsx"

// Service writes one run's outputs under a directory.
type Service struct {
	dir    string
	logger *slog.Logger
}

func NewService(dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, logger: logger}
}

// Written lists the files produced by WriteRun.
type Written struct {
	Competitors []string
	Merged      string
	Workbook    string
}

// WriteRun writes one JSON file per competitor, the merged JSON file and the workbook.
func (s *Service) WriteRun(ctx context.Context, results []entity.CompetitorRunResult, merged []entity.TaggedPromotion) (Written, error) {
	start := time.Now()
	var out Written
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}

	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		path := filepath.Join(s.dir, Slug(r.Competitor)+"_promotions.json")
		data, err := MarshalCompetitor(r)
		if err := writeJSON(path, data, err); err != nil {
			return out, err
		}
		out.Competitors = append(out.Competitors, path)
	}

	out.Merged = filepath.Join(s.dir, MergedFileName)
	data, err := MarshalMerged(merged)
	if err := writeJSON(out.Merged, data, err); err != nil {
		return out, err
	}

	book, err := BuildWorkbook(merged)
	if err != nil {
		return out, err
	}
	out.Workbook = filepath.Join(s.dir, WorkbookFileName)
	if err := writeFileAtomic(out.Workbook, book); err != nil {
		return out, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.run.ok",
		"dir", s.dir,
		"competitors", len(results),
		"rows", len(merged),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
