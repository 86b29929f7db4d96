// Package pipeline runs fetch, extract, structure, dedup and tag for every
// competitor and persists the merged result as the next baseline.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/promo-tracker/internal/async"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/dedup"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
	"github.com/joseph-ayodele/promo-tracker/internal/extract"
	"github.com/joseph-ayodele/promo-tracker/internal/fetch"
	"github.com/joseph-ayodele/promo-tracker/internal/llm"
	"github.com/joseph-ayodele/promo-tracker/internal/repository"
	"github.com/joseph-ayodele/promo-tracker/internal/serpapi"
	"github.com/joseph-ayodele/promo-tracker/internal/tracker"
)

// TextExtractor is satisfied by *extract.Chain.
type TextExtractor interface {
	Extract(ctx context.Context, src extract.Source) (extract.Result, error)
	Supports(kind string) bool
}

// AdSource is satisfied by *serpapi.Client.
type AdSource interface {
	PromoAds(ctx context.Context, business string, limit int) ([]serpapi.Ad, error)
}

// Structurer is satisfied by *llm.Structurer.
type Structurer interface {
	Structure(ctx context.Context, rawText string, sc llm.StructureContext) llm.Structured
}

type Options struct {
	Fetcher    fetch.Fetcher // direct HTML
	Firecrawl  fetch.Fetcher // used for competitors with use_firecrawl; falls back to Fetcher when nil
	Images     fetch.Downloader
	PDFs       fetch.Downloader
	Extractor  TextExtractor
	Structurer Structurer
	Ads        AdSource // paid search ads; nil disables the source
	Dedup      *dedup.Deduplicator
	Store      repository.BaselineStore

	MaxConcurrency        int           // per competitor media work, default 3
	CompetitorConcurrency int           // default 3
	CompetitorTimeout     time.Duration // default 10m
	MaxBlocksPerPage      int           // 0 = no limit
	MaxAds                int           // promotional ads kept per competitor, default serpapi.DefaultAdLimit

	Now    func() time.Time
	Logger *slog.Logger
}

type Orchestrator struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Extractor == nil || opts.Structurer == nil || opts.Store == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "pipeline needs an extractor, a structurer and a store", common.ErrInvalidInput)
	}
	if opts.Fetcher == nil {
		opts.Fetcher = opts.Firecrawl
	}
	if opts.Dedup == nil {
		opts.Dedup = dedup.New()
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.CompetitorConcurrency <= 0 {
		opts.CompetitorConcurrency = 3
	}
	if opts.CompetitorTimeout <= 0 {
		opts.CompetitorTimeout = 10 * time.Minute
	}
	if opts.MaxAds <= 0 {
		opts.MaxAds = serpapi.DefaultAdLimit
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{opts: opts, logger: opts.Logger}, nil
}

// CompetitorFailure is a competitor whose run produced no result. Its
// previous baseline entry is kept.
type CompetitorFailure struct {
	Competitor string
	Err        error
}

// Report is the outcome of one run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	Results     []entity.CompetitorRunResult // successful competitors, input order
	Failures    []CompetitorFailure          // input order
	Merged      []entity.TaggedPromotion     // repeats across competitors dropped
	Baseline    entity.Baseline              // the baseline after this run
	Disappeared []entity.TaggedPromotion
	Persisted   bool
}

// Run processes every competitor and persists once at the end. The error is
// non-nil only when the baseline could not be loaded or saved; competitor
// failures are reported in Report.Failures.
func (o *Orchestrator) Run(ctx context.Context, competitors []entity.Competitor) (*Report, error) {
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	report := &Report{RunID: runID, StartedAt: o.opts.Now()}
	start := time.Now()

	o.logger.Info("pipeline.run.start", "run_id", runID, "competitors", len(competitors))

	previous, err := o.opts.Store.Load(ctx)
	if err != nil {
		o.logger.Error("pipeline.baseline.load_failed", "run_id", runID, "error", err)
		return report, common.WrapError(err, "load baseline")
	}
	o.logger.Info("pipeline.baseline.loaded", "run_id", runID, "version", previous.Version,
		"promotions", len(previous.Promotions()))

	pool := async.NewPool("competitors", o.logger,
		async.WithWorkers(o.opts.CompetitorConcurrency),
		async.WithTaskTimeout(o.opts.CompetitorTimeout))
	outcomes := async.Run(ctx, pool, competitors, func(ctx context.Context, c entity.Competitor) (entity.CompetitorRunResult, error) {
		return o.runCompetitor(common.WithCompetitor(ctx, c.Name), c, previous)
	})

	var current []entity.PromotionCandidate
	var websites []string
	for i, out := range outcomes {
		name := competitors[i].Name
		if out.Err != nil {
			o.logger.Error("pipeline.competitor.failed", "run_id", runID, "competitor", name, "error", out.Err)
			report.Failures = append(report.Failures, CompetitorFailure{Competitor: name, Err: out.Err})
			continue
		}
		report.Results = append(report.Results, out.Value)
		report.Merged = append(report.Merged, out.Value.Promotions...)
		websites = append(websites, out.Value.Website)
		for _, p := range out.Value.Promotions {
			current = append(current, p.PromotionCandidate)
		}
	}

	if merged := o.opts.Dedup.Merge(report.Merged); len(merged) < len(report.Merged) {
		o.logger.Info("pipeline.merged.deduplicated", "run_id", runID, "dropped", len(report.Merged)-len(merged))
		report.Merged = merged
	}

	report.Disappeared = tracker.Disappeared(current, previous, websites)
	if len(report.Disappeared) > 0 {
		o.logger.Info("pipeline.promotions.disappeared", "run_id", runID, "count", len(report.Disappeared))
	}

	report.Baseline = previous
	if len(report.Results) == 0 {
		o.logger.Warn("pipeline.run.nothing_to_save", "run_id", runID, "failures", len(report.Failures))
	} else {
		next := previous.With(report.Results, o.opts.Now())
		if err := o.opts.Store.Swap(ctx, previous.Version, next); err != nil {
			o.logger.Error("pipeline.baseline.save_failed", "run_id", runID, "version", next.Version, "error", err)
			return report, common.WrapError(err, "save baseline")
		}
		report.Baseline = next
		report.Persisted = true
		o.logger.Info("pipeline.baseline.saved", "run_id", runID, "version", next.Version)
	}

	o.logger.Info("pipeline.run.done",
		"run_id", runID,
		"succeeded", len(report.Results),
		"failed", len(report.Failures),
		"promotions", len(report.Merged),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// Err joins the competitor failures, nil when every competitor succeeded.
func (r *Report) Err() error {
	pf := &common.PartialFailure{Scope: "pipeline run " + r.RunID}
	for _, f := range r.Failures {
		pf.Add(f.Competitor, f.Err)
	}
	return pf.Err()
}
