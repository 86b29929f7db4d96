package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/async"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/dedup"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
	"github.com/joseph-ayodele/promo-tracker/internal/extract"
	"github.com/joseph-ayodele/promo-tracker/internal/fetch"
	"github.com/joseph-ayodele/promo-tracker/internal/llm"
	"github.com/joseph-ayodele/promo-tracker/internal/serpapi"
	"github.com/joseph-ayodele/promo-tracker/internal/tracker"
)

// ErrAllPagesFailed fails a competitor whose pages could not be fetched and
// whose overview fallback found nothing.
var ErrAllPagesFailed = errors.New("no page could be fetched")

// workItem is one discovered text block, image or PDF, in discovery order.
type workItem struct {
	kind     string
	pageURL  string
	mediaURL string
	text     string
	query    string
	ad       *serpapi.Ad
}

// itemResult is a workItem turned into a candidate; ok is false when it was dropped.
type itemResult struct {
	candidate entity.PromotionCandidate
	ok        bool
}

func (o *Orchestrator) runCompetitor(ctx context.Context, c entity.Competitor, previous entity.Baseline) (entity.CompetitorRunResult, error) {
	start := time.Now()
	scrapedAt := o.opts.Now()
	log := o.logger.With("run_id", common.RunIDFromContext(ctx), "competitor", c.Name)
	log.Info("pipeline.competitor.start", "pages", len(c.Pages), "ai_overview_primary", c.AIOverviewPrimary)

	var items []workItem
	var pageErr error
	if c.AIOverviewPrimary {
		if !o.opts.Extractor.Supports(constants.AIOverview) {
			return entity.CompetitorRunResult{}, common.NewAppError("CONFIG_ERROR", "ai_overview_primary set but no overview source configured", common.ErrInvalidInput)
		}
		items = o.overviewItems(c)
	} else {
		items, pageErr = o.discover(ctx, c)
	}

	candidates, err := o.process(ctx, c, items, scrapedAt)
	if err != nil {
		return entity.CompetitorRunResult{}, err
	}

	if !c.AIOverviewPrimary && noUsableCandidates(candidates) && o.opts.Extractor.Supports(constants.AIOverview) {
		log.Info("pipeline.competitor.overview_fallback", "candidates", len(candidates), "page_error", pageErr)
		overview, err := o.process(ctx, c, o.overviewItems(c), scrapedAt)
		if err != nil {
			return entity.CompetitorRunResult{}, err
		}
		candidates = append(candidates, overview...)
	}

	if ads := o.adItems(ctx, c); len(ads) > 0 {
		adCandidates, err := o.process(ctx, c, ads, scrapedAt)
		if err != nil {
			return entity.CompetitorRunResult{}, err
		}
		candidates = append(candidates, adCandidates...)
	}
	if pageErr != nil && len(candidates) == 0 {
		return entity.CompetitorRunResult{}, pageErr
	}

	deduped := o.opts.Dedup.Deduplicate(candidates)
	tagged := tracker.Tag(deduped, previous)
	result := entity.NewCompetitorRunResult(c.Name, c.Website, scrapedAt, tagged)

	log.Info("pipeline.competitor.done",
		"candidates", len(candidates),
		"promotions", result.Count,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// noUsableCandidates is true when nothing was found or every candidate is a
// fallback record without structured fields.
func noUsableCandidates(candidates []entity.PromotionCandidate) bool {
	for _, c := range candidates {
		if !c.UsedFallback || !c.IsStructurallyEmpty() {
			return false
		}
	}
	return true
}

func (o *Orchestrator) overviewItems(c entity.Competitor) []workItem {
	return []workItem{{kind: constants.AIOverview, pageURL: "https://" + c.Website, query: c.Name}}
}

// adItems lists the competitor's promotional search ads. A failed ad search
// is logged and yields no items.
func (o *Orchestrator) adItems(ctx context.Context, c entity.Competitor) []workItem {
	if o.opts.Ads == nil || !o.opts.Extractor.Supports(constants.AD) {
		return nil
	}
	ads, err := o.opts.Ads.PromoAds(ctx, c.Name, o.opts.MaxAds)
	if err != nil {
		o.logger.Warn("pipeline.ads.failed", "competitor", c.Name, "error", err)
		return nil
	}
	items := make([]workItem, 0, len(ads))
	for i := range ads {
		ad := ads[i]
		pageURL := ad.Link
		if pageURL == "" {
			pageURL = "https://" + c.Website
		}
		items = append(items, workItem{kind: constants.AD, pageURL: pageURL, text: ad.Text(), query: c.Name, ad: &ad})
	}
	return items
}

func (o *Orchestrator) fetcherFor(c entity.Competitor) fetch.Fetcher {
	if c.UseFirecrawl && o.opts.Firecrawl != nil {
		return o.opts.Firecrawl
	}
	return o.opts.Fetcher
}

// discover fetches every page and lists its blocks, images and PDFs. Media
// seen on an earlier page is not listed again. The error is set only when
// every page failed.
func (o *Orchestrator) discover(ctx context.Context, c entity.Competitor) ([]workItem, error) {
	f := o.fetcherFor(c)
	if f == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "no fetcher configured", common.ErrInvalidInput)
	}

	failures := &common.PartialFailure{Scope: "fetch " + c.Name}
	seenImages := map[string]bool{}
	seenPDFs := map[string]bool{}
	images := 0
	var items []workItem

	for _, pageURL := range c.Pages {
		if err := ctx.Err(); err != nil {
			failures.Add(pageURL, err)
			break
		}
		page, err := f.Fetch(ctx, pageURL)
		if err != nil {
			failures.Add(pageURL, err)
			o.logger.Warn("pipeline.page.fetch_failed", "competitor", c.Name, "page_url", pageURL, "error", err)
			continue
		}

		blocks := extract.MarkdownBlocks(page.Markdown, o.opts.MaxBlocksPerPage)
		if len(blocks) == 0 && page.HTML != "" {
			if blocks, err = extract.HTMLBlocks(page.HTML, o.opts.MaxBlocksPerPage); err != nil {
				o.logger.Warn("pipeline.page.parse_failed", "competitor", c.Name, "page_url", pageURL, "error", err)
			}
		}
		for _, b := range blocks {
			items = append(items, workItem{kind: constants.HTML, pageURL: pageURL, text: b})
		}

		for _, u := range page.ImageURLs {
			if seenImages[u] || (c.MaxImages > 0 && images >= c.MaxImages) {
				continue
			}
			seenImages[u] = true
			images++
			items = append(items, workItem{kind: constants.IMAGE, pageURL: pageURL, mediaURL: u})
		}
		for _, u := range page.PDFLinks {
			key := fetch.NormalizePDFURL(u)
			if seenPDFs[key] {
				continue
			}
			seenPDFs[key] = true
			items = append(items, workItem{kind: constants.PDF, pageURL: pageURL, mediaURL: u})
		}
	}

	if len(c.Pages) > 0 && failures.Len() == len(c.Pages) {
		return items, errors.Join(ErrAllPagesFailed, failures)
	}
	return items, nil
}

// process turns items into candidates with bounded concurrency, keeping
// discovery order. A dropped item never fails the competitor.
func (o *Orchestrator) process(ctx context.Context, c entity.Competitor, items []workItem, scrapedAt time.Time) ([]entity.PromotionCandidate, error) {
	if len(items) == 0 {
		return nil, nil
	}
	pool := async.NewPool("items:"+c.Name, o.logger, async.WithWorkers(o.opts.MaxConcurrency))
	outcomes := async.Run(ctx, pool, items, func(ctx context.Context, it workItem) (itemResult, error) {
		return o.processItem(ctx, c, it, scrapedAt)
	})

	var out []entity.PromotionCandidate
	for i, res := range outcomes {
		if res.Err != nil {
			o.logger.Warn("pipeline.item.dropped",
				"competitor", c.Name, "kind", items[i].kind, "page_url", items[i].pageURL,
				"media_url", items[i].mediaURL, "error", res.Err)
			continue
		}
		if res.Value.ok {
			out = append(out, res.Value.candidate)
		}
	}
	if err := ctx.Err(); err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) processItem(ctx context.Context, c entity.Competitor, it workItem, scrapedAt time.Time) (itemResult, error) {
	src := extract.Source{Kind: it.kind, PageURL: it.pageURL, MediaURL: it.mediaURL, Text: it.text, Query: it.query}

	var data []byte
	switch it.kind {
	case constants.IMAGE, constants.PDF:
		dl := o.opts.Images
		if it.kind == constants.PDF {
			dl = o.opts.PDFs
		}
		if dl == nil || !o.opts.Extractor.Supports(it.kind) {
			return itemResult{}, nil
		}
		b, err := dl.Download(ctx, it.mediaURL)
		if err != nil {
			return itemResult{}, err
		}
		data = b
		src.Data = b
	}

	res, err := o.opts.Extractor.Extract(ctx, src)
	if errors.Is(err, extract.ErrNoText) {
		return itemResult{}, nil
	}
	if err != nil {
		return itemResult{}, err
	}
	raw := strings.TrimSpace(res.Text)
	if raw == "" {
		return itemResult{}, nil
	}

	st := o.opts.Structurer.Structure(ctx, raw, llm.StructureContext{
		Competitor:        c.Name,
		Website:           c.Website,
		PageURL:           it.pageURL,
		SourceKind:        it.kind,
		AllowedCategories: constants.AsStringSlice(),
	})

	cand := entity.PromotionCandidate{
		Website:       strings.ToLower(c.Website),
		PageURL:       it.pageURL,
		BusinessName:  c.Name,
		SourceKind:    it.kind,
		RawText:       raw,
		Fields:        st.Fields,
		UsedFallback:  st.UsedFallback,
		GoogleReviews: c.GoogleReviews,
		ScrapedAt:     scrapedAt,
	}
	if cand.Location == "" {
		cand.Location = c.Address
	}
	if cand.Contact == "" {
		cand.Contact = c.Address
	}
	if it.ad != nil {
		fillFromAd(&cand, *it.ad, raw)
	}
	if it.kind == constants.IMAGE {
		cand.ImageURL = it.mediaURL
		cand.ImageFingerprint = dedup.ImageFingerprint(data)
		if h, ok := dedup.PerceptualHash(data); ok {
			cand.ImagePHash = h
		}
	}
	cand.ContentFingerprint = dedup.ContentFingerprint(cand)
	return itemResult{candidate: cand, ok: true}, nil
}

// fillFromAd keeps the ad headline and copy, and reads the discount and
// coupon code from the copy when structuring left them blank.
func fillFromAd(cand *entity.PromotionCandidate, ad serpapi.Ad, raw string) {
	if cand.AdTitle == "" {
		cand.AdTitle = strings.TrimSpace(ad.Title)
	}
	if cand.AdText == "" {
		cand.AdText = ad.Body()
	}
	if cand.DiscountValue == "" {
		cand.DiscountValue = serpapi.DiscountValue(raw)
	}
	if cand.CouponCode == "" {
		cand.CouponCode = serpapi.CouponCode(raw)
	}
	if cand.PromoDescription == "" {
		cand.PromoDescription = raw
	}
}
