package dedup

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const (
	// DefaultThreshold is exclusive: only similarity above it is a duplicate.
	DefaultThreshold = 0.85
	// DefaultMaxHashDistance is the dHash Hamming distance still treated as the same image.
	DefaultMaxHashDistance = 6
)

type Deduplicator struct {
	threshold       float64
	maxHashDistance int
}

type Option func(*Deduplicator)

func WithThreshold(t float64) Option {
	return func(d *Deduplicator) {
		if t > 0 && t <= 1 {
			d.threshold = t
		}
	}
}

func WithMaxHashDistance(n int) Option {
	return func(d *Deduplicator) {
		if n >= 0 {
			d.maxHashDistance = n
		}
	}
}

func New(opts ...Option) *Deduplicator {
	d := &Deduplicator{threshold: DefaultThreshold, maxHashDistance: DefaultMaxHashDistance}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Deduplicate uses the default thresholds.
func Deduplicate(candidates []entity.PromotionCandidate) []entity.PromotionCandidate {
	return New().Deduplicate(candidates)
}

// Deduplicate keeps the first of every duplicate group; input order is priority.
// Equal content fingerprints are duplicates whatever the structuring outcome.
// Each candidate is compared against every kept one, so a second pass over
// the output drops nothing. Panics on a candidate with empty raw text.
func (d *Deduplicator) Deduplicate(candidates []entity.PromotionCandidate) []entity.PromotionCandidate {
	kept := make([]entity.PromotionCandidate, 0, len(candidates))
	keys := make([]string, 0, len(candidates))
	prints := make([]string, 0, len(candidates))

	for i, c := range candidates {
		if strings.TrimSpace(c.RawText) == "" {
			panic(fmt.Sprintf("dedup: candidate %d (%s %s) has empty raw text", i, c.Website, c.PageURL))
		}
		key, fp := ContentKey(c), c.ContentFingerprint
		if fp == "" {
			fp = ContentFingerprint(c)
		}
		dup := false
		for j := range kept {
			if fp == prints[j] || d.duplicate(c, key, kept[j], keys[j]) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
			keys = append(keys, key)
			prints = append(prints, fp)
		}
	}
	return kept
}

func (d *Deduplicator) duplicate(a entity.PromotionCandidate, keyA string, b entity.PromotionCandidate, keyB string) bool {
	if a.HasImage() && a.ImageFingerprint == b.ImageFingerprint {
		return true
	}

	fa, fb := fallbackEmpty(a), fallbackEmpty(b)
	switch {
	case fa && fb:
		return a.ImagePHash != 0 && b.ImagePHash != 0 &&
			HammingDistance(a.ImagePHash, b.ImagePHash) <= d.maxHashDistance
	case fa || fb:
		return false
	}

	if keyA == "" || keyB == "" {
		return false
	}
	return Similarity(keyA, keyB) > d.threshold
}

// Merge drops promotions repeated across competitor results: same business,
// same service name and offer text more similar than the threshold. The
// first occurrence wins. Promotions without a service name are never merged.
func (d *Deduplicator) Merge(promos []entity.TaggedPromotion) []entity.TaggedPromotion {
	out := make([]entity.TaggedPromotion, 0, len(promos))
	keys := make([]string, 0, len(promos))
	texts := make([]string, 0, len(promos))

	for _, p := range promos {
		key, text := mergeKey(p.PromotionCandidate), NormalizeText(p.RawText)
		dup := false
		for j := range out {
			if key != "" && key == keys[j] && Similarity(text, texts[j]) > d.threshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
			keys = append(keys, key)
			texts = append(texts, text)
		}
	}
	return out
}

func mergeKey(c entity.PromotionCandidate) string {
	business, service := NormalizeText(c.BusinessName), NormalizeText(c.ServiceName)
	if business == "" || service == "" {
		return ""
	}
	return business + "\x00" + service
}

func fallbackEmpty(c entity.PromotionCandidate) bool {
	return c.UsedFallback && c.Fields.IsStructurallyEmpty()
}
