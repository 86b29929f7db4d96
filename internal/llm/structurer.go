package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// MinStructureTextLen is the shortest text worth a model call.
const MinStructureTextLen = 10

// Structured is the outcome of structuring one block of text. It is a value,
// never an error: a failed model call yields UsedFallback=true.
type Structured struct {
	Fields         entity.Fields
	UsedFallback   bool
	FallbackReason string
	Raw            []byte // validated model JSON, nil on fallback
	Elapsed        time.Duration
}

// StructureContext is the minimal context sent with the text.
type StructureContext struct {
	Competitor        string
	Website           string
	PageURL           string
	SourceKind        string
	AllowedCategories []string
}

type StructurerConfig struct {
	Timeout time.Duration // per call; default 30s
}

// Structurer turns raw text into promotion fields. A nil extractor means
// every call takes the fallback path.
type Structurer struct {
	extractor FieldExtractor
	cfg       StructurerConfig
	logger    *slog.Logger
}

func NewStructurer(extractor FieldExtractor, cfg StructurerConfig, logger *slog.Logger) *Structurer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Structurer{extractor: extractor, cfg: cfg, logger: logger}
}

// Structure never fails. Errors, timeouts and schema violations all degrade
// to Fallback(rawText); timeouts are not retried.
func (s *Structurer) Structure(ctx context.Context, rawText string, sc StructureContext) Structured {
	start := time.Now()

	if len(strings.TrimSpace(rawText)) < MinStructureTextLen {
		return s.fallback(rawText, "text too short", start)
	}
	if s.extractor == nil {
		return s.fallback(rawText, "no model configured", start)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	fields, raw, err := s.safeExtract(callCtx, ExtractRequest{
		Text:              rawText,
		Competitor:        sc.Competitor,
		Website:           sc.Website,
		PageURL:           sc.PageURL,
		SourceKind:        sc.SourceKind,
		AllowedCategories: sc.AllowedCategories,
	})
	if err != nil {
		reason := "model error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = "model timeout"
		}
		s.logger.Warn("llm.structure.fallback",
			"competitor", sc.Competitor,
			"page_url", sc.PageURL,
			"reason", reason,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return s.fallback(rawText, reason+": "+err.Error(), start)
	}

	out := fields.ToEntity()
	out.PromoDescription = CleanText(out.PromoDescription)
	out.AdTitle = CleanText(out.AdTitle)
	out.AdText = CleanText(out.AdText)
	out.ServiceName = strings.ToLower(strings.TrimSpace(out.ServiceName))
	out.Category = canonicalCategory(out.Category, out.ServiceName)

	return Structured{Fields: out, Raw: raw, Elapsed: time.Since(start)}
}

// safeExtract turns a panicking extractor into an error so Structure keeps its contract.
func (s *Structurer) safeExtract(ctx context.Context, req ExtractRequest) (f PromoFields, raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return s.extractor.ExtractFields(ctx, req)
}

func (s *Structurer) fallback(rawText, reason string, start time.Time) Structured {
	return Fallback(rawText, reason, time.Since(start))
}

// Fallback is the deterministic result: description is the raw text
// unmodified, every other field empty.
func Fallback(rawText, reason string, elapsed time.Duration) Structured {
	return Structured{
		Fields:         entity.Fields{PromoDescription: rawText},
		UsedFallback:   true,
		FallbackReason: reason,
		Elapsed:        elapsed,
	}
}

// canonicalCategory keeps an empty category empty; otherwise it maps the
// model's label (or the service name) onto the known set.
func canonicalCategory(category, serviceName string) string {
	if strings.TrimSpace(category) == "" && serviceName == "" {
		return ""
	}
	if c, ok := constants.Canonicalize(category); ok {
		return string(c)
	}
	c, _ := constants.Canonicalize(serviceName)
	return string(c)
}

var (
	reMarkdown = regexp.MustCompile(`[*_#` + "`" + `]+`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// CleanText strips markdown markers and collapses whitespace.
func CleanText(s string) string {
	s = reMarkdown.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
