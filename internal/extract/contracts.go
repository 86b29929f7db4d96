package extract

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoText means every applicable strategy ran and none produced text.
	ErrNoText = errors.New("no text extracted")
	// ErrFailed means no strategy produced text and at least one failed.
	ErrFailed = errors.New("text extraction failed")
)

// Source is one document to pull candidate text from. Which fields are set
// depends on Kind.
type Source struct {
	Kind     string // constants.HTML | IMAGE | PDF | AI_OVERVIEW | AD
	PageURL  string
	MediaURL string // image or pdf url
	Text     string // block text already pulled out of the page
	HTML     string // HTML fragment, used when Text is empty
	Markdown string // markdown block, used when Text and HTML are empty
	Data     []byte // image or pdf bytes
	Query    string // business name for the overview search
}

// Strategy is one way of turning a Source into text. ok is false when the
// strategy found nothing usable; err is reserved for failures.
type Strategy interface {
	Kind() string
	Extract(ctx context.Context, src Source) (text string, ok bool, err error)
}

// Named strategies report which backend produced the text.
type Named interface {
	Name() string
}

// Result is the outcome of a Chain run.
type Result struct {
	Text     string
	Strategy string
	Duration time.Duration
}
