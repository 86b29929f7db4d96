package ocr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

// Kind classifies a recognition failure.
type Kind string

const (
	KindTransient    Kind = "TRANSIENT"
	KindInvalidInput Kind = "INVALID_INPUT"
	KindExhausted    Kind = "EXHAUSTED"
)

// ErrInvalidImage is what backends wrap when the bytes are malformed or unsupported.
var ErrInvalidImage = fmt.Errorf("invalid image: %w", common.ErrInvalidInput)

// ErrExhausted is matched by errors.Is on an EXHAUSTED *Error.
var ErrExhausted = errors.New("ocr retries exhausted")

// Attempt is one backend call as seen by the engine.
type Attempt struct {
	Number   int
	Kind     Kind // empty on success
	Err      error
	Duration time.Duration
}

// Error is the only error type Engine.Recognize returns.
type Error struct {
	Kind     Kind
	Backend  string
	Attempts []Attempt
	Err      error // last backend error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr %s (%s, %d attempt(s)): %v", strings.ToLower(string(e.Kind)), e.Backend, len(e.Attempts), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers match on the engine-level taxonomy as well as the cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrExhausted:
		return e.Kind == KindExhausted
	case common.ErrTransient:
		return e.Kind == KindTransient || e.Kind == KindExhausted
	case common.ErrPermanent, common.ErrInvalidInput:
		return e.Kind == KindInvalidInput
	}
	return false
}

// Transient wraps a backend failure that should be retried.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", common.ErrTransient, err)
}

// Invalid wraps a backend failure caused by the input image.
func Invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidImage, err)
}

// classify maps a backend error onto a Kind. Unclassified errors are treated
// as transient; permanent non-input failures (bad credentials) fail fast.
func classify(err error) Kind {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrPermanent):
		return KindInvalidInput
	default:
		return KindTransient
	}
}
