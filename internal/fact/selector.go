package fact

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nsahraei/newsblend/models"
)

// ErrInvalidFact marks facts the selector refuses to publish.
var ErrInvalidFact = errors.New("invalid daily fact")

// Selector holds the single fact-of-the-day slot. Set replaces the slot
// whole; readers see either the previous fact or the new one, never a blend
// of the two.
type Selector struct {
	mu  sync.RWMutex
	cur *models.DailyFact
	now func() time.Time
}

// NewSelector starts with the slot unset.
func NewSelector() *Selector {
	return &Selector{now: time.Now}
}

// Current returns the published fact, or ok=false when none has been set yet.
func (s *Selector) Current() (models.DailyFact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return models.DailyFact{}, false
	}
	return *s.cur, true
}

// Set validates and publishes f, superseding any previous fact. A zero
// SelectedAt is stamped with the current time; a non-zero one is kept so
// boot-time reloads carry the original selection moment.
func (s *Selector) Set(f models.DailyFact) error {
	if err := Validate(f); err != nil {
		return err
	}
	if f.SelectedAt.IsZero() {
		f.SelectedAt = s.now()
	}
	s.mu.Lock()
	s.cur = &f
	s.mu.Unlock()
	return nil
}

// Validate checks the source and confidence rules without publishing:
// AI-selected facts carry a confidence in [0,1], manual overrides carry none.
func Validate(f models.DailyFact) error {
	if f.ContentID == "" {
		return fmt.Errorf("%w: content id is required", ErrInvalidFact)
	}
	switch f.Source {
	case models.FactSourceAI:
		if f.Confidence == nil {
			return fmt.Errorf("%w: ai facts need a confidence score", ErrInvalidFact)
		}
		if *f.Confidence < 0 || *f.Confidence > 1 {
			return fmt.Errorf("%w: confidence %.3f out of range", ErrInvalidFact, *f.Confidence)
		}
	case models.FactSourceManual:
		if f.Confidence != nil {
			return fmt.Errorf("%w: manual facts carry no confidence score", ErrInvalidFact)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidFact, f.Source)
	}
	return nil
}
