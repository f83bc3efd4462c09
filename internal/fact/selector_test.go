package fact

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsahraei/newsblend/models"
)

func confPtr(v float64) *float64 { return &v }

func TestCurrentUnsetBeforeFirstSet(t *testing.T) {
	s := NewSelector()
	if _, ok := s.Current(); ok {
		t.Fatalf("expected no fact before the first set")
	}
}

func TestSetSupersedesPreviousFact(t *testing.T) {
	s := NewSelector()

	if err := s.Set(models.DailyFact{ContentID: "c1", Source: models.FactSourceAI, Confidence: confPtr(0.8)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(models.DailyFact{ContentID: "c2", Source: models.FactSourceManual}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := s.Current()
	if !ok {
		t.Fatalf("expected a current fact")
	}
	if got.ContentID != "c2" || got.Source != models.FactSourceManual || got.Confidence != nil {
		t.Fatalf("expected the second fact whole, got %+v", got)
	}
}

func TestSetStampsSelectedAt(t *testing.T) {
	s := NewSelector()
	now := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Set(models.DailyFact{ContentID: "c1", Source: models.FactSourceManual}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := s.Current()
	if !got.SelectedAt.Equal(now) {
		t.Fatalf("expected stamp %s, got %s", now, got.SelectedAt)
	}

	earlier := now.Add(-24 * time.Hour)
	if err := s.Set(models.DailyFact{ContentID: "c2", Source: models.FactSourceManual, SelectedAt: earlier}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = s.Current()
	if !got.SelectedAt.Equal(earlier) {
		t.Fatalf("reload must keep the original selection time, got %s", got.SelectedAt)
	}
}

func TestValidateSourceRules(t *testing.T) {
	cases := []struct {
		name string
		f    models.DailyFact
		ok   bool
	}{
		{"ai with confidence", models.DailyFact{ContentID: "c", Source: models.FactSourceAI, Confidence: confPtr(0.5)}, true},
		{"manual without confidence", models.DailyFact{ContentID: "c", Source: models.FactSourceManual}, true},
		{"missing content id", models.DailyFact{Source: models.FactSourceManual}, false},
		{"ai without confidence", models.DailyFact{ContentID: "c", Source: models.FactSourceAI}, false},
		{"ai confidence below range", models.DailyFact{ContentID: "c", Source: models.FactSourceAI, Confidence: confPtr(-0.1)}, false},
		{"ai confidence above range", models.DailyFact{ContentID: "c", Source: models.FactSourceAI, Confidence: confPtr(1.1)}, false},
		{"manual with confidence", models.DailyFact{ContentID: "c", Source: models.FactSourceManual, Confidence: confPtr(0.5)}, false},
		{"unknown source", models.DailyFact{ContentID: "c", Source: "editorial"}, false},
	}
	for _, tc := range cases {
		err := Validate(tc.f)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidFact) {
			t.Fatalf("%s: expected ErrInvalidFact, got %v", tc.name, err)
		}
	}
}

func TestConcurrentReadersSeeWholeFacts(t *testing.T) {
	s := NewSelector()
	if err := s.Set(models.DailyFact{ContentID: "a", Source: models.FactSourceManual}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		facts := []models.DailyFact{
			{ContentID: "a", Source: models.FactSourceManual},
			{ContentID: "b", Source: models.FactSourceAI, Confidence: confPtr(0.9)},
		}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := s.Set(facts[i%2]); err != nil {
				t.Errorf("set: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got, ok := s.Current()
		if !ok {
			t.Fatalf("fact disappeared")
		}
		switch got.ContentID {
		case "a":
			if got.Source != models.FactSourceManual || got.Confidence != nil {
				t.Fatalf("torn read: %+v", got)
			}
		case "b":
			if got.Source != models.FactSourceAI || got.Confidence == nil {
				t.Fatalf("torn read: %+v", got)
			}
		default:
			t.Fatalf("unexpected fact %q", got.ContentID)
		}
	}
	close(stop)
	wg.Wait()
}
