package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

func TestEventDetectorDetect(t *testing.T) {
	now := time.Now()
	detector := NewEventDetector(5.0)

	tests := []struct {
		name     string
		previous float64
		current  float64
		wantKind types.EventKind
		wantNil  bool
		amount   float64
	}{
		{"no change", 100, 100, "", true, 0},
		{"noise below threshold", 100, 97, "", true, 0},
		{"rise below threshold", 100, 103, "", true, 0},
		{"eating at exact threshold", 100, 95, types.EventEating, false, 5},
		{"eating large drop", 100, 80, types.EventEating, false, 20},
		{"food added at exact threshold", 100, 105, types.EventFoodAdded, false, 5},
		{"food added refill", 10, 210, types.EventFoodAdded, false, 200},
		{"just under threshold drop", 100, 95.001, "", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := detector.Detect(tt.previous, tt.current, now)

			if tt.wantNil {
				if ev != nil {
					t.Fatalf("expected no event, got %+v", ev)
				}
				return
			}

			if ev == nil {
				t.Fatal("expected an event, got nil")
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.Kind, tt.wantKind)
			}
			if math.Abs(ev.AmountGrams-tt.amount) > 0.001 {
				t.Errorf("amount = %.3f, want %.3f", ev.AmountGrams, tt.amount)
			}
			if ev.Source != types.SourceAutoDetected {
				t.Errorf("source = %q, want %q", ev.Source, types.SourceAutoDetected)
			}
			if !ev.Timestamp.Equal(now) {
				t.Errorf("timestamp = %v, want %v", ev.Timestamp, now)
			}
		})
	}
}
