package monitor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

func TestDispenseDuration(t *testing.T) {
	tests := []struct {
		name     string
		grams    float64
		feedRate float64
		expected time.Duration
	}{
		{"default rate", 50, 10, 5 * time.Second},
		{"one second", 10, 10, time.Second},
		{"fast rate", 5, 100, 50 * time.Millisecond},
		{"fractional", 2.5, 10, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DispenseDuration(tt.grams, tt.feedRate); got != tt.expected {
				t.Errorf("DispenseDuration(%v, %v) = %v, want %v", tt.grams, tt.feedRate, got, tt.expected)
			}
		})
	}
}

func TestTriggerFeedingRejectsInvalidAmount(t *testing.T) {
	backend := &fakeBackend{available: true}
	m := New(testConfig(), backend, nil, nil, nil, nil, testLogger())

	for _, grams := range []float64{0, -5} {
		result := m.TriggerFeeding(context.Background(), grams, types.SourceManual)
		if result.Success {
			t.Errorf("TriggerFeeding(%v) succeeded, want failure", grams)
		}
	}
	if len(backend.duties()) != 0 {
		t.Error("motor was driven despite invalid amount")
	}
}

func TestTriggerFeedingRequiresHardware(t *testing.T) {
	backend := &fakeBackend{available: false}
	m := New(testConfig(), backend, nil, nil, nil, nil, testLogger())

	result := m.TriggerFeeding(context.Background(), 10, types.SourceManual)
	if result.Success {
		t.Error("TriggerFeeding succeeded without hardware")
	}
	if len(backend.duties()) != 0 {
		t.Error("motor was driven despite missing hardware")
	}
}

func TestTriggerFeedingDrivesMotor(t *testing.T) {
	backend := &fakeBackend{available: true}
	events := make(chan types.FeedingEvent, 1)

	cfg := testConfig()
	cfg.FeedRate = 100 // 5g in 50ms keeps the test quick

	m := New(cfg, backend, nil, nil, events, nil, testLogger())

	result := m.TriggerFeeding(context.Background(), 5, types.SourceManual)
	if !result.Success {
		t.Fatalf("TriggerFeeding failed: %s", result.Message)
	}
	if result.RequestID == "" {
		t.Error("expected a request ID")
	}
	if math.Abs(result.DurationSeconds-0.05) > 0.001 {
		t.Errorf("duration = %vs, want 0.05s", result.DurationSeconds)
	}

	duties := backend.duties()
	if len(duties) != 2 || duties[0] != 100 || duties[1] != 0 {
		t.Errorf("duty sequence = %v, want [100 0]", duties)
	}

	ev := waitForEvent(t, events)
	if ev.Kind != types.EventManualFeed {
		t.Errorf("event kind = %s, want %s", ev.Kind, types.EventManualFeed)
	}
	if ev.AmountGrams != 5 {
		t.Errorf("event amount = %v, want 5", ev.AmountGrams)
	}
	if ev.Source != types.SourceManual {
		t.Errorf("event source = %q, want %q", ev.Source, types.SourceManual)
	}
}

func TestTriggerFeedingRecordsEventAfterCallerGone(t *testing.T) {
	// A dispense that physically ran must be logged even when the requester
	// disconnected (cancelled context) during the motor run.
	backend := &fakeBackend{available: true}
	events := make(chan types.FeedingEvent, 100)

	cfg := testConfig()
	cfg.FeedRate = 100

	m := New(cfg, backend, nil, nil, events, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	const dispenses = 20
	for i := 0; i < dispenses; i++ {
		result := m.TriggerFeeding(ctx, 1, types.SourceManual)
		if !result.Success {
			t.Fatalf("dispense %d failed: %s", i, result.Message)
		}
	}

	if got := len(events); got != dispenses {
		t.Fatalf("published %d feed events for %d dispenses", got, dispenses)
	}
}

func TestTriggerFeedingScheduledIsAutomatic(t *testing.T) {
	backend := &fakeBackend{available: true}
	events := make(chan types.FeedingEvent, 1)

	cfg := testConfig()
	cfg.FeedRate = 100

	m := New(cfg, backend, nil, nil, events, nil, testLogger())

	result := m.TriggerFeeding(context.Background(), 5, types.SourceScheduled)
	if !result.Success {
		t.Fatalf("TriggerFeeding failed: %s", result.Message)
	}

	ev := waitForEvent(t, events)
	if ev.Kind != types.EventAutomaticFeed {
		t.Errorf("event kind = %s, want %s", ev.Kind, types.EventAutomaticFeed)
	}
	if ev.Source != types.SourceScheduled {
		t.Errorf("event source = %q, want %q", ev.Source, types.SourceScheduled)
	}
}
