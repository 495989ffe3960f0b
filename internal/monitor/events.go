package monitor

import (
	"math"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

// EventDetector classifies weight deltas into eating and food-added events.
// Changes smaller than the hysteresis threshold are treated as sensor noise
// and never produce an event.
type EventDetector struct {
	threshold float64
}

// NewEventDetector creates a detector with the given threshold in grams.
func NewEventDetector(threshold float64) *EventDetector {
	return &EventDetector{threshold: threshold}
}

// Detect compares consecutive calibrated weights. A drop of at least the
// threshold is an eating event; a rise of at least the threshold means food
// was added. Returns nil when the delta is below threshold.
func (d *EventDetector) Detect(previous, current float64, ts time.Time) *types.FeedingEvent {
	delta := current - previous
	if math.Abs(delta) < d.threshold {
		return nil
	}

	kind := types.EventFoodAdded
	if delta < 0 {
		kind = types.EventEating
	}

	return &types.FeedingEvent{
		Timestamp:   ts,
		Kind:        kind,
		AmountGrams: math.Abs(delta),
		Source:      types.SourceAutoDetected,
	}
}
