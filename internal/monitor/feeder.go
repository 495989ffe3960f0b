package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/automaticats/feederd/internal/types"
	"github.com/google/uuid"
)

// DispenseDuration converts a requested gram amount into a motor run time
// at the rig's fixed feed rate. Open-loop: there is no sensor feedback
// during the dispense itself.
func DispenseDuration(grams, feedRateGramsPerSecond float64) time.Duration {
	return time.Duration(grams / feedRateGramsPerSecond * float64(time.Second))
}

// TriggerFeeding dispenses the requested amount by running the feeder
// motor at full duty for the computed duration. It blocks the caller for
// the whole dispense and holds the rig lock so the sampling loop never
// observes the motor's own weight change mid-dispense, and so two feed
// requests cannot overlap.
//
// Hardware being unavailable is an expected condition and is reported as a
// failure result, never a panic.
func (m *Monitor) TriggerFeeding(ctx context.Context, grams float64, source string) types.FeedResult {
	if grams <= 0 {
		return types.FeedResult{Success: false, Message: fmt.Sprintf("invalid feed amount: %.1fg", grams)}
	}

	if !m.backend.Available() {
		return types.FeedResult{Success: false, Message: "hardware not available"}
	}

	duration := DispenseDuration(grams, m.cfg.FeedRate)
	requestID := uuid.New().String()

	m.rig.Lock()
	defer m.rig.Unlock()

	m.logger.Infof("dispensing %.1fg over %v (request %s)", grams, duration, requestID)

	if err := m.backend.Drive(100); err != nil {
		return types.FeedResult{Success: false, Message: fmt.Sprintf("failed to start feeder motor: %v", err)}
	}

	// Once started, the dispense always runs to completion.
	time.Sleep(duration)

	if err := m.backend.Drive(0); err != nil {
		m.logger.Errorf("failed to stop feeder motor: %v", err)
		return types.FeedResult{Success: false, Message: fmt.Sprintf("failed to stop feeder motor: %v", err)}
	}

	kind := types.EventAutomaticFeed
	if source == types.SourceManual {
		kind = types.EventManualFeed
	}
	m.recordDispense(types.FeedingEvent{
		Timestamp:   time.Now(),
		Kind:        kind,
		AmountGrams: grams,
		Source:      source,
	})

	return types.FeedResult{
		Success:         true,
		Message:         fmt.Sprintf("Dispensed %.1fg", grams),
		RequestID:       requestID,
		DurationSeconds: duration.Seconds(),
	}
}

// recordDispense hands a feed event to the distributor without honoring the
// requester's context. The motor has already run, so the record must not
// depend on whether the caller is still waiting for the response.
func (m *Monitor) recordDispense(ev types.FeedingEvent) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.logger.Warnf("event distributor full, dropping %s event", ev.Kind)
	}
}
