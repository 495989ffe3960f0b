package monitor

import (
	"testing"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

type countingNotifier struct {
	alerts []types.Alert
}

func (c *countingNotifier) Notify(alert types.Alert) {
	c.alerts = append(c.alerts, alert)
}

func (c *countingNotifier) count(kind types.AlertKind) int {
	n := 0
	for _, a := range c.alerts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func TestAlertEngineLatchesLowFood(t *testing.T) {
	sink := &countingNotifier{}
	engine := NewAlertEngine(10.0, 20.0, []Notifier{sink}, testLogger())
	now := time.Now()

	// A sustained low condition raises exactly one alert.
	for i := 0; i < 5; i++ {
		raised := engine.Evaluate(5.0, 80.0, now)
		if i == 0 {
			if len(raised) != 1 || raised[0].Kind != types.AlertFoodLow {
				t.Fatalf("first cycle raised %+v, want one food_low alert", raised)
			}
		} else if len(raised) != 0 {
			t.Fatalf("cycle %d raised %+v while latched", i, raised)
		}
	}
	if got := sink.count(types.AlertFoodLow); got != 1 {
		t.Errorf("notified %d times, want 1", got)
	}
	if !engine.Active(types.AlertFoodLow) {
		t.Error("food_low should be latched")
	}

	// Recovery clears the latch; dropping again raises a new alert.
	engine.Evaluate(50.0, 80.0, now)
	if engine.Active(types.AlertFoodLow) {
		t.Error("food_low should have cleared after recovery")
	}
	engine.Evaluate(5.0, 80.0, now)
	if got := sink.count(types.AlertFoodLow); got != 2 {
		t.Errorf("notified %d times after re-trigger, want 2", got)
	}
}

func TestAlertEngineWaterLow(t *testing.T) {
	sink := &countingNotifier{}
	engine := NewAlertEngine(10.0, 20.0, []Notifier{sink}, testLogger())
	now := time.Now()

	raised := engine.Evaluate(100.0, 15.0, now)
	if len(raised) != 1 || raised[0].Kind != types.AlertWaterLow {
		t.Fatalf("raised %+v, want one water_low alert", raised)
	}
	if raised[0].Message == "" || !raised[0].Active {
		t.Errorf("alert not populated: %+v", raised[0])
	}
	if engine.Active(types.AlertFoodLow) {
		t.Error("food_low must not latch when only water is low")
	}
}

func TestAlertEngineBothLow(t *testing.T) {
	sink := &countingNotifier{}
	engine := NewAlertEngine(10.0, 20.0, []Notifier{sink}, testLogger())

	raised := engine.Evaluate(5.0, 15.0, time.Now())
	if len(raised) != 2 {
		t.Fatalf("raised %d alerts, want 2", len(raised))
	}
	if len(sink.alerts) != 2 {
		t.Fatalf("notified %d times, want 2", len(sink.alerts))
	}
}

func TestAlertEngineAtThresholdIsNotLow(t *testing.T) {
	engine := NewAlertEngine(10.0, 20.0, nil, testLogger())

	if raised := engine.Evaluate(10.0, 20.0, time.Now()); len(raised) != 0 {
		t.Errorf("values at threshold raised %+v", raised)
	}
}
