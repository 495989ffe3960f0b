package monitor

import (
	"fmt"
	"time"

	"github.com/automaticats/feederd/internal/types"
	"go.uber.org/zap"
)

// Notifier delivers a raised alert to an external sink.
type Notifier interface {
	Notify(alert types.Alert)
}

// AlertEngine evaluates the current readings against configured minima.
// Each alert kind is raised exactly once on the falling edge of a threshold
// crossing and stays latched until the value recovers, so a sustained low
// condition never produces duplicate notifications.
type AlertEngine struct {
	minFoodWeight float64
	minWaterLevel float64
	active        map[types.AlertKind]bool
	notifiers     []Notifier
	logger        *zap.SugaredLogger
}

// NewAlertEngine creates an alert engine with the given minima.
func NewAlertEngine(minFoodWeight, minWaterLevel float64, notifiers []Notifier, logger *zap.SugaredLogger) *AlertEngine {
	return &AlertEngine{
		minFoodWeight: minFoodWeight,
		minWaterLevel: minWaterLevel,
		active:        make(map[types.AlertKind]bool),
		notifiers:     notifiers,
		logger:        logger,
	}
}

// Evaluate checks both monitored quantities and returns the alerts raised
// this cycle, if any.
func (a *AlertEngine) Evaluate(weightGrams, waterLevelPercent float64, now time.Time) []types.Alert {
	var raised []types.Alert

	if alert := a.evaluate(types.AlertFoodLow, weightGrams, a.minFoodWeight,
		fmt.Sprintf("Food level low: %.1fg remaining", weightGrams), now); alert != nil {
		raised = append(raised, *alert)
	}

	if alert := a.evaluate(types.AlertWaterLow, waterLevelPercent, a.minWaterLevel,
		fmt.Sprintf("Water level low: %.1f%%", waterLevelPercent), now); alert != nil {
		raised = append(raised, *alert)
	}

	return raised
}

// evaluate applies the latch rule for one alert kind: raise on the falling
// edge, stay silent while still below, clear once recovered.
func (a *AlertEngine) evaluate(kind types.AlertKind, value, threshold float64, message string, now time.Time) *types.Alert {
	below := value < threshold

	if !below {
		if a.active[kind] {
			a.active[kind] = false
			a.logger.Infof("alert cleared: %s", kind)
		}
		return nil
	}

	if a.active[kind] {
		return nil
	}

	a.active[kind] = true
	alert := types.Alert{
		Kind:      kind,
		Message:   message,
		Active:    true,
		Timestamp: now,
	}

	a.logger.Warnf("ALERT: %s", message)
	for _, n := range a.notifiers {
		n.Notify(alert)
	}

	return &alert
}

// Active reports whether the given alert kind is currently latched.
func (a *AlertEngine) Active(kind types.AlertKind) bool {
	return a.active[kind]
}
