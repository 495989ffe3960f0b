// Package notify delivers raised alerts to external sinks.
package notify

import (
	"github.com/automaticats/feederd/internal/types"
	"go.uber.org/zap"
)

// LogNotifier writes alerts to the application log. Always active, so a
// bare installation still surfaces low food and water conditions.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier creates a log-backed alert sink.
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(alert types.Alert) {
	n.logger.Warnf("alert raised [%s]: %s", alert.Kind, alert.Message)
}
