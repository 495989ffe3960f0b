// Package hardware abstracts the physical feeder rig (load cell, ultrasonic
// water sensor, feeder motor, camera) behind a capability interface with a
// real serial-attached variant and a simulated variant.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// Sentinel errors for the hardware layer. Both are expected, recoverable
// conditions: a timeout means the caller should reuse the last-known value,
// and unavailability means the operation is disabled, not broken.
var (
	ErrSensorTimeout       = errors.New("sensor read timed out")
	ErrHardwareUnavailable = errors.New("hardware not available")
)

// Backend is the capability interface for a feeder rig. It is selected once
// at construction and injected; there is no process-wide hardware flag.
//
// ReadWeight returns raw load-cell counts. ReadWaterEcho returns the
// ultrasonic echo pulse width in seconds. Both carry their own bounded
// timeout and return the last-known value alongside ErrSensorTimeout when
// the rig does not answer in time.
type Backend interface {
	// Available reports whether a physical rig is attached. Simulated
	// backends return false.
	Available() bool

	ReadWeight(ctx context.Context) (float64, error)
	ReadWaterEcho(ctx context.Context) (float64, error)

	// Drive sets the feeder motor duty cycle in percent. Zero stops the
	// motor.
	Drive(dutyPercent float64) error

	// Capture grabs one camera frame for identification.
	Capture(ctx context.Context) (image.Image, error)

	Close() error
}

// New creates the backend selected by the configuration. An empty backend
// name probes the config: a serial device means a real rig, otherwise
// simulation.
func New(cfg config.HardwareData, logger *zap.SugaredLogger) (Backend, error) {
	backend := cfg.Backend
	if backend == "" {
		if cfg.SerialDevice != "" {
			backend = "serial"
		} else {
			backend = "simulated"
		}
	}

	switch backend {
	case "serial":
		return NewSerialBackend(cfg, logger)
	case "simulated":
		logger.Warn("hardware backend not configured - running in simulation mode")
		return NewSimulatedBackend(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown hardware backend: %s", backend)
	}
}
