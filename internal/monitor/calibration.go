package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/hardware"
	"gonum.org/v1/gonum/stat"
)

const (
	calibrationSamples       = 10
	calibrationSampleSpacing = 100 * time.Millisecond
)

// Calibration converts raw load-cell counts to grams using a tare offset
// and a scale factor derived from the reference-weight procedure. It is
// mutated only by re-running calibration and read on every cycle.
type Calibration struct {
	mu            sync.RWMutex
	referenceMass float64
	tareOffset    float64
	scaleFactor   float64
}

// NewCalibration returns an uncalibrated conversion with scale factor 1.0,
// the assumption used in non-interactive and simulated mode.
func NewCalibration() *Calibration {
	return &Calibration{scaleFactor: 1.0}
}

// Tare records the current raw reading as the zero offset.
func (c *Calibration) Tare(raw float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tareOffset = raw
}

// Calibrate averages raw samples taken with the reference mass on the
// scale and derives the scale factor. Sensor timeouts reuse the last-known
// value, matching the failure policy of the sampling loop.
func (c *Calibration) Calibrate(ctx context.Context, backend hardware.Backend, referenceMass float64) error {
	if referenceMass <= 0 {
		return fmt.Errorf("reference mass must be positive, got %v", referenceMass)
	}

	readings := make([]float64, 0, calibrationSamples)
	for i := 0; i < calibrationSamples; i++ {
		raw, err := backend.ReadWeight(ctx)
		if err != nil && !errors.Is(err, hardware.ErrSensorTimeout) {
			return fmt.Errorf("calibration read failed: %w", err)
		}
		readings = append(readings, raw)

		if i < calibrationSamples-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calibrationSampleSpacing):
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	average := stat.Mean(readings, nil) - c.tareOffset
	if average <= 0 {
		return fmt.Errorf("calibration failed: average raw reading %v is not positive", average)
	}

	c.referenceMass = referenceMass
	c.scaleFactor = referenceMass / average
	return nil
}

// ToGrams converts a raw reading to grams, clamped at zero so sensor noise
// around the tare point never reports a negative weight.
func (c *Calibration) ToGrams(raw float64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	grams := (raw - c.tareOffset) * c.scaleFactor
	if grams < 0 {
		return 0
	}
	return grams
}

// ScaleFactor returns the current scale factor.
func (c *Calibration) ScaleFactor() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scaleFactor
}
