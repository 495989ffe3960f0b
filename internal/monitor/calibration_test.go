package monitor

import (
	"context"
	"math"
	"testing"
)

func TestCalibrationToGrams(t *testing.T) {
	cal := NewCalibration()

	// Uncalibrated: raw counts pass through with scale factor 1.0.
	if got := cal.ToGrams(42.5); got != 42.5 {
		t.Errorf("uncalibrated ToGrams(42.5) = %v, want 42.5", got)
	}

	cal.Tare(1000)
	if got := cal.ToGrams(1050); got != 50 {
		t.Errorf("after tare, ToGrams(1050) = %v, want 50", got)
	}

	// Readings below the tare point clamp at zero.
	if got := cal.ToGrams(950); got != 0 {
		t.Errorf("ToGrams below tare = %v, want 0", got)
	}
}

func TestCalibrateDerivesScaleFactor(t *testing.T) {
	// Raw counts sit at 1000 empty and 1200 with the 100g reference, so
	// the derived scale factor must be 0.5 g per count.
	backend := &fakeBackend{weight: 1000}
	cal := NewCalibration()

	cal.Tare(1000)
	backend.weight = 1200

	if err := cal.Calibrate(context.Background(), backend, 100); err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}

	if got := cal.ScaleFactor(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("scale factor = %v, want 0.5", got)
	}
	if got := cal.ToGrams(1200); math.Abs(got-100) > 1e-9 {
		t.Errorf("ToGrams(1200) = %v, want 100", got)
	}
}

func TestCalibrateIdentityCase(t *testing.T) {
	// A rig whose raw counts already read in grams keeps scale factor 1.0.
	backend := &fakeBackend{weight: 100}
	cal := NewCalibration()

	if err := cal.Calibrate(context.Background(), backend, 100); err != nil {
		t.Fatalf("Calibrate returned error: %v", err)
	}
	if got := cal.ScaleFactor(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("scale factor = %v, want 1.0", got)
	}
}

func TestCalibrateRejectsBadInput(t *testing.T) {
	backend := &fakeBackend{weight: 100}
	cal := NewCalibration()

	if err := cal.Calibrate(context.Background(), backend, 0); err == nil {
		t.Error("expected error for zero reference mass")
	}
	if err := cal.Calibrate(context.Background(), backend, -10); err == nil {
		t.Error("expected error for negative reference mass")
	}

	// Reference weight reading at or below the tare point cannot calibrate.
	cal.Tare(100)
	if err := cal.Calibrate(context.Background(), backend, 100); err == nil {
		t.Error("expected error when average equals tare offset")
	}
}

func TestCalibrateHonorsContextCancellation(t *testing.T) {
	backend := &fakeBackend{weight: 100}
	cal := NewCalibration()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cal.Calibrate(ctx, backend, 100); err == nil {
		t.Error("expected context cancellation error")
	}
}
