package hardware

import (
	"context"
	"math"
	"testing"

	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

func newTestSim() *SimulatedBackend {
	return NewSimulatedBackendWithSeed(config.HardwareData{}, zap.NewNop().Sugar(), 1)
}

func TestSimulatedBackendIsNotAvailable(t *testing.T) {
	if newTestSim().Available() {
		t.Error("simulated rig must report unavailable")
	}
}

func TestSimulatedWeightJitter(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	prev, err := sim.ReadWeight(ctx)
	if err != nil {
		t.Fatalf("ReadWeight returned error: %v", err)
	}

	for i := 0; i < 100; i++ {
		w, err := sim.ReadWeight(ctx)
		if err != nil {
			t.Fatalf("ReadWeight returned error: %v", err)
		}
		if w < 0 {
			t.Fatalf("weight went negative: %v", w)
		}
		if math.Abs(w-prev) > 1.0 {
			t.Fatalf("jitter exceeded 1 count: %v -> %v", prev, w)
		}
		prev = w
	}
}

func TestSimulatedWaterEchoStaysInRange(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		echo, err := sim.ReadWaterEcho(ctx)
		if err != nil {
			t.Fatalf("ReadWaterEcho returned error: %v", err)
		}

		// Echo must map back to a level within [0, 100] of the default range.
		distance := echo * halfSpeedOfSound
		if distance < 0 || distance > defaultMaxWaterDistance {
			t.Fatalf("echo %v maps to distance %v cm, outside sensor range", echo, distance)
		}
	}
}

func TestSimulatedDriveRecordsDuty(t *testing.T) {
	sim := newTestSim()

	if err := sim.Drive(100); err != nil {
		t.Fatalf("Drive returned error: %v", err)
	}
	if got := sim.Duty(); got != 100 {
		t.Errorf("duty = %v, want 100", got)
	}

	if err := sim.Drive(0); err != nil {
		t.Fatalf("Drive returned error: %v", err)
	}
	if got := sim.Duty(); got != 0 {
		t.Errorf("duty = %v, want 0", got)
	}
}

func TestSimulatedCaptureFrameSize(t *testing.T) {
	sim := newTestSim()

	frame, err := sim.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	bounds := frame.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 64 {
		t.Errorf("frame is %dx%d, want 64x64", bounds.Dx(), bounds.Dy())
	}
}

func TestSimulatedSequenceIsReproducible(t *testing.T) {
	a := newTestSim()
	b := newTestSim()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		wa, _ := a.ReadWeight(ctx)
		wb, _ := b.ReadWeight(ctx)
		if wa != wb {
			t.Fatalf("seeded backends diverged at read %d: %v vs %v", i, wa, wb)
		}
	}
}
