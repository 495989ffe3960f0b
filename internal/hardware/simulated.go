package hardware

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"time"

	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// halfSpeedOfSound is the round-trip conversion factor for the ultrasonic
// sensor: distance in cm = echo seconds * 17150.
const halfSpeedOfSound = 17150.0

const defaultMaxWaterDistance = 20.0 // cm

// SimulatedBackend produces jittered readings around the previous value so
// that event detection and alerting are exercised without a physical rig.
type SimulatedBackend struct {
	mu          sync.Mutex
	rng         *rand.Rand
	rawWeight   float64
	waterLevel  float64 // percent
	maxDistance float64 // cm
	duty        float64
	frameSize   int
	logger      *zap.SugaredLogger
}

// NewSimulatedBackend creates a simulated rig with a time-based random seed.
func NewSimulatedBackend(cfg config.HardwareData, logger *zap.SugaredLogger) *SimulatedBackend {
	return NewSimulatedBackendWithSeed(cfg, logger, time.Now().UnixNano())
}

// NewSimulatedBackendWithSeed creates a simulated rig with a fixed seed so
// tests see a reproducible reading sequence.
func NewSimulatedBackendWithSeed(cfg config.HardwareData, logger *zap.SugaredLogger, seed int64) *SimulatedBackend {
	maxDistance := cfg.MaxWaterDistance
	if maxDistance <= 0 {
		maxDistance = defaultMaxWaterDistance
	}
	return &SimulatedBackend{
		rng:         rand.New(rand.NewSource(seed)),
		rawWeight:   100.0,
		waterLevel:  100.0,
		maxDistance: maxDistance,
		frameSize:   64,
		logger:      logger,
	}
}

// Available always reports false for the simulated rig.
func (s *SimulatedBackend) Available() bool {
	return false
}

// ReadWeight returns the previous raw value perturbed by up to ±1 count.
func (s *SimulatedBackend) ReadWeight(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rawWeight += s.rng.Float64()*2 - 1
	if s.rawWeight < 0 {
		s.rawWeight = 0
	}
	return s.rawWeight, nil
}

// ReadWaterEcho perturbs the simulated water level by up to ±2 percent and
// returns the echo pulse width a real sensor would report for that level.
func (s *SimulatedBackend) ReadWaterEcho(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waterLevel += s.rng.Float64()*4 - 2
	if s.waterLevel < 0 {
		s.waterLevel = 0
	} else if s.waterLevel > 100 {
		s.waterLevel = 100
	}

	distance := (1 - s.waterLevel/100) * s.maxDistance
	return distance / halfSpeedOfSound, nil
}

// Drive records the requested duty cycle without moving anything.
func (s *SimulatedBackend) Drive(dutyPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.duty = dutyPercent
	return nil
}

// Duty returns the last requested motor duty cycle.
func (s *SimulatedBackend) Duty() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty
}

// Capture synthesizes a noise frame sized like a real camera snapshot.
func (s *SimulatedBackend) Capture(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := image.NewGray(image.Rect(0, 0, s.frameSize, s.frameSize))
	for y := 0; y < s.frameSize; y++ {
		for x := 0; x < s.frameSize; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(s.rng.Intn(256))})
		}
	}
	return img, nil
}

// Close is a no-op for the simulated rig.
func (s *SimulatedBackend) Close() error {
	return nil
}
