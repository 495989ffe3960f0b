// Package monitor implements the sensor-and-actuation monitoring loop: the
// periodic acquisition cycle, weight calibration, eating/food-added event
// detection, low-level alerting, open-loop dispensing, and camera
// identification.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/classifier"
	"github.com/automaticats/feederd/internal/hardware"
	"github.com/automaticats/feederd/internal/types"
	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// Fixed constants of the rig, overridable through configuration.
const (
	DefaultSampleInterval   = time.Second
	DefaultEatingThreshold  = 5.0  // grams
	DefaultMinFoodWeight    = 10.0 // grams
	DefaultMinWaterLevel    = 20.0 // percent
	DefaultFeedRate         = 10.0 // grams per second
	DefaultMaxWaterDistance = 20.0 // cm
	DefaultReferenceMass    = 100.0
	DefaultCycleBackoff     = 5 * time.Second
)

// Config holds the monitoring loop tunables.
type Config struct {
	SampleInterval   time.Duration
	EatingThreshold  float64
	MinFoodWeight    float64
	MinWaterLevel    float64
	FeedRate         float64 // grams per second
	MaxWaterDistance float64 // cm, full ultrasonic range at empty
	ReferenceMass    float64 // grams, calibration reference
	CycleBackoff     time.Duration
}

// DefaultConfig returns the rig's fixed defaults.
func DefaultConfig() Config {
	return Config{
		SampleInterval:   DefaultSampleInterval,
		EatingThreshold:  DefaultEatingThreshold,
		MinFoodWeight:    DefaultMinFoodWeight,
		MinWaterLevel:    DefaultMinWaterLevel,
		FeedRate:         DefaultFeedRate,
		MaxWaterDistance: DefaultMaxWaterDistance,
		ReferenceMass:    DefaultReferenceMass,
		CycleBackoff:     DefaultCycleBackoff,
	}
}

// ConfigFromData maps the loaded configuration onto a monitor Config,
// filling the gaps with defaults.
func ConfigFromData(data *config.ConfigData) Config {
	cfg := DefaultConfig()
	if d := data.Monitor.SampleIntervalDuration(); d > 0 {
		cfg.SampleInterval = d
	}
	if data.Monitor.EatingThreshold > 0 {
		cfg.EatingThreshold = data.Monitor.EatingThreshold
	}
	if data.Monitor.MinFoodWeight > 0 {
		cfg.MinFoodWeight = data.Monitor.MinFoodWeight
	}
	if data.Monitor.MinWaterLevel > 0 {
		cfg.MinWaterLevel = data.Monitor.MinWaterLevel
	}
	if data.Monitor.ReferenceMass > 0 {
		cfg.ReferenceMass = data.Monitor.ReferenceMass
	}
	if data.Hardware.FeedRate > 0 {
		cfg.FeedRate = data.Hardware.FeedRate
	}
	if data.Hardware.MaxWaterDistance > 0 {
		cfg.MaxWaterDistance = data.Hardware.MaxWaterDistance
	}
	return cfg
}

// CatResolver maps a numeric cat identifier to its persisted name.
type CatResolver interface {
	CatName(id int64) (string, error)
}

// Monitor owns the rig: it runs the background sampling cycle and serves
// synchronous feed and identify requests. The physical rig is a single
// exclusively-locked resource; the status snapshot is separately protected
// so readers never block on a sensor read.
type Monitor struct {
	cfg      Config
	backend  hardware.Backend
	model    *classifier.Model
	cats     CatResolver
	events   chan<- types.FeedingEvent
	cal      *Calibration
	detector *EventDetector
	alerts   *AlertEngine
	logger   *zap.SugaredLogger

	rig sync.Mutex // serializes sensor reads with dispensing and capture

	statusMu sync.RWMutex
	status   types.Status

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	prevWeight float64
	havePrev   bool
}

// New creates a Monitor. The model and cat resolver may be nil, in which
// case identification reports failure instead of crashing. Detected events
// are sent to the events channel for persistence.
func New(cfg Config, backend hardware.Backend, model *classifier.Model, cats CatResolver, events chan<- types.FeedingEvent, notifiers []Notifier, logger *zap.SugaredLogger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		backend:  backend,
		model:    model,
		cats:     cats,
		events:   events,
		cal:      NewCalibration(),
		detector: NewEventDetector(cfg.EatingThreshold),
		alerts:   NewAlertEngine(cfg.MinFoodWeight, cfg.MinWaterLevel, notifiers, logger),
		logger:   logger,
	}
}

// Calibration exposes the load-cell calibration for the tare/reference
// procedure. It must not be re-run while dispensing; use the Monitor's
// Tare and CalibrateReference wrappers, which hold the rig lock.
func (m *Monitor) Calibration() *Calibration {
	return m.cal
}

// Start spawns the periodic monitoring cycle. Idempotent.
func (m *Monitor) Start() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.run(ctx)
	return nil
}

// Stop signals the loop to terminate and waits for the current cycle to
// finish. An in-flight dispense is allowed to complete: Stop acquires the
// rig lock before returning. Safe to call at any time, idempotent.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.running {
		return
	}

	m.cancel()
	<-m.done
	m.running = false

	m.rig.Lock()
	m.rig.Unlock()

	m.logger.Info("hardware monitoring stopped")
}

// CurrentStatus returns the last published snapshot without blocking on
// the sampling cycle.
func (m *Monitor) CurrentStatus() types.Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// Tare zeroes the scale against the current raw reading.
func (m *Monitor) Tare(ctx context.Context) error {
	m.rig.Lock()
	defer m.rig.Unlock()

	raw, err := m.backend.ReadWeight(ctx)
	if err != nil && !errors.Is(err, hardware.ErrSensorTimeout) {
		return fmt.Errorf("tare failed: %w", err)
	}
	m.cal.Tare(raw)
	m.logger.Infof("scale tared at raw offset %.2f", raw)
	return nil
}

// CalibrateReference runs the reference-mass calibration procedure. The
// operator is expected to have placed the reference mass on the scale.
func (m *Monitor) CalibrateReference(ctx context.Context, referenceMass float64) error {
	m.rig.Lock()
	defer m.rig.Unlock()

	if err := m.cal.Calibrate(ctx, m.backend, referenceMass); err != nil {
		return err
	}
	m.logger.Infof("calibration complete, scale factor: %v", m.cal.ScaleFactor())
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.logger.Info("starting hardware monitoring loop")
	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		if err := m.runCycle(ctx); err != nil {
			m.logger.Errorf("error in monitoring cycle: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.cfg.CycleBackoff):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle performs one acquisition: read both sensors, calibrate, detect
// events, evaluate alerts, publish the status snapshot. The whole cycle
// holds the rig lock so no dispense overlaps a sample.
func (m *Monitor) runCycle(ctx context.Context) error {
	m.rig.Lock()
	defer m.rig.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	now := time.Now()

	raw, err := m.backend.ReadWeight(ctx)
	if err != nil && !errors.Is(err, hardware.ErrSensorTimeout) {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("reading weight: %w", err)
	}

	echo, err := m.backend.ReadWaterEcho(ctx)
	if err != nil && !errors.Is(err, hardware.ErrSensorTimeout) {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("reading water level: %w", err)
	}

	weight := m.cal.ToGrams(raw)
	level := WaterLevelFromEcho(echo, m.cfg.MaxWaterDistance)

	if m.havePrev {
		if ev := m.detector.Detect(m.prevWeight, weight, now); ev != nil {
			m.logger.Infof("detected %s event: %.1fg", ev.Kind, ev.AmountGrams)
			m.publishEvent(ctx, *ev)
		}
	} else {
		// First cycle seeds the previous sample without evaluating a delta.
		m.havePrev = true
	}

	m.alerts.Evaluate(weight, level, now)
	m.prevWeight = weight

	m.statusMu.Lock()
	m.status = types.Status{
		Timestamp:         now,
		FoodWeightGrams:   weight,
		WaterLevelPercent: level,
		HardwareAvailable: m.backend.Available(),
	}
	m.statusMu.Unlock()

	return nil
}

// publishEvent hands a feeding event to the storage distributor. A stalled
// distributor must not wedge the loop past shutdown.
func (m *Monitor) publishEvent(ctx context.Context, ev types.FeedingEvent) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

// WaterLevelFromEcho converts an ultrasonic echo pulse width in seconds to
// a fill percentage, clamped to [0, 100]. Distance to the water surface is
// echo seconds times 17150 cm/s (half the speed of sound, for the round
// trip); a surface at maxDistance is an empty container.
func WaterLevelFromEcho(echoSeconds, maxDistanceCM float64) float64 {
	distance := echoSeconds * 17150.0
	level := (1 - distance/maxDistanceCM) * 100
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
