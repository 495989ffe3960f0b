package hardware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/automaticats/feederd/pkg/config"
	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

// sensorReadTimeout bounds how long a read waits for a fresh telemetry
// line before falling back to the last-known value.
const sensorReadTimeout = 100 * time.Millisecond

// telemetry is one line of rig telemetry. The feeder controller streams
// these continuously: raw load-cell counts and the ultrasonic echo pulse
// width in microseconds.
type telemetry struct {
	RawWeight float64 `json:"w"`
	EchoUS    float64 `json:"e"`
}

// driveCommand is sent to the feeder controller to set the motor duty cycle.
type driveCommand struct {
	Cmd  string  `json:"cmd"`
	Duty float64 `json:"duty"`
}

// SerialBackend talks to the feeder rig's microcontroller over a serial
// line. The controller owns the load-cell amplifier's two-wire protocol and
// the ultrasonic trigger/echo timing; the host sees a JSON line stream of
// raw values and writes JSON drive commands back.
type SerialBackend struct {
	rwc    io.ReadWriteCloser
	client *http.Client
	cfg    config.HardwareData
	logger *zap.SugaredLogger

	cancel  context.CancelFunc
	fresh   chan telemetry
	writeMu sync.Mutex

	mu   sync.Mutex
	last telemetry
}

// NewSerialBackend opens the serial device and starts the telemetry reader.
func NewSerialBackend(cfg config.HardwareData, logger *zap.SugaredLogger) (*SerialBackend, error) {
	if cfg.SerialDevice == "" {
		return nil, fmt.Errorf("serial backend requires a serial device: %w", ErrHardwareUnavailable)
	}

	baud := cfg.Baud
	if baud == 0 {
		baud = 115200
	}

	sc := &serial.Config{Name: cfg.SerialDevice, Baud: baud}
	logger.Infof("opening feeder rig serial port %s at %d baud", cfg.SerialDevice, baud)
	rwc, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.SerialDevice, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SerialBackend{
		rwc:    rwc,
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
		logger: logger,
		cancel: cancel,
		fresh:  make(chan telemetry, 1),
	}
	go s.readTelemetry(ctx)

	return s, nil
}

// Available reports true: a serial backend is only constructed when the rig
// is attached.
func (s *SerialBackend) Available() bool {
	return true
}

// readTelemetry consumes the controller's line stream, keeping only the
// most recent sample.
func (s *SerialBackend) readTelemetry(ctx context.Context) {
	scanner := bufio.NewScanner(s.rwc)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var t telemetry
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			s.logger.Debugf("discarding malformed telemetry line: %v", err)
			continue
		}

		s.mu.Lock()
		s.last = t
		s.mu.Unlock()

		// Replace any unconsumed sample with the newer one.
		select {
		case s.fresh <- t:
		default:
			select {
			case <-s.fresh:
			default:
			}
			select {
			case s.fresh <- t:
			default:
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Errorf("feeder rig telemetry stream ended: %v", err)
	}
}

// sample waits up to the sensor timeout for a fresh telemetry line. On
// timeout it returns the last-known sample and ErrSensorTimeout so a
// monitoring cycle never fails outright on a slow sensor.
func (s *SerialBackend) sample(ctx context.Context) (telemetry, error) {
	timer := time.NewTimer(sensorReadTimeout)
	defer timer.Stop()

	select {
	case t := <-s.fresh:
		return t, nil
	case <-timer.C:
		s.mu.Lock()
		last := s.last
		s.mu.Unlock()
		return last, ErrSensorTimeout
	case <-ctx.Done():
		s.mu.Lock()
		last := s.last
		s.mu.Unlock()
		return last, ctx.Err()
	}
}

func (s *SerialBackend) ReadWeight(ctx context.Context) (float64, error) {
	t, err := s.sample(ctx)
	return t.RawWeight, err
}

func (s *SerialBackend) ReadWaterEcho(ctx context.Context) (float64, error) {
	t, err := s.sample(ctx)
	return t.EchoUS / 1e6, err
}

// Drive sends a duty-cycle command to the feeder controller.
func (s *SerialBackend) Drive(dutyPercent float64) error {
	cmd, err := json.Marshal(driveCommand{Cmd: "drive", Duty: dutyPercent})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.rwc.Write(append(cmd, '\n')); err != nil {
		return fmt.Errorf("failed to send drive command: %w", err)
	}
	return nil
}

// Capture pulls one frame from the rig camera's snapshot endpoint.
func (s *SerialBackend) Capture(ctx context.Context) (image.Image, error) {
	if s.cfg.CameraSnapshotURL == "" {
		return nil, fmt.Errorf("no camera snapshot URL configured: %w", ErrHardwareUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.CameraSnapshotURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera snapshot returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode camera frame: %w", err)
	}
	return img, nil
}

// Close stops the telemetry reader, stops the motor, and releases the
// serial line.
func (s *SerialBackend) Close() error {
	if err := s.Drive(0); err != nil {
		s.logger.Warnf("failed to stop motor during shutdown: %v", err)
	}
	s.cancel()
	return s.rwc.Close()
}
