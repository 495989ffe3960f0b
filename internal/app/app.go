// Package app wires the hardware backend, monitoring loop, storage, and
// controllers together and owns the application lifecycle.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/automaticats/feederd/internal/classifier"
	"github.com/automaticats/feederd/internal/hardware"
	"github.com/automaticats/feederd/internal/log"
	"github.com/automaticats/feederd/internal/managers"
	"github.com/automaticats/feederd/internal/monitor"
	"github.com/automaticats/feederd/internal/notify"
	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	// Select the rig backend once; everything downstream receives it
	// injected rather than consulting a process-wide flag.
	backend, err := hardware.New(cfgData.Hardware, a.logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	model := a.loadClassifier(cfgData.Hardware.ClassifierModel)

	storageManager, err := managers.NewStorageManager(ctx, &wg, cfgData, a.logger)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	notifiers := []monitor.Notifier{notify.NewLogNotifier(a.logger)}
	if cfgData.Alerting.MQTT != nil {
		mqttNotifier, err := notify.NewMQTTNotifier(*cfgData.Alerting.MQTT, a.logger)
		if err != nil {
			// Alert delivery is best-effort; a dead broker must not keep
			// the feeder from running.
			a.logger.Errorf("MQTT notifier disabled: %v", err)
		} else {
			defer mqttNotifier.Close()
			notifiers = append(notifiers, mqttNotifier)
		}
	}

	monitorCfg := monitor.ConfigFromData(cfgData)
	mon := monitor.New(monitorCfg, backend, model, storageManager.FeedingLog, storageManager.EventDistributor, notifiers, a.logger)

	if err := a.calibrate(ctx, mon, backend, cfgData); err != nil {
		return err
	}

	if err := mon.Start(); err != nil {
		return err
	}

	cm, err := managers.NewControllerManager(ctx, &wg, cfgData, mon, storageManager.FeedingLog, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	mon.Stop()
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// loadClassifier loads the identification model if one is configured.
// Identification is disabled gracefully when no artifact is available.
func (a *App) loadClassifier(path string) *classifier.Model {
	if path == "" {
		a.logger.Info("no classifier model configured, cat identification disabled")
		return nil
	}

	model, err := classifier.Load(path)
	if err != nil {
		if errors.Is(err, classifier.ErrModelUnavailable) {
			a.logger.Warnf("classifier model not found, cat identification disabled: %v", err)
			return nil
		}
		a.logger.Errorf("failed to load classifier model, cat identification disabled: %v", err)
		return nil
	}

	a.logger.Infof("loaded classifier model %s (%d classes)", path, model.Classes())
	return model
}

// calibrate runs the interactive reference-mass procedure when configured
// on real hardware. Simulated rigs skip it and keep scale factor 1.0.
func (a *App) calibrate(ctx context.Context, mon *monitor.Monitor, backend hardware.Backend, cfgData *config.ConfigData) error {
	if !cfgData.Monitor.Calibrate || !backend.Available() {
		return nil
	}

	if err := mon.Tare(ctx); err != nil {
		return err
	}

	referenceMass := cfgData.Monitor.ReferenceMass
	if referenceMass <= 0 {
		referenceMass = monitor.DefaultReferenceMass
	}

	a.logger.Infof("place the %.0fg reference weight on the scale and press Enter...", referenceMass)
	if _, err := os.Stdin.Read(make([]byte, 1)); err != nil {
		a.logger.Warnf("could not wait for operator input, calibrating immediately: %v", err)
	}

	return mon.CalibrateReference(ctx, referenceMass)
}
