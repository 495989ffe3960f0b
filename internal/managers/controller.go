package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/automaticats/feederd/internal/controllers/restserver"
	"github.com/automaticats/feederd/internal/monitor"
	"github.com/automaticats/feederd/internal/storage/sqlite"
	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// Controller is the interface all controller backends implement
type Controller interface {
	StartController() error
}

// ControllerManager holds the active controllers
type ControllerManager struct {
	controllers []Controller
	logger      *zap.SugaredLogger
}

// NewControllerManager creates a ControllerManager object, populated with
// all configured controllers
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData, mon *monitor.Monitor, feedingLog *sqlite.Store, logger *zap.SugaredLogger) (*ControllerManager, error) {
	cm := &ControllerManager{logger: logger}

	for _, controllerConfig := range cfgData.Controllers {
		switch controllerConfig.Type {
		case "rest":
			if controllerConfig.RESTServer == nil {
				return nil, fmt.Errorf("rest controller requires a rest configuration block")
			}
			ctrl, err := restserver.NewController(ctx, wg, *controllerConfig.RESTServer, mon, feedingLog, logger)
			if err != nil {
				return nil, fmt.Errorf("error creating REST controller: %w", err)
			}
			cm.controllers = append(cm.controllers, ctrl)
		default:
			return nil, fmt.Errorf("unknown controller type: %s", controllerConfig.Type)
		}
	}

	return cm, nil
}

// StartControllers starts all configured controllers
func (cm *ControllerManager) StartControllers() error {
	for _, ctrl := range cm.controllers {
		if err := ctrl.StartController(); err != nil {
			return err
		}
	}
	return nil
}
