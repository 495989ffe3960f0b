// Package restserver implements the HTTP API consumed by the GUI and any
// remote automation: status polling, dispensing, identification, and the
// feeding history.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/monitor"
	"github.com/automaticats/feederd/internal/storage/sqlite"
	"github.com/automaticats/feederd/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	monitor    *monitor.Monitor
	feedingLog *sqlite.Store
	Server     http.Server
	logger     *zap.SugaredLogger
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, mon *monitor.Monitor, feedingLog *sqlite.Store, logger *zap.SugaredLogger) (*Controller, error) {
	if rc.Port == 0 {
		return nil, fmt.Errorf("REST server requires a port")
	}

	return &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		monitor:    mon,
		feedingLog: feedingLog,
		logger:     logger,
	}, nil
}

// StartController starts the HTTP server and a shutdown watcher.
func (c *Controller) StartController() error {
	router := c.setupRouter()

	c.Server.Addr = fmt.Sprintf("%s:%d", c.restConfig.ListenAddr, c.restConfig.Port)
	c.Server.Handler = router
	c.Server.ReadHeaderTimeout = 10 * time.Second

	c.logger.Infof("starting REST server on %s", c.Server.Addr)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorf("REST server shutdown error: %v", err)
		}
	}()

	return nil
}

func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/status", c.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/feed", c.handleFeed).Methods(http.MethodPost)
	router.HandleFunc("/api/identify", c.handleIdentify).Methods(http.MethodPost)
	router.HandleFunc("/api/events", c.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", c.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/cats", c.handleCats).Methods(http.MethodGet)
	router.HandleFunc("/api/cats", c.handleAddCat).Methods(http.MethodPost)

	return router
}
