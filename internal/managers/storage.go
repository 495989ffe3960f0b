package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/automaticats/feederd/internal/log"
	"github.com/automaticats/feederd/internal/storage"
	"github.com/automaticats/feederd/internal/storage/sqlite"
	"github.com/automaticats/feederd/internal/storage/timescaledb"
	"github.com/automaticats/feederd/internal/types"
	"github.com/automaticats/feederd/pkg/config"
	"go.uber.org/zap"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []StorageEngine

	// EventDistributor is the channel the monitoring loop and the feed
	// actuator write feeding events to; the manager fans them out to every
	// configured backend.
	EventDistributor chan types.FeedingEvent

	// FeedingLog is the local query-capable store, always configured; it
	// backs the REST API's history endpoints and cat identity lookups.
	FeedingLog *sqlite.Store
}

// StorageEngine holds a backend storage engine's interface as well as a
// channel for passing events to the engine
type StorageEngine struct {
	Engine storage.EventStorer
	C      chan<- types.FeedingEvent
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{
		EventDistributor: make(chan types.FeedingEvent, 20),
	}

	dbPath := "cat_feeder.db"
	if cfgData.Storage.SQLite != nil && cfgData.Storage.SQLite.Path != "" {
		dbPath = cfgData.Storage.SQLite.Path
	}

	feedingLog, err := sqlite.New(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("could not open feeding log database: %w", err)
	}
	s.FeedingLog = feedingLog
	s.addEngine(ctx, wg, feedingLog)

	if cfgData.Storage.TimescaleDB != nil && cfgData.Storage.TimescaleDB.ConnectionString != "" {
		tsdb, err := timescaledb.New(ctx, cfgData.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.addEngine(ctx, wg, tsdb)
	}

	go s.startEventDistributor(ctx, wg)

	return s, nil
}

func (s *StorageManager) addEngine(ctx context.Context, wg *sync.WaitGroup, engine storage.EventStorer) {
	s.Engines = append(s.Engines, StorageEngine{
		Engine: engine,
		C:      engine.StartStorageEngine(ctx, wg),
	})
}

// startEventDistributor receives feeding events from the distributor
// channel and copies them to every active storage engine
func (s *StorageManager) startEventDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case ev := <-s.EventDistributor:
			for _, engine := range s.Engines {
				select {
				case engine.C <- ev:
				default:
					log.Warn("storage engine channel full, dropping feeding event")
				}
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping event distributor")
			return
		}
	}
}

// Close releases the local feeding log database.
func (s *StorageManager) Close() error {
	if s.FeedingLog != nil {
		return s.FeedingLog.Close()
	}
	return nil
}
