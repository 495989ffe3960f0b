// Package timescaledb implements a TimescaleDB archive for feeding events,
// for installations that keep a long-term history off the feeder host.
package timescaledb

import (
	"context"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/log"
	"github.com/automaticats/feederd/internal/types"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS feeding_events (
	time TIMESTAMPTZ NOT NULL,
	kind TEXT NOT NULL,
	cat_id BIGINT,
	amount_grams DOUBLE PRECISION,
	source TEXT
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('feeding_events', 'time', if_not_exists => TRUE);`

// Storage holds the connection to a TimescaleDB feeding event archive
type Storage struct {
	db *gorm.DB
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, connectionString string) (*Storage, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	t := &Storage{db: db}

	log.Info("creating feeding events table...")
	if err := db.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		log.Warn("warning: could not create table in database")
		return nil, err
	}

	log.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		log.Warn("warning: could not create TimescaleDB extension")
		return nil, err
	}

	log.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		log.Warn("warning: could not create hypertable")
		return nil, err
	}

	return t, nil
}

// StartStorageEngine creates a goroutine loop to receive feeding events
// and send them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.FeedingEvent {
	log.Info("starting TimescaleDB storage engine...")
	eventChan := make(chan types.FeedingEvent, 10)

	wg.Add(1)
	go t.processEvents(ctx, wg, eventChan)

	return eventChan
}

func (t *Storage) processEvents(ctx context.Context, wg *sync.WaitGroup, events <-chan types.FeedingEvent) {
	defer wg.Done()

	for {
		select {
		case ev := <-events:
			if err := t.StoreEvent(ev); err != nil {
				log.Error("could not store feeding event:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping TimescaleDB event processor")
			return
		}
	}
}

// StoreEvent stores a feeding event in TimescaleDB
func (t *Storage) StoreEvent(ev types.FeedingEvent) error {
	return t.db.Create(&ev).Error
}
