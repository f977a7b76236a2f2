// Copyright 2025 OpenBallot Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package archive persists the ballot event stream to SQLite for external
// auditors. It is a best-effort observer: it consumes committed events from
// the bus and an archive failure is logged but never affects the mutation
// that produced the event. The in-memory ledger remains authoritative.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openballot/ballotd/event"
	"github.com/openballot/ballotd/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// ArchivedEvent is a single persisted ballot event
type ArchivedEvent struct {
	ID        uint      `gorm:"primarykey"`
	Seq       uint64    `gorm:"uniqueIndex"`
	Type      string    `gorm:"index"`
	Payload   []byte    // JSON-encoded event payload
	Timestamp time.Time // event timestamp, not archival time
}

func (ArchivedEvent) TableName() string {
	return "archived_event"
}

type ArchiveConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DataDir      string
	Tracing      bool
}

type Archive struct {
	config  ArchiveConfig
	metrics struct {
		eventsArchived prometheus.Counter
		archiveErrors  prometheus.Counter
	}
	db     *gorm.DB
	logger *slog.Logger
	subs   map[event.EventType]event.EventSubscriberId
}

// New creates a SQLite-backed event archive. Uses an in-memory database if
// dataDir is empty.
func New(config ArchiveConfig) (*Archive, error) {
	var archiveDb *gorm.DB
	var err error
	if config.DataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		archiveDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(config.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(config.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		archiveDbPath := filepath.Join(
			config.DataDir,
			"archive.sqlite",
		)
		// WAL journal mode, disable sync on write
		archiveConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		archiveDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", archiveDbPath, archiveConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	if config.Tracing {
		if err := archiveDb.Use(
			tracing.NewPlugin(tracing.WithoutMetrics()),
		); err != nil {
			return nil, err
		}
	}
	a := &Archive{
		config: config,
		db:     archiveDb,
		subs:   make(map[event.EventType]event.EventSubscriberId),
	}
	if config.Logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		a.logger = config.Logger.With("component", "archive")
	}
	if err := a.db.AutoMigrate(&ArchivedEvent{}); err != nil {
		return nil, err
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	a.metrics.eventsArchived = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ballotd_archive_events_total",
			Help: "total ballot events persisted to the archive",
		},
	)
	a.metrics.archiveErrors = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ballotd_archive_errors_total",
			Help: "total failures persisting ballot events",
		},
	)
	return a, nil
}

// Start subscribes the archive to the ballot event stream
func (a *Archive) Start() error {
	if a.config.EventBus == nil {
		return errors.New("no event bus configured")
	}
	for _, eventType := range []event.EventType{
		ledger.CandidateAddedEventType,
		ledger.VoteCastEventType,
		ledger.PhaseChangedEventType,
	} {
		a.subs[eventType] = a.config.EventBus.SubscribeFunc(
			eventType,
			a.handleEvent,
		)
	}
	return nil
}

func (a *Archive) handleEvent(evt event.Event) {
	entry, ok := evt.Data.(event.LogEntry)
	if !ok {
		a.logger.Warn(
			"unexpected event payload",
			"type", evt.Type,
		)
		return
	}
	payload, err := json.Marshal(entry.Data)
	if err != nil {
		a.metrics.archiveErrors.Inc()
		a.logger.Warn(
			"failed to encode event payload",
			"type", evt.Type,
			"seq", entry.Seq,
			"error", err,
		)
		return
	}
	result := a.db.Create(&ArchivedEvent{
		Seq:       entry.Seq,
		Type:      string(entry.Type),
		Payload:   payload,
		Timestamp: entry.Timestamp,
	})
	if result.Error != nil {
		// Best effort: the mutation that produced this event has already
		// committed and must not be affected
		a.metrics.archiveErrors.Inc()
		a.logger.Warn(
			"failed to archive event",
			"type", evt.Type,
			"seq", entry.Seq,
			"error", result.Error,
		)
		return
	}
	a.metrics.eventsArchived.Inc()
}

// Events returns up to limit archived events starting at fromSeq, in
// sequence order. A limit of zero means no limit.
func (a *Archive) Events(fromSeq uint64, limit int) ([]ArchivedEvent, error) {
	var ret []ArchivedEvent
	query := a.db.Where("seq >= ?", fromSeq).Order("seq")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// Close detaches the archive from the event bus and closes the database
func (a *Archive) Close() error {
	if a.config.EventBus != nil {
		for eventType, subId := range a.subs {
			a.config.EventBus.Unsubscribe(eventType, subId)
		}
	}
	sqlDb, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
