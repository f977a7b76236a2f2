// Copyright 2026 OpenBallot Software
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

package ballotd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openballot/ballotd/advisory"
	"github.com/openballot/ballotd/api"
	"github.com/openballot/ballotd/archive"
	"github.com/openballot/ballotd/auth"
	"github.com/openballot/ballotd/event"
	"github.com/openballot/ballotd/ledger"
)

type Node struct {
	authorizer    *auth.Authorizer
	eventBus      *event.EventBus
	eventLog      *event.Log
	ledger        *ledger.Ledger
	archive       *archive.Archive
	advisory      *advisory.Client
	api           *api.Api
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Configure authorization
	authorizer, err := auth.NewAuthorizer(n.config.adminIdentity)
	if err != nil {
		return fmt.Errorf("failed to configure authorization: %w", err)
	}
	n.authorizer = authorizer
	// Load event log
	n.eventLog = event.NewLog(n.eventBus)
	// Load ledger
	n.ledger = ledger.NewLedger(
		ledger.LedgerConfig{
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.authorizer,
			Logger:       n.config.logger,
			EventLog:     n.eventLog,
		},
	)
	// Load event archive
	archiveDb, err := archive.New(
		archive.ArchiveConfig{
			PromRegistry: n.config.promRegistry,
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DataDir:      n.config.dataDir,
			Tracing:      n.config.tracing,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to open event archive: %w", err)
	}
	n.archive = archiveDb
	if err := n.archive.Start(); err != nil {
		return fmt.Errorf("failed to start event archive: %w", err)
	}
	// Configure fraud advisory client
	if n.config.advisoryUrl != "" {
		n.advisory = advisory.NewClient(
			advisory.ClientConfig{
				Logger:  n.config.logger,
				BaseUrl: n.config.advisoryUrl,
				Timeout: n.config.advisoryTimeout,
			},
		)
	}
	// Register initial candidates
	for _, c := range n.config.initialCandidates {
		if _, err := n.ledger.AddCandidate(
			n.config.adminIdentity,
			c.Name,
			c.Description,
		); err != nil {
			return fmt.Errorf("failed to register initial candidate: %w", err)
		}
	}
	// Start API listener
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.ApiConfig{
				ListenAddress: n.config.apiListenAddress,
				Advisory:      n.advisory,
			},
			n,
			n.config.logger,
		)
		if err := n.api.Start(context.Background()); err != nil {
			return err
		}
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close the archive
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if n.archive != nil {
		if closeErr := n.archive.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("event archive close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}

// AddCandidate registers a new candidate on the ledger
func (n *Node) AddCandidate(
	caller ledger.Identity,
	name string,
	description string,
) (uint64, error) {
	return n.ledger.AddCandidate(caller, name, description)
}

// TogglePhase flips the voting phase and returns the new value
func (n *Node) TogglePhase(caller ledger.Identity) (bool, error) {
	return n.ledger.TogglePhase(caller)
}

// Vote records a vote by caller for the given candidate
func (n *Node) Vote(caller ledger.Identity, candidateId uint64) error {
	return n.ledger.Vote(caller, candidateId)
}

// Candidate returns the candidate with the given id
func (n *Node) Candidate(candidateId uint64) (ledger.Candidate, error) {
	return n.ledger.Candidate(candidateId)
}

// Candidates returns all candidates in ascending id order
func (n *Node) Candidates() []ledger.Candidate {
	return n.ledger.Candidates()
}

// HasVoted returns whether the given identity has a recorded vote
func (n *Node) HasVoted(voter ledger.Identity) bool {
	return n.ledger.HasVoted(voter)
}

// Stats returns candidate count, total votes, and the current phase
func (n *Node) Stats() ledger.Stats {
	return n.ledger.Stats()
}

// Compute returns a full tally snapshot
func (n *Node) Compute() ledger.Tally {
	return n.ledger.Compute()
}

// Events returns committed ballot events starting at fromSeq
func (n *Node) Events(fromSeq uint64, limit int) []event.LogEntry {
	return n.eventLog.Entries(fromSeq, limit)
}

// NextSeq returns the sequence number the next committed event will receive
func (n *Node) NextSeq() uint64 {
	return n.eventLog.NextSeq()
}

// EventLog returns the node's append-only event log
func (n *Node) EventLog() *event.Log {
	return n.eventLog
}

// Archive returns the node's persistent event archive
func (n *Node) Archive() *archive.Archive {
	return n.archive
}
