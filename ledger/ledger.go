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

package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/openballot/ballotd/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Identity is the unique caller reference used to key voter records and
// check administrator status. The ledger trusts the identity it is given.
type Identity string

// Action names a privileged operation for authorization checks
type Action string

const (
	ActionAddCandidate Action = "add-candidate"
	ActionTogglePhase  Action = "toggle-phase"
)

// Authorizer defines the interface for admin authorization needed by the ledger.
type Authorizer interface {
	Authorize(caller Identity, action Action) error
}

type Candidate struct {
	Name        string
	Description string
	Id          uint64
	VoteCount   uint64
}

type VoterRecord struct {
	Voter    Identity
	CastAt   time.Time
	VotedFor uint64
}

type LedgerConfig struct {
	PromRegistry prometheus.Registerer
	Authorizer   Authorizer
	Logger       *slog.Logger
	EventLog     *event.Log
}

// Ledger is the authoritative store of candidates and voter records and the
// state machine that mutates it. All writes execute under a single write
// lock, which makes each precondition-check-then-mutate sequence atomic with
// respect to all other mutating operations.
type Ledger struct {
	config  LedgerConfig
	metrics struct {
		votesProcessedNum prometheus.Counter
		candidates        prometheus.Gauge
		totalVotes        prometheus.Gauge
		votingActive      prometheus.Gauge
	}
	authorizer Authorizer
	logger     *slog.Logger
	eventLog   *event.Log
	// Candidate ids are dense 1..N by construction: candidate with id X
	// lives at index X-1 and candidates are never removed
	candidates []Candidate
	voters     map[Identity]VoterRecord
	totalVotes uint64
	active     bool
	sync.RWMutex
}

func NewLedger(config LedgerConfig) *Ledger {
	l := &Ledger{
		config:     config,
		authorizer: config.Authorizer,
		eventLog:   config.EventLog,
		voters:     make(map[Identity]VoterRecord),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	l.metrics.votesProcessedNum = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ballotd_ledger_votes_processed_total",
			Help: "total successful votes recorded",
		},
	)
	l.metrics.candidates = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballotd_ledger_candidates",
		Help: "current count of registered candidates",
	})
	l.metrics.totalVotes = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballotd_ledger_votes",
		Help: "current count of recorded votes",
	})
	l.metrics.votingActive = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ballotd_ledger_voting_active",
		Help: "whether the voting phase is currently active",
	})
	return l
}

// AddCandidate registers a new candidate and returns its assigned id.
// Requires admin authorization and non-empty name and description. Ids are
// assigned sequentially starting at 1 and are never reused.
func (l *Ledger) AddCandidate(
	caller Identity,
	name string,
	description string,
) (uint64, error) {
	if err := l.authorizer.Authorize(caller, ActionAddCandidate); err != nil {
		return 0, err
	}
	if name == "" || description == "" {
		return 0, fmt.Errorf(
			"%w: name and description must be non-empty",
			ErrInvalidInput,
		)
	}
	l.Lock()
	defer l.Unlock()
	candidate := Candidate{
		// Safe conversion, candidate count cannot be negative
		Id:          uint64(len(l.candidates)) + 1, // #nosec G115
		Name:        name,
		Description: description,
	}
	l.candidates = append(l.candidates, candidate)
	l.logger.Info(
		"added candidate",
		"component", "ledger",
		"candidate_id", candidate.Id,
		"name", candidate.Name,
	)
	l.metrics.candidates.Inc()
	// Generate event
	l.appendEvent(
		CandidateAddedEventType,
		CandidateAddedEvent{
			Id:          candidate.Id,
			Name:        candidate.Name,
			Description: candidate.Description,
		},
	)
	return candidate.Id, nil
}

// TogglePhase flips the voting phase and returns the new value. Requires
// admin authorization; toggling back and forth is always legal.
func (l *Ledger) TogglePhase(caller Identity) (bool, error) {
	if err := l.authorizer.Authorize(caller, ActionTogglePhase); err != nil {
		return false, err
	}
	l.Lock()
	defer l.Unlock()
	l.active = !l.active
	if l.active {
		l.metrics.votingActive.Set(1)
	} else {
		l.metrics.votingActive.Set(0)
	}
	l.logger.Info(
		"voting phase changed",
		"component", "ledger",
		"active", l.active,
	)
	// Generate event
	l.appendEvent(
		PhaseChangedEventType,
		PhaseChangedEvent{
			Active: l.active,
		},
	)
	return l.active, nil
}

// Vote records a vote by caller for the given candidate. Preconditions are
// checked in a fixed order: the voting phase must be active, the caller must
// not already have voted, and the candidate must exist. The checks and the
// mutation execute under the write lock so that two simultaneous votes from
// the same identity cannot both succeed.
func (l *Ledger) Vote(caller Identity, candidateId uint64) error {
	l.Lock()
	defer l.Unlock()
	if !l.active {
		return ErrVotingInactive
	}
	if existing, ok := l.voters[caller]; ok {
		return NewAlreadyVotedError(caller, existing.VotedFor, candidateId)
	}
	if candidateId < 1 || candidateId > uint64(len(l.candidates)) { // #nosec G115
		return fmt.Errorf("%w: %d", ErrUnknownCandidate, candidateId)
	}
	record := VoterRecord{
		Voter:    caller,
		VotedFor: candidateId,
		CastAt:   time.Now(),
	}
	l.candidates[candidateId-1].VoteCount++
	l.totalVotes++
	l.voters[caller] = record
	l.logger.Debug(
		"recorded vote",
		"component", "ledger",
		"candidate_id", candidateId,
	)
	l.metrics.votesProcessedNum.Inc()
	l.metrics.totalVotes.Inc()
	// Generate event
	l.appendEvent(
		VoteCastEventType,
		VoteCastEvent{
			Voter:       record.Voter,
			CandidateId: record.VotedFor,
			CastAt:      record.CastAt,
		},
	)
	return nil
}

// Candidate returns the candidate with the given id
func (l *Ledger) Candidate(candidateId uint64) (Candidate, error) {
	l.RLock()
	defer l.RUnlock()
	if candidateId < 1 || candidateId > uint64(len(l.candidates)) { // #nosec G115
		return Candidate{}, fmt.Errorf(
			"%w: candidate %d",
			ErrNotFound,
			candidateId,
		)
	}
	return l.candidates[candidateId-1], nil
}

// Candidates returns all candidates in ascending id order
func (l *Ledger) Candidates() []Candidate {
	l.RLock()
	defer l.RUnlock()
	ret := make([]Candidate, len(l.candidates))
	copy(ret, l.candidates)
	return ret
}

// HasVoted returns whether the given identity has a recorded vote
func (l *Ledger) HasVoted(voter Identity) bool {
	l.RLock()
	defer l.RUnlock()
	_, ok := l.voters[voter]
	return ok
}

// Voter returns the voter record for the given identity
func (l *Ledger) Voter(voter Identity) (VoterRecord, error) {
	l.RLock()
	defer l.RUnlock()
	record, ok := l.voters[voter]
	if !ok {
		return VoterRecord{}, fmt.Errorf(
			"%w: voter %s",
			ErrNotFound,
			voter,
		)
	}
	return record, nil
}

// Active returns whether the voting phase is currently active
func (l *Ledger) Active() bool {
	l.RLock()
	defer l.RUnlock()
	return l.active
}

// appendEvent records an event in the append-only log (which also publishes
// it on the attached bus). Must be called with the write lock held so that
// log order matches commit order. Appending cannot fail and delivery
// problems never roll back the mutation.
func (l *Ledger) appendEvent(eventType event.EventType, data any) {
	if l.eventLog == nil {
		return
	}
	l.eventLog.Append(event.NewEvent(eventType, data))
}
