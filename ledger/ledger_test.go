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
	"testing"
	"time"

	"github.com/openballot/ballotd/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdmin = Identity("admin")

// testAuthorizer authorizes a single fixed admin identity
type testAuthorizer struct {
	admin Identity
}

func (a *testAuthorizer) Authorize(caller Identity, action Action) error {
	if caller != a.admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, action)
	}
	return nil
}

// newTestLedger creates a ledger configured for testing
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(LedgerConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PromRegistry: prometheus.NewRegistry(),
		Authorizer:   &testAuthorizer{admin: testAdmin},
		EventLog:     event.NewLog(nil),
	})
}

func (l *Ledger) mustAddCandidate(t *testing.T, name string) uint64 {
	t.Helper()
	id, err := l.AddCandidate(testAdmin, name, name+" description")
	require.NoError(t, err)
	return id
}

func (l *Ledger) mustActivate(t *testing.T) {
	t.Helper()
	active, err := l.TogglePhase(testAdmin)
	require.NoError(t, err)
	require.True(t, active)
}

// checkTallyInvariant verifies sum(voteCount) == totalVotes
func checkTallyInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	var sum uint64
	for _, c := range l.Candidates() {
		sum += c.VoteCount
	}
	assert.Equal(t, l.Stats().TotalVotes, sum)
}

func TestAddCandidateDenseIds(t *testing.T) {
	l := newTestLedger(t)
	for i := 1; i <= 5; i++ {
		id := l.mustAddCandidate(t, fmt.Sprintf("candidate-%d", i))
		assert.Equal(t, uint64(i), id)
	}
	candidates := l.Candidates()
	require.Len(t, candidates, 5)
	for i, c := range candidates {
		assert.Equal(t, uint64(i)+1, c.Id)
		assert.Equal(t, uint64(0), c.VoteCount)
	}
}

func TestAddCandidateUnauthorized(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.AddCandidate("mallory", "Eve", "write-in")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, l.Candidates())
	assert.Equal(t, uint64(0), l.Stats().CandidateCount)
}

func TestAddCandidateInvalidInput(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.AddCandidate(testAdmin, "", "description")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.AddCandidate(testAdmin, "Alice", "")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, l.Candidates())
}

func TestTogglePhase(t *testing.T) {
	l := newTestLedger(t)
	assert.False(t, l.Active())
	active, err := l.TogglePhase(testAdmin)
	require.NoError(t, err)
	assert.True(t, active)
	active, err = l.TogglePhase(testAdmin)
	require.NoError(t, err)
	assert.False(t, active)
	// Toggling back and forth is always legal
	active, err = l.TogglePhase(testAdmin)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestTogglePhaseUnauthorized(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.TogglePhase("mallory")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, l.Active())
}

func TestVotePhaseGating(t *testing.T) {
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	err := l.Vote("voter1", 1)
	require.ErrorIs(t, err, ErrVotingInactive)
	// No mutation on error
	c, err := l.Candidate(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.VoteCount)
	assert.False(t, l.HasVoted("voter1"))
	checkTallyInvariant(t, l)
}

func TestVoteIdempotentRejection(t *testing.T) {
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	l.mustAddCandidate(t, "Bob")
	l.mustActivate(t)
	require.NoError(t, l.Vote("voter1", 1))
	// Second vote fails regardless of target candidate
	err := l.Vote("voter1", 2)
	require.ErrorIs(t, err, ErrAlreadyVoted)
	var alreadyVoted AlreadyVotedError
	require.ErrorAs(t, err, &alreadyVoted)
	assert.Equal(t, Identity("voter1"), alreadyVoted.Voter())
	assert.Equal(t, uint64(1), alreadyVoted.VotedFor())
	// Original vote unchanged
	record, err := l.Voter("voter1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.VotedFor)
	assert.Equal(t, uint64(1), l.Stats().TotalVotes)
	checkTallyInvariant(t, l)
}

func TestVoteUnknownCandidate(t *testing.T) {
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	l.mustActivate(t)
	require.ErrorIs(t, l.Vote("voter1", 2), ErrUnknownCandidate)
	require.ErrorIs(t, l.Vote("voter1", 0), ErrUnknownCandidate)
	// Failed votes never create a voter record
	assert.False(t, l.HasVoted("voter1"))
	require.NoError(t, l.Vote("voter1", 1))
}

// TestVotePreconditionOrder verifies the fixed check order: phase, then
// duplicate, then candidate existence. Callers may rely on which error they
// receive first.
func TestVotePreconditionOrder(t *testing.T) {
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	// Inactive phase masks everything else, including bad candidate ids
	require.ErrorIs(t, l.Vote("voter1", 99), ErrVotingInactive)
	l.mustActivate(t)
	require.NoError(t, l.Vote("voter1", 1))
	// Duplicate masks unknown candidate
	require.ErrorIs(t, l.Vote("voter1", 99), ErrAlreadyVoted)
	// Fresh identity with bad id gets the existence error
	require.ErrorIs(t, l.Vote("voter2", 99), ErrUnknownCandidate)
}

func TestVoteAcrossPhaseToggles(t *testing.T) {
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	l.mustActivate(t)
	require.NoError(t, l.Vote("voter1", 1))
	// Deactivate and reactivate; voter1 still cannot vote again
	_, err := l.TogglePhase(testAdmin)
	require.NoError(t, err)
	_, err = l.TogglePhase(testAdmin)
	require.NoError(t, err)
	require.ErrorIs(t, l.Vote("voter1", 1), ErrAlreadyVoted)
	assert.Equal(t, uint64(1), l.Stats().TotalVotes)
}

func TestCandidateNotFound(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Candidate(1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = l.Voter("nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVoteEvents(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	eventLog := event.NewLog(eb)
	l := NewLedger(LedgerConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PromRegistry: prometheus.NewRegistry(),
		Authorizer:   &testAuthorizer{admin: testAdmin},
		EventLog:     eventLog,
	})
	l.mustAddCandidate(t, "Alice")
	l.mustActivate(t)
	require.NoError(t, l.Vote("voter1", 1))
	// Failed mutations must not append events
	require.ErrorIs(t, l.Vote("voter1", 1), ErrAlreadyVoted)
	entries := eventLog.Entries(0, 0)
	require.Len(t, entries, 3)
	assert.Equal(t, CandidateAddedEventType, entries[0].Type)
	assert.Equal(t, PhaseChangedEventType, entries[1].Type)
	assert.Equal(t, VoteCastEventType, entries[2].Type)
	voteEvt, ok := entries[2].Data.(VoteCastEvent)
	require.True(t, ok)
	assert.Equal(t, Identity("voter1"), voteEvt.Voter)
	assert.Equal(t, uint64(1), voteEvt.CandidateId)
	assert.False(t, voteEvt.CastAt.IsZero())
}

// TestVoteNotBlockedByStuckSubscriber verifies that a consumer that stops
// draining its event channel cannot stall mutations or reads. The bus
// disconnects the stalled subscriber instead of waiting on it.
func TestVoteNotBlockedByStuckSubscriber(t *testing.T) {
	const numVoters = event.EventQueueSize + 10
	eb := event.NewEventBus(nil, nil)
	eventLog := event.NewLog(eb)
	l := NewLedger(LedgerConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PromRegistry: prometheus.NewRegistry(),
		Authorizer:   &testAuthorizer{admin: testAdmin},
		EventLog:     eventLog,
	})
	l.mustAddCandidate(t, "Alice")
	l.mustActivate(t)
	// Subscribe but never drain the channel
	eb.Subscribe(VoteCastEventType)
	var voteErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range numVoters {
			if err := l.Vote(Identity(fmt.Sprintf("voter%d", i+1)), 1); err != nil {
				voteErr = err
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("votes stalled behind a subscriber that is not draining")
	}
	require.NoError(t, voteErr)
	statsCh := make(chan Stats, 1)
	go func() {
		statsCh <- l.Stats()
	}()
	select {
	case stats := <-statsCh:
		assert.Equal(t, uint64(numVoters), stats.TotalVotes)
	case <-time.After(10 * time.Second):
		t.Fatal("stats read stalled behind a stuck subscriber")
	}
	// Every mutation still reached the log
	assert.Equal(t, uint64(numVoters)+3, eventLog.NextSeq())
}
func TestVoteConcurrentSameIdentity(t *testing.T) {
	const numVoters = 50
	l := newTestLedger(t)
	for i := range numVoters {
		l.mustAddCandidate(t, fmt.Sprintf("candidate-%d", i+1))
	}
	l.mustActivate(t)
	var wg sync.WaitGroup
	errs := make([]error, numVoters)
	for i := range numVoters {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = l.Vote("voter1", uint64(idx)+1)
		}(i)
	}
	wg.Wait()
	var successes, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, ErrAlreadyVoted)
			rejections++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, numVoters-1, rejections)
	assert.Equal(t, uint64(1), l.Stats().TotalVotes)
	checkTallyInvariant(t, l)
}

// TestVoteConcurrentDistinctIdentities verifies tally consistency under
// concurrent votes from many distinct identities
func TestVoteConcurrentDistinctIdentities(t *testing.T) {
	const numVoters = 100
	l := newTestLedger(t)
	l.mustAddCandidate(t, "Alice")
	l.mustAddCandidate(t, "Bob")
	l.mustActivate(t)
	var wg sync.WaitGroup
	for i := range numVoters {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			voter := Identity(fmt.Sprintf("voter-%d", idx))
			// Alternate between candidates
			_ = l.Vote(voter, uint64(idx%2)+1)
		}(i)
	}
	wg.Wait()
	stats := l.Stats()
	assert.Equal(t, uint64(numVoters), stats.TotalVotes)
	checkTallyInvariant(t, l)
}
