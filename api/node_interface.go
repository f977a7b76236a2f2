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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"github.com/openballot/ballotd/event"
	"github.com/openballot/ballotd/ledger"
)

// ApiNode is the interface that the API server uses to operate on the
// ballot ledger. This decouples the HTTP server from the concrete Node
// struct and enables testing with mock implementations.
type ApiNode interface {
	// AddCandidate registers a new candidate (admin only).
	AddCandidate(
		caller ledger.Identity,
		name string,
		description string,
	) (uint64, error)

	// TogglePhase flips the voting phase and returns the
	// new value (admin only).
	TogglePhase(caller ledger.Identity) (bool, error)

	// Vote records a vote by caller for the given
	// candidate.
	Vote(caller ledger.Identity, candidateId uint64) error

	// Candidate returns the candidate with the given id.
	Candidate(candidateId uint64) (ledger.Candidate, error)

	// Candidates returns all candidates in ascending id
	// order.
	Candidates() []ledger.Candidate

	// HasVoted returns whether the given identity has a
	// recorded vote.
	HasVoted(voter ledger.Identity) bool

	// Stats returns candidate count, total votes, and the
	// current phase.
	Stats() ledger.Stats

	// Compute returns a full tally snapshot.
	Compute() ledger.Tally

	// Events returns committed ballot events starting at
	// fromSeq.
	Events(fromSeq uint64, limit int) []event.LogEntry

	// NextSeq returns the sequence number the next committed
	// event will receive.
	NextSeq() uint64
}
