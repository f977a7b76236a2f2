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
	"time"

	"github.com/openballot/ballotd/event"
)

const (
	CandidateAddedEventType event.EventType = "ballot.candidate_added"
	VoteCastEventType       event.EventType = "ballot.vote_cast"
	PhaseChangedEventType   event.EventType = "ballot.phase_changed"
)

type CandidateAddedEvent struct {
	Name        string
	Description string
	Id          uint64
}

type VoteCastEvent struct {
	Voter       Identity
	CastAt      time.Time
	CandidateId uint64
}

type PhaseChangedEvent struct {
	Active bool
}
