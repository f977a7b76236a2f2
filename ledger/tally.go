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

// CandidateTally is a per-candidate vote count in a tally snapshot
type CandidateTally struct {
	CandidateId uint64
	VoteCount   uint64
}

type Stats struct {
	CandidateCount uint64
	TotalVotes     uint64
	Active         bool
}

// Tally is a consistent snapshot of the aggregate vote state, derived from
// the ledger at call time. It is never cached: every call recomputes from
// the latest committed state.
type Tally struct {
	Results []CandidateTally
	// Leaders holds the ids of all candidates sharing the maximum vote
	// count, in ascending id order. Empty when there are no candidates.
	Leaders []uint64
	// Tie reports whether more than one candidate shares a maximum vote
	// count greater than zero
	Tie bool
}

// Results returns per-candidate vote counts in ascending candidate id order
func (l *Ledger) Results() []CandidateTally {
	l.RLock()
	defer l.RUnlock()
	return l.resultsLocked()
}

func (l *Ledger) resultsLocked() []CandidateTally {
	ret := make([]CandidateTally, len(l.candidates))
	for i, candidate := range l.candidates {
		ret[i] = CandidateTally{
			CandidateId: candidate.Id,
			VoteCount:   candidate.VoteCount,
		}
	}
	return ret
}

// Stats returns the candidate count, total votes cast, and current phase
func (l *Ledger) Stats() Stats {
	l.RLock()
	defer l.RUnlock()
	return Stats{
		CandidateCount: uint64(len(l.candidates)), // #nosec G115
		TotalVotes:     l.totalVotes,
		Active:         l.active,
	}
}

// Compute returns a full tally snapshot: per-candidate results, the current
// leaders, and whether the lead is tied
func (l *Ledger) Compute() Tally {
	l.RLock()
	defer l.RUnlock()
	tally := Tally{
		Results: l.resultsLocked(),
	}
	if len(l.candidates) == 0 {
		return tally
	}
	var maxVotes uint64
	for _, candidate := range l.candidates {
		if candidate.VoteCount > maxVotes {
			maxVotes = candidate.VoteCount
		}
	}
	for _, candidate := range l.candidates {
		if candidate.VoteCount == maxVotes {
			tally.Leaders = append(tally.Leaders, candidate.Id)
		}
	}
	tally.Tie = maxVotes > 0 && len(tally.Leaders) > 1
	return tally
}

// Leaders returns the ids of all candidates sharing the maximum vote count
func (l *Ledger) Leaders() []uint64 {
	return l.Compute().Leaders
}
