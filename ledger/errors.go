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
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New(
		"caller is not authorized for this action",
	)
	ErrInvalidInput = errors.New(
		"invalid candidate input",
	)
	ErrVotingInactive = errors.New(
		"voting phase is not active",
	)
	ErrAlreadyVoted = errors.New(
		"identity has already voted",
	)
	ErrUnknownCandidate = errors.New(
		"candidate does not exist",
	)
	ErrNotFound = errors.New(
		"not found",
	)
)

type AlreadyVotedError struct {
	voter       Identity
	votedFor    uint64
	attemptedId uint64
}

func NewAlreadyVotedError(
	voter Identity,
	votedFor uint64,
	attemptedId uint64,
) AlreadyVotedError {
	return AlreadyVotedError{
		voter:       voter,
		votedFor:    votedFor,
		attemptedId: attemptedId,
	}
}

func (e AlreadyVotedError) Voter() Identity {
	return e.voter
}

func (e AlreadyVotedError) VotedFor() uint64 {
	return e.votedFor
}

func (e AlreadyVotedError) Error() string {
	return fmt.Sprintf(
		"identity %s has already voted for candidate %d (attempted %d)",
		e.voter,
		e.votedFor,
		e.attemptedId,
	)
}

func (e AlreadyVotedError) Unwrap() error {
	return ErrAlreadyVoted
}
