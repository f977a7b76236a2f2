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

import "time"

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// RootResponse is the response for GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// AddCandidateRequest is the request body for
// POST /api/v1/candidates.
type AddCandidateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddCandidateResponse is the response for a successful
// candidate registration.
type AddCandidateResponse struct {
	CandidateId uint64 `json:"candidate_id"`
}

// TogglePhaseResponse is the response for
// POST /api/v1/phase/toggle.
type TogglePhaseResponse struct {
	Active bool `json:"active"`
}

// VoteRequest is the request body for POST /api/v1/votes.
type VoteRequest struct {
	CandidateId uint64 `json:"candidate_id"`
}

// VoteResponse is the response for a successful vote. The
// advisory fields are only populated when a fraud advisory
// service is configured and reachable.
type VoteResponse struct {
	Message           string   `json:"message"`
	AdvisoryWarning   string   `json:"advisory_warning,omitempty"`
	AdvisoryIndicator []string `json:"advisory_indicators,omitempty"`
}

// CandidateResponse is a single candidate record.
type CandidateResponse struct {
	Id          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	VoteCount   uint64 `json:"vote_count"`
}

// VoterResponse is the response for
// GET /api/v1/voters/{identity}.
type VoterResponse struct {
	Identity string `json:"identity"`
	HasVoted bool   `json:"has_voted"`
}

// ResultsResponse is the response for
// GET /api/v1/results.
type ResultsResponse struct {
	Results []ResultEntry `json:"results"`
	Leaders []uint64      `json:"leaders"`
	Tie     bool          `json:"tie"`
}

// ResultEntry is a per-candidate vote count in candidate
// id order.
type ResultEntry struct {
	CandidateId uint64 `json:"candidate_id"`
	VoteCount   uint64 `json:"vote_count"`
}

// StatsResponse is the response for GET /api/v1/stats.
type StatsResponse struct {
	CandidateCount uint64 `json:"candidate_count"`
	TotalVotes     uint64 `json:"total_votes"`
	Active         bool   `json:"active"`
}

// EventResponse is a single committed ballot event.
type EventResponse struct {
	Seq       uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// EventsResponse is the response for
// GET /api/v1/events.
type EventsResponse struct {
	Events  []EventResponse `json:"events"`
	NextSeq uint64          `json:"next_seq"`
}
