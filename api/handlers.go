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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/openballot/ballotd/advisory"
	"github.com/openballot/ballotd/ledger"
)

const apiVersion = "0.1.0"

// identityHeader carries the caller identity for
// authenticated operations.
const identityHeader = "X-Identity"

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes a standard-format error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeLedgerError maps a ledger error onto an HTTP error
// response.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		writeError(
			w,
			http.StatusUnauthorized,
			"Unauthorized",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrInvalidInput):
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrVotingInactive),
		errors.Is(err, ledger.ErrAlreadyVoted):
		writeError(
			w,
			http.StatusConflict,
			"Conflict",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrUnknownCandidate),
		errors.Is(err, ledger.ErrNotFound):
		writeError(
			w,
			http.StatusNotFound,
			"Not Found",
			err.Error(),
		)
	default:
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			err.Error(),
		)
	}
}

// callerIdentity extracts the caller identity from the
// request headers.
func callerIdentity(r *http.Request) (ledger.Identity, bool) {
	identity := strings.TrimSpace(
		r.Header.Get(identityHeader),
	)
	if identity == "" {
		return "", false
	}
	return ledger.Identity(identity), true
}

// handleRoot handles GET / and returns API metadata.
func (a *Api) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "ballotd",
		Version: apiVersion,
	})
}

// handleHealth handles GET /health and returns server
// health status.
func (a *Api) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleAddCandidate handles POST /api/v1/candidates and
// registers a new candidate.
func (a *Api) handleAddCandidate(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeError(
			w,
			http.StatusUnauthorized,
			"Unauthorized",
			"missing "+identityHeader+" header",
		)
		return
	}
	var req AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid request body",
		)
		return
	}
	candidateId, err := a.node.AddCandidate(
		caller,
		req.Name,
		req.Description,
	)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddCandidateResponse{
		CandidateId: candidateId,
	})
}

// handleListCandidates handles GET /api/v1/candidates and
// returns all candidates in id order.
func (a *Api) handleListCandidates(
	w http.ResponseWriter,
	_ *http.Request,
) {
	candidates := a.node.Candidates()
	resp := make([]CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		resp = append(resp, CandidateResponse{
			Id:          c.Id,
			Name:        c.Name,
			Description: c.Description,
			VoteCount:   c.VoteCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetCandidate handles GET /api/v1/candidates/{id}.
func (a *Api) handleGetCandidate(
	w http.ResponseWriter,
	r *http.Request,
) {
	candidateId, err := strconv.ParseUint(
		r.PathValue("id"),
		10,
		64,
	)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid candidate id",
		)
		return
	}
	c, err := a.node.Candidate(candidateId)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CandidateResponse{
		Id:          c.Id,
		Name:        c.Name,
		Description: c.Description,
		VoteCount:   c.VoteCount,
	})
}

// handleTogglePhase handles POST /api/v1/phase/toggle and
// flips the voting phase.
func (a *Api) handleTogglePhase(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeError(
			w,
			http.StatusUnauthorized,
			"Unauthorized",
			"missing "+identityHeader+" header",
		)
		return
	}
	active, err := a.node.TogglePhase(caller)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TogglePhaseResponse{
		Active: active,
	})
}

// handleVote handles POST /api/v1/votes and casts a vote
// for the calling identity. When a fraud advisory client
// is configured the vote is analyzed first: a blocking
// recommendation rejects the vote, a warning is passed
// through in the response, and an unreachable advisory
// service is ignored.
func (a *Api) handleVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeError(
			w,
			http.StatusUnauthorized,
			"Unauthorized",
			"missing "+identityHeader+" header",
		)
		return
	}
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid request body",
		)
		return
	}

	var advisoryWarning string
	var advisoryIndicators []string
	if a.config.Advisory != nil {
		assessment, err := a.config.Advisory.AnalyzeVote(
			r.Context(),
			advisory.VoteCheck{
				VoterId:     string(caller),
				CandidateId: req.CandidateId,
				IpAddress:   remoteAddr(r),
			},
		)
		if err != nil {
			// The advisory service is best-effort and
			// never blocks voting when unreachable
			a.logger.Warn(
				"fraud advisory check failed",
				"error", err,
			)
		} else {
			switch assessment.Recommendation() {
			case advisory.RecommendationBlock:
				writeError(
					w,
					http.StatusForbidden,
					"Forbidden",
					fmt.Sprintf(
						"vote rejected by fraud advisory "+
							"(probability %.2f)",
						assessment.FraudProbability,
					),
				)
				return
			case advisory.RecommendationWarn:
				advisoryWarning = fmt.Sprintf(
					"vote flagged by fraud advisory "+
						"(probability %.2f)",
					assessment.FraudProbability,
				)
				advisoryIndicators = assessment.FraudIndicators
			}
		}
	}

	if err := a.node.Vote(caller, req.CandidateId); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, VoteResponse{
		Message:           "vote recorded",
		AdvisoryWarning:   advisoryWarning,
		AdvisoryIndicator: advisoryIndicators,
	})
}

// handleGetVoter handles GET /api/v1/voters/{identity} and
// reports whether the identity has voted. Who the identity
// voted for is intentionally not exposed.
func (a *Api) handleGetVoter(
	w http.ResponseWriter,
	r *http.Request,
) {
	identity := ledger.Identity(r.PathValue("identity"))
	writeJSON(w, http.StatusOK, VoterResponse{
		Identity: string(identity),
		HasVoted: a.node.HasVoted(identity),
	})
}

// handleResults handles GET /api/v1/results and returns a
// full tally snapshot.
func (a *Api) handleResults(
	w http.ResponseWriter,
	_ *http.Request,
) {
	tally := a.node.Compute()
	results := make([]ResultEntry, 0, len(tally.Results))
	for _, r := range tally.Results {
		results = append(results, ResultEntry{
			CandidateId: r.CandidateId,
			VoteCount:   r.VoteCount,
		})
	}
	leaders := tally.Leaders
	if leaders == nil {
		leaders = []uint64{}
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		Results: results,
		Leaders: leaders,
		Tie:     tally.Tie,
	})
}

// handleStats handles GET /api/v1/stats.
func (a *Api) handleStats(
	w http.ResponseWriter,
	_ *http.Request,
) {
	stats := a.node.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		CandidateCount: stats.CandidateCount,
		TotalVotes:     stats.TotalVotes,
		Active:         stats.Active,
	})
}

// handleEvents handles GET /api/v1/events and returns
// committed ballot events starting at the optional "from"
// sequence number.
func (a *Api) handleEvents(
	w http.ResponseWriter,
	r *http.Request,
) {
	var fromSeq uint64
	if from := r.URL.Query().Get("from"); from != "" {
		var err error
		fromSeq, err = strconv.ParseUint(from, 10, 64)
		if err != nil {
			writeError(
				w,
				http.StatusBadRequest,
				"Bad Request",
				"invalid from sequence number",
			)
			return
		}
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeError(
				w,
				http.StatusBadRequest,
				"Bad Request",
				"invalid limit",
			)
			return
		}
		limit = parsed
	}
	entries := a.node.Events(fromSeq, limit)
	events := make([]EventResponse, 0, len(entries))
	// Default to the log's own next sequence so that a request at or past
	// the tip still returns a valid resume cursor
	nextSeq := a.node.NextSeq()
	for _, entry := range entries {
		events = append(events, EventResponse{
			Seq:       entry.Seq,
			Type:      string(entry.Type),
			Timestamp: entry.Timestamp,
			Data:      entry.Data,
		})
		nextSeq = entry.Seq + 1
	}
	writeJSON(w, http.StatusOK, EventsResponse{
		Events:  events,
		NextSeq: nextSeq,
	})
}

// remoteAddr returns the client address without the port.
func remoteAddr(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}
