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

// Package advisory implements a client for an external fraud-scoring
// service. The service is purely advisory: callers may consult it before
// casting a vote, but the ballot ledger itself accepts no advisory input
// and its correctness never depends on the service being available or
// accurate.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultRequestTimeout = 5 * time.Second

type Recommendation string

const (
	RecommendationProceed Recommendation = "proceed"
	RecommendationWarn    Recommendation = "warn"
	RecommendationBlock   Recommendation = "block"
)

// VoteCheck describes a prospective vote for fraud analysis
type VoteCheck struct {
	VoteId            string    `json:"vote_id"`
	VoterId           string    `json:"voter_id"`
	CandidateId       uint64    `json:"candidate_id"`
	LocationId        int       `json:"location_id"`
	Timestamp         time.Time `json:"timestamp"`
	VotingMethod      string    `json:"voting_method"`
	IpAddress         string    `json:"ip_address"`
	SessionDuration   int       `json:"session_duration"`
	DeviceFingerprint string    `json:"device_fingerprint"`
}

// Assessment is the fraud service's verdict on a single vote
type Assessment struct {
	VoteId           string   `json:"vote_id"`
	IsFraud          bool     `json:"is_fraud"`
	FraudProbability float64  `json:"fraud_probability"`
	Confidence       string   `json:"confidence"`
	FraudIndicators  []string `json:"fraud_indicators"`
	Timestamp        string   `json:"timestamp"`
}

// Recommendation maps the fraud probability onto an action for the caller.
// Thresholds follow the service's own severity bands: critical (>= 0.9)
// blocks, medium/high (>= 0.5) warns, anything lower proceeds.
func (a Assessment) Recommendation() Recommendation {
	switch {
	case a.FraudProbability >= 0.9:
		return RecommendationBlock
	case a.FraudProbability >= 0.5:
		return RecommendationWarn
	default:
		return RecommendationProceed
	}
}

// ServiceStats reports fraud service health and alert counts
type ServiceStats struct {
	ConnectedClients int    `json:"connected_clients"`
	TotalAlerts      int    `json:"total_alerts"`
	ModelLoaded      bool   `json:"model_loaded"`
	Uptime           string `json:"uptime"`
}

type ClientConfig struct {
	Logger  *slog.Logger
	BaseUrl string
	Timeout time.Duration
}

type Client struct {
	config     ClientConfig
	logger     *slog.Logger
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	c := &Client{
		config: config,
	}
	if config.Logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		c.logger = config.Logger.With("component", "advisory")
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	c.httpClient = &http.Client{
		Timeout: timeout,
	}
	return c
}

// AnalyzeVote submits a prospective vote for fraud analysis. A transport or
// decode error means the service is unavailable; callers should treat that
// as a proceed recommendation.
func (c *Client) AnalyzeVote(
	ctx context.Context,
	check VoteCheck,
) (Assessment, error) {
	if check.Timestamp.IsZero() {
		check.Timestamp = time.Now()
	}
	if check.VotingMethod == "" {
		check.VotingMethod = "electronic"
	}
	body, err := json.Marshal(check)
	if err != nil {
		return Assessment{}, fmt.Errorf("encoding vote check: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.BaseUrl+"/analyze-vote",
		bytes.NewReader(body),
	)
	if err != nil {
		return Assessment{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("fraud service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Assessment{}, fmt.Errorf(
			"fraud service returned status %d",
			resp.StatusCode,
		)
	}
	var assessment Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return Assessment{}, fmt.Errorf("decoding assessment: %w", err)
	}
	c.logger.Debug(
		"vote analyzed",
		"vote_id", assessment.VoteId,
		"fraud_probability", assessment.FraudProbability,
		"recommendation", assessment.Recommendation(),
	)
	return assessment, nil
}

// Stats fetches fraud service statistics
func (c *Client) Stats(ctx context.Context) (ServiceStats, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.config.BaseUrl+"/stats",
		nil,
	)
	if err != nil {
		return ServiceStats{}, fmt.Errorf("building request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ServiceStats{}, fmt.Errorf("fraud service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ServiceStats{}, fmt.Errorf(
			"fraud service returned status %d",
			resp.StatusCode,
		)
	}
	var stats ServiceStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return ServiceStats{}, fmt.Errorf("decoding stats: %w", err)
	}
	return stats, nil
}
