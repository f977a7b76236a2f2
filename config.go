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
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/openballot/ballotd/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// InitialCandidate describes a candidate to register at startup, before
// the voting phase is opened.
type InitialCandidate struct {
	Name        string
	Description string
}

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	adminIdentity ledger.Identity
	dataDir       string
	// API listen address (empty = disabled)
	apiListenAddress string
	// Fraud advisory service base URL (empty = disabled)
	advisoryUrl       string
	advisoryTimeout   time.Duration
	initialCandidates []InitialCandidate
	tracing           bool
	tracingStdout     bool
	shutdownTimeout   time.Duration
}

func (n *Node) configValidate() error {
	if n.config.adminIdentity == "" {
		return errors.New("no admin identity defined")
	}
	for _, c := range n.config.initialCandidates {
		if c.Name == "" {
			return errors.New("initial candidate must have a name")
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new ballotd config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a Prometheus registry for metrics
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithAdminIdentity specifies the identity authorized to register candidates
// and toggle the voting phase. This is required
func WithAdminIdentity(admin ledger.Identity) ConfigOptionFunc {
	return func(c *Config) {
		c.adminIdentity = admin
	}
}

// WithDataDir specifies the persistent data directory for the event archive.
// The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithApiListenAddress specifies the listen address for the REST API. The
// default is to not start the API listener
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithAdvisoryUrl specifies the base URL of an external fraud advisory
// service consulted before votes are cast. The default is no advisory service
func WithAdvisoryUrl(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.advisoryUrl = url
	}
}

// WithAdvisoryTimeout specifies the request timeout for the fraud advisory
// service
func WithAdvisoryTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.advisoryTimeout = timeout
	}
}

// WithInitialCandidates specifies candidates to register at startup using
// the configured admin identity
func WithInitialCandidates(candidates []InitialCandidate) ConfigOptionFunc {
	return func(c *Config) {
		c.initialCandidates = candidates
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_ENDPOINT and OTEL_EXPORTER_OTLP_TRACES_ENDPOINT env vars
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
