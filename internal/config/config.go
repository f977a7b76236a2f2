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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "ballotd.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// InitialCandidate describes a candidate registered at startup
type InitialCandidate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Config struct {
	AdminIdentity    string             `yaml:"adminIdentity"                       split_words:"true"`
	DatabasePath     string             `yaml:"databasePath"                        split_words:"true"`
	BindAddr         string             `yaml:"bindAddr"                            split_words:"true"`
	ApiPort          uint               `yaml:"apiPort"       envconfig:"port"`
	MetricsPort      uint               `yaml:"metricsPort"                         split_words:"true"`
	AdvisoryUrl      string             `yaml:"advisoryUrl"                         split_words:"true"`
	AdvisoryTimeout  string             `yaml:"advisoryTimeout"                     split_words:"true"`
	ShutdownTimeout  string             `yaml:"shutdownTimeout"                     split_words:"true"`
	Tracing          bool               `yaml:"tracing"`
	TracingStdout    bool               `yaml:"tracingStdout"                       split_words:"true"`
	Candidates       []InitialCandidate `yaml:"candidates"`
}

var globalConfig = &Config{
	AdminIdentity:   "admin",
	DatabasePath:    ".ballotd",
	BindAddr:        "0.0.0.0",
	ApiPort:         3000,
	MetricsPort:     12798,
	AdvisoryUrl:     "",
	AdvisoryTimeout: "5s",
	ShutdownTimeout: DefaultShutdownTimeout,
	Tracing:         false,
	TracingStdout:   false,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.ballotd/ballotd.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".ballotd", "ballotd.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/ballotd/ballotd.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/ballotd/ballotd.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("ballotd", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}
