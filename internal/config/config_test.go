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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
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
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
adminIdentity: "chief-elections-officer"
databasePath: ".ballotd-test"
bindAddr: "127.0.0.1"
apiPort: 8000
metricsPort: 8088
advisoryUrl: "http://localhost:8900"
advisoryTimeout: "2s"
shutdownTimeout: "10s"
candidates:
  - name: "alice"
    description: "first"
  - name: "bob"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-ballotd.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		AdminIdentity:   "chief-elections-officer",
		DatabasePath:    ".ballotd-test",
		BindAddr:        "127.0.0.1",
		ApiPort:         8000,
		MetricsPort:     8088,
		AdvisoryUrl:     "http://localhost:8900",
		AdvisoryTimeout: "2s",
		ShutdownTimeout: "10s",
		Candidates: []InitialCandidate{
			{Name: "alice", Description: "first"},
			{Name: "bob"},
		},
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
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

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_WithTracingConfig(t *testing.T) {
	resetGlobalConfig()

	// Test with tracing in config file
	yamlContent := `
tracing: true
tracingStdout: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-tracing.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !cfg.Tracing {
		t.Errorf("expected Tracing to be true, got: %v", cfg.Tracing)
	}
	if !cfg.TracingStdout {
		t.Errorf(
			"expected TracingStdout to be true, got: %v",
			cfg.TracingStdout,
		)
	}
}

func TestConfigContext(t *testing.T) {
	resetGlobalConfig()

	cfg := GetConfig()
	ctx := WithContext(t.Context(), cfg)
	if got := FromContext(ctx); got != cfg {
		t.Errorf("expected config from context, got: %+v", got)
	}
	if got := FromContext(t.Context()); got != nil {
		t.Errorf("expected nil config from empty context, got: %+v", got)
	}
}
