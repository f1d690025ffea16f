/*
 *
 * Copyright 2025 The rlgym-learn Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package config loads the worker binary's YAML configuration. The file
// is optional: an empty path yields the defaults, and a file only needs
// the keys it overrides. Command-line flags are applied on top by the
// binaries.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Kaiyotech/rlgym-learn/internal/env/gridtag"
	"github.com/Kaiyotech/rlgym-learn/internal/transport/shm"
)

// Config is the worker process configuration.
type Config struct {
	// ProcID names this worker; it is the segment file name and the
	// label on every diagnostic.
	ProcID string `yaml:"proc_id"`

	SegmentDir  string `yaml:"segment_dir"`
	SegmentSize int    `yaml:"segment_size"`

	// LocalAddr is the worker's UDP bind address for the ready channel;
	// CoordAddr is the coordinator's.
	LocalAddr string `yaml:"local_addr"`
	CoordAddr string `yaml:"coord_addr"`

	Render        bool   `yaml:"render"`
	RenderDelayUS int64  `yaml:"render_delay_us"`
	VisualizerURL string `yaml:"visualizer_url"`

	// RetransmitIDs forces agent identifiers into every step response.
	RetransmitIDs bool `yaml:"retransmit_agent_ids"`

	LogLevel string `yaml:"log_level"`

	// MetricsAddr serves prometheus metrics when set; RunLogPath
	// records per-cycle JSONL when set. Both are off by default.
	MetricsAddr string `yaml:"metrics_addr"`
	RunLogPath  string `yaml:"run_log"`

	Env EnvConfig `yaml:"env"`
}

// EnvConfig carries the demo environment's knobs.
type EnvConfig struct {
	GridSize  int   `yaml:"grid_size"`
	StepLimit int   `yaml:"step_limit"`
	Seed      int64 `yaml:"seed"`
}

// Default returns the configuration used when no file and no flags are
// given. The process id embeds the pid so two defaulted workers on one
// host never collide on a segment name.
func Default() Config {
	g := gridtag.DefaultConfig()
	return Config{
		ProcID:      fmt.Sprintf("env-%d", os.Getpid()),
		SegmentDir:  "/dev/shm/rlgym",
		SegmentSize: shm.DefaultSegmentSize,
		LocalAddr:   "127.0.0.1:0",
		CoordAddr:   "127.0.0.1:7557",
		LogLevel:    "info",
		Env: EnvConfig{
			GridSize:  g.Size,
			StepLimit: g.StepLimit,
			Seed:      g.Seed,
		},
	}
}

// Load reads path over the defaults. An empty path returns the
// validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the worker could not start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ProcID) == "" {
		return fmt.Errorf("proc_id is required")
	}
	if strings.ContainsAny(c.ProcID, "/\\") {
		return fmt.Errorf("proc_id %q must not contain path separators", c.ProcID)
	}
	if strings.TrimSpace(c.SegmentDir) == "" {
		return fmt.Errorf("segment_dir is required")
	}
	if c.SegmentSize <= 0 {
		return fmt.Errorf("segment_size must be positive, got %d", c.SegmentSize)
	}
	if strings.TrimSpace(c.CoordAddr) == "" {
		return fmt.Errorf("coord_addr is required")
	}
	if c.RenderDelayUS < 0 {
		return fmt.Errorf("render_delay_us must not be negative, got %d", c.RenderDelayUS)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Env.GridSize < 2 {
		return fmt.Errorf("env.grid_size must be at least 2, got %d", c.Env.GridSize)
	}
	if c.Env.StepLimit < 1 {
		return fmt.Errorf("env.step_limit must be at least 1, got %d", c.Env.StepLimit)
	}
	return nil
}

// Level maps log_level to a slog level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
}

// RenderDelay converts the configured microseconds to a duration.
func (c Config) RenderDelay() time.Duration {
	return time.Duration(c.RenderDelayUS) * time.Microsecond
}

// GridConfig maps the env section onto the demo environment's config.
func (c Config) GridConfig() gridtag.Config {
	return gridtag.Config{
		Size:      c.Env.GridSize,
		StepLimit: c.Env.StepLimit,
		Seed:      c.Env.Seed,
	}
}
