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

// env-worker runs one environment worker process: it creates the shared
// memory segment named by its proc id, performs the startup rendezvous
// with the coordinator, and serves step/reset/set-state requests until
// a stop message arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kaiyotech/rlgym-learn/internal/config"
	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/env/gridtag"
	"github.com/Kaiyotech/rlgym-learn/internal/metrics"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/render"
	"github.com/Kaiyotech/rlgym-learn/internal/runlog"
	"github.com/Kaiyotech/rlgym-learn/internal/serde"
	"github.com/Kaiyotech/rlgym-learn/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "env-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		procID      = flag.String("proc-id", "", "worker process id (segment file name)")
		segmentDir  = flag.String("segment-dir", "", "segment directory")
		coordAddr   = flag.String("coord-addr", "", "coordinator ready-channel address")
		localAddr   = flag.String("local-addr", "", "worker ready-channel bind address")
		renderMode  = flag.Bool("render", false, "render each step and pace against the visualizer")
		metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address")
		runLogPath  = flag.String("run-log", "", "record per-cycle JSONL (zstd) to this file")
		logLevel    = flag.String("log-level", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags win over the file, but only the ones actually given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "proc-id":
			cfg.ProcID = *procID
		case "segment-dir":
			cfg.SegmentDir = *segmentDir
		case "coord-addr":
			cfg.CoordAddr = *coordAddr
		case "local-addr":
			cfg.LocalAddr = *localAddr
		case "render":
			cfg.Render = *renderMode
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "run-log":
			cfg.RunLogPath = *runLogPath
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	wcfg := worker.Config{
		ProcID:      cfg.ProcID,
		Logger:      log,
		Render:      cfg.Render,
		RenderDelay: cfg.RenderDelay(),
	}

	if cfg.Render && cfg.VisualizerURL != "" {
		client, err := render.Dial(cfg.VisualizerURL)
		if err != nil {
			return fmt.Errorf("dial visualizer: %w", err)
		}
		defer client.Close()
		wcfg.RenderSource = client
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		wcfg.Metrics = metrics.NewLoop(reg, cfg.ProcID)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics listener failed", "err", err)
			}
		}()
	}

	if cfg.RunLogPath != "" {
		rec, err := runlog.New(cfg.RunLogPath)
		if err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
		defer rec.Close()
		wcfg.Recorder = rec
	}

	codecs := &protocol.Codecs[string, []float32, int64, float64, env.Space]{
		AgentID:         serde.String{},
		Obs:             serde.Float32Slice{},
		Action:          serde.Int64{},
		Reward:          serde.Float64{},
		ObsSpace:        serde.Space{},
		ActionSpace:     serde.Space{},
		SharedInfo:      serde.JSONMap{},
		SharedInfoPatch: serde.JSONMap{},
		State:           serde.Bytes{},
		RetransmitIDs:   cfg.RetransmitIDs,
	}

	return worker.Serve(context.Background(),
		gridtag.Builder(cfg.GridConfig()), codecs, wcfg,
		worker.LinkOptions{
			SegmentDir:  cfg.SegmentDir,
			SegmentSize: cfg.SegmentSize,
			LocalAddr:   cfg.LocalAddr,
			CoordAddr:   cfg.CoordAddr,
		})
}
