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

// step-driver is a smoke coordinator: it attaches to one running
// env-worker, queries its shapes, drives a number of random-action
// steps (resetting whenever the episode ends), and stops the worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/Kaiyotech/rlgym-learn/internal/coordinator"
	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/serde"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "step-driver:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		procID     = flag.String("proc-id", "", "worker process id to attach to")
		segmentDir = flag.String("segment-dir", "/dev/shm/rlgym", "segment directory")
		listenAddr = flag.String("listen-addr", "127.0.0.1:7557", "ready-channel bind address")
		steps      = flag.Int("steps", 32, "number of step cycles to drive")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "action sampling seed")
		keepWorker = flag.Bool("keep-worker", false, "leave the worker running instead of stopping it")
	)
	flag.Parse()
	if *procID == "" {
		return fmt.Errorf("-proc-id is required")
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

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
	}

	conn, snap, err := coordinator.Dial(context.Background(), codecs, coordinator.Config{
		ProcID:           *procID,
		SegmentDir:       *segmentDir,
		ListenAddr:       *listenAddr,
		HandshakeTimeout: 30 * time.Second,
		ResponseTimeout:  30 * time.Second,
		Logger:           log,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("attached", "agents", snap.Agents)

	obsSpace, actionSpace, err := conn.Shapes()
	if err != nil {
		return fmt.Errorf("shapes: %w", err)
	}
	log.Info("shapes", "obs_space", obsSpace, "action_space", actionSpace)
	if actionSpace.Kind != env.SpaceDiscrete || actionSpace.N <= 0 {
		return fmt.Errorf("driver needs a discrete action space, got %+v", actionSpace)
	}

	rng := rand.New(rand.NewSource(*seed))
	agents := len(conn.Roster())
	for i := 0; i < *steps; i++ {
		actions := make([]int64, agents)
		for j := range actions {
			actions[j] = rng.Int63n(actionSpace.N)
		}
		step, err := conn.Step(actions, nil)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		log.Info("step", "i", i, "rewards", step.Rewards,
			"terminated", step.Terminated, "truncated", step.Truncated)

		if episodeOver(step) {
			reset, err := conn.Reset(nil)
			if err != nil {
				return fmt.Errorf("reset after step %d: %w", i, err)
			}
			agents = len(reset.Agents)
			log.Info("episode over, reset", "agents", reset.Agents)
		}
	}

	if *keepWorker {
		return nil
	}
	return conn.Stop()
}

func episodeOver(step protocol.StepSnapshot[string, []float32, float64]) bool {
	for i := range step.Agents {
		if step.Terminated[i] || step.Truncated[i] {
			return true
		}
	}
	return false
}
