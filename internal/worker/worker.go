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

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kaiyotech/rlgym-learn/internal/env"
	"github.com/Kaiyotech/rlgym-learn/internal/metrics"
	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/render"
	"github.com/Kaiyotech/rlgym-learn/internal/runlog"
)

// ErrShapesAfterAction reports a shape query that arrived after the
// first EnvAction. The query is a one-time setup probe; receiving it
// mid-run is a protocol violation and the worker terminates without
// responding.
var ErrShapesAfterAction = errors.New("shape query received after env action")

// Config carries the per-worker knobs that are not part of the link or
// the codec bundle.
type Config struct {
	// ProcID names this worker in diagnostics and run logs.
	ProcID string

	// Logger receives lifecycle and dispatch diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Render draws a frame after every EnvAction response and paces the
	// loop against the visualizer.
	Render bool

	// RenderDelay is the base per-frame delay before speed scaling.
	RenderDelay time.Duration

	// RenderSource answers the live speed and paused queries while
	// rendering. Nil defaults to a fixed speed-1, unpaused source.
	RenderSource render.StateSource

	// Metrics and Recorder observe completed cycles. Both are optional.
	Metrics  *metrics.Loop
	Recorder *runlog.Recorder
}

// Worker owns one environment instance and drives it from coordinator
// requests arriving over a Link. All mutable loop state (the
// environment, the roster, the first-action flag) lives here and is
// touched only by Run's goroutine.
type Worker[ID comparable, O, A, R, SP any] struct {
	build  env.Builder[ID, O, A, R, SP]
	codecs *protocol.Codecs[ID, O, A, R, SP]
	link   Link
	cfg    Config
	log    *slog.Logger

	env     env.Env[ID, O, A, R, SP]
	roster  []ID
	stepped bool
	pacer   *render.Pacer
}

// New validates the wiring and returns a worker ready to Run.
func New[ID comparable, O, A, R, SP any](build env.Builder[ID, O, A, R, SP], codecs *protocol.Codecs[ID, O, A, R, SP], link Link, cfg Config) (*Worker[ID, O, A, R, SP], error) {
	if build == nil {
		return nil, errors.New("worker: nil environment builder")
	}
	if codecs == nil {
		return nil, errors.New("worker: nil codec bundle")
	}
	if err := codecs.Validate(); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	if len(link.Payload) == 0 {
		return nil, errors.New("worker: link has no payload region")
	}
	if link.Event == nil || link.Ready == nil {
		return nil, errors.New("worker: link missing event or ready channel")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker[ID, O, A, R, SP]{
		build:  build,
		codecs: codecs,
		link:   link,
		cfg:    cfg,
		log:    log.With("proc_id", cfg.ProcID),
	}, nil
}

// Run builds the environment, performs the startup rendezvous and
// initial reset, then serves coordinator requests until Stop arrives or
// an error terminates the loop. A clean Stop returns nil.
//
// Cancellation is only observed between cycles: the loop blocks in
// Event.Wait, which has no deadline, so a coordinator that dies without
// sending Stop leaves the worker parked until the process is killed.
func (w *Worker[ID, O, A, R, SP]) Run(ctx context.Context) error {
	w.log.Info("building environment")
	e, err := w.build()
	if err != nil {
		return fmt.Errorf("build environment: %w", err)
	}
	w.env = e

	if w.cfg.Render {
		src := w.cfg.RenderSource
		if src == nil {
			src = render.NewFixed(1, false)
		}
		w.pacer = render.NewPacer(src, w.cfg.RenderDelay)
	}

	// Startup rendezvous: announce readiness, wait for the release byte.
	if err := w.link.Ready.Notify(); err != nil {
		return fmt.Errorf("rendezvous hello: %w", err)
	}
	if err := w.link.Ready.AwaitNotify(); err != nil {
		return fmt.Errorf("rendezvous release: %w", err)
	}

	if err := w.initialReset(); err != nil {
		return err
	}
	w.log.Info("entering control loop", "agents", len(w.roster))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.link.Event.Wait(); err != nil {
			return fmt.Errorf("wait for request: %w", err)
		}
		w.link.Event.Clear()

		done, err := w.dispatch()
		if err != nil {
			w.cfg.Metrics.IncFailure()
			return err
		}
		if done {
			return nil
		}
	}
}

// initialReset starts the first episode and publishes its snapshot
// before any request has been received. The coordinator's handshake
// ends by decoding this message.
func (w *Worker[ID, O, A, R, SP]) initialReset() error {
	roster, obs, err := w.env.Reset()
	if err != nil {
		return fmt.Errorf("initial reset: %w", err)
	}
	w.roster = roster
	if _, err := w.codecs.AppendInitSnapshot(w.link.Payload, 0, w.roster, obs, w.env.SharedInfo()); err != nil {
		return fmt.Errorf("encode initial snapshot: %w", err)
	}
	if err := w.link.Ready.Notify(); err != nil {
		return fmt.Errorf("notify initial snapshot: %w", err)
	}
	w.cfg.Metrics.IncEpisode()
	return nil
}

// dispatch handles the request currently in the payload region. It
// returns done=true on a clean Stop.
func (w *Worker[ID, O, A, R, SP]) dispatch() (done bool, err error) {
	hdr, offset, err := protocol.ReadHeader(w.link.Payload, 0)
	if err != nil {
		return false, fmt.Errorf("read request header: %w", err)
	}

	switch hdr {
	case protocol.HeaderStop:
		w.log.Info("stop requested")
		return true, nil
	case protocol.HeaderEnvShapesRequest:
		if w.stepped {
			w.log.Error("shape query after env action, terminating")
			return false, ErrShapesAfterAction
		}
		return false, w.answerShapes()
	case protocol.HeaderEnvAction:
		w.stepped = true
		return false, w.handleEnvAction(offset)
	default:
		return false, fmt.Errorf("unhandled request header %v", hdr)
	}
}

// answerShapes reports one agent's observation and action space
// descriptors. Every agent is assumed to share the same spaces, so the
// first roster entry stands in for all of them.
func (w *Worker[ID, O, A, R, SP]) answerShapes() error {
	start := time.Now()
	if len(w.roster) == 0 {
		return errors.New("shape query with empty roster")
	}
	agent := w.roster[0]
	obsSpace, ok := w.env.ObservationSpaces()[agent]
	if !ok {
		return fmt.Errorf("no observation space for agent %v", agent)
	}
	actionSpace, ok := w.env.ActionSpaces()[agent]
	if !ok {
		return fmt.Errorf("no action space for agent %v", agent)
	}
	w.log.Info("answering shape query", "obs_space", obsSpace, "action_space", actionSpace)

	n, err := w.codecs.AppendShapes(w.link.Payload, 0, obsSpace, actionSpace)
	if err != nil {
		return fmt.Errorf("encode shapes: %w", err)
	}
	if err := w.link.Ready.Notify(); err != nil {
		return fmt.Errorf("notify shapes: %w", err)
	}
	w.observe(runlog.CycleRecord{
		Header: protocol.HeaderEnvShapesRequest.String(),
		Agents: len(w.roster),
		Bytes:  n,
	}, time.Since(start))
	return nil
}

// handleEnvAction decodes and runs one Step, Reset or SetState request
// and publishes the response snapshot.
func (w *Worker[ID, O, A, R, SP]) handleEnvAction(offset int) error {
	req, _, err := w.codecs.ReadEnvAction(w.link.Payload, offset, len(w.roster))
	if err != nil {
		return fmt.Errorf("decode env action: %w", err)
	}

	start := time.Now()
	var (
		roster []ID
		obs    map[ID]O
		step   env.StepResult[ID, O, R]
	)
	switch req.Kind {
	case protocol.RequestStep:
		actions := make(map[ID]A, len(w.roster))
		for i, id := range w.roster {
			actions[id] = req.Actions[i]
		}
		step, err = w.env.Step(actions)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
	case protocol.RequestReset:
		roster, obs, err = w.env.Reset()
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	case protocol.RequestSetState:
		roster, obs, err = w.env.SetState(req.State)
		if err != nil {
			return fmt.Errorf("set state: %w", err)
		}
	default:
		return fmt.Errorf("unhandled request kind %v", req.Kind)
	}

	// The patch lands after the env call and before the encode so the
	// response reflects the patched shared info.
	if req.HasPatch {
		w.env.MergeSharedInfo(req.Patch)
	}

	newEpisode := req.Kind.NewEpisode()
	if newEpisode {
		w.roster = roster
	}

	var n int
	if newEpisode {
		n, err = w.codecs.AppendInitSnapshot(w.link.Payload, 0, w.roster, obs, w.env.SharedInfo())
	} else {
		n, err = w.codecs.AppendStepSnapshot(w.link.Payload, 0, w.roster, step.Obs, step.Rewards, step.Terminated, step.Truncated, w.env.SharedInfo())
	}
	if err != nil {
		return fmt.Errorf("encode %s response: %w", req.Kind, err)
	}
	if err := w.link.Ready.Notify(); err != nil {
		return fmt.Errorf("notify %s response: %w", req.Kind, err)
	}

	w.observe(runlog.CycleRecord{
		Header:     protocol.HeaderEnvAction.String(),
		Kind:       req.Kind.String(),
		NewEpisode: newEpisode,
		Agents:     len(w.roster),
		Bytes:      n,
	}, time.Since(start))
	if newEpisode {
		w.cfg.Metrics.IncEpisode()
	}

	if w.pacer != nil {
		if err := w.env.Render(); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if err := w.pacer.Pace(); err != nil {
			return fmt.Errorf("render pacing: %w", err)
		}
	}
	return nil
}

// observe feeds one completed cycle to the metrics and the run log.
// Run-log write failures are logged and do not stop the loop.
func (w *Worker[ID, O, A, R, SP]) observe(rec runlog.CycleRecord, elapsed time.Duration) {
	rec.ElapsedUS = elapsed.Microseconds()
	w.cfg.Metrics.ObserveCycle(rec.Header, rec.Kind, elapsed.Seconds(), rec.Bytes)
	if w.cfg.Recorder != nil {
		if err := w.cfg.Recorder.Record(rec); err != nil {
			w.log.Warn("run log write failed", "err", err)
		}
	}
}
