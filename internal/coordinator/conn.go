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

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Kaiyotech/rlgym-learn/internal/protocol"
	"github.com/Kaiyotech/rlgym-learn/internal/transport/shm"
)

var (
	// ErrStopped reports a request issued after Stop.
	ErrStopped = errors.New("worker already stopped")

	// ErrShapesAfterAction reports a shape query issued after the first
	// EnvAction. The worker treats such a query as a fatal protocol
	// violation, so the conn refuses to send it.
	ErrShapesAfterAction = errors.New("shape query not permitted after env actions")
)

const defaultHandshakeTimeout = 30 * time.Second

// Attach retry cadence while the worker's segment file becomes
// openable after its hello.
const (
	attachInterval = 50 * time.Millisecond
	attachRetries  = 40
)

// Config locates one worker process and sets coordinator-side policy.
type Config struct {
	// ProcID is the worker's process identifier: segment file name and
	// diagnostic label.
	ProcID string

	// SegmentDir is the directory the worker creates its segment in.
	SegmentDir string

	// ListenAddr is the UDP address to bind the ready channel to when
	// Ready is nil. Ready lets the caller bind first, so the address
	// can be handed to the worker process before it starts. The conn
	// owns the channel either way and closes it on Close.
	ListenAddr string
	Ready      *shm.ReadyChannel

	// HandshakeTimeout bounds each wait during Dial; zero means 30s.
	// ResponseTimeout bounds each per-request wait; zero waits forever.
	HandshakeTimeout time.Duration
	ResponseTimeout  time.Duration

	// Logger receives handshake and lifecycle diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Conn is the coordinator's handle on one worker: the other half of the
// turn-taking protocol. It mirrors the worker's roster so step
// responses can be decoded without identifier fields, and it is not
// safe for concurrent use.
type Conn[ID comparable, O, A, R, SP any] struct {
	codecs *protocol.Codecs[ID, O, A, R, SP]
	cfg    Config
	log    *slog.Logger

	seg     *shm.Segment
	segDone func()
	ready   *shm.ReadyChannel

	roster     []ID
	sentAction bool
	stopped    bool
}

// Dial performs the startup handshake against the worker named by
// cfg.ProcID: await its hello byte, attach the segment it created,
// release it, then decode the initial reset snapshot it publishes. The
// returned snapshot carries the first episode's roster and
// observations.
func Dial[ID comparable, O, A, R, SP any](ctx context.Context, codecs *protocol.Codecs[ID, O, A, R, SP], cfg Config) (*Conn[ID, O, A, R, SP], protocol.InitSnapshot[ID, O], error) {
	var zero protocol.InitSnapshot[ID, O]
	if codecs == nil {
		return nil, zero, errors.New("coordinator: nil codec bundle")
	}
	if err := codecs.Validate(); err != nil {
		return nil, zero, fmt.Errorf("coordinator: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("proc_id", cfg.ProcID)

	ready := cfg.Ready
	if ready == nil {
		r, err := shm.ListenReady(cfg.ListenAddr)
		if err != nil {
			return nil, zero, fmt.Errorf("bind ready channel: %w", err)
		}
		ready = r
	}

	hsTimeout := cfg.HandshakeTimeout
	if hsTimeout <= 0 {
		hsTimeout = defaultHandshakeTimeout
	}

	// The hello teaches the channel the worker's address and means the
	// worker has already created its segment.
	if err := ready.AwaitNotifyTimeout(hsTimeout); err != nil {
		ready.Close()
		return nil, zero, fmt.Errorf("await worker hello: %w", err)
	}

	var (
		seg     *shm.Segment
		segDone func()
	)
	attach := func() error {
		var err error
		seg, segDone, err = shm.Open(cfg.SegmentDir, cfg.ProcID)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(attachInterval), attachRetries), ctx)
	if err := backoff.Retry(attach, policy); err != nil {
		ready.Close()
		return nil, zero, fmt.Errorf("attach segment %s: %w", shm.SegmentPath(cfg.SegmentDir, cfg.ProcID), err)
	}

	conn := &Conn[ID, O, A, R, SP]{
		codecs:  codecs,
		cfg:     cfg,
		log:     log,
		seg:     seg,
		segDone: segDone,
		ready:   ready,
	}

	// Release the worker, then wait for it to publish the first
	// episode.
	if err := ready.Notify(); err != nil {
		conn.Close()
		return nil, zero, fmt.Errorf("release worker: %w", err)
	}
	if err := ready.AwaitNotifyTimeout(hsTimeout); err != nil {
		conn.Close()
		return nil, zero, fmt.Errorf("await initial snapshot: %w", err)
	}
	snap, _, err := codecs.ReadInitSnapshot(seg.Payload(), 0)
	if err != nil {
		conn.Close()
		return nil, zero, fmt.Errorf("decode initial snapshot: %w", err)
	}
	conn.roster = snap.Agents
	log.Info("worker attached", "agents", len(snap.Agents))
	return conn, snap, nil
}

// Roster returns the mirrored roster in wire order.
func (c *Conn[ID, O, A, R, SP]) Roster() []ID {
	out := make([]ID, len(c.roster))
	copy(out, c.roster)
	return out
}

// Step advances the episode by one tick. The action list must match the
// roster length; a mismatch is a caller bug, reported without touching
// the worker. A non-nil patch is merged into the worker's shared info
// before the response is encoded.
func (c *Conn[ID, O, A, R, SP]) Step(actions []A, patch map[string]any) (protocol.StepSnapshot[ID, O, R], error) {
	var zero protocol.StepSnapshot[ID, O, R]
	if len(actions) != len(c.roster) {
		return zero, fmt.Errorf("%d actions for %d agents", len(actions), len(c.roster))
	}
	err := c.request(protocol.EnvAction[A]{
		Kind:     protocol.RequestStep,
		Actions:  actions,
		HasPatch: patch != nil,
		Patch:    patch,
	})
	if err != nil {
		return zero, err
	}
	snap, _, err := c.codecs.ReadStepSnapshot(c.seg.Payload(), 0, c.roster)
	if err != nil {
		return zero, fmt.Errorf("decode step snapshot: %w", err)
	}
	c.roster = snap.Agents
	return snap, nil
}

// Reset starts a new episode and refreshes the roster mirror.
func (c *Conn[ID, O, A, R, SP]) Reset(patch map[string]any) (protocol.InitSnapshot[ID, O], error) {
	return c.newEpisode(protocol.EnvAction[A]{
		Kind:     protocol.RequestReset,
		HasPatch: patch != nil,
		Patch:    patch,
	})
}

// SetState forces the worker's environment into a desired state and
// refreshes the roster mirror from the resulting episode boundary.
func (c *Conn[ID, O, A, R, SP]) SetState(state []byte, patch map[string]any) (protocol.InitSnapshot[ID, O], error) {
	return c.newEpisode(protocol.EnvAction[A]{
		Kind:     protocol.RequestSetState,
		State:    state,
		HasPatch: patch != nil,
		Patch:    patch,
	})
}

func (c *Conn[ID, O, A, R, SP]) newEpisode(req protocol.EnvAction[A]) (protocol.InitSnapshot[ID, O], error) {
	var zero protocol.InitSnapshot[ID, O]
	if err := c.request(req); err != nil {
		return zero, err
	}
	snap, _, err := c.codecs.ReadInitSnapshot(c.seg.Payload(), 0)
	if err != nil {
		return zero, fmt.Errorf("decode %s snapshot: %w", req.Kind, err)
	}
	c.roster = snap.Agents
	return snap, nil
}

// Shapes issues the one-time capability discovery query and returns the
// worker's observation-space and action-space descriptors.
func (c *Conn[ID, O, A, R, SP]) Shapes() (obsSpace, actionSpace SP, err error) {
	var zeroSP SP
	if c.stopped {
		return zeroSP, zeroSP, ErrStopped
	}
	if c.sentAction {
		return zeroSP, zeroSP, ErrShapesAfterAction
	}
	if _, err := protocol.AppendHeader(c.seg.Payload(), 0, protocol.HeaderEnvShapesRequest); err != nil {
		return zeroSP, zeroSP, fmt.Errorf("encode shape query: %w", err)
	}
	c.seg.Event().Set()
	if err := c.await(); err != nil {
		return zeroSP, zeroSP, fmt.Errorf("await shapes: %w", err)
	}
	obsSpace, actionSpace, _, err = c.codecs.ReadShapes(c.seg.Payload(), 0)
	if err != nil {
		return zeroSP, zeroSP, fmt.Errorf("decode shapes: %w", err)
	}
	return obsSpace, actionSpace, nil
}

// Stop tells the worker to exit. No response follows; the worker
// removes its segment file on the way out.
func (c *Conn[ID, O, A, R, SP]) Stop() error {
	if c.stopped {
		return nil
	}
	if _, err := protocol.AppendHeader(c.seg.Payload(), 0, protocol.HeaderStop); err != nil {
		return fmt.Errorf("encode stop: %w", err)
	}
	c.seg.Event().Set()
	c.stopped = true
	c.log.Info("stop sent")
	return nil
}

// Close detaches from the segment and closes the ready channel. The
// segment file itself belongs to the worker and is not removed here.
func (c *Conn[ID, O, A, R, SP]) Close() error {
	if c.segDone != nil {
		c.segDone()
		c.segDone = nil
	}
	return c.ready.Close()
}

// request encodes one EnvAction into the payload, rings the worker's
// event and waits for the ready notification that hands the payload
// back.
func (c *Conn[ID, O, A, R, SP]) request(req protocol.EnvAction[A]) error {
	if c.stopped {
		return ErrStopped
	}
	if _, err := c.codecs.AppendEnvAction(c.seg.Payload(), 0, req); err != nil {
		return fmt.Errorf("encode %s request: %w", req.Kind, err)
	}
	c.sentAction = true
	c.seg.Event().Set()
	if err := c.await(); err != nil {
		return fmt.Errorf("await %s response: %w", req.Kind, err)
	}
	return nil
}

func (c *Conn[ID, O, A, R, SP]) await() error {
	if c.cfg.ResponseTimeout > 0 {
		return c.ready.AwaitNotifyTimeout(c.cfg.ResponseTimeout)
	}
	return c.ready.AwaitNotify()
}
