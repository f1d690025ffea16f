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

// Package env defines the capability surface a simulation environment
// exposes to the worker control loop, and the space descriptors used to
// answer shape queries.
package env

// StepResult carries the per-agent outcome of one step call. Every map
// must cover the full current roster; a missing key is an environment
// bug and fails the response encode.
type StepResult[ID comparable, O, R any] struct {
	Obs        map[ID]O
	Rewards    map[ID]R
	Terminated map[ID]bool
	Truncated  map[ID]bool
}

// Env is the environment capability surface the worker drives. Reset and
// SetState return the episode roster as an ordered slice alongside the
// observation mapping: agent order is fixed for the episode and every
// wire message relies on it, so the environment owns the ordering.
//
// Implementations are driven from a single goroutine; none of these
// methods need to be safe for concurrent use.
type Env[ID comparable, O, A, R, SP any] interface {
	// Reset starts a new episode and returns its roster and initial
	// observations.
	Reset() ([]ID, map[ID]O, error)

	// Step advances the episode by one tick. The action mapping covers
	// exactly the current roster.
	Step(actions map[ID]A) (StepResult[ID, O, R], error)

	// SetState forces the environment into a desired state and starts a
	// new episode boundary from it, returning the (possibly changed)
	// roster and observations.
	SetState(state []byte) ([]ID, map[ID]O, error)

	// Render draws one frame. Only called when render mode is active.
	Render() error

	// SharedInfo returns the environment's shared-info mapping. The
	// returned map is the live one: MergeSharedInfo mutates it.
	SharedInfo() map[string]any

	// MergeSharedInfo applies a key-wise overwrite patch to the
	// shared-info mapping.
	MergeSharedInfo(patch map[string]any)

	// ObservationSpaces and ActionSpaces describe per-agent spaces. The
	// shape query reads one arbitrary agent's entry from each.
	ObservationSpaces() map[ID]SP
	ActionSpaces() map[ID]SP
}

// Builder constructs the environment instance inside the worker process.
// Construction failures are fatal to the worker.
type Builder[ID comparable, O, A, R, SP any] func() (Env[ID, O, A, R, SP], error)
