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

// Package gridtag is a small two-agent tag game on a square grid, used
// by the worker binaries and integration tests as a stand-in for a real
// simulation. blue0 chases, orange0 evades; an episode terminates on a
// tag and truncates at the step limit.
package gridtag

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/Kaiyotech/rlgym-learn/internal/env"
)

// Agent identifiers, fixed for every episode.
const (
	AgentBlue   = "blue0"
	AgentOrange = "orange0"
)

// Action values.
const (
	ActionStay int64 = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	actionCount
)

// ObsLen is the per-agent observation width: own position, the other
// agent's position, and the episode progress fraction.
const ObsLen = 5

// StateLen is the set-state blob width: the four agent coordinates.
const StateLen = 4

// Config parameterizes the game.
type Config struct {
	Size      int   // grid side length
	StepLimit int   // ticks before truncation
	Seed      int64 // spawn randomness
}

// DefaultConfig returns the configuration the worker binaries use when
// none is given.
func DefaultConfig() Config {
	return Config{Size: 8, StepLimit: 200, Seed: 1}
}

type point struct {
	x, y int
}

// Env implements env.Env for the tag game.
type Env struct {
	cfg  Config
	rng  *rand.Rand
	out  io.Writer
	info map[string]any

	roster []string
	blue   point
	orange point
	tick   int
	tagged bool
	tags   int
}

// New builds a game from cfg. Invalid fields fall back to defaults.
func New(cfg Config) *Env {
	def := DefaultConfig()
	if cfg.Size < 2 {
		cfg.Size = def.Size
	}
	if cfg.StepLimit < 1 {
		cfg.StepLimit = def.StepLimit
	}
	return &Env{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		out:    os.Stdout,
		info:   map[string]any{},
		roster: []string{AgentBlue, AgentOrange},
	}
}

// Builder adapts New to the worker's constructor capability.
func Builder(cfg Config) env.Builder[string, []float32, int64, float64, env.Space] {
	return func() (env.Env[string, []float32, int64, float64, env.Space], error) {
		return New(cfg), nil
	}
}

// SetOutput redirects render frames, mainly for tests.
func (e *Env) SetOutput(w io.Writer) {
	e.out = w
}

func (e *Env) Reset() ([]string, map[string][]float32, error) {
	e.blue = point{e.rng.Intn(e.cfg.Size), e.rng.Intn(e.cfg.Size)}
	for {
		e.orange = point{e.rng.Intn(e.cfg.Size), e.rng.Intn(e.cfg.Size)}
		if e.orange != e.blue {
			break
		}
	}
	e.tick = 0
	e.tagged = false
	e.syncInfo()
	return e.rosterCopy(), e.observations(), nil
}

func (e *Env) Step(actions map[string]int64) (env.StepResult[string, []float32, float64], error) {
	var res env.StepResult[string, []float32, float64]

	blueAct, ok := actions[AgentBlue]
	if !ok {
		return res, fmt.Errorf("no action for agent %s", AgentBlue)
	}
	orangeAct, ok := actions[AgentOrange]
	if !ok {
		return res, fmt.Errorf("no action for agent %s", AgentOrange)
	}

	var err error
	if e.blue, err = e.move(e.blue, blueAct); err != nil {
		return res, err
	}
	if e.orange, err = e.move(e.orange, orangeAct); err != nil {
		return res, err
	}

	e.tick++
	e.tagged = e.blue == e.orange
	if e.tagged {
		e.tags++
	}
	truncated := !e.tagged && e.tick >= e.cfg.StepLimit
	e.syncInfo()

	blueReward, orangeReward := -0.01, 0.01
	if e.tagged {
		blueReward, orangeReward = 1, -1
	}

	res.Obs = e.observations()
	res.Rewards = map[string]float64{AgentBlue: blueReward, AgentOrange: orangeReward}
	res.Terminated = map[string]bool{AgentBlue: e.tagged, AgentOrange: e.tagged}
	res.Truncated = map[string]bool{AgentBlue: truncated, AgentOrange: truncated}
	return res, nil
}

// SetState restores agent positions from a 4-byte blob [bx by ox oy]
// and starts a fresh episode boundary there.
func (e *Env) SetState(state []byte) ([]string, map[string][]float32, error) {
	if len(state) != StateLen {
		return nil, nil, fmt.Errorf("state blob is %d bytes, want %d", len(state), StateLen)
	}
	coords := make([]int, StateLen)
	for i, b := range state {
		c := int(b)
		if c >= e.cfg.Size {
			return nil, nil, fmt.Errorf("state coordinate %d out of range: %d >= %d", i, c, e.cfg.Size)
		}
		coords[i] = c
	}
	e.blue = point{coords[0], coords[1]}
	e.orange = point{coords[2], coords[3]}
	e.tick = 0
	e.tagged = e.blue == e.orange
	e.syncInfo()
	return e.rosterCopy(), e.observations(), nil
}

// EncodeState is the inverse of SetState, for drivers that capture and
// replay positions.
func EncodeState(bx, by, ox, oy int) []byte {
	return []byte{byte(bx), byte(by), byte(ox), byte(oy)}
}

// Render draws the board as one ASCII frame.
func (e *Env) Render() error {
	var sb strings.Builder
	for y := e.cfg.Size - 1; y >= 0; y-- {
		for x := 0; x < e.cfg.Size; x++ {
			switch (point{x, y}) {
			case e.blue:
				sb.WriteByte('B')
			case e.orange:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(e.out, sb.String())
	return err
}

func (e *Env) SharedInfo() map[string]any {
	return e.info
}

func (e *Env) MergeSharedInfo(patch map[string]any) {
	for k, v := range patch {
		e.info[k] = v
	}
}

func (e *Env) ObservationSpaces() map[string]env.Space {
	high := float32(e.cfg.Size)
	return map[string]env.Space{
		AgentBlue:   env.Box([]int32{ObsLen}, 0, high),
		AgentOrange: env.Box([]int32{ObsLen}, 0, high),
	}
}

func (e *Env) ActionSpaces() map[string]env.Space {
	return map[string]env.Space{
		AgentBlue:   env.Discrete(int64(actionCount)),
		AgentOrange: env.Discrete(int64(actionCount)),
	}
}

func (e *Env) move(p point, action int64) (point, error) {
	switch action {
	case ActionStay:
	case ActionUp:
		p.y++
	case ActionDown:
		p.y--
	case ActionLeft:
		p.x--
	case ActionRight:
		p.x++
	default:
		return p, fmt.Errorf("unknown action %d", action)
	}
	p.x = clamp(p.x, 0, e.cfg.Size-1)
	p.y = clamp(p.y, 0, e.cfg.Size-1)
	return p, nil
}

func (e *Env) observations() map[string][]float32 {
	frac := float32(e.tick) / float32(e.cfg.StepLimit)
	return map[string][]float32{
		AgentBlue: {
			float32(e.blue.x), float32(e.blue.y),
			float32(e.orange.x), float32(e.orange.y),
			frac,
		},
		AgentOrange: {
			float32(e.orange.x), float32(e.orange.y),
			float32(e.blue.x), float32(e.blue.y),
			frac,
		},
	}
}

func (e *Env) rosterCopy() []string {
	return append([]string(nil), e.roster...)
}

// syncInfo refreshes the game-owned shared-info keys. Keys merged in by
// the coordinator are preserved.
func (e *Env) syncInfo() {
	e.info["tick"] = float64(e.tick)
	e.info["tags"] = float64(e.tags)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
