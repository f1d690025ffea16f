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

// Package render paces the worker's render side-loop against a live
// visualizer. The worker only consumes two queries, playback speed and
// paused, wrapped up in a StateSource; when no visualizer is attached a
// Fixed source stands in with constant answers.
package render

import (
	"math"
	"time"
)

// StateSource answers the two live queries the render loop needs.
// Query failures are fatal to the worker, like every other error in the
// step loop.
type StateSource interface {
	Speed() (float64, error)
	Paused() (bool, error)
}

// Fixed is a constant StateSource. The worker defaults to
// NewFixed(1, false) when render mode is on but no visualizer is
// configured.
type Fixed struct {
	speed  float64
	paused bool
}

// NewFixed returns a StateSource with constant answers.
func NewFixed(speed float64, paused bool) Fixed {
	return Fixed{speed: speed, paused: paused}
}

func (f Fixed) Speed() (float64, error) { return f.speed, nil }
func (f Fixed) Paused() (bool, error)   { return f.paused, nil }

// DefaultPollInterval is how often the pause flag is re-queried while
// the visualizer reports paused.
const DefaultPollInterval = 100 * time.Millisecond

// Pacer applies the post-response render pacing: sleep the base frame
// delay scaled by the live speed, then hold in a coarse poll loop while
// the visualizer is paused.
type Pacer struct {
	Source StateSource
	Delay  time.Duration // base per-frame delay before scaling
	Poll   time.Duration // pause re-query interval; 0 means default

	sleep func(time.Duration)
}

// NewPacer builds a pacer over src with the given base frame delay.
func NewPacer(src StateSource, delay time.Duration) *Pacer {
	return &Pacer{Source: src, Delay: delay, sleep: time.Sleep}
}

// Pace runs one pacing cycle. It queries speed once, sleeps the scaled
// delay, then polls paused until it clears.
func (p *Pacer) Pace() error {
	speed, err := p.Source.Speed()
	if err != nil {
		return err
	}
	if d := ScaleDelay(p.Delay, speed); d > 0 {
		p.sleepFn()(d)
	}
	for {
		paused, err := p.Source.Paused()
		if err != nil {
			return err
		}
		if !paused {
			return nil
		}
		p.sleepFn()(p.pollInterval())
	}
}

// ScaleDelay multiplies the base delay by the playback speed and rounds
// to the nearest microsecond.
func ScaleDelay(delay time.Duration, speed float64) time.Duration {
	us := math.Round(float64(delay.Nanoseconds()) * speed / float64(time.Microsecond))
	return time.Duration(us) * time.Microsecond
}

func (p *Pacer) pollInterval() time.Duration {
	if p.Poll > 0 {
		return p.Poll
	}
	return DefaultPollInterval
}

func (p *Pacer) sleepFn() func(time.Duration) {
	if p.sleep != nil {
		return p.sleep
	}
	return time.Sleep
}
