/*
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
 */

// Package worker implements the environment-side control loop. One
// worker process owns one simulation environment and serves Step, Reset,
// SetState, shape and Stop requests from a coordinator over a shared
// payload region.
//
// Turn-taking is strict. The worker sleeps on the link's event until the
// coordinator has written a request, clears the event, handles the
// request, writes the response into the same region, and notifies
// completion over the ready channel. Exactly one side owns the payload
// at any moment; there is no concurrent access to arbitrate.
package worker
