/* Copyright 2025 Itsypad Authors
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

package syncer

import (
	"sync"
	"time"

	"github.com/nickustinov/itsypad/pkg/document"
)

// DefaultDebounce is the trailing-edge settle window applied to local
// mutations before they are flushed.
const DefaultDebounce = time.Second

// Tracker coalesces bursts of local mutations per kind. Every mutation
// restarts the kind's timer; the flush callback runs once the kind has been
// quiet for a full window. Each kind owns exactly one pending timer, so a
// flush can always be cancelled or forced.
type Tracker struct {
	window time.Duration
	flush  func(kind document.Kind)

	mu     sync.Mutex
	timers map[document.Kind]*time.Timer
}

// NewTracker creates a tracker that calls flush after window of quiet. A
// non-positive window falls back to DefaultDebounce.
func NewTracker(window time.Duration, flush func(kind document.Kind)) *Tracker {
	if window <= 0 {
		window = DefaultDebounce
	}

	return &Tracker{
		window: window,
		flush:  flush,
		timers: map[document.Kind]*time.Timer{},
	}
}

// Mutated records a local mutation of the kind, restarting its settle window
func (t *Tracker) Mutated(kind document.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[kind]; ok {
		timer.Stop()
	}

	t.timers[kind] = time.AfterFunc(t.window, func() {
		t.mu.Lock()
		delete(t.timers, kind)
		t.mu.Unlock()

		t.flush(kind)
	})
}

// Flush forces a pending flush of the kind immediately. It is a no-op when
// nothing is pending.
func (t *Tracker) Flush(kind document.Kind) {
	t.mu.Lock()
	timer, ok := t.timers[kind]
	if ok {
		timer.Stop()
		delete(t.timers, kind)
	}
	t.mu.Unlock()

	if ok {
		t.flush(kind)
	}
}

// Pending returns true if the kind has a mutation waiting to settle
func (t *Tracker) Pending(kind document.Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.timers[kind]
	return ok
}

// Stop cancels all pending flushes without running them
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, timer := range t.timers {
		timer.Stop()
		delete(t.timers, kind)
	}
}
