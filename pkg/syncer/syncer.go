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

// Package syncer schedules synchronization passes between the in-memory
// document stores and a remote transport. It owns when syncs happen; the
// merge package owns what a sync computes.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/merge"
	"github.com/nickustinov/itsypad/pkg/remote"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

// State is the lifecycle phase of the scheduler
type State int

const (
	// StateDisabled means sync is off and no passes run
	StateDisabled State = iota
	// StateStarting means sync was just enabled and the initial burst of
	// passes is in flight
	StateStarting
	// StateSteady means the scheduler is in its periodic rhythm
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateStarting:
		return "starting"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

const (
	// DefaultInterval is the spacing of periodic passes
	DefaultInterval = 5 * time.Minute
	// burstPasses and burstSpacing shape the catch-up run after enabling
	burstPasses  = 3
	burstSpacing = 2 * time.Second
	// maxBackoffShift caps the exponential wait growth after failures
	maxBackoffShift = 5
)

// Persister saves a kind's merged state durably after each pass. Failures
// are logged and never abort a pass: memory stays authoritative.
type Persister interface {
	SaveDocuments(kind document.Kind, docs []document.Document) error
	SaveTombstones(kind document.Kind, tombs tombstone.Set) error
}

// Config bundles the scheduler's collaborators
type Config struct {
	Transport remote.Transport
	Persist   Persister
	Clock     clock.Clock
	Interval  time.Duration
	Debounce  time.Duration
	Logf      remote.Logger
}

// Syncer coordinates pull/merge/push passes. A mutex per kind serializes
// passes for that kind; passes for different kinds may overlap. All local
// mutations must flow through RecordChanged/RecordDeleted so the debounce
// tracker sees them.
type Syncer struct {
	transport remote.Transport
	persist   Persister
	clock     clock.Clock
	interval  time.Duration
	logf      remote.Logger
	tracker   *Tracker

	stores map[document.Kind]*document.Store
	tombs  map[document.Kind]tombstone.Set
	kindMu map[document.Kind]*sync.Mutex

	mu          sync.Mutex
	state       State
	failures    map[document.Kind]int
	nextDue     map[document.Kind]time.Time
	burstCancel context.CancelFunc
}

// New creates a scheduler over the given stores. Tombstone ledgers start
// from the persisted sets the caller loaded.
func New(cfg Config, stores map[document.Kind]*document.Store, tombs map[document.Kind]tombstone.Set) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...interface{}) {}
	}
	if tombs == nil {
		tombs = map[document.Kind]tombstone.Set{}
	}

	s := &Syncer{
		transport: cfg.Transport,
		persist:   cfg.Persist,
		clock:     cfg.Clock,
		interval:  cfg.Interval,
		logf:      cfg.Logf,
		stores:    stores,
		tombs:     map[document.Kind]tombstone.Set{},
		kindMu:    map[document.Kind]*sync.Mutex{},
		failures:  map[document.Kind]int{},
		nextDue:   map[document.Kind]time.Time{},
	}

	for _, kind := range document.Kinds {
		s.kindMu[kind] = &sync.Mutex{}
		if set, ok := tombs[kind]; ok {
			s.tombs[kind] = set
		} else {
			s.tombs[kind] = tombstone.New()
		}
	}

	s.tracker = NewTracker(cfg.Debounce, s.flushKind)

	return s
}

// State returns the current lifecycle phase
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Tombstones returns the kind's current deletion ledger
func (s *Syncer) Tombstones(kind document.Kind) tombstone.Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tombs[kind]
}

// RecordChanged registers a local insert or update. The change settles in
// memory immediately and is pushed once the kind's debounce window passes.
// The store mutation is serialized with sync passes on the kind's mutex.
func (s *Syncer) RecordChanged(kind document.Kind, doc document.Document) {
	store, ok := s.stores[kind]
	if !ok {
		return
	}

	s.kindMu[kind].Lock()
	store.Upsert(doc)
	s.kindMu[kind].Unlock()

	s.mu.Lock()
	tombs := s.tombs[kind]
	tombs.Unmark(doc.UUID)
	s.mu.Unlock()

	s.tracker.Mutated(kind)
}

// RecordDeleted registers a local deletion, adding the id to the kind's
// tombstone ledger so the removal survives merges with stale remotes.
func (s *Syncer) RecordDeleted(kind document.Kind, uuid string) {
	store, ok := s.stores[kind]
	if !ok {
		return
	}

	s.kindMu[kind].Lock()
	err := store.Remove(uuid)
	s.kindMu[kind].Unlock()
	if err != nil && errors.Cause(err) != document.ErrNotFound {
		s.logf("removing %s: %v\n", uuid, err)
	}

	s.mu.Lock()
	tombs := s.tombs[kind]
	tombs.Mark(uuid)
	s.mu.Unlock()

	s.tracker.Mutated(kind)
}

// Enable turns the scheduler on and kicks off the catch-up burst: a few
// quick passes spaced closely, so a freshly linked device converges fast.
// The burst is cancelled if the scheduler is disabled mid-run.
func (s *Syncer) Enable(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateDisabled {
		s.mu.Unlock()
		return
	}
	s.state = StateStarting

	burstCtx, cancel := context.WithCancel(ctx)
	s.burstCancel = cancel
	s.mu.Unlock()

	go s.runBurst(burstCtx)
}

func (s *Syncer) runBurst(ctx context.Context) {
	for i := 0; i < burstPasses; i++ {
		if ctx.Err() != nil {
			return
		}

		s.syncAll(ctx, false)

		if i < burstPasses-1 {
			select {
			case <-time.After(burstSpacing):
			case <-ctx.Done():
				return
			}
		}
	}

	s.mu.Lock()
	if s.state == StateStarting {
		s.state = StateSteady
	}
	s.mu.Unlock()
}

// Disable stops scheduling and wipes the remote copies of both kinds. Any
// in-flight pass completes first; the per-kind locks make Clear wait for it.
func (s *Syncer) Disable(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisabled {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisabled
	if s.burstCancel != nil {
		s.burstCancel()
		s.burstCancel = nil
	}
	s.mu.Unlock()

	s.tracker.Stop()

	for _, kind := range document.Kinds {
		s.kindMu[kind].Lock()
		err := s.transport.Clear(ctx, kind)
		s.kindMu[kind].Unlock()

		if err != nil {
			return errors.Wrapf(err, "clearing remote %s", kind)
		}
	}

	return nil
}

// Run drives periodic passes until the context is cancelled. It honors the
// failure backoff: a kind that keeps failing waits progressively longer
// before its next periodic pass, while explicit triggers still go through.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.State() == StateDisabled {
				continue
			}
			s.syncAll(ctx, true)
		case <-ctx.Done():
			return
		}
	}
}

// SyncNow runs a full pass for every kind immediately, regardless of
// backoff. Used by foreground triggers and the one-shot sync command.
func (s *Syncer) SyncNow(ctx context.Context) error {
	var ret error
	for _, kind := range document.Kinds {
		if err := s.syncKind(ctx, kind); err != nil {
			s.logf("sync %s: %v\n", kind, err)
			if ret == nil {
				ret = err
			}
		}
	}

	return ret
}

// SyncFull runs a pass for every kind against the remote's full state,
// bypassing any incremental cursors the transport keeps. Transports without
// a refetch path already pull wholesale, so a plain pass serves.
func (s *Syncer) SyncFull(ctx context.Context) error {
	pull := s.transport.Pull
	if r, ok := s.transport.(remote.Refetcher); ok {
		pull = r.Refetch
	}

	var ret error
	for _, kind := range document.Kinds {
		s.kindMu[kind].Lock()
		err := s.pass(ctx, kind, pull)
		s.kindMu[kind].Unlock()
		s.noteOutcome(kind, err)

		if err != nil {
			s.logf("full sync %s: %v\n", kind, err)
			if ret == nil {
				ret = err
			}
		}
	}

	return ret
}

// FlushPending forces any debounced local changes out immediately. Called
// on shutdown so edits inside the settle window are not lost.
func (s *Syncer) FlushPending() {
	for _, kind := range document.Kinds {
		s.tracker.Flush(kind)
	}
}

// RemoteChanged signals that the remote store has newer data for the kind,
// triggering an immediate pass for it.
func (s *Syncer) RemoteChanged(ctx context.Context, kind document.Kind) {
	if s.State() == StateDisabled {
		return
	}

	if err := s.syncKind(ctx, kind); err != nil {
		s.logf("sync %s: %v\n", kind, err)
	}
}

func (s *Syncer) syncAll(ctx context.Context, honorBackoff bool) {
	for _, kind := range document.Kinds {
		if honorBackoff && !s.due(kind) {
			continue
		}

		if err := s.syncKind(ctx, kind); err != nil {
			s.logf("sync %s: %v\n", kind, err)
		}
	}
}

func (s *Syncer) due(kind document.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.clock.Now().Before(s.nextDue[kind])
}

// syncKind runs one pull/merge/push pass for the kind
func (s *Syncer) syncKind(ctx context.Context, kind document.Kind) error {
	s.kindMu[kind].Lock()
	defer s.kindMu[kind].Unlock()

	err := s.pass(ctx, kind, s.transport.Pull)
	s.noteOutcome(kind, err)

	return err
}

type pullFunc func(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error)

func (s *Syncer) pass(ctx context.Context, kind document.Kind, pull pullFunc) error {
	store, ok := s.stores[kind]
	if !ok {
		return errors.Errorf("no store for kind %s", kind)
	}

	remoteDocs, remoteTombs, err := pull(ctx, kind)
	if err != nil {
		return errors.Wrap(err, "pulling")
	}

	s.mu.Lock()
	localTombs := s.tombs[kind]
	s.mu.Unlock()

	result := merge.Merge(store.List(), remoteDocs, localTombs, remoteTombs, merge.OptionsFor(kind))

	merged := tombstone.Union(localTombs, remoteTombs)
	if result.Changed() {
		store.ApplyMerge(result.Docs, result.Change(kind))
	}

	s.mu.Lock()
	s.tombs[kind] = merged
	s.mu.Unlock()

	s.save(kind, result.Docs, merged)

	if err := s.transport.Push(ctx, kind, result.Docs, merged); err != nil {
		return errors.Wrap(err, "pushing")
	}

	// a transport that propagates deletions natively has already expunged
	// them remotely, so the local ledger can be emptied
	if s.transport.NativeDeletes() && merged.Len() > 0 {
		s.mu.Lock()
		s.tombs[kind] = tombstone.New()
		s.mu.Unlock()

		s.save(kind, result.Docs, tombstone.New())
	}

	return nil
}

// flushKind is the tracker callback: persist the kind's snapshot and push
// it, skipping the pull half of a full pass.
func (s *Syncer) flushKind(kind document.Kind) {
	if s.State() == StateDisabled {
		return
	}

	store, ok := s.stores[kind]
	if !ok {
		return
	}

	s.kindMu[kind].Lock()
	defer s.kindMu[kind].Unlock()

	s.mu.Lock()
	tombs := s.tombs[kind]
	s.mu.Unlock()

	docs := store.List()
	s.save(kind, docs, tombs)

	if err := s.transport.Push(context.Background(), kind, docs, tombs); err != nil {
		s.logf("pushing %s: %v\n", kind, err)
		s.noteOutcome(kind, err)
		return
	}

	if s.transport.NativeDeletes() && tombs.Len() > 0 {
		s.mu.Lock()
		s.tombs[kind] = tombstone.New()
		s.mu.Unlock()

		s.save(kind, docs, tombstone.New())
	}

	s.noteOutcome(kind, nil)
}

func (s *Syncer) save(kind document.Kind, docs []document.Document, tombs tombstone.Set) {
	if s.persist == nil {
		return
	}

	if err := s.persist.SaveDocuments(kind, docs); err != nil {
		s.logf("saving %s snapshot: %v\n", kind, err)
	}
	if err := s.persist.SaveTombstones(kind, tombs); err != nil {
		s.logf("saving %s tombstones: %v\n", kind, err)
	}
}

func (s *Syncer) noteOutcome(kind document.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.failures[kind] = 0
		s.nextDue[kind] = time.Time{}
		return
	}

	shift := s.failures[kind]
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	s.failures[kind]++
	s.nextDue[kind] = s.clock.Now().Add(s.interval << uint(shift))
}
