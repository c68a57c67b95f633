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
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

// fakeTransport is a scriptable in-memory transport
type fakeTransport struct {
	mu sync.Mutex

	remoteDocs  map[document.Kind][]document.Document
	remoteTombs map[document.Kind]tombstone.Set

	pushedDocs  map[document.Kind][]document.Document
	pushedTombs map[document.Kind]tombstone.Set
	pullCount   int
	pushCount   int
	cleared     []document.Kind

	native  bool
	pullErr error
	pushErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		remoteDocs:  map[document.Kind][]document.Document{},
		remoteTombs: map[document.Kind]tombstone.Set{},
		pushedDocs:  map[document.Kind][]document.Document{},
		pushedTombs: map[document.Kind]tombstone.Set{},
	}
}

func (t *fakeTransport) Pull(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pullCount++
	if t.pullErr != nil {
		return nil, tombstone.Set{}, t.pullErr
	}

	tombs, ok := t.remoteTombs[kind]
	if !ok {
		tombs = tombstone.New()
	}
	return t.remoteDocs[kind], tombs, nil
}

func (t *fakeTransport) Push(ctx context.Context, kind document.Kind, docs []document.Document, tombs tombstone.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pushErr != nil {
		return t.pushErr
	}

	t.pushedDocs[kind] = docs
	t.pushedTombs[kind] = tombs
	t.pushCount++
	return nil
}

func (t *fakeTransport) Clear(ctx context.Context, kind document.Kind) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleared = append(t.cleared, kind)
	return nil
}

func (t *fakeTransport) NativeDeletes() bool {
	return t.native
}

// fakePersister records snapshot saves
type fakePersister struct {
	mu    sync.Mutex
	docs  map[document.Kind][]document.Document
	tombs map[document.Kind]tombstone.Set
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		docs:  map[document.Kind][]document.Document{},
		tombs: map[document.Kind]tombstone.Set{},
	}
}

func (p *fakePersister) SaveDocuments(kind document.Kind, docs []document.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[kind] = docs
	return nil
}

func (p *fakePersister) SaveTombstones(kind document.Kind, tombs tombstone.Set) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tombs[kind] = tombs
	return nil
}

func newTestStores() map[document.Kind]*document.Store {
	return map[document.Kind]*document.Store{
		document.KindTab:  document.NewStore(document.KindTab, 0),
		document.KindClip: document.NewStore(document.KindClip, 0),
	}
}

func newTestSyncer(trans *fakeTransport, persist *fakePersister) (*Syncer, map[document.Kind]*document.Store) {
	stores := newTestStores()
	s := New(Config{
		Transport: trans,
		Persist:   persist,
		Clock:     clock.NewMock(),
		Debounce:  time.Hour,
	}, stores, nil)

	return s, stores
}

func TestSyncNow_pullMergePush(t *testing.T) {
	trans := newFakeTransport()
	trans.remoteDocs[document.KindTab] = []document.Document{
		{UUID: "b", Kind: document.KindTab, Body: "from remote", LastModified: 200},
	}

	persist := newFakePersister()
	s, stores := newTestSyncer(trans, persist)

	stores[document.KindTab].Upsert(document.Document{UUID: "a", Kind: document.KindTab, Body: "local", LastModified: 100})

	if err := s.SyncNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The remote document landed locally
	doc, err := stores[document.KindTab].Get("b")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, doc.Body, "from remote", "body mismatch")

	// The full merged state was pushed back and persisted
	assert.Equal(t, len(trans.pushedDocs[document.KindTab]), 2, "pushed docs mismatch")
	assert.Equal(t, len(persist.docs[document.KindTab]), 2, "persisted docs mismatch")
}

func TestSyncNow_deletionPropagates(t *testing.T) {
	trans := newFakeTransport()
	persist := newFakePersister()
	s, stores := newTestSyncer(trans, persist)

	stores[document.KindTab].Upsert(document.Document{UUID: "a", Kind: document.KindTab, Body: "doomed", LastModified: 100})

	// The remote side deleted the document
	trans.remoteDocs[document.KindTab] = nil
	trans.remoteTombs[document.KindTab] = tombstone.New("a")

	if err := s.SyncNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, stores[document.KindTab].Len(), 0, "document should be removed")
	assert.Equal(t, s.Tombstones(document.KindTab).Contains("a"), true, "tombstone should be adopted")
	assert.Equal(t, trans.pushedTombs[document.KindTab].Contains("a"), true, "tombstone should be pushed")
}

func TestRecordDeleted(t *testing.T) {
	trans := newFakeTransport()
	s, stores := newTestSyncer(trans, newFakePersister())

	stores[document.KindClip].Upsert(document.Document{UUID: "a", Kind: document.KindClip, Body: "x"})

	s.RecordDeleted(document.KindClip, "a")

	assert.Equal(t, stores[document.KindClip].Len(), 0, "document should be removed")
	assert.Equal(t, s.Tombstones(document.KindClip).Contains("a"), true, "tombstone should be marked")
	assert.Equal(t, s.tracker.Pending(document.KindClip), true, "a flush should be pending")
}

func TestRecordChanged_clearsTombstone(t *testing.T) {
	trans := newFakeTransport()
	s, stores := newTestSyncer(trans, newFakePersister())

	s.RecordDeleted(document.KindTab, "a")
	assert.Equal(t, s.Tombstones(document.KindTab).Contains("a"), true, "tombstone should be marked")

	// Re-creating the id lifts the tombstone
	s.RecordChanged(document.KindTab, document.Document{UUID: "a", Kind: document.KindTab, Body: "back"})
	assert.Equal(t, s.Tombstones(document.KindTab).Contains("a"), false, "tombstone should be cleared")
	assert.Equal(t, stores[document.KindTab].Len(), 1, "document should be stored")
}

func TestSyncNow_nativeDeletesEmptyLedger(t *testing.T) {
	trans := newFakeTransport()
	trans.native = true

	s, _ := newTestSyncer(trans, newFakePersister())

	s.RecordDeleted(document.KindTab, "a")

	if err := s.SyncNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The delete went out natively, so the local ledger resets
	assert.Equal(t, trans.pushedTombs[document.KindTab].Contains("a"), true, "tombstone should be pushed")
	assert.Equal(t, s.Tombstones(document.KindTab).Len(), 0, "ledger should be emptied")
}

func TestSyncNow_pullError(t *testing.T) {
	trans := newFakeTransport()
	trans.pullErr = errors.New("network down")

	s, _ := newTestSyncer(trans, newFakePersister())

	if err := s.SyncNow(context.Background()); err == nil {
		t.Fatal("expected an error")
	}

	assert.Equal(t, trans.pushCount, 0, "nothing should be pushed after a failed pull")
}

func TestEnableDisable(t *testing.T) {
	trans := newFakeTransport()
	s, _ := newTestSyncer(trans, newFakePersister())

	assert.Equal(t, s.State(), StateDisabled, "state mismatch")

	ctx := context.Background()
	s.Enable(ctx)

	state := s.State()
	if state != StateStarting && state != StateSteady {
		t.Fatalf("state is %s after enable", state)
	}

	if err := s.Disable(ctx); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, s.State(), StateDisabled, "state mismatch")

	// Disabling wipes the remote copies of both kinds
	trans.mu.Lock()
	cleared := map[document.Kind]bool{}
	for _, kind := range trans.cleared {
		cleared[kind] = true
	}
	trans.mu.Unlock()

	assert.Equal(t, cleared[document.KindTab], true, "tabs should be cleared")
	assert.Equal(t, cleared[document.KindClip], true, "clips should be cleared")
}

func TestSyncer_backoff(t *testing.T) {
	trans := newFakeTransport()
	trans.pullErr = errors.New("network down")

	stores := newTestStores()
	c := clock.NewMock()
	c.SetNow(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))

	s := New(Config{
		Transport: trans,
		Clock:     c,
		Interval:  time.Minute,
		Debounce:  time.Hour,
	}, stores, nil)

	ctx := context.Background()
	s.SyncNow(ctx)

	// After one failure the kind is not due until a full interval later
	assert.Equal(t, s.due(document.KindTab), false, "kind should be backing off")

	c.Advance(2 * time.Minute)
	assert.Equal(t, s.due(document.KindTab), true, "backoff should expire")

	// A success resets the backoff entirely
	trans.mu.Lock()
	trans.pullErr = nil
	trans.mu.Unlock()

	if err := s.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, s.due(document.KindTab), true, "kind should be due after success")
}

func TestRemoteChanged(t *testing.T) {
	trans := newFakeTransport()
	trans.remoteDocs[document.KindTab] = []document.Document{
		{UUID: "b", Kind: document.KindTab, Body: "pushed elsewhere", LastModified: 200},
	}

	s, stores := newTestSyncer(trans, newFakePersister())

	s.mu.Lock()
	s.state = StateSteady
	s.mu.Unlock()

	s.RemoteChanged(context.Background(), document.KindTab)

	doc, err := stores[document.KindTab].Get("b")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, doc.Body, "pushed elsewhere", "body mismatch")
	assert.Equal(t, trans.pushCount, 1, "the trigger should run a full pass")
}

func TestRemoteChanged_disabled(t *testing.T) {
	trans := newFakeTransport()
	trans.remoteDocs[document.KindTab] = []document.Document{
		{UUID: "b", Kind: document.KindTab, Body: "pushed elsewhere", LastModified: 200},
	}

	s, stores := newTestSyncer(trans, newFakePersister())

	s.RemoteChanged(context.Background(), document.KindTab)

	trans.mu.Lock()
	pulls := trans.pullCount
	trans.mu.Unlock()

	assert.Equal(t, pulls, 0, "a disabled scheduler must not pull")
	assert.Equal(t, stores[document.KindTab].Len(), 0, "nothing should land locally")
}

// refetchTransport layers a scripted full-feed read over the fake transport
type refetchTransport struct {
	*fakeTransport

	refetchDocs  map[document.Kind][]document.Document
	refetchCount int
}

func (t *refetchTransport) Refetch(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refetchCount++
	return t.refetchDocs[kind], tombstone.New(), nil
}

func TestSyncFull_refetches(t *testing.T) {
	trans := &refetchTransport{
		fakeTransport: newFakeTransport(),
		refetchDocs: map[document.Kind][]document.Document{
			document.KindTab: {
				{UUID: "a", Kind: document.KindTab, Body: "full feed", LastModified: 100},
			},
		},
	}

	stores := newTestStores()
	s := New(Config{
		Transport: trans,
		Clock:     clock.NewMock(),
		Debounce:  time.Hour,
	}, stores, nil)

	if err := s.SyncFull(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc, err := stores[document.KindTab].Get("a")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, doc.Body, "full feed", "body mismatch")

	trans.mu.Lock()
	defer trans.mu.Unlock()
	assert.Equal(t, trans.refetchCount, len(document.Kinds), "every kind should refetch")
	assert.Equal(t, trans.pullCount, 0, "the incremental path should be bypassed")
}

func TestSyncFull_plainTransport(t *testing.T) {
	trans := newFakeTransport()
	trans.remoteDocs[document.KindClip] = []document.Document{
		{UUID: "c", Kind: document.KindClip, Body: "clip", LastModified: 100},
	}

	s, stores := newTestSyncer(trans, newFakePersister())

	if err := s.SyncFull(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Without a refetch path every pull is already wholesale
	assert.Equal(t, trans.pullCount, len(document.Kinds), "every kind should pull")
	assert.Equal(t, stores[document.KindClip].Len(), 1, "the remote clip should land")
}

func TestFlushPending(t *testing.T) {
	trans := newFakeTransport()
	s, _ := newTestSyncer(trans, newFakePersister())

	s.mu.Lock()
	s.state = StateSteady
	s.mu.Unlock()

	s.RecordChanged(document.KindTab, document.Document{UUID: "a", Kind: document.KindTab, Body: "edited"})
	assert.Equal(t, s.tracker.Pending(document.KindTab), true, "a flush should be pending")

	s.FlushPending()

	assert.Equal(t, s.tracker.Pending(document.KindTab), false, "the pending window should be cleared")
	assert.Equal(t, len(trans.pushedDocs[document.KindTab]), 1, "the edit should be pushed")
	assert.Equal(t, trans.pullCount, 0, "a flush must not pull")
}

func TestSyncer_concurrentLocalMutations(t *testing.T) {
	trans := newFakeTransport()
	trans.remoteDocs[document.KindTab] = []document.Document{
		{UUID: "seed", Kind: document.KindTab, Body: "remote", LastModified: 50},
	}

	s, _ := newTestSyncer(trans, newFakePersister())

	// Local edits keep landing mid-pass, the way watch mode delivers them
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			id := fmt.Sprintf("doc-%d", i%10)
			s.RecordChanged(document.KindTab, document.Document{UUID: id, Kind: document.KindTab, Body: "local edit", LastModified: int64(i)})
			if i%3 == 0 {
				s.RecordDeleted(document.KindTab, id)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if err := s.SyncNow(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	close(stop)
	wg.Wait()
}
