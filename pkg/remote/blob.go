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

package remote

import (
	"context"
	"encoding/json"

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

// Remote blob keys, per collection kind
const (
	KeyTabs         = "tabs"
	KeyDeletedTabs  = "deletedTabIDs"
	KeyClips        = "clipboard"
	KeyDeletedClips = "deletedClipboardIDs"

	defaultTabCap  = 200
	defaultClipCap = 50
)

// KV is a durable remote key-value primitive holding opaque values
type KV interface {
	// Get returns the value for the key and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Logger receives non-fatal transport diagnostics
type Logger func(format string, v ...interface{})

// BlobTransport stores each collection wholesale under a single key, with a
// companion key holding the tombstone set.
type BlobTransport struct {
	kv   KV
	caps map[document.Kind]int
	logf Logger
}

// NewBlobTransport creates a blob transport over the given key-value store
func NewBlobTransport(kv KV, logf Logger) *BlobTransport {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	return &BlobTransport{
		kv: kv,
		caps: map[document.Kind]int{
			document.KindTab:  defaultTabCap,
			document.KindClip: defaultClipCap,
		},
		logf: logf,
	}
}

// SetCap overrides the remote entry cap for a kind. The remote cap is
// smaller than the local cap so a lagging device can still converge.
func (t *BlobTransport) SetCap(kind document.Kind, n int) {
	t.caps[kind] = n
}

// NativeDeletes returns false: the blob shape propagates deletions through
// the tombstone blobs.
func (t *BlobTransport) NativeDeletes() bool {
	return false
}

func docsKey(kind document.Kind) string {
	if kind == document.KindClip {
		return KeyClips
	}
	return KeyTabs
}

func tombsKey(kind document.Kind) string {
	if kind == document.KindClip {
		return KeyDeletedClips
	}
	return KeyDeletedTabs
}

// Pull fetches and decodes both blobs for the kind. An absent key or a blob
// that fails to decode yields empty state for this pass; the blob heals the
// next time it is rewritten.
func (t *BlobTransport) Pull(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	var docs []document.Document
	b, ok, err := t.kv.Get(ctx, docsKey(kind))
	if err != nil {
		return nil, tombstone.Set{}, errors.Wrapf(err, "fetching %s blob", docsKey(kind))
	}
	if ok {
		if err := json.Unmarshal(b, &docs); err != nil {
			t.logf("discarding undecodable %s blob: %v\n", docsKey(kind), err)
			docs = nil
		}
	}

	tombs := tombstone.New()
	b, ok, err = t.kv.Get(ctx, tombsKey(kind))
	if err != nil {
		return nil, tombstone.Set{}, errors.Wrapf(err, "fetching %s blob", tombsKey(kind))
	}
	if ok {
		if err := json.Unmarshal(b, &tombs); err != nil {
			t.logf("discarding undecodable %s blob: %v\n", tombsKey(kind), err)
			tombs = tombstone.New()
		}
	}

	return docs, tombs, nil
}

// Refetch is identical to Pull under the blob shape: every pull already
// reads the whole snapshot.
func (t *BlobTransport) Refetch(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	return t.Pull(ctx, kind)
}

// Push rewrites both blobs from the full current local state. File-bound
// documents are filtered out and the collection is capped to the remote
// entry limit for the kind.
func (t *BlobTransport) Push(ctx context.Context, kind document.Kind, docs []document.Document, tombs tombstone.Set) error {
	upload := truncate(syncable(docs), t.caps[kind])

	b, err := json.Marshal(upload)
	if err != nil {
		return errors.Wrap(err, "encoding documents")
	}
	if err := t.kv.Put(ctx, docsKey(kind), b); err != nil {
		return errors.Wrapf(err, "writing %s blob", docsKey(kind))
	}

	b, err = json.Marshal(tombs)
	if err != nil {
		return errors.Wrap(err, "encoding tombstones")
	}
	if err := t.kv.Put(ctx, tombsKey(kind), b); err != nil {
		return errors.Wrapf(err, "writing %s blob", tombsKey(kind))
	}

	return nil
}

// AppendClip inserts a single new clipboard entry at the front of the
// remote blob without uploading local state wholesale. This is the fast
// path for capturing a copy event.
func (t *BlobTransport) AppendClip(ctx context.Context, doc document.Document) error {
	if !doc.Syncable() {
		return nil
	}

	var existing []document.Document
	b, ok, err := t.kv.Get(ctx, KeyClips)
	if err != nil {
		return errors.Wrap(err, "fetching clipboard blob")
	}
	if ok {
		if err := json.Unmarshal(b, &existing); err != nil {
			t.logf("discarding undecodable clipboard blob: %v\n", err)
			existing = nil
		}
	}

	next := make([]document.Document, 0, len(existing)+1)
	next = append(next, doc)
	for _, d := range existing {
		if d.UUID == doc.UUID || d.Body == doc.Body {
			continue
		}
		next = append(next, d)
	}
	next = truncate(next, t.caps[document.KindClip])

	b, err = json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encoding clipboard entries")
	}
	if err := t.kv.Put(ctx, KeyClips, b); err != nil {
		return errors.Wrap(err, "writing clipboard blob")
	}

	return nil
}

// Clear deletes both blobs for the kind
func (t *BlobTransport) Clear(ctx context.Context, kind document.Kind) error {
	if err := t.kv.Delete(ctx, docsKey(kind)); err != nil {
		return errors.Wrapf(err, "deleting %s blob", docsKey(kind))
	}
	if err := t.kv.Delete(ctx, tombsKey(kind)); err != nil {
		return errors.Wrapf(err, "deleting %s blob", tombsKey(kind))
	}

	return nil
}

func truncate(docs []document.Document, n int) []document.Document {
	if n > 0 && len(docs) > n {
		return docs[:n]
	}
	return docs
}
