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

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

// Record is a document paired with its server-assigned change stamp. The
// stamp is opaque to the engine: it is only ever compared for equality to
// detect a write-write conflict before overwriting.
type Record struct {
	Doc   document.Document `json:"doc"`
	Stamp int64             `json:"stamp"`
}

// Feed is an incremental slice of remote changes after a given stamp
type Feed struct {
	Records  []Record `json:"records"`
	Expunged []string `json:"expunged"`
	MaxStamp int64    `json:"max_stamp"`
}

// RecordClient is the per-record remote API consumed by RecordTransport
type RecordClient interface {
	// Changes returns all record changes for the kind with stamps greater
	// than after. after == 0 refetches everything.
	Changes(ctx context.Context, kind document.Kind, after int64) (Feed, error)

	// Write upserts a record. prevStamp is the stamp the writer last saw
	// for the record (0 for a new record); if the server holds a newer
	// stamp the write is rejected and the current server record returned.
	Write(ctx context.Context, kind document.Kind, doc document.Document, prevStamp int64) (int64, *Record, error)

	// Delete removes the record natively. Deleting an absent record is a
	// no-op, not an error.
	Delete(ctx context.Context, kind document.Kind, uuid string) error

	// Wipe removes every record of the kind, including deletion markers
	Wipe(ctx context.Context, kind document.Kind) error
}

// StampStore persists the per-record stamps and the per-kind feed cursor
// between runs
type StampStore interface {
	LastStamp(kind document.Kind) (int64, error)
	SetLastStamp(kind document.Kind, stamp int64) error
	RecordStamp(kind document.Kind, uuid string) (int64, error)
	SetRecordStamp(kind document.Kind, uuid string, stamp int64) error
	DeleteRecordStamp(kind document.Kind, uuid string) error
}

// RecordTransport realizes the transport contract over individually
// addressable remote records with native delete propagation. No tombstone
// ledger is required on top of it; the feed's expunged ids serve the same
// contract position on pull.
type RecordTransport struct {
	client RecordClient
	stamps StampStore
	logf   Logger
}

// NewRecordTransport creates a record transport
func NewRecordTransport(client RecordClient, stamps StampStore, logf Logger) *RecordTransport {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	return &RecordTransport{client: client, stamps: stamps, logf: logf}
}

// NativeDeletes returns true: deletions are first-class remote operations
func (t *RecordTransport) NativeDeletes() bool {
	return true
}

// Pull fetches the incremental change feed since the persisted cursor
func (t *RecordTransport) Pull(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	after, err := t.stamps.LastStamp(kind)
	if err != nil {
		return nil, tombstone.Set{}, errors.Wrap(err, "reading feed cursor")
	}

	return t.pull(ctx, kind, after)
}

// Refetch rebuilds state from the full feed, the disaster-recovery path
func (t *RecordTransport) Refetch(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error) {
	return t.pull(ctx, kind, 0)
}

func (t *RecordTransport) pull(ctx context.Context, kind document.Kind, after int64) ([]document.Document, tombstone.Set, error) {
	feed, err := t.client.Changes(ctx, kind, after)
	if err != nil {
		return nil, tombstone.Set{}, errors.Wrap(err, "fetching change feed")
	}

	docs := make([]document.Document, 0, len(feed.Records))
	for _, rec := range feed.Records {
		docs = append(docs, rec.Doc)
		if err := t.stamps.SetRecordStamp(kind, rec.Doc.UUID, rec.Stamp); err != nil {
			return nil, tombstone.Set{}, errors.Wrapf(err, "saving stamp for %s", rec.Doc.UUID)
		}
	}

	tombs := tombstone.New(feed.Expunged...)

	if feed.MaxStamp > after {
		if err := t.stamps.SetLastStamp(kind, feed.MaxStamp); err != nil {
			return nil, tombstone.Set{}, errors.Wrap(err, "saving feed cursor")
		}
	}

	return docs, tombs, nil
}

// Push submits every syncable document as a record write and every local
// tombstone as a native delete.
//
// A write that collides with a newer server-side write is retried once with
// the server's stamp; a second consecutive conflict for the same record is
// deferred to the next scheduling pass instead of looping.
func (t *RecordTransport) Push(ctx context.Context, kind document.Kind, docs []document.Document, tombs tombstone.Set) error {
	for _, doc := range syncable(docs) {
		if err := t.pushOne(ctx, kind, doc); err != nil {
			return err
		}
	}

	for _, uuid := range tombs.Snapshot() {
		if err := t.client.Delete(ctx, kind, uuid); err != nil {
			return errors.Wrapf(err, "deleting record %s", uuid)
		}
		if err := t.stamps.DeleteRecordStamp(kind, uuid); err != nil {
			return errors.Wrapf(err, "dropping stamp for %s", uuid)
		}
	}

	return nil
}

func (t *RecordTransport) pushOne(ctx context.Context, kind document.Kind, doc document.Document) error {
	prev, err := t.stamps.RecordStamp(kind, doc.UUID)
	if err != nil {
		return errors.Wrapf(err, "reading stamp for %s", doc.UUID)
	}

	stamp, conflict, err := t.client.Write(ctx, kind, doc, prev)
	if err != nil {
		return errors.Wrapf(err, "writing record %s", doc.UUID)
	}

	if conflict != nil {
		// re-derive from current local content and the latest server
		// stamp, then re-push once
		stamp, conflict, err = t.client.Write(ctx, kind, doc, conflict.Stamp)
		if err != nil {
			return errors.Wrapf(err, "re-pushing record %s", doc.UUID)
		}
		if conflict != nil {
			t.logf("record %s conflicted twice, deferring to the next pass\n", doc.UUID)
			return nil
		}
	}

	if err := t.stamps.SetRecordStamp(kind, doc.UUID, stamp); err != nil {
		return errors.Wrapf(err, "saving stamp for %s", doc.UUID)
	}

	return nil
}

// Clear wipes the kind's records remotely and resets the feed cursor
func (t *RecordTransport) Clear(ctx context.Context, kind document.Kind) error {
	if err := t.client.Wipe(ctx, kind); err != nil {
		return errors.Wrap(err, "wiping remote records")
	}

	if err := t.stamps.SetLastStamp(kind, 0); err != nil {
		return errors.Wrap(err, "resetting feed cursor")
	}

	return nil
}
