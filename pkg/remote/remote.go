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

// Package remote abstracts the remote store behind one transport contract
// with two implementations: a wholesale-blob shape and a per-record shape.
package remote

import (
	"context"

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
)

// Transport moves document collections to and from the remote store.
//
// The contract is the blob shape's: Pull returns remote documents plus
// remote tombstones, Push uploads the full local state plus local
// tombstones. The per-record implementation translates this contract onto
// individually addressable records with native deletions.
type Transport interface {
	// Pull fetches the remote state for the kind. An empty remote store is
	// not an error; it returns empty results.
	Pull(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error)

	// Push uploads the local state for the kind. Push is idempotent and
	// always derived from full current state, never from a delta log.
	Push(ctx context.Context, kind document.Kind, docs []document.Document, tombs tombstone.Set) error

	// Clear wipes the remote state for the kind. This is the explicit
	// "unsync" operation performed when sync is disabled.
	Clear(ctx context.Context, kind document.Kind) error

	// NativeDeletes reports whether deletions propagate through the remote
	// store itself, making the local tombstone ledger unnecessary after a
	// successful push.
	NativeDeletes() bool
}

// Refetcher is implemented by transports that can rebuild state from
// scratch, bypassing any incremental change tracking. Used by full sync.
type Refetcher interface {
	Refetch(ctx context.Context, kind document.Kind) ([]document.Document, tombstone.Set, error)
}

// syncable filters out documents excluded from sync by a file binding
func syncable(docs []document.Document) []document.Document {
	ret := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		if d.Syncable() {
			ret = append(ret, d)
		}
	}
	return ret
}
