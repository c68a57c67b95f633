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

// Package merge reconciles a local document collection with a remote
// snapshot. It is pure: no I/O, no clock, no mutation of its inputs.
package merge

import (
	"sort"

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
)

// Options control kind-specific merge behavior
type Options struct {
	// DedupeBody skips a remote document whose body already exists locally
	// under a different id. Used for the clipboard, where the same text can
	// arrive via two independent capture paths.
	DedupeBody bool
	// SortByModified re-sorts the merged collection most-recent-first
	SortByModified bool
}

// Result is the outcome of a merge pass
type Result struct {
	// Docs is the next local state
	Docs []document.Document
	// Inserted, Updated and Removed partition the ids whose local content
	// changed, for the UI change notification
	Inserted []string
	Updated  []string
	Removed  []string
}

// Changed returns true if the merge altered local state
func (r Result) Changed() bool {
	return len(r.Inserted) > 0 || len(r.Updated) > 0 || len(r.Removed) > 0
}

// Change converts the result into a store change event for the given kind
func (r Result) Change(kind document.Kind) document.Change {
	return document.Change{
		Kind:     kind,
		Inserted: r.Inserted,
		Updated:  r.Updated,
		Removed:  r.Removed,
	}
}

// Merge produces the next local state from local documents, a remote
// snapshot and the tombstones of both sides.
//
// Rules, in order:
//
//  1. A tombstoned id is removed locally no matter what either side's
//     timestamp says. Ids are never reused across documents, so a tombstone
//     always refers to the document it was written for.
//  2. A remote document absent locally is inserted. A remote document
//     present locally wins only with a strictly greater LastModified; on a
//     tie the local copy survives, biasing toward the device being used.
//  3. A local document absent from the remote snapshot is left alone: it
//     has not been pushed yet, or the snapshot is stale.
//
// File-bound local documents are excluded from sync entirely: a remote copy
// never overwrites them.
func Merge(local, remote []document.Document, localTombs, remoteTombs tombstone.Set, opts Options) Result {
	tombs := tombstone.Union(localTombs, remoteTombs)

	docs := make([]document.Document, 0, len(local))
	index := make(map[string]int, len(local))
	var removed []string

	for _, d := range local {
		if d.Syncable() && tombs.Contains(d.UUID) {
			removed = append(removed, d.UUID)
			continue
		}
		index[d.UUID] = len(docs)
		docs = append(docs, d)
	}

	var bodies map[string]bool
	if opts.DedupeBody {
		bodies = make(map[string]bool, len(docs))
		for _, d := range docs {
			if d.Syncable() {
				bodies[d.Body] = true
			}
		}
	}

	var inserted, updated []string

	for _, r := range remote {
		if tombs.Contains(r.UUID) {
			continue
		}

		if i, ok := index[r.UUID]; ok {
			l := docs[i]
			if !l.Syncable() {
				continue
			}
			if l.LastModified >= r.LastModified {
				continue
			}
			docs[i] = r
			updated = append(updated, r.UUID)
			continue
		}

		if opts.DedupeBody && bodies[r.Body] {
			continue
		}

		index[r.UUID] = len(docs)
		docs = append(docs, r)
		inserted = append(inserted, r.UUID)
		if opts.DedupeBody {
			bodies[r.Body] = true
		}
	}

	if opts.SortByModified {
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].LastModified > docs[j].LastModified
		})
	}

	return Result{
		Docs:     docs,
		Inserted: inserted,
		Updated:  updated,
		Removed:  removed,
	}
}

// OptionsFor returns the merge options for the given document kind
func OptionsFor(kind document.Kind) Options {
	if kind == document.KindClip {
		return Options{DedupeBody: true, SortByModified: true}
	}
	return Options{}
}
