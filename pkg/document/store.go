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

package document

import (
	"github.com/pkg/errors"
)

// ErrNotFound is an error for a document that does not exist in the store
var ErrNotFound = errors.New("document not found")

// Store is an in-memory ordered collection of documents of one kind.
//
// A store is not safe for concurrent use on its own. In the sync engine
// every access flows through the syncer, which serializes merge passes and
// local mutations on a per-kind lock. Reads return copies so callers cannot
// alias the internal slice.
type Store struct {
	kind     Kind
	docs     []Document
	index    map[string]int
	maxLen   int
	onChange func(Change)
}

// NewStore creates an empty store for the given kind. A maxLen of 0 means
// the collection is unbounded.
func NewStore(kind Kind, maxLen int) *Store {
	return &Store{
		kind:   kind,
		index:  map[string]int{},
		maxLen: maxLen,
	}
}

// Kind returns the document kind held by the store
func (s *Store) Kind() Kind {
	return s.kind
}

// Notify registers the change observer invoked by ApplyMerge. Passing nil
// removes the observer.
func (s *Store) Notify(fn func(Change)) {
	s.onChange = fn
}

// Len returns the number of documents in the store
func (s *Store) Len() int {
	return len(s.docs)
}

// Get returns the document with the given uuid
func (s *Store) Get(uuid string) (Document, error) {
	i, ok := s.index[uuid]
	if !ok {
		return Document{}, errors.Wrapf(ErrNotFound, "getting document %s", uuid)
	}

	return s.docs[i], nil
}

// Upsert inserts the document, or replaces its content if the uuid already
// exists. New documents are inserted at the front so collections read
// most-recent-first, and the store is truncated to maxLen if bounded.
func (s *Store) Upsert(doc Document) {
	if i, ok := s.index[doc.UUID]; ok {
		s.docs[i] = doc
		return
	}

	s.docs = append([]Document{doc}, s.docs...)
	if s.maxLen > 0 && len(s.docs) > s.maxLen {
		s.docs = s.docs[:s.maxLen]
	}
	s.reindex()
}

// Remove deletes the document with the given uuid. Returns ErrNotFound for
// an absent id; callers treat that as a benign no-op.
func (s *Store) Remove(uuid string) error {
	i, ok := s.index[uuid]
	if !ok {
		return errors.Wrapf(ErrNotFound, "removing document %s", uuid)
	}

	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	s.reindex()

	return nil
}

// List returns a copy of all documents in order
func (s *Store) List() []Document {
	ret := make([]Document, len(s.docs))
	copy(ret, s.docs)
	return ret
}

// Syncable returns a copy of the documents that participate in sync
func (s *Store) Syncable() []Document {
	ret := []Document{}
	for _, d := range s.docs {
		if d.Syncable() {
			ret = append(ret, d)
		}
	}
	return ret
}

// FindByBody returns the first syncable document whose body matches exactly
func (s *Store) FindByBody(body string) (Document, bool) {
	for _, d := range s.docs {
		if d.Syncable() && d.Body == body {
			return d, true
		}
	}
	return Document{}, false
}

// ApplyMerge replaces the store's contents with the outcome of a merge pass
// and delivers the change to the registered observer
func (s *Store) ApplyMerge(docs []Document, change Change) {
	s.docs = make([]Document, len(docs))
	copy(s.docs, docs)
	s.reindex()

	if s.onChange != nil && !change.Empty() {
		s.onChange(change)
	}
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.docs))
	for i, d := range s.docs {
		s.index[d.UUID] = i
	}
}
