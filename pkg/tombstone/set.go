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

// Package tombstone records identifiers of locally deleted documents so a
// stale remote copy can never resurrect them
package tombstone

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Set is a set of deleted document identifiers. It round-trips to the
// remote store as a JSON array of id strings.
type Set struct {
	ids map[string]struct{}
}

// New creates a set containing the given ids
func New(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Mark records the given id as deleted
func (s *Set) Mark(id string) {
	if s.ids == nil {
		s.ids = map[string]struct{}{}
	}
	s.ids[id] = struct{}{}
}

// Unmark drops the given id from the set
func (s *Set) Unmark(id string) {
	delete(s.ids, id)
}

// Contains returns true if the given id has been marked deleted
func (s Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in the set
func (s Set) Len() int {
	return len(s.ids)
}

// Merge adds every id of the other set
func (s *Set) Merge(other Set) {
	for id := range other.ids {
		s.Mark(id)
	}
}

// Union returns a new set containing the ids of both sets
func Union(a, b Set) Set {
	ret := New()
	ret.Merge(a)
	ret.Merge(b)
	return ret
}

// Snapshot returns the ids as a sorted slice
func (s Set) Snapshot() []string {
	ret := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

// MarshalJSON encodes the set as a sorted array of id strings
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON decodes an array of id strings
func (s *Set) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return errors.Wrap(err, "decoding tombstone ids")
	}

	*s = New(ids...)
	return nil
}
