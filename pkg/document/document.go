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

// Package document defines the synchronized document model and the in-memory
// document store
package document

import (
	"github.com/google/uuid"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/pkg/errors"
)

// Kind identifies a document collection
type Kind string

const (
	// KindTab is the collection of scratch tabs
	KindTab Kind = "tab"
	// KindClip is the collection of clipboard entries
	KindClip Kind = "clip"
)

// Kinds is the list of all document kinds
var Kinds = []Kind{KindTab, KindClip}

// Valid returns true if the kind is a known document kind
func (k Kind) Valid() bool {
	return k == KindTab || k == KindClip
}

// Document is a single synchronized document. The same shape backs both
// kinds; tab-only fields are empty for clipboard entries.
type Document struct {
	UUID         string `json:"uuid"`
	Kind         Kind   `json:"kind"`
	Name         string `json:"name,omitempty"`
	Language     string `json:"language,omitempty"`
	Body         string `json:"content"`
	FilePath     string `json:"file_path,omitempty"`
	LastModified int64  `json:"last_modified"`
}

// Syncable returns true if the document participates in sync. Documents
// bound to an external file never leave the device.
func (d Document) Syncable() bool {
	return d.FilePath == ""
}

// Touch bumps LastModified. The stamp is strictly monotonic even if the
// wall clock stands still or moves backwards between mutations.
func (d *Document) Touch(c clock.Clock) {
	now := c.Now().UnixMilli()
	if now <= d.LastModified {
		now = d.LastModified + 1
	}
	d.LastModified = now
}

// New constructs a document of the given kind with a fresh identity
func New(c clock.Clock, kind Kind, name, body string) (Document, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return Document{}, errors.Wrap(err, "generating uuid")
	}

	doc := Document{
		UUID: u.String(),
		Kind: kind,
		Name: name,
		Body: body,
	}
	doc.Touch(c)

	return doc, nil
}

// Change describes the outcome of applying a merge to a store, partitioned
// by what happened to each document. It is delivered to the store's change
// observer for the UI layer to consume.
type Change struct {
	Kind     Kind
	Inserted []string
	Updated  []string
	Removed  []string
}

// Empty returns true if the change carries no ids
func (c Change) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}
