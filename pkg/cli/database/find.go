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

package database

import (
	"strconv"
	"strings"

	"github.com/nickustinov/itsypad/pkg/cli/utils"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
)

// FindDocument resolves a user-supplied target to a document row. A numeric
// target is a position in the kind's listing, most recently modified first;
// anything else matches an exact name first, then a uuid prefix.
func FindDocument(db *DB, kind document.Kind, target string) (document.Document, error) {
	docs, err := ListDocuments(db, kind)
	if err != nil {
		return document.Document{}, errors.Wrap(err, "listing documents")
	}

	if utils.IsNumber(target) {
		idx, err := strconv.Atoi(target)
		if err != nil {
			return document.Document{}, errors.Wrap(err, "parsing index")
		}
		if idx < 0 || idx >= len(docs) {
			return document.Document{}, ErrDocumentNotFound
		}
		return docs[idx], nil
	}

	var matches []document.Document
	for _, doc := range docs {
		if doc.Name == target {
			matches = append(matches, doc)
		}
	}
	if len(matches) == 0 {
		for _, doc := range docs {
			if strings.HasPrefix(doc.UUID, target) {
				matches = append(matches, doc)
			}
		}
	}

	switch len(matches) {
	case 0:
		return document.Document{}, ErrDocumentNotFound
	case 1:
		return matches[0], nil
	default:
		return document.Document{}, errors.Errorf("%s matches more than one document", target)
	}
}

// MarkTombstone records the deletion of the given document id so the
// removal propagates to other devices
func MarkTombstone(db *DB, kind document.Kind, uuid string) error {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM tombstones WHERE kind = ? AND uuid = ?", string(kind), uuid).Scan(&count); err != nil {
		return errors.Wrap(err, "counting tombstones")
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec("INSERT INTO tombstones (kind, uuid) VALUES (?, ?)", string(kind), uuid); err != nil {
		return errors.Wrapf(err, "inserting tombstone for %s", uuid)
	}

	return nil
}
