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
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

// SaveDocuments replaces the kind's document rows with the given snapshot
// in one transaction
func SaveDocuments(db *DB, kind document.Kind, docs []document.Document) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if _, err := tx.Exec("DELETE FROM documents WHERE kind = ?", string(kind)); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "clearing document rows")
	}

	for _, doc := range docs {
		_, err := tx.Exec("INSERT INTO documents (uuid, kind, name, language, body, file_path, last_modified) VALUES (?, ?, ?, ?, ?, ?, ?)",
			doc.UUID, string(kind), doc.Name, doc.Language, doc.Body, doc.FilePath, doc.LastModified)
		if err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "inserting document with uuid %s", doc.UUID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	return nil
}

// SaveTombstones replaces the kind's tombstone rows with the given set
func SaveTombstones(db *DB, kind document.Kind, tombs tombstone.Set) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if _, err := tx.Exec("DELETE FROM tombstones WHERE kind = ?", string(kind)); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "clearing tombstone rows")
	}

	for _, uuid := range tombs.Snapshot() {
		if _, err := tx.Exec("INSERT INTO tombstones (kind, uuid) VALUES (?, ?)", string(kind), uuid); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "inserting tombstone for %s", uuid)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	return nil
}

// ListTombstones returns the kind's tombstone ledger
func ListTombstones(db *DB, kind document.Kind) (tombstone.Set, error) {
	rows, err := db.Query("SELECT uuid FROM tombstones WHERE kind = ?", string(kind))
	if err != nil {
		return tombstone.Set{}, errors.Wrap(err, "querying tombstones")
	}
	defer rows.Close()

	ret := tombstone.New()
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return tombstone.Set{}, errors.Wrap(err, "scanning a tombstone row")
		}
		ret.Mark(uuid)
	}
	if err := rows.Err(); err != nil {
		return tombstone.Set{}, errors.Wrap(err, "iterating tombstone rows")
	}

	return ret, nil
}

// Snapshot adapts the database into the persist hook consumed by the sync
// scheduler
type Snapshot struct {
	DB *DB
}

// SaveDocuments persists the kind's merged documents
func (s Snapshot) SaveDocuments(kind document.Kind, docs []document.Document) error {
	return SaveDocuments(s.DB, kind, docs)
}

// SaveTombstones persists the kind's deletion ledger
func (s Snapshot) SaveTombstones(kind document.Kind, tombs tombstone.Set) error {
	return SaveTombstones(s.DB, kind, tombs)
}
