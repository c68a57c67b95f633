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
	"database/sql"

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
)

// ErrDocumentNotFound is an error for a missing document row
var ErrDocumentNotFound = errors.New("document not found")

// InsertDocument inserts a new document row
func InsertDocument(db *DB, doc document.Document) error {
	_, err := db.Exec("INSERT INTO documents (uuid, kind, name, language, body, file_path, last_modified) VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.UUID, string(doc.Kind), doc.Name, doc.Language, doc.Body, doc.FilePath, doc.LastModified)

	if err != nil {
		return errors.Wrapf(err, "inserting document with uuid %s", doc.UUID)
	}

	return nil
}

// UpdateDocument updates the document row with the given data
func UpdateDocument(db *DB, doc document.Document) error {
	_, err := db.Exec("UPDATE documents SET name = ?, language = ?, body = ?, file_path = ?, last_modified = ? WHERE uuid = ?",
		doc.Name, doc.Language, doc.Body, doc.FilePath, doc.LastModified, doc.UUID)

	if err != nil {
		return errors.Wrapf(err, "updating the document with uuid %s", doc.UUID)
	}

	return nil
}

// ExpungeDocument hard-deletes the document row
func ExpungeDocument(db *DB, uuid string) error {
	_, err := db.Exec("DELETE FROM documents WHERE uuid = ?", uuid)
	if err != nil {
		return errors.Wrapf(err, "expunging document with uuid %s", uuid)
	}

	return nil
}

// GetDocument finds the document row with the given uuid
func GetDocument(db *DB, uuid string) (document.Document, error) {
	var doc document.Document
	var kind string

	err := db.QueryRow("SELECT uuid, kind, name, language, body, file_path, last_modified FROM documents WHERE uuid = ?", uuid).
		Scan(&doc.UUID, &kind, &doc.Name, &doc.Language, &doc.Body, &doc.FilePath, &doc.LastModified)
	if err == sql.ErrNoRows {
		return doc, ErrDocumentNotFound
	} else if err != nil {
		return doc, errors.Wrapf(err, "finding document with uuid %s", uuid)
	}

	doc.Kind = document.Kind(kind)

	return doc, nil
}

// ListDocuments returns the kind's document rows, most recently modified first
func ListDocuments(db *DB, kind document.Kind) ([]document.Document, error) {
	rows, err := db.Query("SELECT uuid, kind, name, language, body, file_path, last_modified FROM documents WHERE kind = ? ORDER BY last_modified DESC", string(kind))
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	defer rows.Close()

	var ret []document.Document
	for rows.Next() {
		var doc document.Document
		var k string

		if err := rows.Scan(&doc.UUID, &k, &doc.Name, &doc.Language, &doc.Body, &doc.FilePath, &doc.LastModified); err != nil {
			return nil, errors.Wrap(err, "scanning a document row")
		}

		doc.Kind = document.Kind(k)
		ret = append(ret, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating document rows")
	}

	return ret, nil
}
