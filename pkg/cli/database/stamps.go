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

	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
)

// Stamps stores server change stamps in the local database. The per-kind
// feed cursor lives in the system table; per-record stamps live in the
// record_stamps table.
type Stamps struct {
	DB *DB
}

func stampKey(kind document.Kind) string {
	if kind == document.KindClip {
		return consts.SystemClipStamp
	}
	return consts.SystemTabStamp
}

// LastStamp returns the kind's feed cursor, 0 when never synced
func (s Stamps) LastStamp(kind document.Kind) (int64, error) {
	var ret int64
	err := s.DB.QueryRow("SELECT value FROM system WHERE key = ?", stampKey(kind)).Scan(&ret)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrap(err, "finding feed cursor")
	}

	return ret, nil
}

// SetLastStamp saves the kind's feed cursor
func (s Stamps) SetLastStamp(kind document.Kind, stamp int64) error {
	return UpsertSystem(s.DB, stampKey(kind), stamp)
}

// RecordStamp returns the last seen server stamp for the record, 0 when
// the record has never been pushed
func (s Stamps) RecordStamp(kind document.Kind, uuid string) (int64, error) {
	var ret int64
	err := s.DB.QueryRow("SELECT stamp FROM record_stamps WHERE kind = ? AND uuid = ?", string(kind), uuid).Scan(&ret)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "finding stamp for %s", uuid)
	}

	return ret, nil
}

// SetRecordStamp saves the record's server stamp
func (s Stamps) SetRecordStamp(kind document.Kind, uuid string, stamp int64) error {
	var count int
	if err := s.DB.QueryRow("SELECT count(*) FROM record_stamps WHERE kind = ? AND uuid = ?", string(kind), uuid).Scan(&count); err != nil {
		return errors.Wrapf(err, "counting stamps for %s", uuid)
	}

	if count == 0 {
		if _, err := s.DB.Exec("INSERT INTO record_stamps (kind, uuid, stamp) VALUES (?, ?, ?)", string(kind), uuid, stamp); err != nil {
			return errors.Wrapf(err, "inserting stamp for %s", uuid)
		}
		return nil
	}

	if _, err := s.DB.Exec("UPDATE record_stamps SET stamp = ? WHERE kind = ? AND uuid = ?", stamp, string(kind), uuid); err != nil {
		return errors.Wrapf(err, "updating stamp for %s", uuid)
	}

	return nil
}

// DeleteRecordStamp drops the record's stamp after a native delete
func (s Stamps) DeleteRecordStamp(kind document.Kind, uuid string) error {
	if _, err := s.DB.Exec("DELETE FROM record_stamps WHERE kind = ? AND uuid = ?", string(kind), uuid); err != nil {
		return errors.Wrapf(err, "deleting stamp for %s", uuid)
	}

	return nil
}
