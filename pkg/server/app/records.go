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

package app

import (
	"errors"
	"time"

	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/server/database"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// incrementUserStamp increments the user's max_stamp by 1 and returns the
// new value. Stamps order record writes within a single user's account.
func incrementUserStamp(tx *gorm.DB, userID int) (int64, error) {
	if err := tx.Table("users").Where("id = ?", userID).Update("max_stamp", gorm.Expr("max_stamp + 1")).Error; err != nil {
		return 0, pkgErrors.Wrap(err, "incrementing user max_stamp")
	}

	var user database.User
	if err := tx.Select("max_stamp").Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, pkgErrors.Wrap(err, "getting the updated user max_stamp")
	}

	return user.MaxStamp, nil
}

// WriteRecord stores the document as a record, asserting that prevStamp is
// still the record's latest stamp. On a mismatch it returns the current
// record so the caller can report the conflict.
func (a *App) WriteRecord(user database.User, kind string, doc document.Document, prevStamp int64) (database.Record, *database.Record, error) {
	if !document.Kind(kind).Valid() {
		return database.Record{}, nil, ErrInvalidKind
	}

	tx := a.DB.Begin()

	var existing database.Record
	err := tx.Where("user_id = ? AND kind = ? AND uuid = ?", user.ID, kind, doc.UUID).First(&existing).Error
	found := true
	if errors.Is(err, gorm.ErrRecordNotFound) {
		found = false
	} else if err != nil {
		tx.Rollback()
		return database.Record{}, nil, pkgErrors.Wrap(err, "finding record")
	}

	if found && existing.Stamp != prevStamp {
		tx.Rollback()
		return database.Record{}, &existing, nil
	}

	// An identical rewrite keeps the current stamp. Burning a fresh stamp
	// here would invalidate the other devices' cursors for no content gain.
	if found && !existing.Expunged &&
		existing.Name == doc.Name &&
		existing.Language == doc.Language &&
		existing.Body == doc.Body &&
		existing.LastModified == doc.LastModified {
		tx.Rollback()
		return existing, nil, nil
	}

	stamp, err := incrementUserStamp(tx, user.ID)
	if err != nil {
		tx.Rollback()
		return database.Record{}, nil, err
	}

	record := existing
	if !found {
		record = database.Record{
			UserID: user.ID,
			Kind:   kind,
			UUID:   doc.UUID,
		}
	}
	record.Name = doc.Name
	record.Language = doc.Language
	record.Body = doc.Body
	record.LastModified = doc.LastModified
	record.Stamp = stamp
	record.Expunged = false
	record.ExpungedAt = nil

	if err := tx.Save(&record).Error; err != nil {
		tx.Rollback()
		return database.Record{}, nil, pkgErrors.Wrap(err, "saving record")
	}

	tx.Commit()

	return record, nil, nil
}

// DeleteRecord marks the record as expunged so the deletion propagates
// through the change feed. The content is dropped right away.
func (a *App) DeleteRecord(user database.User, kind, uuid string) error {
	if !document.Kind(kind).Valid() {
		return ErrInvalidKind
	}

	tx := a.DB.Begin()

	var record database.Record
	err := tx.Where("user_id = ? AND kind = ? AND uuid = ? AND expunged = ?", user.ID, kind, uuid, false).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return ErrNotFound
	} else if err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "finding record")
	}

	stamp, err := incrementUserStamp(tx, user.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	now := a.Clock.Now()
	record.Name = ""
	record.Language = ""
	record.Body = ""
	record.Stamp = stamp
	record.Expunged = true
	record.ExpungedAt = &now

	if err := tx.Save(&record).Error; err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "saving record")
	}

	tx.Commit()

	return nil
}

// GetRecordChanges returns the user's records of the kind changed after the
// given stamp, split into live records and expunged uuids, along with the
// user's latest stamp.
func (a *App) GetRecordChanges(user database.User, kind string, after int64) ([]database.Record, []string, int64, error) {
	if !document.Kind(kind).Valid() {
		return nil, nil, 0, ErrInvalidKind
	}

	var records []database.Record
	err := a.DB.
		Where("user_id = ? AND kind = ? AND stamp > ?", user.ID, kind, after).
		Order("stamp ASC").
		Find(&records).Error
	if err != nil {
		return nil, nil, 0, pkgErrors.Wrap(err, "finding records")
	}

	var live []database.Record
	var expunged []string
	for _, r := range records {
		if r.Expunged {
			expunged = append(expunged, r.UUID)
		} else {
			live = append(live, r)
		}
	}

	var u database.User
	if err := a.DB.Select("max_stamp").Where("id = ?", user.ID).First(&u).Error; err != nil {
		return nil, nil, 0, pkgErrors.Wrap(err, "getting user max_stamp")
	}

	return live, expunged, u.MaxStamp, nil
}

// WipeRecords removes all of the user's records of the kind
func (a *App) WipeRecords(user database.User, kind string) error {
	if !document.Kind(kind).Valid() {
		return ErrInvalidKind
	}

	if err := a.DB.Where("user_id = ? AND kind = ?", user.ID, kind).Delete(&database.Record{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting records")
	}

	return nil
}

// PruneExpunged removes expunged records older than the retention period.
// Devices that stay away longer than that fall back to a full refetch.
func (a *App) PruneExpunged(retention time.Duration) (int64, error) {
	cutoff := a.Clock.Now().Add(-retention)

	res := a.DB.Where("expunged = ? AND expunged_at < ?", true, cutoff).Delete(&database.Record{})
	if res.Error != nil {
		return 0, pkgErrors.Wrap(res.Error, "deleting expunged records")
	}

	return res.RowsAffected, nil
}
