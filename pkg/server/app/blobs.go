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

	"github.com/nickustinov/itsypad/pkg/server/database"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GetBlob returns the user's blob stored under the key. The second return
// value is false if no blob exists.
func (a *App) GetBlob(user database.User, key string) (database.Blob, bool, error) {
	var blob database.Blob
	err := a.DB.Where("user_id = ? AND key = ?", user.ID, key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.Blob{}, false, nil
	} else if err != nil {
		return database.Blob{}, false, pkgErrors.Wrap(err, "finding blob")
	}

	return blob, true, nil
}

// PutBlob stores the value under the user's key, replacing any previous value
func (a *App) PutBlob(user database.User, key string, value []byte) error {
	blob, found, err := a.GetBlob(user, key)
	if err != nil {
		return err
	}

	if !found {
		blob = database.Blob{
			UserID: user.ID,
			Key:    key,
		}
	}
	blob.Value = value

	if err := a.DB.Save(&blob).Error; err != nil {
		return pkgErrors.Wrap(err, "saving blob")
	}

	return nil
}

// DeleteBlob removes the user's blob stored under the key
func (a *App) DeleteBlob(user database.User, key string) error {
	_, found, err := a.GetBlob(user, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	if err := a.DB.Where("user_id = ? AND key = ?", user.ID, key).Delete(&database.Blob{}).Error; err != nil {
		return pkgErrors.Wrap(err, "deleting blob")
	}

	return nil
}
