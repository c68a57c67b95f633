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
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/nickustinov/itsypad/pkg/server/helpers"
	pkgErrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessKeyIDBytes     = 8
	accessKeySecretBytes = 24
)

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", pkgErrors.Wrap(err, "reading random bytes")
	}

	return hex.EncodeToString(b), nil
}

// CreateUser creates a user with the given name
func (a *App) CreateUser(name string) (database.User, error) {
	if name == "" {
		return database.User{}, ErrUserNameRequired
	}

	var count int64
	if err := a.DB.Model(database.User{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return database.User{}, pkgErrors.Wrap(err, "counting user")
	}
	if count > 0 {
		return database.User{}, ErrDuplicateUserName
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.User{}, pkgErrors.Wrap(err, "generating uuid")
	}

	user := database.User{
		UUID: uuid,
		Name: name,
	}
	if err := a.DB.Save(&user).Error; err != nil {
		return database.User{}, pkgErrors.Wrap(err, "saving user")
	}

	return user, nil
}

// GetUserByName returns the user with the given name
func (a *App) GetUserByName(name string) (database.User, error) {
	var user database.User
	err := a.DB.Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.User{}, ErrNotFound
	} else if err != nil {
		return database.User{}, pkgErrors.Wrap(err, "finding user")
	}

	return user, nil
}

// RemoveUser removes the user with the given name along with all of their data
func (a *App) RemoveUser(name string) error {
	user, err := a.GetUserByName(name)
	if err != nil {
		return err
	}

	tx := a.DB.Begin()
	if err := tx.Where("user_id = ?", user.ID).Delete(&database.Record{}).Error; err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "deleting records")
	}
	if err := tx.Where("user_id = ?", user.ID).Delete(&database.Blob{}).Error; err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "deleting blobs")
	}
	if err := tx.Where("user_id = ?", user.ID).Delete(&database.AccessKey{}).Error; err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "deleting access keys")
	}
	if err := tx.Delete(&user).Error; err != nil {
		tx.Rollback()
		return pkgErrors.Wrap(err, "deleting user")
	}
	tx.Commit()

	return nil
}

// CreateAccessKey issues a new access key for the user. The returned full
// key is shown to the user once; only its hash is stored.
func (a *App) CreateAccessKey(user database.User, label string) (string, error) {
	keyID, err := randomHex(accessKeyIDBytes)
	if err != nil {
		return "", pkgErrors.Wrap(err, "generating key id")
	}
	secret, err := randomHex(accessKeySecretBytes)
	if err != nil {
		return "", pkgErrors.Wrap(err, "generating secret")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", pkgErrors.Wrap(err, "hashing secret")
	}

	key := database.AccessKey{
		UserID: user.ID,
		KeyID:  keyID,
		Secret: string(hashed),
		Label:  label,
	}
	if err := a.DB.Save(&key).Error; err != nil {
		return "", pkgErrors.Wrap(err, "saving access key")
	}

	return fmt.Sprintf("%s.%s", keyID, secret), nil
}

// Authenticate resolves a full access key to its user
func (a *App) Authenticate(fullKey string) (database.User, error) {
	parts := strings.SplitN(fullKey, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return database.User{}, ErrInvalidAccessKey
	}
	keyID, secret := parts[0], parts[1]

	var key database.AccessKey
	err := a.DB.Where("key_id = ?", keyID).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.User{}, ErrInvalidAccessKey
	} else if err != nil {
		return database.User{}, pkgErrors.Wrap(err, "finding access key")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.Secret), []byte(secret)); err != nil {
		return database.User{}, ErrInvalidAccessKey
	}

	var user database.User
	if err := a.DB.Where("id = ?", key.UserID).First(&user).Error; err != nil {
		return database.User{}, pkgErrors.Wrap(err, "finding user")
	}

	t := a.Clock.Now()
	if err := a.DB.Model(&key).Update("last_used_at", &t).Error; err != nil {
		return database.User{}, pkgErrors.Wrap(err, "touching last_used_at")
	}

	return user, nil
}
