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
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// User is a model for a user. A user owns the documents synced from all of
// their devices.
type User struct {
	Model
	UUID     string `json:"uuid" gorm:"type:text;index"`
	Name     string `json:"name" gorm:"uniqueIndex"`
	MaxStamp int64  `json:"-" gorm:"default:0"`
}

// AccessKey is a credential for a device. The full key is shown once at
// creation and only its bcrypt hash is stored.
type AccessKey struct {
	Model
	UserID     int    `gorm:"index"`
	KeyID      string `gorm:"uniqueIndex"`
	Secret     string `json:"-"`
	Label      string
	LastUsedAt *time.Time
}

// Blob is an opaque snapshot value stored under a per-user key
type Blob struct {
	Model
	UserID int    `gorm:"index;uniqueIndex:idx_blobs_user_key"`
	Key    string `gorm:"uniqueIndex:idx_blobs_user_key"`
	Value  []byte
}

// Record is a single synced document. Deleted documents stay as expunged
// rows so their removal propagates through the change feed before being
// pruned.
type Record struct {
	Model
	UserID       int    `json:"-" gorm:"index;uniqueIndex:idx_records_user_kind_uuid"`
	Kind         string `json:"kind" gorm:"uniqueIndex:idx_records_user_kind_uuid"`
	UUID         string `json:"uuid" gorm:"type:text;uniqueIndex:idx_records_user_kind_uuid"`
	Name         string `json:"name"`
	Language     string `json:"language"`
	Body         string `json:"body"`
	LastModified int64  `json:"last_modified"`
	Stamp        int64  `json:"stamp" gorm:"index"`
	Expunged     bool   `json:"-" gorm:"default:false"`
	ExpungedAt   *time.Time `json:"-"`
}
