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
	"fmt"
	"strings"
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/nickustinov/itsypad/pkg/server/testutils"
)

func TestCreateUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	a := App{DB: db, Clock: clock.NewMock()}

	user, err := a.CreateUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, user.Name, "alice", "name mismatch")
	assert.Equal(t, user.MaxStamp, int64(0), "max_stamp mismatch")
	assert.NotEqual(t, user.UUID, "", "uuid should be set")

	var count int64
	testutils.MustExec(t, db.Model(database.User{}).Count(&count), "counting users")
	assert.Equal(t, count, int64(1), "user count mismatch")
}

func TestCreateUser_duplicateName(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	_, err := a.CreateUser("alice")
	assert.Equal(t, err, ErrDuplicateUserName, "error mismatch")

	var count int64
	testutils.MustExec(t, db.Model(database.User{}).Count(&count), "counting users")
	assert.Equal(t, count, int64(1), "user count mismatch")
}

func TestCreateUser_emptyName(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	a := App{DB: db, Clock: clock.NewMock()}

	_, err := a.CreateUser("")
	assert.Equal(t, err, ErrUserNameRequired, "error mismatch")
}

func TestGetUserByName(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	alice := testutils.SetupUserData(db, "alice")
	testutils.SetupUserData(db, "bob")

	a := App{DB: db, Clock: clock.NewMock()}

	user, err := a.GetUserByName("alice")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, user.ID, alice.ID, "user id mismatch")

	_, err = a.GetUserByName("carol")
	assert.Equal(t, err, ErrNotFound, "error mismatch")
}

func TestCreateAccessKey_authenticate(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	fullKey, err := a.CreateAccessKey(user, "laptop")
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.SplitN(fullKey, ".", 2)
	assert.Equal(t, len(parts), 2, "key format mismatch")
	assert.Equal(t, len(parts[0]), accessKeyIDBytes*2, "key id length mismatch")
	assert.Equal(t, len(parts[1]), accessKeySecretBytes*2, "secret length mismatch")

	// Only a hash of the secret is stored
	var key database.AccessKey
	testutils.MustExec(t, db.Where("user_id = ?", user.ID).First(&key), "finding access key")
	assert.Equal(t, key.Label, "laptop", "label mismatch")
	assert.NotEqual(t, key.Secret, parts[1], "secret must not be stored in plain text")
	if key.LastUsedAt != nil {
		t.Fatal("last_used_at should not be set before first use")
	}

	got, err := a.Authenticate(fullKey)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.ID, user.ID, "user id mismatch")

	testutils.MustExec(t, db.Where("user_id = ?", user.ID).First(&key), "finding access key")
	if key.LastUsedAt == nil {
		t.Fatal("last_used_at should be set after use")
	}
}

func TestAuthenticate_invalidKey(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	fullKey, err := a.CreateAccessKey(user, "laptop")
	if err != nil {
		t.Fatal(err)
	}
	keyID := strings.SplitN(fullKey, ".", 2)[0]

	testCases := []string{
		"",
		"garbage",
		fmt.Sprintf("%s.", keyID),
		fmt.Sprintf(".%s", "somesecret"),
		fmt.Sprintf("%s.%s", keyID, "wrongsecret"),
		fmt.Sprintf("%s.%s", "unknownkeyid", "somesecret"),
	}

	for _, tc := range testCases {
		_, err := a.Authenticate(tc)
		assert.Equal(t, err, ErrInvalidAccessKey, fmt.Sprintf("error mismatch for key %q", tc))
	}
}

func TestRemoveUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	alice := testutils.SetupUserData(db, "alice")
	bob := testutils.SetupUserData(db, "bob")
	testutils.SetupAccessKeyData(db, alice, "laptop")
	testutils.SetupAccessKeyData(db, bob, "desktop")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindTab, Name: "notes", Body: "x", LastModified: 1}
	if _, _, err := a.WriteRecord(alice, "tab", doc, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.PutBlob(alice, "store/tab", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	if err := a.RemoveUser("alice"); err != nil {
		t.Fatal(err)
	}

	var userCount, keyCount, recordCount, blobCount int64
	testutils.MustExec(t, db.Model(database.User{}).Count(&userCount), "counting users")
	testutils.MustExec(t, db.Model(database.AccessKey{}).Count(&keyCount), "counting access keys")
	testutils.MustExec(t, db.Model(database.Record{}).Count(&recordCount), "counting records")
	testutils.MustExec(t, db.Model(database.Blob{}).Count(&blobCount), "counting blobs")

	assert.Equal(t, userCount, int64(1), "user count mismatch")
	assert.Equal(t, keyCount, int64(1), "access key count mismatch")
	assert.Equal(t, recordCount, int64(0), "record count mismatch")
	assert.Equal(t, blobCount, int64(0), "blob count mismatch")

	var remaining database.User
	testutils.MustExec(t, db.First(&remaining), "finding remaining user")
	assert.Equal(t, remaining.Name, "bob", "wrong user removed")
}
