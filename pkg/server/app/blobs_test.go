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
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/nickustinov/itsypad/pkg/server/testutils"
)

func TestPutBlob(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	if err := a.PutBlob(user, "store/tab", []byte(`{"documents":{}}`)); err != nil {
		t.Fatal(err)
	}

	blob, found, err := a.GetBlob(user, "store/tab")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, found, true, "blob should be found")
	assert.Equal(t, string(blob.Value), `{"documents":{}}`, "value mismatch")

	// Overwrite replaces the value in place
	if err := a.PutBlob(user, "store/tab", []byte(`{"documents":{"a":1}}`)); err != nil {
		t.Fatal(err)
	}

	blob, found, err = a.GetBlob(user, "store/tab")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, found, true, "blob should be found")
	assert.Equal(t, string(blob.Value), `{"documents":{"a":1}}`, "value mismatch")

	var count int64
	testutils.MustExec(t, db.Model(database.Blob{}).Count(&count), "counting blobs")
	assert.Equal(t, count, int64(1), "blob count mismatch")
}

func TestGetBlob_missing(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	_, found, err := a.GetBlob(user, "store/clip")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, found, false, "blob should not be found")
}

func TestBlob_scopedToUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	alice := testutils.SetupUserData(db, "alice")
	bob := testutils.SetupUserData(db, "bob")

	a := App{DB: db, Clock: clock.NewMock()}

	if err := a.PutBlob(alice, "store/tab", []byte("alice data")); err != nil {
		t.Fatal(err)
	}
	if err := a.PutBlob(bob, "store/tab", []byte("bob data")); err != nil {
		t.Fatal(err)
	}

	blob, found, err := a.GetBlob(bob, "store/tab")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, found, true, "blob should be found")
	assert.Equal(t, string(blob.Value), "bob data", "value mismatch")
}

func TestDeleteBlob(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	if err := a.PutBlob(user, "store/tab", []byte("data")); err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteBlob(user, "store/tab"); err != nil {
		t.Fatal(err)
	}

	_, found, err := a.GetBlob(user, "store/tab")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, found, false, "blob should be gone")

	err = a.DeleteBlob(user, "store/tab")
	assert.Equal(t, err, ErrNotFound, "error mismatch")
}
