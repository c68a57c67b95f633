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
	"time"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/nickustinov/itsypad/pkg/server/testutils"
)

func TestWriteRecord_create(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{
		UUID:         testutils.MustUUID(t),
		Kind:         document.KindTab,
		Name:         "notes",
		Language:     "markdown",
		Body:         "scratch content",
		LastModified: 1700000000100,
	}

	record, conflict, err := a.WriteRecord(user, "tab", doc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if conflict != nil {
		t.Fatalf("Unexpected conflict: %+v", conflict)
	}

	assert.Equal(t, record.Stamp, int64(1), "stamp mismatch")
	assert.Equal(t, record.Name, "notes", "name mismatch")
	assert.Equal(t, record.Body, "scratch content", "body mismatch")

	var userRecord database.User
	testutils.MustExec(t, db.Where("id = ?", user.ID).First(&userRecord), "finding user")
	assert.Equal(t, userRecord.MaxStamp, int64(1), "user max_stamp mismatch")
}

func TestWriteRecord_update(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{
		UUID:         testutils.MustUUID(t),
		Kind:         document.KindTab,
		Name:         "draft",
		Body:         "v1",
		LastModified: 1700000000100,
	}
	first, _, err := a.WriteRecord(user, "tab", doc, 0)
	if err != nil {
		t.Fatal(err)
	}

	doc.Body = "v2"
	doc.LastModified = 1700000000200
	second, conflict, err := a.WriteRecord(user, "tab", doc, first.Stamp)
	if err != nil {
		t.Fatal(err)
	}
	if conflict != nil {
		t.Fatalf("Unexpected conflict: %+v", conflict)
	}

	assert.Equal(t, second.Stamp, int64(2), "stamp mismatch")
	assert.Equal(t, second.Body, "v2", "body mismatch")

	var count int64
	testutils.MustExec(t, db.Model(database.Record{}).Count(&count), "counting records")
	assert.Equal(t, count, int64(1), "record count mismatch")
}

func TestWriteRecord_conflict(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{
		UUID:         testutils.MustUUID(t),
		Kind:         document.KindTab,
		Name:         "draft",
		Body:         "server version",
		LastModified: 1700000000100,
	}
	current, _, err := a.WriteRecord(user, "tab", doc, 0)
	if err != nil {
		t.Fatal(err)
	}

	doc.Body = "stale client version"
	_, conflict, err := a.WriteRecord(user, "tab", doc, current.Stamp-1)
	if err != nil {
		t.Fatal(err)
	}
	if conflict == nil {
		t.Fatal("Expected a conflict")
	}

	assert.Equal(t, conflict.Stamp, current.Stamp, "conflict stamp mismatch")
	assert.Equal(t, conflict.Body, "server version", "conflict body mismatch")

	var userRecord database.User
	testutils.MustExec(t, db.Where("id = ?", user.ID).First(&userRecord), "finding user")
	assert.Equal(t, userRecord.MaxStamp, int64(1), "max_stamp should not move on conflict")
}

func TestWriteRecord_invalidKind(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{UUID: testutils.MustUUID(t)}
	_, _, err := a.WriteRecord(user, "note", doc, 0)
	assert.Equal(t, err, ErrInvalidKind, "error mismatch")
}

func TestDeleteRecord(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	c := clock.NewMock()
	c.SetNow(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	a := App{DB: db, Clock: c}

	doc := document.Document{
		UUID:         testutils.MustUUID(t),
		Kind:         document.KindClip,
		Body:         "copied text",
		LastModified: 1700000000100,
	}
	if _, _, err := a.WriteRecord(user, "clip", doc, 0); err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteRecord(user, "clip", doc.UUID); err != nil {
		t.Fatal(err)
	}

	var record database.Record
	testutils.MustExec(t, db.Where("uuid = ?", doc.UUID).First(&record), "finding record")
	assert.Equal(t, record.Expunged, true, "record should be expunged")
	assert.Equal(t, record.Body, "", "body should be cleared")
	assert.Equal(t, record.Stamp, int64(2), "stamp mismatch")
	if record.ExpungedAt == nil {
		t.Fatal("expunged_at should be set")
	}
}

func TestDeleteRecord_notFound(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	err := a.DeleteRecord(user, "clip", testutils.MustUUID(t))
	assert.Equal(t, err, ErrNotFound, "error mismatch")
}

func TestGetRecordChanges(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc1 := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindTab, Name: "one", Body: "a", LastModified: 1}
	doc2 := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindTab, Name: "two", Body: "b", LastModified: 2}
	doc3 := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindClip, Body: "c", LastModified: 3}

	if _, _, err := a.WriteRecord(user, "tab", doc1, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.WriteRecord(user, "tab", doc2, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.WriteRecord(user, "clip", doc3, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.DeleteRecord(user, "tab", doc1.UUID); err != nil {
		t.Fatal(err)
	}

	live, expunged, maxStamp, err := a.GetRecordChanges(user, "tab", 0)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(live), 1, "live count mismatch")
	assert.Equal(t, live[0].UUID, doc2.UUID, "live uuid mismatch")
	assert.DeepEqual(t, expunged, []string{doc1.UUID}, "expunged mismatch")
	assert.Equal(t, maxStamp, int64(4), "max_stamp mismatch")

	// A device that already saw everything gets an empty feed
	live, expunged, maxStamp, err = a.GetRecordChanges(user, "tab", maxStamp)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(live), 0, "live should be empty")
	assert.Equal(t, len(expunged), 0, "expunged should be empty")
	assert.Equal(t, maxStamp, int64(4), "max_stamp mismatch")
}

func TestGetRecordChanges_scopedToUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	alice := testutils.SetupUserData(db, "alice")
	bob := testutils.SetupUserData(db, "bob")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindTab, Name: "mine", Body: "x", LastModified: 1}
	if _, _, err := a.WriteRecord(alice, "tab", doc, 0); err != nil {
		t.Fatal(err)
	}

	live, expunged, maxStamp, err := a.GetRecordChanges(bob, "tab", 0)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(live), 0, "bob should see no records")
	assert.Equal(t, len(expunged), 0, "bob should see no expunged records")
	assert.Equal(t, maxStamp, int64(0), "bob max_stamp mismatch")
}

func TestWipeRecords(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc1 := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindTab, Name: "one", Body: "a", LastModified: 1}
	doc2 := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindClip, Body: "b", LastModified: 2}
	if _, _, err := a.WriteRecord(user, "tab", doc1, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.WriteRecord(user, "clip", doc2, 0); err != nil {
		t.Fatal(err)
	}

	if err := a.WipeRecords(user, "tab"); err != nil {
		t.Fatal(err)
	}

	var tabCount, clipCount int64
	testutils.MustExec(t, db.Model(database.Record{}).Where("kind = ?", "tab").Count(&tabCount), "counting tabs")
	testutils.MustExec(t, db.Model(database.Record{}).Where("kind = ?", "clip").Count(&clipCount), "counting clips")
	assert.Equal(t, tabCount, int64(0), "tab records should be gone")
	assert.Equal(t, clipCount, int64(1), "clip records should remain")
}

func TestPruneExpunged(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	c := clock.NewMock()
	c.SetNow(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	a := App{DB: db, Clock: c}

	oldDoc := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindClip, Body: "old", LastModified: 1}
	newDoc := document.Document{UUID: testutils.MustUUID(t), Kind: document.KindClip, Body: "new", LastModified: 2}
	if _, _, err := a.WriteRecord(user, "clip", oldDoc, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.WriteRecord(user, "clip", newDoc, 0); err != nil {
		t.Fatal(err)
	}

	if err := a.DeleteRecord(user, "clip", oldDoc.UUID); err != nil {
		t.Fatal(err)
	}
	c.Advance(100 * 24 * time.Hour)
	if err := a.DeleteRecord(user, "clip", newDoc.UUID); err != nil {
		t.Fatal(err)
	}

	pruned, err := a.PruneExpunged(90 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pruned, int64(1), "pruned count mismatch")

	var count int64
	testutils.MustExec(t, db.Model(database.Record{}).Count(&count), "counting records")
	assert.Equal(t, count, int64(1), "record count mismatch")

	var remaining database.Record
	testutils.MustExec(t, db.First(&remaining), "finding remaining record")
	assert.Equal(t, remaining.UUID, newDoc.UUID, "wrong record pruned")
}

func TestWriteRecord_identicalContent(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")

	a := App{DB: db, Clock: clock.NewMock()}

	doc := document.Document{
		UUID:         testutils.MustUUID(t),
		Kind:         document.KindTab,
		Name:         "notes",
		Body:         "unchanged content",
		LastModified: 1700000000100,
	}
	first, _, err := a.WriteRecord(user, "tab", doc, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Re-pushing identical content keeps the stamp, so other devices'
	// cursors stay valid
	second, conflict, err := a.WriteRecord(user, "tab", doc, first.Stamp)
	if err != nil {
		t.Fatal(err)
	}
	if conflict != nil {
		t.Fatalf("Unexpected conflict: %+v", conflict)
	}

	assert.Equal(t, second.Stamp, first.Stamp, "stamp should not move")

	var userRecord database.User
	testutils.MustExec(t, db.Where("id = ?", user.ID).First(&userRecord), "finding user")
	assert.Equal(t, userRecord.MaxStamp, first.Stamp, "user max_stamp should not move")
}
