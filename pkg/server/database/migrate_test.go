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
	"io/fs"
	"testing"
	"testing/fstest"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	return db
}

// reversedFS returns directory entries in reverse order to exercise sorting
type reversedFS struct {
	fstest.MapFS
}

func (r reversedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := r.MapFS.ReadDir(name)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func TestValidateMigrationFilename(t *testing.T) {
	testCases := []struct {
		name string
		ok   bool
	}{
		{name: "001-records-feed-index.sql", ok: true},
		{name: "042-add-blob-index.sql", ok: true},
		{name: "001-records-feed-index.txt", ok: false},
		{name: "records-feed-index.sql", ok: false},
		{name: "1-records-feed-index.sql", ok: false},
		{name: "abc-records-feed-index.sql", ok: false},
		{name: "001-.sql", ok: false},
	}

	for _, tc := range testCases {
		err := validateMigrationFilename(tc.name)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestMigrate_createsSchemaTable(t *testing.T) {
	db := openTestDB(t)

	if err := migrate(db, fstest.MapFS{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM schema_migrations").Scan(&count).Error; err != nil {
		t.Fatalf("schema_migrations table not found: %v", err)
	}
}

func TestMigrate_appliesOnce(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("CREATE TABLE stamps (value INTEGER)").Error; err != nil {
		t.Fatalf("creating table: %v", err)
	}

	migrationsFs := fstest.MapFS{
		"001-seed-stamp.sql": &fstest.MapFile{
			Data: []byte("INSERT INTO stamps (value) VALUES (1);"),
		},
	}

	if err := migrate(db, migrationsFs); err != nil {
		t.Fatalf("first migration run: %v", err)
	}
	if err := migrate(db, migrationsFs); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM stamps").Scan(&count).Error; err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("migration applied %d times, expected 1", count)
	}
}

func TestMigrate_ordering(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("CREATE TABLE applied (version INTEGER)").Error; err != nil {
		t.Fatalf("creating table: %v", err)
	}

	// Directory listing order must not matter
	migrationsFs := reversedFS{fstest.MapFS{
		"001-first.sql":  &fstest.MapFile{Data: []byte("INSERT INTO applied (version) VALUES (1);")},
		"002-second.sql": &fstest.MapFile{Data: []byte("INSERT INTO applied (version) VALUES (2);")},
		"003-third.sql":  &fstest.MapFile{Data: []byte("INSERT INTO applied (version) VALUES (3);")},
	}}

	if err := migrate(db, migrationsFs); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	var versions []int
	if err := db.Raw("SELECT version FROM applied").Scan(&versions).Error; err != nil {
		t.Fatalf("reading applied versions: %v", err)
	}
	for i, v := range versions {
		if v != i+1 {
			t.Fatalf("migrations applied out of order: %v", versions)
		}
	}

	var current int
	if err := db.Raw("SELECT MAX(version) FROM schema_migrations").Scan(&current).Error; err != nil {
		t.Fatalf("reading schema version: %v", err)
	}
	if current != 3 {
		t.Errorf("schema version is %d, expected 3", current)
	}
}

func TestMigrate_duplicateVersion(t *testing.T) {
	db := openTestDB(t)

	migrationsFs := fstest.MapFS{
		"001-first.sql":  &fstest.MapFile{Data: []byte("SELECT 1;")},
		"001-second.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
	}

	if err := migrate(db, migrationsFs); err == nil {
		t.Fatal("expected an error for duplicate versions")
	}
}

func TestMigrate_emptyFile(t *testing.T) {
	db := openTestDB(t)

	migrationsFs := fstest.MapFS{
		"001-empty.sql": &fstest.MapFile{Data: []byte("  \n")},
	}

	if err := migrate(db, migrationsFs); err == nil {
		t.Fatal("expected an error for an empty migration file")
	}
}

func TestMigrate_invalidSQL(t *testing.T) {
	db := openTestDB(t)

	migrationsFs := fstest.MapFS{
		"001-broken.sql": &fstest.MapFile{Data: []byte("NOT VALID SQL;")},
	}

	if err := migrate(db, migrationsFs); err == nil {
		t.Fatal("expected an error for invalid SQL")
	}

	// The failed migration must not be recorded
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM schema_migrations").Scan(&count).Error; err != nil {
		t.Fatalf("reading schema_migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("failed migration was recorded")
	}
}

func TestMigrate_embedded(t *testing.T) {
	db := openTestDB(t)
	InitSchema(db)

	if err := Migrate(db); err != nil {
		t.Fatalf("running embedded migrations: %v", err)
	}

	// The feed index from 001 should exist
	var count int64
	err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_records_user_stamp'").Scan(&count).Error
	if err != nil {
		t.Fatalf("reading sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("idx_records_user_stamp index not found")
	}
}
