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
	"os"
	"path/filepath"
	"time"

	"github.com/nickustinov/itsypad/pkg/server/config"
	"github.com/nickustinov/itsypad/pkg/server/log"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitSchema migrates database schema to reflect the latest model definition
func InitSchema(db *gorm.DB) {
	if err := db.AutoMigrate(
		&User{},
		&AccessKey{},
		&Blob{},
		&Record{},
	); err != nil {
		panic(err)
	}
}

// Open initializes the database connection for the configured driver
func Open(cfg config.Config) *gorm.DB {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		if err != nil {
			panic(errors.Wrap(err, "opening postgres connection"))
		}
		return db
	default:
		return openSQLite(cfg.DBPath)
	}
}

func openSQLite(dbPath string) *gorm.DB {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(errors.Wrapf(err, "creating database directory at %s", dir))
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		panic(errors.Wrap(err, "opening database conection"))
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		panic(errors.Wrap(err, "enabling WAL mode"))
	}

	return db
}

// IsSQLite reports whether the connection uses the SQLite driver
func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// StartWALCheckpointing periodically truncates the SQLite WAL file so it
// does not grow unbounded. It is a no-op for other drivers.
func StartWALCheckpointing(db *gorm.DB, interval time.Duration) {
	if !IsSQLite(db) {
		return
	}

	go func() {
		for range time.Tick(interval) {
			if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
				log.ErrorWrap(err, "checkpointing WAL")
			}
		}
	}()
}

// Vacuum reclaims space and defragments the SQLite database file. It is a
// no-op for other drivers.
func Vacuum(db *gorm.DB) error {
	if !IsSQLite(db) {
		return nil
	}

	if err := db.Exec("VACUUM").Error; err != nil {
		return errors.Wrap(err, "vacuuming database")
	}

	return nil
}
