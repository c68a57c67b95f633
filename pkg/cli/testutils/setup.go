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

package testutils

import (
	"testing"

	"github.com/nickustinov/itsypad/pkg/cli/database"
)

// SetupTabs seeds the database with two scratch tabs
func SetupTabs(t *testing.T, db *database.DB) {
	database.MustExec(t, "setting up tab 1", db,
		"INSERT INTO documents (uuid, kind, name, language, body, last_modified) VALUES (?, ?, ?, ?, ?, ?)",
		"09c656fa-ab2a-4c6f-a5c6-1a7d9e8f3b21", "tab", "notes", "markdown", "buy milk", 1700000000100)
	database.MustExec(t, "setting up tab 2", db,
		"INSERT INTO documents (uuid, kind, name, language, body, last_modified) VALUES (?, ?, ?, ?, ?, ?)",
		"43827b9a-c2b0-4c06-a290-97991c896653", "tab", "draft", "", "hello world", 1700000000200)
}

// SetupClips seeds the database with two clipboard entries
func SetupClips(t *testing.T, db *database.DB) {
	database.MustExec(t, "setting up clip 1", db,
		"INSERT INTO documents (uuid, kind, body, last_modified) VALUES (?, ?, ?, ?)",
		"f0d0fbb7-31ff-45ae-9f0f-4e429c0c797f", "clip", "copied text one", 1700000000300)
	database.MustExec(t, "setting up clip 2", db,
		"INSERT INTO documents (uuid, kind, body, last_modified) VALUES (?, ?, ?, ?)",
		"3e065d55-6d47-42f2-a6bf-f5844130b2d2", "clip", "copied text two", 1700000000400)
}

// SetupBoundTab seeds the database with a tab bound to the given file path
func SetupBoundTab(t *testing.T, db *database.DB, filePath string) {
	database.MustExec(t, "setting up bound tab", db,
		"INSERT INTO documents (uuid, kind, name, body, file_path, last_modified) VALUES (?, ?, ?, ?, ?, ?)",
		"8f6eef9c-6b43-41a4-9644-cea6c96a8b61", "tab", "bound", "file body", filePath, 1700000000500)
}
