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

// Package consts provides definitions of constants
package consts

var (
	// ItsypadDirName is the name of the directory containing itsypad files
	ItsypadDirName = "itsypad"
	// ItsypadDBFileName is a filename for the itsypad SQLite database
	ItsypadDBFileName = "itsypad.db"
	// TmpContentFileBase is the base for the filename for a temporary content
	TmpContentFileBase = "ITSYPAD_TMPCONTENT"
	// TmpContentFileExt is the extension for the temporary content file
	TmpContentFileExt = "txt"
	// ConfigFilename is the name of the config file
	ConfigFilename = "itsypadrc"

	// SystemSchema is the key for schema in the system table
	SystemSchema = "schema"
	// SystemLastSyncAt is the timestamp of the server at the last sync
	SystemLastSyncAt = "last_sync_time"
	// SystemLastUpgrade is the timestamp at which the system most recently checked for an upgrade
	SystemLastUpgrade = "last_upgrade"
	// SystemSessionKey is the access key for the remote store
	SystemSessionKey = "session_token"
	// SystemSyncEnabled marks whether background sync is turned on
	SystemSyncEnabled = "sync_enabled"
	// SystemTabStamp is the last server change stamp seen for tabs
	SystemTabStamp = "tab_last_stamp"
	// SystemClipStamp is the last server change stamp seen for clipboard entries
	SystemClipStamp = "clip_last_stamp"
)
