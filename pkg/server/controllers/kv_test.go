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

package controllers

import (
	"io"
	"net/http"
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/testutils"
)

func TestKV(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice")
	accessKey := testutils.SetupAccessKeyData(db, user, "laptop")

	a := &app.App{DB: db, Clock: clock.NewMock()}
	server := mustNewServer(t, a)

	// Missing key
	req := testutils.MakeReq(server.URL, "GET", "/api/v1/kv/tabs", "")
	res := testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusNotFound, "get status code mismatch")

	// Put
	req = testutils.MakeReq(server.URL, "PUT", "/api/v1/kv/tabs", `{"09c656fa":{"uuid":"09c656fa"}}`)
	res = testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusOK, "put status code mismatch")

	// Get
	req = testutils.MakeReq(server.URL, "GET", "/api/v1/kv/tabs", "")
	res = testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusOK, "get status code mismatch")
	assert.Equal(t, res.Header.Get("Content-Type"), "application/json", "content type mismatch")

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, string(body), `{"09c656fa":{"uuid":"09c656fa"}}`, "body mismatch")

	// Delete
	req = testutils.MakeReq(server.URL, "DELETE", "/api/v1/kv/tabs", "")
	res = testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusNoContent, "delete status code mismatch")

	req = testutils.MakeReq(server.URL, "GET", "/api/v1/kv/tabs", "")
	res = testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusNotFound, "get after delete status code mismatch")

	// Deleting again reports not found
	req = testutils.MakeReq(server.URL, "DELETE", "/api/v1/kv/tabs", "")
	res = testutils.HTTPAuthDo(t, req, accessKey)
	assert.StatusCodeEquals(t, res, http.StatusNotFound, "second delete status code mismatch")
}

func TestKV_scopedToUser(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	alice := testutils.SetupUserData(db, "alice")
	bob := testutils.SetupUserData(db, "bob")
	aliceKey := testutils.SetupAccessKeyData(db, alice, "laptop")
	bobKey := testutils.SetupAccessKeyData(db, bob, "desktop")

	a := &app.App{DB: db, Clock: clock.NewMock()}
	server := mustNewServer(t, a)

	req := testutils.MakeReq(server.URL, "PUT", "/api/v1/kv/tabs", "alice data")
	res := testutils.HTTPAuthDo(t, req, aliceKey)
	assert.StatusCodeEquals(t, res, http.StatusOK, "put status code mismatch")

	req = testutils.MakeReq(server.URL, "GET", "/api/v1/kv/tabs", "")
	res = testutils.HTTPAuthDo(t, req, bobKey)
	assert.StatusCodeEquals(t, res, http.StatusNotFound, "bob should not see alice's blob")
}
