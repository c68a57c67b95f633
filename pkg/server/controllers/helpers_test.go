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
	"net/http/httptest"
	"testing"

	"github.com/nickustinov/itsypad/pkg/server/app"
)

// mustNewServer builds a full router for the app and serves it over a test
// server
func mustNewServer(t *testing.T, a *app.App) *httptest.Server {
	t.Setenv("APP_ENV", "TEST")

	c := New(a)
	rc := RouteConfig{
		Controllers: c,
		APIRoutes:   NewAPIRoutes(a, c),
	}

	handler, err := NewRouter(a, rc)
	if err != nil {
		t.Fatalf("building router: %s", err.Error())
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}
