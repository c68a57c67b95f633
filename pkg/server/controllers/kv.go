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

	"github.com/gorilla/mux"
	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/context"
	mw "github.com/nickustinov/itsypad/pkg/server/middleware"
	"github.com/pkg/errors"
)

// maxBlobSize caps the size of a single blob upload
const maxBlobSize = 4 << 20

// NewKV creates a new KV controller
func NewKV(app *app.App) *KV {
	return &KV{
		app: app,
	}
}

// KV is a controller for opaque per-user blobs
type KV struct {
	app *app.App
}

// Get handles GET /api/v1/kv/{key}
func (c *KV) Get(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	key := mux.Vars(r)["key"]

	blob, found, err := c.app.GetBlob(*user, key)
	if err != nil {
		mw.DoError(w, "getting blob", err, http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	// blob values are JSON documents produced by the clients
	w.Header().Set("Content-Type", "application/json")
	w.Write(blob.Value)
}

// Put handles PUT /api/v1/kv/{key}
func (c *KV) Put(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	key := mux.Vars(r)["key"]

	value, err := io.ReadAll(io.LimitReader(r.Body, maxBlobSize))
	if err != nil {
		mw.DoError(w, "reading request body", err, http.StatusInternalServerError)
		return
	}

	if err := c.app.PutBlob(*user, key, value); err != nil {
		mw.DoError(w, "putting blob", err, http.StatusInternalServerError)
		return
	}

	mw.RespondJSON(w, http.StatusOK, struct{}{})
}

// Delete handles DELETE /api/v1/kv/{key}
func (c *KV) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	key := mux.Vars(r)["key"]

	err := c.app.DeleteBlob(*user, key)
	if errors.Is(err, app.ErrNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	} else if err != nil {
		mw.DoError(w, "deleting blob", err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
