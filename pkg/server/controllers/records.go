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
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/context"
	mw "github.com/nickustinov/itsypad/pkg/server/middleware"
	"github.com/nickustinov/itsypad/pkg/server/presenters"
	"github.com/pkg/errors"
)

// NewRecords creates a new Records controller
func NewRecords(app *app.App) *Records {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Records{
		app:     app,
		decoder: decoder,
	}
}

// Records is a controller for the record change feed
type Records struct {
	app     *app.App
	decoder *schema.Decoder
}

type feedQuery struct {
	Kind  string `schema:"kind"`
	After int64  `schema:"after"`
}

// GetFeed handles GET /api/v1/records
func (c *Records) GetFeed(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	var q feedQuery
	if err := c.decoder.Decode(&q, r.URL.Query()); err != nil {
		mw.DoError(w, "decoding feed query", err, http.StatusBadRequest)
		return
	}

	records, expunged, maxStamp, err := c.app.GetRecordChanges(*user, q.Kind, q.After)
	if errors.Is(err, app.ErrInvalidKind) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		mw.DoError(w, "getting record changes", err, http.StatusInternalServerError)
		return
	}

	mw.RespondJSON(w, http.StatusOK, presenters.PresentFeed(records, expunged, maxStamp))
}

type putRecordPayload struct {
	Doc       document.Document `json:"doc"`
	PrevStamp int64             `json:"prev_stamp"`
}

type putRecordResp struct {
	Stamp int64 `json:"stamp"`
}

// Put handles PUT /api/v1/records/{kind}/{uuid}
func (c *Records) Put(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	vars := mux.Vars(r)
	kind, uuid := vars["kind"], vars["uuid"]

	var payload putRecordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		mw.DoError(w, "decoding payload", err, http.StatusBadRequest)
		return
	}

	if payload.Doc.UUID != uuid {
		http.Error(w, "document uuid does not match the path", http.StatusBadRequest)
		return
	}

	record, conflict, err := c.app.WriteRecord(*user, kind, payload.Doc, payload.PrevStamp)
	if errors.Is(err, app.ErrInvalidKind) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		mw.DoError(w, "writing record", err, http.StatusInternalServerError)
		return
	}

	if conflict != nil {
		mw.RespondJSON(w, http.StatusConflict, presenters.PresentRecord(*conflict))
		return
	}

	mw.RespondJSON(w, http.StatusOK, putRecordResp{Stamp: record.Stamp})
}

// Delete handles DELETE /api/v1/records/{kind}/{uuid}
func (c *Records) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	vars := mux.Vars(r)
	kind, uuid := vars["kind"], vars["uuid"]

	err := c.app.DeleteRecord(*user, kind, uuid)
	if errors.Is(err, app.ErrNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	} else if errors.Is(err, app.ErrInvalidKind) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		mw.DoError(w, "deleting record", err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Wipe handles DELETE /api/v1/records
func (c *Records) Wipe(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	var q feedQuery
	if err := c.decoder.Decode(&q, r.URL.Query()); err != nil {
		mw.DoError(w, "decoding feed query", err, http.StatusBadRequest)
		return
	}

	err := c.app.WipeRecords(*user, q.Kind)
	if errors.Is(err, app.ErrInvalidKind) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if err != nil {
		mw.DoError(w, "wiping records", err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
