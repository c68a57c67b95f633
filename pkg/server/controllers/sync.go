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
	"net/http"

	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/context"
	mw "github.com/nickustinov/itsypad/pkg/server/middleware"
	"github.com/pkg/errors"
)

// NewSync creates a new Sync controller
func NewSync(app *app.App) *Sync {
	return &Sync{
		app: app,
	}
}

// Sync is a sync controller
type Sync struct {
	app *app.App
}

// GetStateResp is the response for the sync state endpoint
type GetStateResp struct {
	MaxStamp    int64 `json:"max_stamp"`
	CurrentTime int64 `json:"current_time"`
}

// GetState handles GET /api/v1/sync/state. Clients also use it to verify
// an access key during login.
func (s *Sync) GetState(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		mw.RespondUnauthorized(w)
		return
	}

	fresh, err := s.app.GetUserByName(user.Name)
	if err != nil {
		mw.DoError(w, "getting user state", errors.Wrap(err, "finding user"), http.StatusInternalServerError)
		return
	}

	resp := GetStateResp{
		MaxStamp:    fresh.MaxStamp,
		CurrentTime: s.app.Clock.Now().UnixMilli(),
	}
	mw.RespondJSON(w, http.StatusOK, resp)
}
