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

package middleware

import (
	"net/http"

	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/context"
	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/pkg/errors"
)

// AuthWithAccessKey performs user authentication with an access key from
// the Authorization header
func AuthWithAccessKey(a *app.App, r *http.Request) (database.User, bool, error) {
	credential := GetCredential(r)
	if credential == "" {
		return database.User{}, false, nil
	}

	user, err := a.Authenticate(credential)
	if errors.Is(err, app.ErrInvalidAccessKey) {
		return database.User{}, false, nil
	} else if err != nil {
		return database.User{}, false, errors.Wrap(err, "authenticating")
	}

	return user, true, nil
}

// Auth is an authentication middleware
func Auth(a *app.App, next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok, err := AuthWithAccessKey(a, r)
		if err != nil {
			DoError(w, "authenticating with access key", err, http.StatusInternalServerError)
			return
		}
		if !ok {
			RespondUnauthorized(w)
			return
		}

		ctx := context.WithUser(r.Context(), &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
