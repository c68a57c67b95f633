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

// Package middleware provides http middleware for the server
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/log"
)

// Middleware wraps a handler with cross-cutting behavior
type Middleware func(h http.HandlerFunc, a *app.App, rateLimit bool) http.Handler

// GetCredential extracts the access key from the Authorization header
func GetCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// DoError logs the error and responds with the given status code
func DoError(w http.ResponseWriter, msg string, err error, statusCode int) {
	log.WithSystem("api").WithFields(log.Fields{
		"statusCode": statusCode,
	}).ErrorWrap(err, msg)

	http.Error(w, http.StatusText(statusCode), statusCode)
}

// RespondUnauthorized responds with a 401
func RespondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="itsypad"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// RespondJSON writes the payload as a JSON response
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.ErrorWrap(err, "encoding JSON response")
	}
}

// logging logs the request
func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithSystem("api").WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"ip":     lookupIP(r),
		}).Debug("Incoming request")

		next.ServeHTTP(w, r)
	})
}

// recoverPanic responds with a 500 if the handler panics
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithSystem("api").WithFields(log.Fields{
					"path":  r.URL.Path,
					"panic": rec,
				}).Error("Recovered from panic")

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// APIMw is the middleware chain for API routes
func APIMw(h http.HandlerFunc, a *app.App, rateLimit bool) http.Handler {
	return logging(ApplyLimit(h, rateLimit))
}

// Global is the outermost middleware applied to the whole router
func Global(next http.Handler) http.Handler {
	return recoverPanic(next)
}
