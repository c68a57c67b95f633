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

	"github.com/gorilla/mux"
	"github.com/nickustinov/itsypad/pkg/server/app"
	mw "github.com/nickustinov/itsypad/pkg/server/middleware"
	"github.com/pkg/errors"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns a new api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	return []Route{
		{"GET", "/v1/sync/state", mw.Auth(a, c.Sync.GetState), false},

		{"GET", "/v1/kv/{key}", mw.Auth(a, c.KV.Get), false},
		{"PUT", "/v1/kv/{key}", mw.Auth(a, c.KV.Put), false},
		{"DELETE", "/v1/kv/{key}", mw.Auth(a, c.KV.Delete), true},

		{"GET", "/v1/records", mw.Auth(a, c.Records.GetFeed), false},
		{"PUT", "/v1/records/{kind}/{uuid}", mw.Auth(a, c.Records.Put), false},
		{"DELETE", "/v1/records/{kind}/{uuid}", mw.Auth(a, c.Records.Delete), false},
		{"DELETE", "/v1/records", mw.Auth(a, c.Records.Wipe), true},
	}
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, app *app.App, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, app, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.APIMw, app, rc.APIRoutes)

	router.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET")

	router.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /"))
	})

	return mw.Global(router), nil
}
