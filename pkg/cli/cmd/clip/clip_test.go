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

package clip

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/cli/config"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/document"
)

func newPublishCtx(t *testing.T, transportName string, handler http.Handler) context.PadCtx {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ctx := context.InitTestCtx(t)
	ctx.APIEndpoint = server.URL
	ctx.SessionKey = "testkey000000001.testsecret"
	ctx.Version = "0.1.0"
	ctx.HTTPClient = server.Client()

	if err := config.Write(ctx, config.Config{SyncTransport: transportName}); err != nil {
		t.Fatal(err)
	}

	return ctx
}

func TestPublish_recordTransport(t *testing.T) {
	var mu sync.Mutex
	var requests []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()

		if strings.HasPrefix(r.URL.Path, "/api/v1/kv/") {
			t.Errorf("unexpected blob request %s %s", r.Method, r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"stamp": 1})
	})

	ctx := newPublishCtx(t, config.TransportRecord, handler)

	doc, err := document.New(ctx.Clock, document.KindClip, "", "redis-cli -h 10.0.0.4")
	if err != nil {
		t.Fatal(err)
	}

	publish(ctx, doc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(requests), 1, "request count mismatch")
	assert.Equal(t, requests[0], "PUT /api/v1/records/clip/"+doc.UUID, "request mismatch")
}

func TestPublish_blobTransport(t *testing.T) {
	var mu sync.Mutex
	var uploaded []document.Document

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/kv/clipboard") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		switch r.Method {
		case "GET":
			http.Error(w, "not found", http.StatusNotFound)
		case "PUT":
			var docs []document.Document
			if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
				t.Error(err)
			}
			mu.Lock()
			uploaded = docs
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{}"))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	ctx := newPublishCtx(t, config.TransportBlob, handler)

	doc, err := document.New(ctx.Clock, document.KindClip, "", "copied text")
	if err != nil {
		t.Fatal(err)
	}

	publish(ctx, doc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(uploaded), 1, "uploaded count mismatch")
	assert.Equal(t, uploaded[0].Body, "copied text", "uploaded body mismatch")
}
