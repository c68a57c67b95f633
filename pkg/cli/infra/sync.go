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

package infra

import (
	"time"

	"github.com/nickustinov/itsypad/pkg/cli/client"
	"github.com/nickustinov/itsypad/pkg/cli/config"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/remote"
	"github.com/nickustinov/itsypad/pkg/syncer"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
)

const (
	// LocalTabCap is the max number of tabs kept locally
	LocalTabCap = 500
	// LocalClipCap is the max number of clipboard entries kept locally
	LocalClipCap = 100
)

// NewTransport builds the remote transport named in the config
func NewTransport(ctx context.PadCtx, transportName string) (remote.Transport, error) {
	switch transportName {
	case config.TransportBlob, "":
		return remote.NewBlobTransport(client.KV{Ctx: ctx}, log.Debug), nil
	case config.TransportRecord:
		stamps := database.Stamps{DB: ctx.DB}
		return remote.NewRecordTransport(client.Records{Ctx: ctx}, stamps, log.Debug), nil
	default:
		return nil, errors.Errorf("unknown sync transport %s", transportName)
	}
}

// LoadStores builds the in-memory document stores from the local snapshot
func LoadStores(ctx context.PadCtx) (map[document.Kind]*document.Store, error) {
	ret := map[document.Kind]*document.Store{
		document.KindTab:  document.NewStore(document.KindTab, LocalTabCap),
		document.KindClip: document.NewStore(document.KindClip, LocalClipCap),
	}

	for kind, store := range ret {
		docs, err := database.ListDocuments(ctx.DB, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s snapshot", kind)
		}

		for i := len(docs) - 1; i >= 0; i-- {
			store.Upsert(docs[i])
		}
	}

	return ret, nil
}

// LoadTombstones builds the per-kind deletion ledgers from the local snapshot
func LoadTombstones(ctx context.PadCtx) (map[document.Kind]tombstone.Set, error) {
	ret := map[document.Kind]tombstone.Set{}

	for _, kind := range document.Kinds {
		tombs, err := database.ListTombstones(ctx.DB, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s tombstones", kind)
		}
		ret[kind] = tombs
	}

	return ret, nil
}

// NewSyncer wires the stores, snapshot persistence and the configured
// transport into a sync scheduler
func NewSyncer(ctx context.PadCtx, cf config.Config) (*syncer.Syncer, map[document.Kind]*document.Store, error) {
	transport, err := NewTransport(ctx, cf.SyncTransport)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building transport")
	}

	stores, err := LoadStores(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading stores")
	}

	tombs, err := LoadTombstones(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading tombstones")
	}

	interval := time.Duration(cf.SyncIntervalMin) * time.Minute

	s := syncer.New(syncer.Config{
		Transport: transport,
		Persist:   database.Snapshot{DB: ctx.DB},
		Clock:     ctx.Clock,
		Interval:  interval,
		Logf:      log.Debug,
	}, stores, tombs)

	return s, stores, nil
}
