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

package sync

import (
	gocontext "context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nickustinov/itsypad/pkg/cli/client"
	"github.com/nickustinov/itsypad/pkg/cli/config"
	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/upgrade"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var fullFlag bool
var watchFlag bool
var disableFlag bool
var transportFlag string

var example = `
 * Run a single sync pass
 itsypad sync

 * Discard local sync cursors and refetch everything
 itsypad sync --full

 * Keep syncing in the background, refreshing file-bound tabs
 itsypad sync --watch

 * Wipe the remote copies and stop syncing
 itsypad sync --disable

 * Switch the remote shape
 itsypad sync --transport record`

// NewCmd returns a new sync command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Short:   "Sync tabs and clipboard with the server",
		Aliases: []string{"s"},
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&fullFlag, "full", false, "refetch the full remote state")
	f.BoolVarP(&watchFlag, "watch", "w", false, "keep syncing until interrupted")
	f.BoolVar(&disableFlag, "disable", false, "wipe the remote copies and stop syncing")
	f.StringVar(&transportFlag, "transport", "", "the remote shape to sync against (blob or record)")

	return cmd
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if ctx.SessionKey == "" {
			log.Error("not logged in\n")
			return nil
		}

		cf, err := config.Read(ctx)
		if err != nil {
			return errors.Wrap(err, "reading config")
		}

		if transportFlag != "" {
			if transportFlag != config.TransportBlob && transportFlag != config.TransportRecord {
				return errors.Errorf("unknown transport %s", transportFlag)
			}
			cf.SyncTransport = transportFlag
			if err := config.Write(ctx, cf); err != nil {
				return errors.Wrap(err, "saving transport choice")
			}
		}

		if disableFlag {
			return disable(ctx, cf)
		}

		s, stores, err := infra.NewSyncer(ctx, cf)
		if err != nil {
			return errors.Wrap(err, "building the syncer")
		}
		watchOverwrites(stores[document.KindTab])

		if err := database.UpsertSystem(ctx.DB, consts.SystemSyncEnabled, "1"); err != nil {
			return errors.Wrap(err, "recording sync state")
		}

		if watchFlag {
			return watch(ctx, s, stores)
		}

		log.Infof("syncing\n")

		if fullFlag {
			err = s.SyncFull(gocontext.Background())
		} else {
			err = s.SyncNow(gocontext.Background())
		}
		if err != nil {
			return errors.Wrap(err, "syncing")
		}

		if err := recordSyncTime(ctx); err != nil {
			return errors.Wrap(err, "recording sync time")
		}

		log.Success("done\n")

		if err := upgrade.Check(ctx); err != nil {
			log.Error(errors.Wrap(err, "automatically checking updates").Error())
		}

		return nil
	}
}

func disable(ctx context.PadCtx, cf config.Config) error {
	transport, err := infra.NewTransport(ctx, cf.SyncTransport)
	if err != nil {
		return errors.Wrap(err, "building transport")
	}

	for _, kind := range document.Kinds {
		if err := transport.Clear(gocontext.Background(), kind); err != nil {
			return errors.Wrapf(err, "wiping remote %s data", kind)
		}
	}

	if err := database.UpsertSystem(ctx.DB, consts.SystemSyncEnabled, "0"); err != nil {
		return errors.Wrap(err, "recording sync state")
	}

	log.Success("sync disabled and remote copies wiped\n")

	return nil
}

func recordSyncTime(ctx context.PadCtx) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	return database.UpsertSystem(ctx.DB, consts.SystemLastSyncAt, now)
}

// remotePollEvery is the spacing of sync-state polls in watch mode. The
// poll is a cheap max-stamp read, so it runs much tighter than full passes.
const remotePollEvery = 30 * time.Second

// watch keeps the scheduler running until interrupted, refreshing
// file-bound tabs from disk as their files change
func watch(ctx context.PadCtx, s *syncer.Syncer, stores map[document.Kind]*document.Store) error {
	runCtx, cancel := signal.NotifyContext(gocontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tabs := stores[document.KindTab]

	// refreshed bodies flow through the syncer so the store mutation is
	// serialized with sync passes
	fw := document.NewFileWatcher(ctx.Clock, time.Second, func(doc document.Document) {
		s.RecordChanged(document.KindTab, doc)
		if err := database.UpdateDocument(ctx.DB, doc); err != nil {
			log.Errorf("saving refreshed tab: %v\n", err)
		}
	}, func(err error) {
		log.Debug("watching bound files: %v\n", err)
	})

	for _, doc := range tabs.List() {
		if doc.FilePath != "" {
			if err := fw.Add(doc); err != nil {
				log.Errorf("watching %s: %v\n", doc.FilePath, err)
			}
		}
	}

	go fw.Run(runCtx)
	go pollRemote(runCtx, ctx, s)

	s.Enable(runCtx)
	log.Infof("watching for changes\n")

	s.Run(runCtx)

	s.FlushPending()

	if err := recordSyncTime(ctx); err != nil {
		return errors.Wrap(err, "recording sync time")
	}

	log.Success("stopped\n")

	return nil
}

// pollRemote reads the server's sync state and triggers a pass whenever
// the max stamp moves past the last one seen. Poll failures are transient
// by assumption and only logged.
func pollRemote(runCtx gocontext.Context, ctx context.PadCtx, s *syncer.Syncer) {
	ticker := time.NewTicker(remotePollEvery)
	defer ticker.Stop()

	var lastStamp int64 = -1

	for {
		select {
		case <-runCtx.Done():
			return
		case <-ticker.C:
			state, err := client.GetSyncState(ctx)
			if err != nil {
				log.Debug("checking sync state: %v\n", err)
				continue
			}

			if lastStamp >= 0 && state.MaxStamp > lastStamp {
				for _, kind := range document.Kinds {
					s.RemoteChanged(runCtx, kind)
				}
			}
			lastStamp = state.MaxStamp
		}
	}
}
