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

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/buildinfo"
	"github.com/nickustinov/itsypad/pkg/server/config"
	"github.com/nickustinov/itsypad/pkg/server/controllers"
	"github.com/nickustinov/itsypad/pkg/server/database"
	"github.com/nickustinov/itsypad/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// expungedRetention is how long expunged records stay in the change feed
// before the daily prune removes them
const expungedRetention = 90 * 24 * time.Hour

// startJobs schedules the recurring maintenance jobs
func startJobs(a *app.App) *cron.Cron {
	c := cron.New()

	c.AddFunc("@daily", func() {
		pruned, err := a.PruneExpunged(expungedRetention)
		if err != nil {
			log.WithSystem("jobs").ErrorWrap(err, "pruning expunged records")
			return
		}

		log.WithSystem("jobs").WithFields(log.Fields{
			"count": pruned,
		}).Info("Pruned expunged records.")

		if err := database.Vacuum(a.DB); err != nil {
			log.WithSystem("jobs").ErrorWrap(err, "vacuuming database")
		}
	})

	c.Start()
	return c
}

func startCmd(args []string) {
	fs := setupFlagSet("start", "itsypad-server start")

	port := fs.String("port", "", "Server port (env: PORT, default: 3001)")
	webURL := fs.String("webUrl", "", "Full URL to server without trailing slash (env: WebURL, default: http://localhost:3001)")
	dbDriver := fs.String("dbDriver", "", "Database driver: sqlite or postgres (env: DBDriver, default: sqlite)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/itsypad/server.db)")
	dbDSN := fs.String("dbDSN", "", "PostgreSQL connection string (env: DBDSN)")
	logLevel := fs.String("logLevel", "", "Log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)")

	fs.Parse(args)

	cfg, err := config.New(config.Params{
		Port:     *port,
		WebURL:   *webURL,
		DBDriver: *dbDriver,
		DBPath:   *dbPath,
		DBDSN:    *dbDSN,
		LogLevel: *logLevel,
	})
	if err != nil {
		fmt.Printf("Error: %s\n\n", err)
		fs.Usage()
		os.Exit(1)
	}

	// Set log level
	log.SetLevel(cfg.LogLevel)

	a := initApp(cfg)
	defer func() {
		sqlDB, err := a.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}()

	// Start WAL checkpointing to prevent WAL file from growing unbounded.
	database.StartWALCheckpointing(a.DB, 5*time.Minute)

	jobs := startJobs(&a)
	defer jobs.Stop()

	ctl := controllers.New(&a)
	rc := controllers.RouteConfig{
		APIRoutes:   controllers.NewAPIRoutes(&a, ctl),
		Controllers: ctl,
	}

	r, err := controllers.NewRouter(&a, rc)
	if err != nil {
		panic(errors.Wrap(err, "initializing router"))
	}

	log.WithFields(log.Fields{
		"version": buildinfo.Version,
		"port":    cfg.Port,
	}).Info("Itsypad server starting")

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.ErrorWrap(err, "server failed")
		os.Exit(1)
	}
}
