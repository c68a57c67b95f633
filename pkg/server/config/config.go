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

// Package config loads and validates the server configuration
package config

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/nickustinov/itsypad/pkg/dirs"
	"github.com/pkg/errors"
)

const (
	// AppEnvProduction represents an app environment for production.
	AppEnvProduction string = "PRODUCTION"
	// DBDriverSQLite stores data in a local SQLite file
	DBDriverSQLite = "sqlite"
	// DBDriverPostgres stores data in a PostgreSQL database
	DBDriverPostgres = "postgres"
	// DefaultDBDir is the default directory name for Itsypad data
	DefaultDBDir = "itsypad"
	// DefaultDBFilename is the default database filename
	DefaultDBFilename = "server.db"
)

var (
	// DefaultDBPath is the default path to the SQLite database file
	DefaultDBPath = filepath.Join(dirs.DataHome, DefaultDBDir, DefaultDBFilename)
)

var (
	// ErrDBMissingPath is an error for an incomplete configuration missing the database path
	ErrDBMissingPath = errors.New("DB Path is empty")
	// ErrDBMissingDSN is an error for a postgres configuration missing the connection string
	ErrDBMissingDSN = errors.New("DB DSN is empty")
	// ErrDBDriverInvalid is an error for an unrecognized database driver
	ErrDBDriverInvalid = errors.New("Invalid DB driver")
	// ErrWebURLInvalid is an error for an incomplete configuration with invalid web url
	ErrWebURLInvalid = errors.New("Invalid WebURL")
	// ErrPortInvalid is an error for an incomplete configuration with invalid port
	ErrPortInvalid = errors.New("Invalid Port")
)

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

// Config is an application configuration
type Config struct {
	AppEnv   string
	WebURL   string
	Port     string
	DBDriver string
	DBPath   string
	DBDSN    string
	LogLevel string
}

// Params are the configuration parameters for creating a new Config
type Params struct {
	AppEnv   string
	Port     string
	WebURL   string
	DBDriver string
	DBPath   string
	DBDSN    string
	LogLevel string
}

// New constructs and returns a new validated config.
// Empty string params will fall back to a .env file, environment
// variables and defaults, in that order.
func New(p Params) (Config, error) {
	// A missing .env file is not an error; deployments commonly rely on
	// real environment variables instead.
	godotenv.Load()

	c := Config{
		AppEnv:   getOrEnv(p.AppEnv, "APP_ENV", AppEnvProduction),
		Port:     getOrEnv(p.Port, "PORT", "3001"),
		WebURL:   getOrEnv(p.WebURL, "WebURL", "http://localhost:3001"),
		DBDriver: getOrEnv(p.DBDriver, "DBDriver", DBDriverSQLite),
		DBPath:   getOrEnv(p.DBPath, "DBPath", DefaultDBPath),
		DBDSN:    getOrEnv(p.DBDSN, "DBDSN", ""),
		LogLevel: getOrEnv(p.LogLevel, "LOG_LEVEL", "info"),
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// IsProd checks if the app environment is configured to be production.
func (c Config) IsProd() bool {
	return c.AppEnv == AppEnvProduction
}

func validate(c Config) error {
	if _, err := url.ParseRequestURI(c.WebURL); err != nil {
		return errors.Wrapf(ErrWebURLInvalid, "'%s'", c.WebURL)
	}
	if c.Port == "" {
		return ErrPortInvalid
	}

	switch c.DBDriver {
	case DBDriverSQLite:
		if c.DBPath == "" {
			return ErrDBMissingPath
		}
	case DBDriverPostgres:
		if c.DBDSN == "" {
			return ErrDBMissingDSN
		}
	default:
		return errors.Wrapf(ErrDBDriverInvalid, "'%s'", c.DBDriver)
	}

	return nil
}
