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

package config

import (
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/pkg/errors"
)

// clearEnv blanks the environment variables the config falls back to so
// tests are deterministic regardless of the host environment
func clearEnv(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "WebURL", "DBDriver", "DBPath", "DBDSN", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestNew_defaults(t *testing.T) {
	clearEnv(t)

	c, err := New(Params{})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, c.AppEnv, AppEnvProduction, "app env mismatch")
	assert.Equal(t, c.Port, "3001", "port mismatch")
	assert.Equal(t, c.WebURL, "http://localhost:3001", "web url mismatch")
	assert.Equal(t, c.DBDriver, DBDriverSQLite, "db driver mismatch")
	assert.Equal(t, c.DBPath, DefaultDBPath, "db path mismatch")
	assert.Equal(t, c.LogLevel, "info", "log level mismatch")
	assert.Equal(t, c.IsProd(), true, "should be production")
}

func TestNew_paramsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("DBPath", "/env/server.db")

	c, err := New(Params{Port: "5000"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, c.Port, "5000", "explicit param should win over env")
	assert.Equal(t, c.DBPath, "/env/server.db", "env should win over default")
}

func TestNew_postgres(t *testing.T) {
	clearEnv(t)

	c, err := New(Params{
		DBDriver: DBDriverPostgres,
		DBDSN:    "host=localhost user=itsypad dbname=itsypad",
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, c.DBDriver, DBDriverPostgres, "db driver mismatch")

	_, err = New(Params{DBDriver: DBDriverPostgres})
	assert.Equal(t, err, ErrDBMissingDSN, "error mismatch")
}

func TestNew_invalid(t *testing.T) {
	clearEnv(t)

	testCases := []struct {
		name     string
		params   Params
		expected error
	}{
		{
			name:     "unknown driver",
			params:   Params{DBDriver: "mysql"},
			expected: ErrDBDriverInvalid,
		},
		{
			name:     "invalid web url",
			params:   Params{WebURL: "not a url"},
			expected: ErrWebURLInvalid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.params)
			if !errors.Is(err, tc.expected) {
				t.Fatalf("got error %v, expected %v", err, tc.expected)
			}
		})
	}
}
