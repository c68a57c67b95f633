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

// Package app provides the application logic behind its http handlers
package app

import (
	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrEmptyDB is an error for missing database connection in the app configuration
	ErrEmptyDB = errors.New("No database connection was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")

	// ErrNotFound is an error for a missing resource
	ErrNotFound = errors.New("not found")
	// ErrInvalidAccessKey is an error for a failed access key authentication
	ErrInvalidAccessKey = errors.New("invalid access key")
	// ErrUserNameRequired is an error for a user without a name
	ErrUserNameRequired = errors.New("user name is required")
	// ErrDuplicateUserName is an error for a user name that is already taken
	ErrDuplicateUserName = errors.New("user name is already taken")
	// ErrInvalidKind is an error for an unrecognized document kind
	ErrInvalidKind = errors.New("invalid document kind")
)

// App is an application context
type App struct {
	DB     *gorm.DB
	Clock  clock.Clock
	Port   string
	WebURL string
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.DB == nil {
		return ErrEmptyDB
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}

	return nil
}
