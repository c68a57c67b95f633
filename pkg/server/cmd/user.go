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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickustinov/itsypad/pkg/server/app"
	"github.com/nickustinov/itsypad/pkg/server/log"
	"github.com/pkg/errors"
)

// confirm prompts for user input to confirm a choice
func confirm(r io.Reader, question string) (bool, error) {
	fmt.Printf("%s (y/N): ", question)

	reader := bufio.NewReader(r)
	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "reading stdin")
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes", nil
}

func userCreateCmd(args []string) {
	fs := setupFlagSet("create", "itsypad-server user create")

	name := fs.String("name", "", "User name (required)")
	label := fs.String("label", "", "Label for the initial access key (e.g. the device name)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/itsypad/server.db)")

	fs.Parse(args)

	requireString(fs, *name, "name")

	a, cleanup := setupAppWithDB(fs, *dbPath)
	defer cleanup()

	user, err := a.CreateUser(*name)
	if err != nil {
		log.ErrorWrap(err, "creating user")
		os.Exit(1)
	}

	key, err := a.CreateAccessKey(user, *label)
	if err != nil {
		log.ErrorWrap(err, "creating access key")
		os.Exit(1)
	}

	fmt.Printf("User created successfully\n")
	fmt.Printf("Name: %s\n", *name)
	fmt.Printf("Access key (shown only once): %s\n", key)
}

func userKeyCmd(args []string) {
	fs := setupFlagSet("key", "itsypad-server user key")

	name := fs.String("name", "", "User name (required)")
	label := fs.String("label", "", "Label for the access key (e.g. the device name)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/itsypad/server.db)")

	fs.Parse(args)

	requireString(fs, *name, "name")

	a, cleanup := setupAppWithDB(fs, *dbPath)
	defer cleanup()

	user, err := a.GetUserByName(*name)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			fmt.Printf("Error: user %s not found\n", *name)
		} else {
			log.ErrorWrap(err, "finding user")
		}
		os.Exit(1)
	}

	key, err := a.CreateAccessKey(user, *label)
	if err != nil {
		log.ErrorWrap(err, "creating access key")
		os.Exit(1)
	}

	fmt.Printf("Access key (shown only once): %s\n", key)
}

func userRemoveCmd(args []string, stdin io.Reader) {
	fs := setupFlagSet("remove", "itsypad-server user remove")

	name := fs.String("name", "", "User name (required)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/itsypad/server.db)")

	fs.Parse(args)

	requireString(fs, *name, "name")

	a, cleanup := setupAppWithDB(fs, *dbPath)
	defer cleanup()

	// Check if user exists first
	if _, err := a.GetUserByName(*name); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			fmt.Printf("Error: user %s not found\n", *name)
		} else {
			log.ErrorWrap(err, "finding user")
		}
		os.Exit(1)
	}

	// Show confirmation prompt
	ok, err := confirm(stdin, fmt.Sprintf("Remove user %s and all of their data?", *name))
	if err != nil {
		log.ErrorWrap(err, "getting confirmation")
		os.Exit(1)
	}
	if !ok {
		fmt.Println("Aborted by user")
		os.Exit(0)
	}

	if err := a.RemoveUser(*name); err != nil {
		log.ErrorWrap(err, "removing user")
		os.Exit(1)
	}

	fmt.Printf("User removed successfully\n")
	fmt.Printf("Name: %s\n", *name)
}

func userCmd(args []string, stdin io.Reader) {
	if len(args) < 1 {
		fmt.Println(`Usage:
  itsypad-server user [command]

Available commands:
  create: Create a new user with an initial access key
  key: Issue a new access key for a user
  remove: Remove a user and all of their data`)
		os.Exit(1)
	}

	subcommand := args[0]
	subArgs := []string{}
	if len(args) > 1 {
		subArgs = args[1:]
	}

	switch subcommand {
	case "create":
		userCreateCmd(subArgs)
	case "key":
		userKeyCmd(subArgs)
	case "remove":
		userRemoveCmd(subArgs, stdin)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		fmt.Println(`Available commands:
  create: Create a new user with an initial access key
  key: Issue a new access key for a user
  remove: Remove a user and all of their data`)
		os.Exit(1)
	}
}
