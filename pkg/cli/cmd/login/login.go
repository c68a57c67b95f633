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

package login

import (
	"net/url"

	"github.com/nickustinov/itsypad/pkg/cli/client"
	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewCmd returns a new login command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Connect this device to an itsypad server",
		RunE:  newRun(ctx),
	}

	return cmd
}

// getServerDisplayURL derives the server address to display from the
// configured api endpoint
func getServerDisplayURL(ctx context.PadCtx) string {
	u, err := url.Parse(ctx.APIEndpoint)
	if err != nil {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	ret := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
	}

	return ret.String()
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		displayURL := getServerDisplayURL(ctx)
		if displayURL != "" {
			log.Plainf("logging in to %s\n", displayURL)
		}

		var key string
		if err := ui.PromptPassword("access key", &key); err != nil {
			return errors.Wrap(err, "getting access key")
		}
		if key == "" {
			return errors.New("Empty access key")
		}

		// check the key by probing the sync state endpoint
		probeCtx := ctx
		probeCtx.SessionKey = key

		if _, err := client.GetSyncState(probeCtx); err != nil {
			if errors.Cause(err) == client.ErrInvalidLogin {
				log.Error("wrong access key\n")
				return nil
			}
			return errors.Wrap(err, "checking the access key")
		}

		if err := database.UpsertSystem(ctx.DB, consts.SystemSessionKey, key); err != nil {
			return errors.Wrap(err, "saving the access key")
		}

		log.Success("logged in\n")

		return nil
	}
}
