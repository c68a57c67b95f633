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

package rm

import (
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/ui"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var yesFlag bool

var example = `
 * Close the second tab from itsypad ls
 itsypad rm 2

 * Skip the confirmation
 itsypad rm 2 -y`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new rm command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <tab>",
		Short:   "Close a tab",
		Aliases: []string{"d", "close"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation")

	return cmd
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		doc, err := database.FindDocument(ctx.DB, document.KindTab, args[0])
		if err != nil {
			return errors.Wrap(err, "finding the tab")
		}

		if !yesFlag {
			name := doc.Name
			if name == "" {
				name = doc.UUID
			}

			ok, err := ui.Confirm("close tab "+name+"?", false)
			if err != nil {
				return errors.Wrap(err, "getting confirmation")
			}
			if !ok {
				log.Warnf("aborted\n")
				return nil
			}
		}

		if err := database.ExpungeDocument(ctx.DB, doc.UUID); err != nil {
			return errors.Wrap(err, "removing the tab")
		}

		// file-bound tabs never sync, so only syncable tabs leave a
		// tombstone behind
		if doc.Syncable() {
			if err := database.MarkTombstone(ctx.DB, document.KindTab, doc.UUID); err != nil {
				return errors.Wrap(err, "recording the deletion")
			}
		}

		log.Successf("closed %s\n", doc.UUID)

		return nil
	}
}
