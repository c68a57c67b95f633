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

package cat

import (
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/output"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var fullFlag bool

var example = `
 * Print the content of the second tab from itsypad ls
 itsypad cat 2

 * Print a tab with its metadata
 itsypad cat 2 --full`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new cat command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cat <tab>",
		Short:   "Print the content of a tab",
		Aliases: []string{"c"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&fullFlag, "full", false, "print the tab's metadata along with the content")

	return cmd
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		doc, err := database.FindDocument(ctx.DB, document.KindTab, args[0])
		if err != nil {
			return errors.Wrap(err, "finding the tab")
		}

		if fullFlag {
			output.TabInfo(doc)
		} else {
			output.TabContent(doc)
		}

		return nil
	}
}
