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

package add

import (
	"os"

	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/output"
	"github.com/nickustinov/itsypad/pkg/cli/ui"
	"github.com/nickustinov/itsypad/pkg/cli/upgrade"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var contentFlag string
var languageFlag string
var fileFlag string

var example = `
 * Open an editor to write content
 itsypad add scratch

 * Skip the editor by providing content directly
 itsypad add todo -c "renew the domain"

 * Send stdin content to a tab
 echo "select * from users" | itsypad add queries --language sql

 * Mirror an external file; file-bound tabs stay local
 itsypad add notes --file ~/notes.txt`

// NewCmd returns a new add command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add [name]",
		Short:   "Add a new tab",
		Aliases: []string{"a", "new"},
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "the content for the tab")
	f.StringVarP(&languageFlag, "language", "l", "", "the syntax highlighting tag")
	f.StringVarP(&fileFlag, "file", "f", "", "bind the tab to an external file")

	return cmd
}

func getContent(ctx context.PadCtx) (string, error) {
	if contentFlag != "" {
		return contentFlag, nil
	}

	// check for piped content
	fInfo, _ := os.Stdin.Stat()
	if fInfo.Mode()&os.ModeCharDevice == 0 {
		c, err := ui.ReadStdInput()
		if err != nil {
			return "", errors.Wrap(err, "Failed to get piped input")
		}
		return c, nil
	}

	fpath, err := ui.GetTmpContentPath(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting temporarily content file path")
	}

	c, err := ui.GetEditorInput(ctx, fpath)
	if err != nil {
		return "", errors.Wrap(err, "Failed to get editor input")
	}

	return c, nil
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}

		var content string
		if fileFlag != "" {
			b, err := os.ReadFile(fileFlag)
			if err != nil {
				return errors.Wrapf(err, "reading the bound file %s", fileFlag)
			}
			content = string(b)
		} else {
			c, err := getContent(ctx)
			if err != nil {
				return errors.Wrap(err, "getting content")
			}
			content = c
		}

		doc, err := document.New(ctx.Clock, document.KindTab, name, content)
		if err != nil {
			return errors.Wrap(err, "creating the tab")
		}
		doc.Language = languageFlag
		doc.FilePath = fileFlag

		if err := database.InsertDocument(ctx.DB, doc); err != nil {
			return errors.Wrap(err, "Failed to write tab")
		}

		log.Successf("added %s\n", doc.UUID)
		output.TabInfo(doc)

		if err := upgrade.Check(ctx); err != nil {
			log.Error(errors.Wrap(err, "automatically checking updates").Error())
		}

		return nil
	}
}
