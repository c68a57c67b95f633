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

package edit

import (
	"os"
	"strings"

	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/output"
	"github.com/nickustinov/itsypad/pkg/cli/ui"
	"github.com/nickustinov/itsypad/pkg/cli/utils/diff"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var contentFlag string
var nameFlag string
var languageFlag string
var fileFlag string
var unbindFlag bool

var example = `
 * Edit a tab's content in the editor; tabs are numbered by itsypad ls
 itsypad edit 2

 * Rename a tab
 itsypad edit 2 --name queries

 * Bind the tab to an external file, or sever the binding
 itsypad edit 2 --file ~/notes.txt
 itsypad edit 2 --unbind`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new edit command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <tab>",
		Short:   "Edit a tab",
		Aliases: []string{"e"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "the new content for the tab")
	f.StringVarP(&nameFlag, "name", "n", "", "the new name for the tab")
	f.StringVarP(&languageFlag, "language", "l", "", "the new syntax highlighting tag")
	f.StringVarP(&fileFlag, "file", "f", "", "bind the tab to an external file")
	f.BoolVar(&unbindFlag, "unbind", false, "sever the tab's external file binding")

	return cmd
}

func getContent(ctx context.PadCtx, doc document.Document) (string, error) {
	if contentFlag != "" {
		return contentFlag, nil
	}

	fpath, err := ui.GetTmpContentPath(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting temporarily content file path")
	}

	if err := os.WriteFile(fpath, []byte(doc.Body), 0644); err != nil {
		return "", errors.Wrap(err, "preparing the content file")
	}

	c, err := ui.GetEditorInput(ctx, fpath)
	if err != nil {
		return "", errors.Wrap(err, "Failed to get editor input")
	}

	return c, nil
}

// changeSummary counts the lines added and removed between two versions
// of a tab body
func changeSummary(before, after string) (added, removed int) {
	for _, d := range diff.Do(before, after) {
		n := strings.Count(d.Text, "\n")
		if n == 0 && d.Text != "" {
			n = 1
		}

		switch d.Type {
		case diff.DiffInsert:
			added += n
		case diff.DiffDelete:
			removed += n
		}
	}

	return added, removed
}

func newRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		doc, err := database.FindDocument(ctx.DB, document.KindTab, args[0])
		if err != nil {
			return errors.Wrap(err, "finding the tab")
		}
		oldBody := doc.Body

		if fileFlag != "" && unbindFlag {
			return errors.New("--file and --unbind are mutually exclusive")
		}

		metaOnly := nameFlag != "" || languageFlag != "" || fileFlag != "" || unbindFlag

		if !metaOnly || contentFlag != "" {
			content, err := getContent(ctx, doc)
			if err != nil {
				return errors.Wrap(err, "getting content")
			}
			doc.Body = content
		}

		if nameFlag != "" {
			doc.Name = nameFlag
		}
		if languageFlag != "" {
			doc.Language = languageFlag
		}
		if fileFlag != "" {
			doc.FilePath = fileFlag
		}
		if unbindFlag {
			doc.FilePath = ""
		}

		doc.Touch(ctx.Clock)

		if err := database.UpdateDocument(ctx.DB, doc); err != nil {
			return errors.Wrap(err, "Failed to update tab")
		}

		log.Successf("edited %s\n", doc.UUID)
		if doc.Body != oldBody {
			added, removed := changeSummary(oldBody, doc.Body)
			log.Infof("%d line(s) added, %d line(s) removed\n", added, removed)
		}
		output.TabInfo(doc)

		return nil
	}
}
