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

// Package clip implements the clipboard history commands
package clip

import (
	gocontext "context"
	"os"
	"strings"

	"github.com/nickustinov/itsypad/pkg/cli/config"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/infra"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/output"
	"github.com/nickustinov/itsypad/pkg/cli/ui"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
 * Record a clipboard entry
 itsypad clip add "redis-cli -h 10.0.0.4"
 # or
 pbpaste | itsypad clip add

 * List and inspect entries
 itsypad clip ls
 itsypad clip cat 0

 * Drop an entry
 itsypad clip rm 0`

// NewCmd returns a new clip command
func NewCmd(ctx context.PadCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clip",
		Short:   "Manage the clipboard history",
		Example: example,
	}

	cmd.AddCommand(newAddCmd(ctx))
	cmd.AddCommand(newLsCmd(ctx))
	cmd.AddCommand(newCatCmd(ctx))
	cmd.AddCommand(newRmCmd(ctx))

	return cmd
}

func newAddCmd(ctx context.PadCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "add [content]",
		Short: "Record a clipboard entry",
		RunE:  newAddRun(ctx),
	}
}

func getContent(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	fInfo, _ := os.Stdin.Stat()
	if fInfo.Mode()&os.ModeCharDevice == 0 {
		c, err := ui.ReadStdInput()
		if err != nil {
			return "", errors.Wrap(err, "Failed to get piped input")
		}
		return c, nil
	}

	return "", errors.New("Empty content")
}

func newAddRun(ctx context.PadCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		content, err := getContent(args)
		if err != nil {
			return err
		}
		if content == "" {
			return errors.New("Empty content")
		}

		docs, err := database.ListDocuments(ctx.DB, document.KindClip)
		if err != nil {
			return errors.Wrap(err, "listing clipboard entries")
		}

		// consecutive copies of the same text collapse into one entry
		for _, existing := range docs {
			if existing.Body == content {
				log.Infof("already in the clipboard history\n")
				return nil
			}
		}

		doc, err := document.New(ctx.Clock, document.KindClip, "", content)
		if err != nil {
			return errors.Wrap(err, "creating the entry")
		}

		if err := database.InsertDocument(ctx.DB, doc); err != nil {
			return errors.Wrap(err, "Failed to write entry")
		}

		// trim the local history to its cap
		for i := infra.LocalClipCap - 1; i < len(docs); i++ {
			if err := database.ExpungeDocument(ctx.DB, docs[i].UUID); err != nil {
				return errors.Wrap(err, "trimming the clipboard history")
			}
		}

		log.Successf("clipped %s\n", doc.UUID)

		// best-effort immediate publish over the configured remote shape;
		// the next sync pass covers failures
		if ctx.SessionKey != "" {
			publish(ctx, doc)
		}

		return nil
	}
}

// clipAppender is the blob transport's fast path for a single new entry
type clipAppender interface {
	AppendClip(ctx gocontext.Context, doc document.Document) error
}

func publish(ctx context.PadCtx, doc document.Document) {
	cf, err := config.Read(ctx)
	if err != nil {
		log.Debug("reading config: %v\n", err)
		return
	}

	transport, err := infra.NewTransport(ctx, cf.SyncTransport)
	if err != nil {
		log.Debug("building transport: %v\n", err)
		return
	}

	bg := gocontext.Background()

	if t, ok := transport.(clipAppender); ok {
		if err := t.AppendClip(bg, doc); err != nil {
			log.Debug("publishing the entry: %v\n", err)
		}
		return
	}

	if err := transport.Push(bg, document.KindClip, []document.Document{doc}, tombstone.New()); err != nil {
		log.Debug("publishing the entry: %v\n", err)
	}
}

func newLsCmd(ctx context.PadCtx) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Short:   "List clipboard entries",
		Aliases: []string{"l", "list"},
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := database.ListDocuments(ctx.DB, document.KindClip)
			if err != nil {
				return errors.Wrap(err, "listing clipboard entries")
			}

			output.ClipList(docs)

			return nil
		},
	}
}

func newCatCmd(ctx context.PadCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <entry>",
		Short: "Print the content of a clipboard entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := database.FindDocument(ctx.DB, document.KindClip, args[0])
			if err != nil {
				return errors.Wrap(err, "finding the entry")
			}

			output.TabContent(doc)

			return nil
		},
	}
}

func newRmCmd(ctx context.PadCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <entry>",
		Short: "Drop a clipboard entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := database.FindDocument(ctx.DB, document.KindClip, args[0])
			if err != nil {
				return errors.Wrap(err, "finding the entry")
			}

			if err := database.ExpungeDocument(ctx.DB, doc.UUID); err != nil {
				return errors.Wrap(err, "removing the entry")
			}
			if err := database.MarkTombstone(ctx.DB, document.KindClip, doc.UUID); err != nil {
				return errors.Wrap(err, "recording the deletion")
			}

			log.Successf("dropped %s\n", doc.UUID)

			return nil
		},
	}
}
