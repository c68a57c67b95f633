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

package sync

import (
	"strings"

	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/cli/utils/diff"
	"github.com/nickustinov/itsypad/pkg/document"
)

// splitLines splits the text into lines, each keeping its trailing newline
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

func writeSegment(buf *strings.Builder, s string) {
	buf.WriteString(s)
	if s != "" && !strings.HasSuffix(s, "\n") {
		buf.WriteString("\n")
	}
}

func writeConflict(buf *strings.Builder, local, server string) {
	buf.WriteString("<<<<<<< Local\n")
	writeSegment(buf, local)
	buf.WriteString("=======\n")
	writeSegment(buf, server)
	buf.WriteString(">>>>>>> Server\n")
}

// reportBodyConflict renders the differences between the local and the
// server version of a body with git-style conflict markers. Changed regions
// with the same number of lines on both sides are marked line by line.
func reportBodyConflict(localBody, serverBody string) string {
	if localBody == serverBody {
		return localBody
	}

	var buf strings.Builder
	var localSeg, serverSeg strings.Builder

	flush := func() {
		local := localSeg.String()
		server := serverSeg.String()
		if local == "" && server == "" {
			return
		}

		localLines := splitLines(local)
		serverLines := splitLines(server)
		if len(localLines) == len(serverLines) {
			for i := range localLines {
				writeConflict(&buf, localLines[i], serverLines[i])
			}
		} else {
			writeConflict(&buf, local, server)
		}

		localSeg.Reset()
		serverSeg.Reset()
	}

	for _, d := range diff.Do(localBody, serverBody) {
		switch d.Type {
		case diff.DiffDelete:
			localSeg.WriteString(d.Text)
		case diff.DiffInsert:
			serverSeg.WriteString(d.Text)
		case diff.DiffEqual:
			flush()
			buf.WriteString(d.Text)
		}
	}
	flush()

	return buf.String()
}

// watchOverwrites logs a conflict report whenever a sync pass replaces the
// body of a tab that existed before the pass
func watchOverwrites(tabs *document.Store) {
	prevBodies := map[string]string{}
	for _, doc := range tabs.List() {
		prevBodies[doc.UUID] = doc.Body
	}

	tabs.Notify(func(change document.Change) {
		for _, uuid := range change.Updated {
			doc, err := tabs.Get(uuid)
			if err != nil {
				continue
			}

			prev, ok := prevBodies[uuid]
			if ok && prev != doc.Body {
				log.Debug("tab %s overwritten by the server\n%s", uuid, reportBodyConflict(prev, doc.Body))
			}
			prevBodies[uuid] = doc.Body
		}
	})
}
