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

// Package output provides functions to print informations on the terminal
// in a consistent manner
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/document"
)

// TabInfo prints a tab's metadata and content
func TabInfo(doc document.Document) {
	log.Infof("name: %s\n", doc.Name)
	if doc.Language != "" {
		log.Infof("language: %s\n", doc.Language)
	}
	if doc.FilePath != "" {
		log.Infof("bound to: %s\n", doc.FilePath)
	}
	log.Infof("modified at: %s\n", time.UnixMilli(doc.LastModified).Format("Jan 2, 2006 3:04pm (MST)"))
	log.Infof("uuid: %s\n", doc.UUID)

	fmt.Printf("\n------------------------content------------------------\n")
	fmt.Printf("%s", doc.Body)
	fmt.Printf("\n-------------------------------------------------------\n")
}

// TabContent prints a tab's content only
func TabContent(doc document.Document) {
	fmt.Printf("%s", doc.Body)
}

// TabList prints a one-line summary per tab
func TabList(docs []document.Document) {
	for i, doc := range docs {
		name := doc.Name
		if name == "" {
			name = "(untitled)"
		}

		var marker string
		if doc.FilePath != "" {
			marker = " *"
		}

		log.Plainf("(%d) %s%s\n", i, name, marker)
	}
}

// ClipList prints a one-line summary per clipboard entry
func ClipList(docs []document.Document) {
	for i, doc := range docs {
		log.Plainf("(%d) %s\n", i, excerpt(doc.Body))
	}
}

func excerpt(body string) string {
	line := body
	if idx := strings.IndexByte(line, '\n'); idx != -1 {
		line = line[:idx] + " [...]"
	}
	if len(line) > 60 {
		line = line[:57] + "..."
	}

	return line
}
