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

package document

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nickustinov/itsypad/pkg/clock"
	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
)

// FileWatcher keeps file-bound tabs in line with their backing files.
// Bound tabs never sync; their content simply follows the file on disk.
//
// The watcher tracks its own copy of each bound document and hands
// refreshed documents to onUpdate. It never touches a document store
// itself; the callback decides where the refreshed state lands.
type FileWatcher struct {
	clock    clock.Clock
	interval time.Duration
	w        *watcher.Watcher
	onUpdate func(Document)
	onError  func(error)

	mu   sync.Mutex
	docs map[string]Document
}

// NewFileWatcher creates a watcher over file-bound tabs. onUpdate is
// invoked with the refreshed document after its body has been re-read from
// disk; onError receives watch failures, which are never fatal.
func NewFileWatcher(c clock.Clock, interval time.Duration, onUpdate func(Document), onError func(error)) *FileWatcher {
	w := watcher.New()
	w.FilterOps(watcher.Write, watcher.Rename, watcher.Remove)

	return &FileWatcher{
		clock:    c,
		interval: interval,
		w:        w,
		onUpdate: onUpdate,
		onError:  onError,
		docs:     map[string]Document{},
	}
}

// Add registers the bound file of the given document for watching
func (fw *FileWatcher) Add(doc Document) error {
	if doc.FilePath == "" {
		return errors.New("document has no file binding")
	}

	if err := fw.w.Add(doc.FilePath); err != nil {
		return errors.Wrapf(err, "watching %s", doc.FilePath)
	}

	fw.mu.Lock()
	fw.docs[doc.FilePath] = doc
	fw.mu.Unlock()

	return nil
}

// Run polls the registered files until the context is cancelled. It blocks.
func (fw *FileWatcher) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		fw.w.Close()
	}()

	go func() {
		for {
			select {
			case event, ok := <-fw.w.Event:
				if !ok {
					return
				}
				fw.handleEvent(event)
			case err, ok := <-fw.w.Error:
				if !ok {
					return
				}
				if fw.onError != nil {
					fw.onError(err)
				}
			case <-fw.w.Closed:
				return
			}
		}
	}()

	if err := fw.w.Start(fw.interval); err != nil && err != watcher.ErrWatcherRunning {
		return errors.Wrap(err, "starting file watcher")
	}

	return nil
}

func (fw *FileWatcher) handleEvent(event watcher.Event) {
	if event.Op == watcher.Remove {
		// leave the tab content as the last known file state
		return
	}

	fw.mu.Lock()
	doc, ok := fw.docs[event.Path]
	fw.mu.Unlock()
	if !ok {
		return
	}

	b, err := os.ReadFile(doc.FilePath)
	if err != nil {
		if fw.onError != nil {
			fw.onError(errors.Wrapf(err, "reading bound file %s", doc.FilePath))
		}
		return
	}

	if string(b) == doc.Body {
		return
	}

	doc.Body = string(b)
	doc.Touch(fw.clock)

	fw.mu.Lock()
	fw.docs[doc.FilePath] = doc
	fw.mu.Unlock()

	if fw.onUpdate != nil {
		fw.onUpdate(doc)
	}
}
