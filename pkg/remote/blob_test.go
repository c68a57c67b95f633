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

package remote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/tombstone"
)

// memoryKV is an in-memory key-value store for tests
type memoryKV struct {
	data map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string][]byte{}}
}

func (kv *memoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := kv.data[key]
	return b, ok, nil
}

func (kv *memoryKV) Put(ctx context.Context, key string, value []byte) error {
	kv.data[key] = value
	return nil
}

func (kv *memoryKV) Delete(ctx context.Context, key string) error {
	delete(kv.data, key)
	return nil
}

func TestBlobTransport_pullEmpty(t *testing.T) {
	trans := NewBlobTransport(newMemoryKV(), nil)

	docs, tombs, err := trans.Pull(context.Background(), document.KindTab)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(docs), 0, "docs mismatch")
	assert.Equal(t, tombs.Len(), 0, "tombs mismatch")
}

func TestBlobTransport_roundTrip(t *testing.T) {
	kv := newMemoryKV()
	trans := NewBlobTransport(kv, nil)
	ctx := context.Background()

	docs := []document.Document{
		{UUID: "a", Kind: document.KindTab, Name: "notes", Body: "content", LastModified: 100},
	}
	tombs := tombstone.New("deleted-id")

	if err := trans.Push(ctx, document.KindTab, docs, tombs); err != nil {
		t.Fatal(err)
	}

	gotDocs, gotTombs, err := trans.Pull(ctx, document.KindTab)
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, gotDocs, docs, "docs mismatch")
	assert.Equal(t, gotTombs.Contains("deleted-id"), true, "tombstone lost in round trip")

	// Both blob keys are populated
	if _, ok := kv.data[KeyTabs]; !ok {
		t.Error("tabs blob missing")
	}
	if _, ok := kv.data[KeyDeletedTabs]; !ok {
		t.Error("deleted tabs blob missing")
	}
}

func TestBlobTransport_pushFiltersBound(t *testing.T) {
	kv := newMemoryKV()
	trans := NewBlobTransport(kv, nil)
	ctx := context.Background()

	docs := []document.Document{
		{UUID: "a", Kind: document.KindTab, Body: "plain"},
		{UUID: "b", Kind: document.KindTab, Body: "bound", FilePath: "/tmp/notes.md"},
	}

	if err := trans.Push(ctx, document.KindTab, docs, tombstone.Set{}); err != nil {
		t.Fatal(err)
	}

	gotDocs, _, err := trans.Pull(ctx, document.KindTab)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(gotDocs), 1, "docs mismatch")
	assert.Equal(t, gotDocs[0].UUID, "a", "uuid mismatch")
}

func TestBlobTransport_pushCaps(t *testing.T) {
	trans := NewBlobTransport(newMemoryKV(), nil)
	trans.SetCap(document.KindClip, 2)
	ctx := context.Background()

	docs := []document.Document{
		{UUID: "a", Kind: document.KindClip, Body: "one"},
		{UUID: "b", Kind: document.KindClip, Body: "two"},
		{UUID: "c", Kind: document.KindClip, Body: "three"},
	}

	if err := trans.Push(ctx, document.KindClip, docs, tombstone.Set{}); err != nil {
		t.Fatal(err)
	}

	gotDocs, _, err := trans.Pull(ctx, document.KindClip)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(gotDocs), 2, "docs mismatch")
	assert.Equal(t, gotDocs[0].UUID, "a", "order mismatch")
	assert.Equal(t, gotDocs[1].UUID, "b", "order mismatch")
}

func TestBlobTransport_corruptBlob(t *testing.T) {
	kv := newMemoryKV()
	kv.data[KeyTabs] = []byte("{not json")
	kv.data[KeyDeletedTabs] = []byte("{not json")

	trans := NewBlobTransport(kv, nil)

	// A corrupt blob yields empty state for the pass, not an error
	docs, tombs, err := trans.Pull(context.Background(), document.KindTab)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(docs), 0, "docs mismatch")
	assert.Equal(t, tombs.Len(), 0, "tombs mismatch")
}

func TestBlobTransport_appendClip(t *testing.T) {
	kv := newMemoryKV()
	trans := NewBlobTransport(kv, nil)
	ctx := context.Background()

	existing := []document.Document{
		{UUID: "a", Kind: document.KindClip, Body: "older", LastModified: 100},
		{UUID: "b", Kind: document.KindClip, Body: "copied text", LastModified: 150},
	}
	b, err := json.Marshal(existing)
	if err != nil {
		t.Fatal(err)
	}
	kv.data[KeyClips] = b

	// The new entry lands at the front; its duplicate body is collapsed
	doc := document.Document{UUID: "c", Kind: document.KindClip, Body: "copied text", LastModified: 200}
	if err := trans.AppendClip(ctx, doc); err != nil {
		t.Fatal(err)
	}

	gotDocs, _, err := trans.Pull(ctx, document.KindClip)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(gotDocs), 2, "docs mismatch")
	assert.Equal(t, gotDocs[0].UUID, "c", "order mismatch")
	assert.Equal(t, gotDocs[1].UUID, "a", "order mismatch")
}

func TestBlobTransport_clear(t *testing.T) {
	kv := newMemoryKV()
	trans := NewBlobTransport(kv, nil)
	ctx := context.Background()

	docs := []document.Document{{UUID: "a", Kind: document.KindTab, Body: "x"}}
	if err := trans.Push(ctx, document.KindTab, docs, tombstone.New("t")); err != nil {
		t.Fatal(err)
	}

	if err := trans.Clear(ctx, document.KindTab); err != nil {
		t.Fatal(err)
	}

	if _, ok := kv.data[KeyTabs]; ok {
		t.Error("tabs blob should be deleted")
	}
	if _, ok := kv.data[KeyDeletedTabs]; ok {
		t.Error("deleted tabs blob should be deleted")
	}
}

func TestBlobTransport_nativeDeletes(t *testing.T) {
	trans := NewBlobTransport(newMemoryKV(), nil)
	assert.Equal(t, trans.NativeDeletes(), false, "blob shape should not delete natively")
}
