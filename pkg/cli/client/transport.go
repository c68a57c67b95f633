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

package client

import (
	"context"

	clictx "github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/remote"
)

// KV adapts the blob endpoints into the key-value surface consumed by the
// blob transport
type KV struct {
	Ctx clictx.PadCtx
}

// Get fetches the blob under the key
func (k KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	return GetBlob(k.Ctx, key)
}

// Put stores the blob under the key
func (k KV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return PutBlob(k.Ctx, key, value)
}

// Delete removes the blob under the key
func (k KV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return DeleteBlob(k.Ctx, key)
}

// Records adapts the record endpoints into the per-record client consumed
// by the record transport
type Records struct {
	Ctx clictx.PadCtx
}

// Changes fetches the record change feed after the given stamp
func (r Records) Changes(ctx context.Context, kind document.Kind, after int64) (remote.Feed, error) {
	if err := ctx.Err(); err != nil {
		return remote.Feed{}, err
	}

	resp, err := GetRecords(r.Ctx, kind, after)
	if err != nil {
		return remote.Feed{}, err
	}

	records := make([]remote.Record, 0, len(resp.Records))
	for _, rec := range resp.Records {
		records = append(records, remote.Record{Doc: rec.Doc, Stamp: rec.Stamp})
	}

	return remote.Feed{
		Records:  records,
		Expunged: resp.Expunged,
		MaxStamp: resp.MaxStamp,
	}, nil
}

// Write upserts a record, surfacing a stamp conflict as the current server
// record
func (r Records) Write(ctx context.Context, kind document.Kind, doc document.Document, prevStamp int64) (int64, *remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	stamp, conflict, err := PutRecord(r.Ctx, kind, doc, prevStamp)
	if err != nil {
		return 0, nil, err
	}
	if conflict != nil {
		return 0, &remote.Record{Doc: conflict.Doc, Stamp: conflict.Stamp}, nil
	}

	return stamp, nil, nil
}

// Delete removes a record natively
func (r Records) Delete(ctx context.Context, kind document.Kind, uuid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return DeleteRecord(r.Ctx, kind, uuid)
}

// Wipe removes all of the kind's records
func (r Records) Wipe(ctx context.Context, kind document.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return WipeRecords(r.Ctx, kind)
}
