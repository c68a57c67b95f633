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

// Package presenters shapes database rows into response payloads
package presenters

import (
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/nickustinov/itsypad/pkg/server/database"
)

// Record is a presented version of a record row
type Record struct {
	Doc   document.Document `json:"doc"`
	Stamp int64             `json:"stamp"`
}

// Feed is a presented change feed for one document kind
type Feed struct {
	Records  []Record `json:"records"`
	Expunged []string `json:"expunged"`
	MaxStamp int64    `json:"max_stamp"`
}

// PresentRecord presents a record row
func PresentRecord(r database.Record) Record {
	return Record{
		Doc: document.Document{
			UUID:         r.UUID,
			Kind:         document.Kind(r.Kind),
			Name:         r.Name,
			Language:     r.Language,
			Body:         r.Body,
			LastModified: r.LastModified,
		},
		Stamp: r.Stamp,
	}
}

// PresentFeed presents a change feed
func PresentFeed(records []database.Record, expunged []string, maxStamp int64) Feed {
	ret := Feed{
		Records:  []Record{},
		Expunged: expunged,
		MaxStamp: maxStamp,
	}
	if ret.Expunged == nil {
		ret.Expunged = []string{}
	}

	for _, r := range records {
		ret.Records = append(ret.Records, PresentRecord(r))
	}

	return ret
}
