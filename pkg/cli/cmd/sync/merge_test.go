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
	"fmt"
	"testing"

	"github.com/nickustinov/itsypad/pkg/assert"
	"github.com/nickustinov/itsypad/pkg/document"
)

func TestReportBodyConflict(t *testing.T) {
	testCases := []struct {
		local    string
		server   string
		expected string
	}{
		{
			local:    "\n",
			server:   "\n",
			expected: "\n",
		},
		{
			local:    "",
			server:   "",
			expected: "",
		},
		{
			local:    "select 1;",
			server:   "select 1;",
			expected: "select 1;",
		},
		{
			local:    "select 1;\nselect 2;",
			server:   "select 1;\nselect 2;",
			expected: "select 1;\nselect 2;",
		},
		{
			local:  "edited on laptop",
			server: "edited on desktop",
			expected: `<<<<<<< Local
edited on laptop
=======
edited on desktop
>>>>>>> Server
`,
		},
		{
			local:  "laptop\n",
			server: "desktop\n",
			expected: `<<<<<<< Local
laptop
=======
desktop
>>>>>>> Server
`,
		},
		{
			local:  "laptop\n",
			server: "\n",
			expected: `<<<<<<< Local
laptop
=======

>>>>>>> Server
`,
		},
		{
			local:  "\n",
			server: "desktop\n",
			expected: `<<<<<<< Local

=======
desktop
>>>>>>> Server
`,
		},
		{
			local:  "select 1;\n\nlaptop\nselect 3;\n",
			server: "select 1;\n\ndesktop\nselect 3;\n",
			expected: `select 1;

<<<<<<< Local
laptop
=======
desktop
>>>>>>> Server
select 3;
`,
		},
		{
			local:  "select 1;\n\nlaptop\nselect 3;\n\nshared line\nfuz\n",
			server: "select 1;\n\ndesktop\nselect 3;\n\nshared line\nfuuz\n",
			expected: `select 1;

<<<<<<< Local
laptop
=======
desktop
>>>>>>> Server
select 3;

shared line
<<<<<<< Local
fuz
=======
fuuz
>>>>>>> Server
`,
		},
		{
			local:  "select 1;\nquz\nbaz\nselect 4;\n",
			server: "select 1;\nquzz\nbazz\nselect 4;\n",
			expected: `select 1;
<<<<<<< Local
quz
=======
quzz
>>>>>>> Server
<<<<<<< Local
baz
=======
bazz
>>>>>>> Server
select 4;
`,
		},
	}

	for idx, tc := range testCases {
		result := reportBodyConflict(tc.local, tc.server)

		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			assert.DeepEqual(t, result, tc.expected, "result mismatch")
		})
	}
}

func TestSplitLines(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{input: "", expected: []string{}},
		{input: "\n", expected: []string{"\n"}},
		{input: "foo", expected: []string{"foo"}},
		{input: "foo\nbar\n", expected: []string{"foo\n", "bar\n"}},
		{input: "foo\nbar", expected: []string{"foo\n", "bar"}},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := splitLines(tc.input)

			assert.Equal(t, len(got), len(tc.expected), "length mismatch")
			for i := range tc.expected {
				assert.Equal(t, got[i], tc.expected[i], "line mismatch")
			}
		})
	}
}

func TestWatchOverwrites(t *testing.T) {
	tabs := document.NewStore(document.KindTab, 10)
	tabs.Upsert(document.Document{
		UUID:         "09c656fa-ab2a-4c6f-a5c6-1a7d9e8f3b21",
		Kind:         document.KindTab,
		Body:         "local body",
		LastModified: 1700000000100,
	})

	watchOverwrites(tabs)

	// the registered observer must tolerate merge results that touch
	// documents it has not seen
	tabs.ApplyMerge([]document.Document{
		{
			UUID:         "09c656fa-ab2a-4c6f-a5c6-1a7d9e8f3b21",
			Kind:         document.KindTab,
			Body:         "server body",
			LastModified: 1700000000200,
		},
		{
			UUID:         "43827b9a-c2b0-4c06-a290-97991c896653",
			Kind:         document.KindTab,
			Body:         "inserted body",
			LastModified: 1700000000300,
		},
	}, document.Change{
		Kind:     document.KindTab,
		Inserted: []string{"43827b9a-c2b0-4c06-a290-97991c896653"},
		Updated:  []string{"09c656fa-ab2a-4c6f-a5c6-1a7d9e8f3b21"},
	})

	doc, err := tabs.Get("09c656fa-ab2a-4c6f-a5c6-1a7d9e8f3b21")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, doc.Body, "server body", "body mismatch")
}
