/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSearchFullTextAndFilters(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := IndexDocument(ctx, root, "plays/index-test.play", samplePlay()); err != nil {
		t.Fatalf("index: %v", err)
	}

	// 1) FTS search for 'morning' matches both dialogue lines
	res, err := Search(ctx, root, SearchQuery{Text: "morning"})
	if err != nil {
		t.Fatalf("search 1: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results for 'morning', got %d", len(res))
	}
	for _, r := range res {
		if r.Kind != "dialogue" {
			t.Fatalf("unexpected kind %q in FTS results", r.Kind)
		}
		if r.Act != "Act One" || r.Scene != "A beach" {
			t.Fatalf("result missing heading context: %+v", r)
		}
		if r.Snippet == "" {
			t.Fatalf("expected a snippet for FTS result")
		}
		// snippet() must reconstruct the line text and bracket the match
		if !strings.Contains(strings.ToLower(r.Snippet), "[morning]") {
			t.Fatalf("snippet does not highlight the match: %q", r.Snippet)
		}
	}

	// 2) Speaker filter: bob appears only on the shared line
	res, err = Search(ctx, root, SearchQuery{Speaker: "bob"})
	if err != nil {
		t.Fatalf("search 2: %v", err)
	}
	if len(res) != 1 || res[0].StartLine != 8 {
		t.Fatalf("expected the line 8 dialogue for bob, got %+v", res)
	}

	// 3) Kind filter without FTS text
	res, err = Search(ctx, root, SearchQuery{Kinds: []string{"stage_direction"}})
	if err != nil {
		t.Fatalf("search 3: %v", err)
	}
	if len(res) != 1 || res[0].StartLine != 6 {
		t.Fatalf("expected the stage direction at line 6, got %+v", res)
	}

	// 4) Line range excludes the stage direction
	res, err = Search(ctx, root, SearchQuery{LineFrom: 7, LineTo: 8})
	if err != nil {
		t.Fatalf("search 4: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results within line range, got %d", len(res))
	}

	// 5) Scene filter is case-insensitive
	res, err = Search(ctx, root, SearchQuery{Scene: "a BEACH"})
	if err != nil {
		t.Fatalf("search 5: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected all 3 scene rows, got %d", len(res))
	}
}

func TestSearchSpeakerDoesNotMatchSubstring(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := IndexDocument(ctx, root, "plays/index-test.play", samplePlay()); err != nil {
		t.Fatalf("index: %v", err)
	}
	// "ali" is a prefix of "alice" but not a registered handle
	res, err := Search(ctx, root, SearchQuery{Speaker: "ali"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("speaker filter must match whole handles, got %+v", res)
	}
}

func TestCharactersListing(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := IndexDocument(ctx, root, "plays/index-test.play", samplePlay()); err != nil {
		t.Fatalf("index: %v", err)
	}
	rows, err := Characters(ctx, root, "")
	if err != nil {
		t.Fatalf("Characters: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(rows))
	}
	if rows[0].Name != "alice" || rows[0].FirstLine != 7 {
		t.Fatalf("expected alice first, got %+v", rows[0])
	}
	if rows[1].Name != "bob" || rows[1].FirstUse != "dialogue" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	// Restricting to an unknown play yields nothing
	rows, err = Characters(ctx, root, "plays/other.play")
	if err != nil {
		t.Fatalf("Characters filtered: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no characters for unknown play, got %d", len(rows))
	}
}
