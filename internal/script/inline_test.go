/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"stagescript/internal/domain"
)

func newTestContext(mode Mode) *parseContext {
	return &parseContext{mode: mode, pre: true, reg: NewRegistry(), col: &collector{mode: mode}}
}

func TestSegmentPlainAndBraced(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("Hello, {waving} world!", 1, domain.KindDialogue, ctx)
	want := []domain.Segment{
		domain.Text{Text: "Hello, "},
		domain.InlineDirection{Segments: []domain.Segment{domain.Text{Text: "waving"}}},
		domain.Text{Text: " world!"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	if len(ctx.col.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ctx.col.diags)
	}
}

func TestSegmentMentions(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("@foo enters, {@bar waves} then leaves", 3, domain.KindStageDirection, ctx)
	want := []domain.Segment{
		domain.Mention{Character: "foo"},
		domain.Text{Text: " enters, "},
		domain.InlineDirection{Segments: []domain.Segment{
			domain.Mention{Character: "bar"},
			domain.Text{Text: " waves"},
		}},
		domain.Text{Text: " then leaves"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	foo, ok := ctx.reg.Lookup("foo")
	if !ok || foo.FirstLine != 3 || foo.FirstUse != domain.KindStageDirection {
		t.Fatalf("mention not registered: %+v", foo)
	}
	if _, ok := ctx.reg.Lookup("bar"); !ok {
		t.Fatalf("braced mention not registered")
	}
}

func TestSegmentBareAtIsText(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("mail me @ home", 1, domain.KindDialogue, ctx)
	want := []domain.Segment{domain.Text{Text: "mail me @ home"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	if len(ctx.reg.Characters()) != 0 {
		t.Fatalf("no character should be registered: %v", ctx.reg.Characters())
	}
}

func TestSegmentNestedBraceKeptAsText(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("a {b {c} d", 2, domain.KindDialogue, ctx)
	want := []domain.Segment{
		domain.Text{Text: "a "},
		domain.InlineDirection{Segments: []domain.Segment{domain.Text{Text: "b {c"}}},
		domain.Text{Text: " d"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	dg, ok := findDiag(ctx.col.diags, domain.DiagNestedInlineDirection)
	if !ok || dg.Severity != domain.SeverityError || dg.Line != 2 {
		t.Fatalf("expected nested-brace error, got %v", ctx.col.diags)
	}
}

func TestSegmentUnmatchedClosingBrace(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("oops} fine", 1, domain.KindDialogue, ctx)
	want := []domain.Segment{domain.Text{Text: "oops} fine"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	if _, ok := findDiag(ctx.col.diags, domain.DiagUnmatchedClosingBrace); !ok {
		t.Fatalf("expected unmatched-brace error, got %v", ctx.col.diags)
	}
}

func TestSegmentUnterminatedEmitsPartial(t *testing.T) {
	ctx := newTestContext(Lenient)
	got := segmentText("Wait, {something", 1, domain.KindDialogue, ctx)
	want := []domain.Segment{
		domain.Text{Text: "Wait, "},
		domain.InlineDirection{Segments: []domain.Segment{domain.Text{Text: "something"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch:\n%s", diff)
	}
	dg, ok := findDiag(ctx.col.diags, domain.DiagUnterminatedInlineDirection)
	if !ok || dg.Severity != domain.SeverityWarning {
		t.Fatalf("expected unterminated warning, got %v", ctx.col.diags)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	ctx := newTestContext(Lenient)
	if got := segmentText("", 1, domain.KindDialogue, ctx); len(got) != 0 {
		t.Fatalf("empty text must yield no segments, got %v", got)
	}
}

func TestRegistryIdentity(t *testing.T) {
	r := NewRegistry()
	a := r.LookupOrCreate("gertrude", 4, domain.KindStageDirection)
	b := r.LookupOrCreate("gertrude", 9, domain.KindDialogue)
	if a != b {
		t.Fatalf("expected stable identity for repeated handle")
	}
	if a.FirstLine != 4 || a.FirstUse != domain.KindStageDirection {
		t.Fatalf("first use must be preserved: %+v", a)
	}
	// Case-sensitive: a different casing is a different character.
	c := r.LookupOrCreate("Gertrude", 10, domain.KindDialogue)
	if c == a {
		t.Fatalf("handles are matched exactly, no case folding")
	}
	if len(r.Characters()) != 2 {
		t.Fatalf("unexpected registry size: %d", len(r.Characters()))
	}
}
