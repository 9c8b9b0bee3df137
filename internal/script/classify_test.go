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

	"stagescript/internal/domain"
)

func TestClassifyHeadings(t *testing.T) {
	cases := []struct {
		line  string
		class lineClass
		text  string
	}{
		{"# Hamlet", classTitle, "Hamlet"},
		{"# Hamlet, the prince of Denmark", classTitle, "Hamlet, the prince of Denmark"},
		{"#Without space", classTitle, "Without space"},
		{"## Act 2", classAct, "Act 2"},
		{"##Act", classAct, "Act"},
		{"### Scene name", classScene, "Scene name"},
		{"###Scene name", classScene, "Scene name"},
	}
	for _, c := range cases {
		got := classify(c.line)
		if got.class != c.class || got.text != c.text {
			t.Fatalf("classify(%q) = (%v, %q), want (%v, %q)", c.line, got.class, got.text, c.class, c.text)
		}
	}
}

func TestClassifyCue(t *testing.T) {
	got := classify("/lights off")
	if got.class != classCue || got.name != "lights" || got.arg != "off" {
		t.Fatalf("unexpected cue classification: %+v", got)
	}
	got = classify("/curtain")
	if got.class != classCue || got.name != "curtain" || got.arg != "" {
		t.Fatalf("unexpected bare cue classification: %+v", got)
	}
	got = classify("/introduce tom; Tom; Tom, just Tom")
	if got.class != classCue || got.name != "introduce" || got.arg != "tom; Tom; Tom, just Tom" {
		t.Fatalf("unexpected cue with argument list: %+v", got)
	}
}

func TestClassifyMetadataShape(t *testing.T) {
	cases := []struct {
		line, key, value string
	}{
		{"key: value", "key", "value"},
		{"another-key: a rather complicated value", "another-key", "a rather complicated value"},
		{"without-space:no gap here", "without-space", "no gap here"},
	}
	for _, c := range cases {
		got := classify(c.line)
		if got.class != classMetadata || got.key != c.key || got.value != c.value {
			t.Fatalf("classify(%q) = %+v, want metadata %q=%q", c.line, got, c.key, c.value)
		}
	}
}

func TestClassifyDialogueOpeners(t *testing.T) {
	got := classify("@alice: Hello")
	if got.class != classDialogue || got.text != "Hello" {
		t.Fatalf("unexpected dialogue classification: %+v", got)
	}
	if len(got.speakers) != 1 || got.speakers[0] != "alice" {
		t.Fatalf("unexpected speakers: %v", got.speakers)
	}

	got = classify("@alice, @bob: We agree.")
	want := []domain.CharacterRef{"alice", "bob"}
	if len(got.speakers) != 2 || got.speakers[0] != want[0] || got.speakers[1] != want[1] {
		t.Fatalf("unexpected multi speakers: %v", got.speakers)
	}
}

func TestClassifyStageDirectionAndComment(t *testing.T) {
	got := classify("> Alice exits.")
	if got.class != classStageDirection || got.text != "Alice exits." {
		t.Fatalf("unexpected stage direction classification: %+v", got)
	}
	got = classify("% A note")
	if got.class != classComment || got.text != "A note" {
		t.Fatalf("unexpected comment classification: %+v", got)
	}
}

func TestClassifyFallbacks(t *testing.T) {
	if got := classify("   "); got.class != classBlank {
		t.Fatalf("whitespace line classified as %v", got.class)
	}
	// ">" without a following space is not a stage direction opener.
	if got := classify(">no space"); got.class != classContinuation {
		t.Fatalf(">no space classified as %v", got.class)
	}
	// "@name" without the colon is not a dialogue opener.
	if got := classify("@alice waves"); got.class != classContinuation {
		t.Fatalf("@alice waves classified as %v", got.class)
	}
}
