/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"

	"stagescript/internal/domain"
)

// lineClass is the lexical shape of one physical line. Classification is
// purely lexical; whether a metadata-shaped line is actually eligible as
// metadata depends on the parse phase and is decided downstream.
type lineClass int

const (
	classBlank lineClass = iota
	classComment
	classTitle // "#"
	classAct   // "##"
	classScene // "###"
	classCue
	classMetadata
	classStageDirection
	classDialogue
	classContinuation
)

// Patterns
var (
	reScene    = regexp.MustCompile(`^###\s?([^#]*)$`)
	reAct      = regexp.MustCompile(`^##\s?([^#]*)$`)
	reTitle    = regexp.MustCompile(`^#\s?([^#]*)$`)
	reCue      = regexp.MustCompile(`^/(\w+)(?:\s+(.*))?$`)
	reMetadata = regexp.MustCompile(`^([a-zA-Z0-9_\-]+):\s?(.*)$`)
	reStage    = regexp.MustCompile(`^>\s(.*)$`)
	reDialogue = regexp.MustCompile(`^(@[a-zA-Z0-9]+(?:\s*,\s*@[a-zA-Z0-9]+)*):\s?(.*)$`)
	reSpeaker  = regexp.MustCompile(`@([a-zA-Z0-9]+)`)
)

// lineInfo carries the classification tag plus the captured groups of the
// matched pattern.
type lineInfo struct {
	class    lineClass
	text     string // heading title, comment text, first block content
	key      string // metadata key
	value    string // metadata value
	name     string // cue name
	arg      string // cue argument, raw
	speakers []domain.CharacterRef
}

// classify determines which structural pattern a line matches, first match
// in priority order: comment, heading 3..1, cue, metadata shape, stage
// direction opener, dialogue opener, else continuation.
func classify(line string) lineInfo {
	if strings.TrimSpace(line) == "" {
		return lineInfo{class: classBlank}
	}
	if strings.HasPrefix(line, "%") {
		return lineInfo{class: classComment, text: strings.TrimSpace(strings.TrimPrefix(line, "%"))}
	}
	if m := reScene.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classScene, text: m[1]}
	}
	if m := reAct.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classAct, text: m[1]}
	}
	if m := reTitle.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classTitle, text: m[1]}
	}
	if m := reCue.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classCue, name: m[1], arg: strings.TrimSpace(m[2])}
	}
	if m := reMetadata.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classMetadata, key: m[1], value: m[2]}
	}
	if m := reStage.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classStageDirection, text: m[1]}
	}
	if m := reDialogue.FindStringSubmatch(line); m != nil {
		return lineInfo{class: classDialogue, speakers: speakerList(m[1]), text: m[2]}
	}
	return lineInfo{class: classContinuation, text: strings.TrimSpace(line)}
}

func speakerList(prefix string) []domain.CharacterRef {
	found := reSpeaker.FindAllStringSubmatch(prefix, -1)
	out := make([]domain.CharacterRef, 0, len(found))
	for _, f := range found {
		out = append(out, domain.CharacterRef(f[1]))
	}
	return out
}
