/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the document tree produced by parsing a stageplay
// script. A Document owns everything below it: acts, scenes, elements,
// inline segments and the character list. Once returned by the parser the
// tree is never mutated, so it may be shared freely across goroutines.

// ElementKind tags the concrete type of an Element (and, for acts and
// scenes, the concrete type of a document item) in the interchange form.
type ElementKind string

const (
	KindAct             ElementKind = "act"
	KindScene           ElementKind = "scene"
	KindComment         ElementKind = "comment"
	KindStageDirection  ElementKind = "stage_direction"
	KindDialogue        ElementKind = "dialogue"
	KindCue             ElementKind = "cue"
	KindText            ElementKind = "text"
	KindInlineDirection ElementKind = "inline_direction"
	KindMention         ElementKind = "mention"
)

// CharacterRef identifies a character by its normalized handle (the token
// written after "@", matched exactly, no case folding).
type CharacterRef string

// Character is the registry entry behind a CharacterRef. FirstLine and
// FirstUse record where the handle appeared first in the source.
type Character struct {
	Name      CharacterRef `json:"name"`
	FirstLine int          `json:"first_line"`
	FirstUse  ElementKind  `json:"first_use"`
}

// Metadata is one "key: value" entry from the pre-structural header.
// Entries keep their insertion order; keys are unique within a Document.
type Metadata struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Line  int    `json:"line"`
}

// Item is anything that can appear in a Document's top-level sequence:
// an *Act, an orphan *Scene, or any Element occurring before the first
// act or scene heading.
type Item interface {
	Kind() ElementKind
}

// Element is a performance-order entry inside a scene (or act, or the
// document itself when no structure has been opened yet).
type Element interface {
	Item
	element()
}

// Segment is one piece of inline content inside a dialogue or stage
// direction: a text run, a one-level inline direction, or a character
// mention.
type Segment interface {
	Kind() ElementKind
	segment()
}

// Document is the root of a parsed script.
type Document struct {
	Title      string       `json:"title,omitempty"`
	Metadata   []Metadata   `json:"metadata,omitempty"`
	Items      []Item       `json:"items"`
	Characters []*Character `json:"characters,omitempty"`
}

// Act groups scenes under a "##" heading. Elements holds content that
// appeared after the act heading but before its first scene.
type Act struct {
	Title    string    `json:"title"`
	Line     int       `json:"line"`
	Elements []Element `json:"elements,omitempty"`
	Scenes   []*Scene  `json:"scenes"`
}

// Scene holds performance content under a "###" heading. A scene is owned
// by exactly one act, or by the document directly when it precedes any act.
type Scene struct {
	Title    string    `json:"title"`
	Line     int       `json:"line"`
	Elements []Element `json:"elements"`
}

// Comment is a "%"-prefixed author note, preserved as data.
type Comment struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

// StageDirection is a ">"-opened narrative block, possibly spanning
// several source lines.
type StageDirection struct {
	Segments []Segment `json:"segments"`
	Line     int       `json:"line"`
	EndLine  int       `json:"end_line,omitempty"`
}

// Dialogue is spoken text attributed to one or more speakers, in the
// order they were written in the cue.
type Dialogue struct {
	Speakers []CharacterRef `json:"speakers"`
	Segments []Segment      `json:"segments"`
	Line     int            `json:"line"`
	EndLine  int            `json:"end_line,omitempty"`
}

// Cue is a "/"-prefixed directive. It is recorded as data only and never
// interpreted by the parser.
type Cue struct {
	Name     string `json:"name"`
	Argument string `json:"argument,omitempty"`
	Line     int    `json:"line"`
}

// Text is a plain text run.
type Text struct {
	Text string `json:"text"`
}

// InlineDirection is a brace-delimited stage direction embedded in
// dialogue or another stage direction. Nesting is a single level deep.
type InlineDirection struct {
	Segments []Segment `json:"segments"`
}

// Mention is a bare "@name" character reference inside segment content.
type Mention struct {
	Character CharacterRef `json:"character"`
}

func (a *Act) Kind() ElementKind           { return KindAct }
func (s *Scene) Kind() ElementKind         { return KindScene }
func (c Comment) Kind() ElementKind        { return KindComment }
func (d StageDirection) Kind() ElementKind { return KindStageDirection }
func (d Dialogue) Kind() ElementKind       { return KindDialogue }
func (c Cue) Kind() ElementKind            { return KindCue }

func (c Comment) element()        {}
func (d StageDirection) element() {}
func (d Dialogue) element()       {}
func (c Cue) element()            {}

func (t Text) Kind() ElementKind            { return KindText }
func (d InlineDirection) Kind() ElementKind { return KindInlineDirection }
func (m Mention) Kind() ElementKind         { return KindMention }

func (t Text) segment()            {}
func (d InlineDirection) segment() {}
func (m Mention) segment()         {}

// Severity grades a Diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DiagnosticKind enumerates the conditions the parser reports.
type DiagnosticKind string

const (
	DiagDuplicateMetadataKey           DiagnosticKind = "DuplicateMetadataKey"
	DiagMetadataAfterStructuralContent DiagnosticKind = "MetadataAfterStructuralContent"
	DiagDuplicateDocumentTitle         DiagnosticKind = "DuplicateDocumentTitle"
	DiagOrphanTextLine                 DiagnosticKind = "OrphanTextLine"
	DiagOrphanScene                    DiagnosticKind = "OrphanScene"
	DiagDuplicateSpeakerInCue          DiagnosticKind = "DuplicateSpeakerInCue"
	DiagNestedInlineDirection          DiagnosticKind = "NestedInlineDirection"
	DiagUnmatchedClosingBrace          DiagnosticKind = "UnmatchedClosingBrace"
	DiagUnterminatedInlineDirection    DiagnosticKind = "UnterminatedInlineDirection"
	DiagUnterminatedBlockAtEOF         DiagnosticKind = "UnterminatedBlockAtEOF"
	DiagElementOutsideScene            DiagnosticKind = "ElementOutsideScene"
)

// Diagnostic is one parse finding, attached to a 1-based source line.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Line     int            `json:"line"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
}
