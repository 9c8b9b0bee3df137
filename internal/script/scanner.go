/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"

	"stagescript/internal/domain"
)

type blockKind int

const (
	blockComment blockKind = iota
	blockTitle
	blockAct
	blockScene
	blockCue
	blockMetadata
	blockStageDirection
	blockDialogue
)

// block is one scanner emission: a single-line structural block, or a
// closed multi-line block with its buffered text and line range.
type block struct {
	kind     blockKind
	text     string
	key      string
	value    string
	name     string
	arg      string
	speakers []domain.CharacterRef
	start    int
	end      int
}

// openBlock is the scanner's mutable state: the multi-line block currently
// accepting continuation lines, if any.
type openBlock struct {
	kind     blockKind // blockStageDirection or blockDialogue
	speakers []domain.CharacterRef
	lines    []string
	start    int
	end      int
}

// scanner walks the line sequence and decides where multi-line blocks end.
// There is no lookahead buffer: closing the open block is a side effect of
// classifying the next structural line.
type scanner struct {
	ctx  *parseContext
	open *openBlock
}

// step consumes one line and returns the blocks it completed, in source
// order (a closed multi-line block first, then any single-line block the
// line itself forms).
func (s *scanner) step(line string, lineno int) []block {
	info := classify(line)
	switch info.class {
	case classBlank:
		// Blank lines never close a block and never count as orphan text.
		return nil
	case classContinuation:
		return s.continuation(info.text, lineno)
	case classMetadata:
		if s.open != nil {
			// Inside a multi-line block a metadata-shaped line is ordinary
			// continuation text.
			return s.continuation(strings.TrimSpace(line), lineno)
		}
		if s.ctx.pre {
			return []block{{kind: blockMetadata, key: info.key, value: info.value, start: lineno, end: lineno}}
		}
		s.ctx.diag(domain.DiagMetadataAfterStructuralContent, domain.SeverityWarning, lineno,
			"%q looks like metadata but structural content has already started; treating it as text", info.key)
		return s.continuation(strings.TrimSpace(line), lineno)
	case classStageDirection:
		closed := s.close()
		s.open = &openBlock{kind: blockStageDirection, lines: []string{info.text}, start: lineno, end: lineno}
		return closed
	case classDialogue:
		closed := s.close()
		s.open = &openBlock{kind: blockDialogue, speakers: info.speakers, lines: []string{info.text}, start: lineno, end: lineno}
		return closed
	}

	closed := s.close()
	switch info.class {
	case classComment:
		closed = append(closed, block{kind: blockComment, text: info.text, start: lineno, end: lineno})
	case classTitle:
		closed = append(closed, block{kind: blockTitle, text: info.text, start: lineno, end: lineno})
	case classAct:
		closed = append(closed, block{kind: blockAct, text: info.text, start: lineno, end: lineno})
	case classScene:
		closed = append(closed, block{kind: blockScene, text: info.text, start: lineno, end: lineno})
	case classCue:
		closed = append(closed, block{kind: blockCue, name: info.name, arg: info.arg, start: lineno, end: lineno})
	}
	return closed
}

func (s *scanner) continuation(text string, lineno int) []block {
	if s.open != nil {
		s.open.lines = append(s.open.lines, text)
		s.open.end = lineno
		return nil
	}
	s.ctx.diag(domain.DiagOrphanTextLine, domain.SeverityError, lineno,
		"text line outside any dialogue or stage-direction block")
	if s.ctx.mode == Lenient {
		// Keep the output total: buffer into an implicit anonymous stage
		// direction.
		s.open = &openBlock{kind: blockStageDirection, lines: []string{text}, start: lineno, end: lineno}
	}
	return nil
}

// close flushes the open block, if any. Buffered lines are joined with a
// single space; blank continuation lines collapse away.
func (s *scanner) close() []block {
	if s.open == nil {
		return nil
	}
	b := block{
		kind:     s.open.kind,
		text:     joinLines(s.open.lines),
		speakers: s.open.speakers,
		start:    s.open.start,
		end:      s.open.end,
	}
	s.open = nil
	return []block{b}
}

// finish closes any block still open at end of input. This is not an
// error; the block's extent simply ends at the last line.
func (s *scanner) finish() []block {
	if s.open == nil {
		return nil
	}
	s.ctx.diag(domain.DiagUnterminatedBlockAtEOF, domain.SeverityInfo, s.open.start,
		"block still open at end of input; closed implicitly")
	return s.close()
}

func joinLines(lines []string) string {
	parts := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}
