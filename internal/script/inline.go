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

// segmentText splits the buffered text of a dialogue or stage-direction
// block into ordered segments: text runs, one-level inline directions and
// character mentions. Mentions are registered as they are found; use names
// the element kind recorded as a character's first use.
func segmentText(text string, line int, use domain.ElementKind, ctx *parseContext) []domain.Segment {
	var (
		segs   []domain.Segment
		inner  []domain.Segment
		run    strings.Builder
		inside bool
	)

	flushRun := func() {
		if run.Len() == 0 {
			return
		}
		t := domain.Text{Text: run.String()}
		run.Reset()
		if inside {
			inner = appendText(inner, t)
		} else {
			segs = appendText(segs, t)
		}
	}

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			if inside {
				ctx.diag(domain.DiagNestedInlineDirection, domain.SeverityError, line,
					"nested inline direction is not supported; brace kept as text")
				run.WriteByte(c)
				continue
			}
			flushRun()
			inside = true
		case '}':
			if !inside {
				ctx.diag(domain.DiagUnmatchedClosingBrace, domain.SeverityError, line,
					"closing brace without a matching opening brace; kept as text")
				run.WriteByte(c)
				continue
			}
			flushRun()
			segs = append(segs, domain.InlineDirection{Segments: inner})
			inner = nil
			inside = false
		case '@':
			j := i + 1
			for j < len(text) && isHandleByte(text[j]) {
				j++
			}
			if j == i+1 {
				run.WriteByte(c)
				continue
			}
			flushRun()
			name := domain.CharacterRef(text[i+1 : j])
			ctx.reg.LookupOrCreate(name, line, use)
			m := domain.Mention{Character: name}
			if inside {
				inner = append(inner, m)
			} else {
				segs = append(segs, m)
			}
			i = j - 1
		default:
			run.WriteByte(c)
		}
	}

	if inside {
		ctx.diag(domain.DiagUnterminatedInlineDirection, domain.SeverityWarning, line,
			"inline direction not closed before end of block; emitted as-is")
		flushRun()
		segs = append(segs, domain.InlineDirection{Segments: inner})
		return segs
	}
	flushRun()
	return segs
}

// appendText merges consecutive text runs.
func appendText(segs []domain.Segment, t domain.Text) []domain.Segment {
	if n := len(segs); n > 0 {
		if prev, ok := segs[n-1].(domain.Text); ok {
			segs[n-1] = domain.Text{Text: prev.Text + t.Text}
			return segs
		}
	}
	return append(segs, t)
}

func isHandleByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
