/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script parses stageplay markup into a structured document tree.
//
// The pipeline is a per-line classifier, a stateful block scanner that
// resolves where multi-line dialogue and stage-direction blocks end, an
// inline segmenter for brace spans and character mentions, and a tree
// builder that nests blocks into document, acts and scenes. A parse call
// is a pure function of its input; independent documents can be parsed
// concurrently without coordination.
package script

import (
	"strings"

	"stagescript/internal/domain"
)

// Option adjusts parse policy.
type Option func(*options)

type options struct {
	rejectActLevel bool
}

// RejectActLevelElements turns content between an act heading and its
// first scene heading into error diagnostics. By default such content is
// permitted and attached to the act itself.
func RejectActLevelElements() Option {
	return func(o *options) { o.rejectActLevel = true }
}

// Parse converts script text into a document tree plus diagnostics.
//
// Input is treated as UTF-8; CRLF and lone CR are normalized to LF before
// scanning. Empty input yields an empty document and no diagnostics. In
// Strict mode the first error-severity diagnostic aborts the pass and is
// returned as a *ParseError; in Lenient mode the pass always runs to
// completion and returns a best-effort tree alongside all diagnostics.
func Parse(text string, mode Mode, opts ...Option) (*domain.Document, []domain.Diagnostic, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ctx := &parseContext{
		mode: mode,
		pre:  true,
		reg:  NewRegistry(),
		col:  &collector{mode: mode},
	}
	b := newBuilder(ctx, o.rejectActLevel)
	sc := &scanner{ctx: ctx}

	text = normalizeNewlines(text)
	if text != "" {
		for i, line := range strings.Split(text, "\n") {
			for _, blk := range sc.step(line, i+1) {
				b.consume(blk)
			}
			if err := ctx.col.failed(); err != nil {
				return nil, ctx.col.diags, err
			}
		}
		for _, blk := range sc.finish() {
			b.consume(blk)
		}
		if err := ctx.col.failed(); err != nil {
			return nil, ctx.col.diags, err
		}
	}

	b.doc.Characters = ctx.reg.Characters()
	return b.doc, ctx.col.diags, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
