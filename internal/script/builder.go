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

// builder nests the scanner's flat block sequence into the document tree.
// It owns the pre-structural phase flag: the flag is cleared permanently by
// the first block that is not metadata, which is what makes later
// metadata-shaped lines ineligible regardless of their lexical form.
type builder struct {
	ctx            *parseContext
	doc            *domain.Document
	act            *domain.Act
	scene          *domain.Scene
	titleLine      int // line of the current document title, 0 when unset
	metaLines      map[string]int
	rejectActLevel bool
}

func newBuilder(ctx *parseContext, rejectActLevel bool) *builder {
	return &builder{
		ctx:            ctx,
		doc:            &domain.Document{},
		metaLines:      make(map[string]int),
		rejectActLevel: rejectActLevel,
	}
}

func (b *builder) consume(blk block) {
	if blk.kind == blockMetadata {
		b.addMetadata(blk)
		return
	}
	b.ctx.pre = false

	switch blk.kind {
	case blockTitle:
		title := strings.TrimSpace(blk.text)
		if b.titleLine > 0 {
			b.ctx.diag(domain.DiagDuplicateDocumentTitle, domain.SeverityWarning, blk.start,
				"document title %q replaces the title set at line %d", title, b.titleLine)
		}
		b.doc.Title = title
		b.titleLine = blk.start
	case blockAct:
		b.act = &domain.Act{Title: strings.TrimSpace(blk.text), Line: blk.start}
		b.doc.Items = append(b.doc.Items, b.act)
		b.scene = nil
	case blockScene:
		sc := &domain.Scene{Title: strings.TrimSpace(blk.text), Line: blk.start}
		if b.act != nil {
			b.act.Scenes = append(b.act.Scenes, sc)
		} else {
			b.ctx.diag(domain.DiagOrphanScene, domain.SeverityInfo, blk.start,
				"scene %q has no enclosing act", sc.Title)
			b.doc.Items = append(b.doc.Items, sc)
		}
		b.scene = sc
	default:
		b.place(b.element(blk), blk)
	}
}

func (b *builder) addMetadata(blk block) {
	if first, dup := b.metaLines[blk.key]; dup {
		// First write wins.
		b.ctx.diag(domain.DiagDuplicateMetadataKey, domain.SeverityWarning, blk.start,
			"metadata key %q already set at line %d; keeping the first value", blk.key, first)
		return
	}
	b.metaLines[blk.key] = blk.start
	b.doc.Metadata = append(b.doc.Metadata, domain.Metadata{Key: blk.key, Value: blk.value, Line: blk.start})
}

func (b *builder) element(blk block) domain.Element {
	switch blk.kind {
	case blockComment:
		return domain.Comment{Text: blk.text, Line: blk.start}
	case blockCue:
		return domain.Cue{Name: blk.name, Argument: blk.arg, Line: blk.start}
	case blockStageDirection:
		el := domain.StageDirection{
			Segments: segmentText(blk.text, blk.start, domain.KindStageDirection, b.ctx),
			Line:     blk.start,
		}
		if blk.end > blk.start {
			el.EndLine = blk.end
		}
		return el
	default: // blockDialogue
		el := domain.Dialogue{
			Speakers: b.speakers(blk),
			Segments: segmentText(blk.text, blk.start, domain.KindDialogue, b.ctx),
			Line:     blk.start,
		}
		if blk.end > blk.start {
			el.EndLine = blk.end
		}
		return el
	}
}

// speakers deduplicates the cue's speaker list while keeping written order,
// registering each character.
func (b *builder) speakers(blk block) []domain.CharacterRef {
	seen := make(map[domain.CharacterRef]bool, len(blk.speakers))
	out := make([]domain.CharacterRef, 0, len(blk.speakers))
	for _, sp := range blk.speakers {
		if seen[sp] {
			b.ctx.diag(domain.DiagDuplicateSpeakerInCue, domain.SeverityWarning, blk.start,
				"speaker @%s listed more than once in the same cue", sp)
			continue
		}
		seen[sp] = true
		b.ctx.reg.LookupOrCreate(sp, blk.start, domain.KindDialogue)
		out = append(out, sp)
	}
	return out
}

func (b *builder) place(el domain.Element, blk block) {
	switch {
	case b.scene != nil:
		b.scene.Elements = append(b.scene.Elements, el)
	case b.act != nil:
		if b.rejectActLevel {
			b.ctx.diag(domain.DiagElementOutsideScene, domain.SeverityError, blk.start,
				"content inside act %q appears before any scene heading", b.act.Title)
		}
		b.act.Elements = append(b.act.Elements, el)
	default:
		b.doc.Items = append(b.doc.Items, el)
	}
}
