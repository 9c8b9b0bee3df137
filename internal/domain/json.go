/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Interchange form: every item and segment carries an explicit "kind" tag
// so renderers and editor tooling can consume the tree without knowing the
// in-memory representation. Sequence order is preserved exactly; optional
// empty fields are omitted.

import (
	"encoding/json"
	"fmt"
)

// Marshal renders the document in the self-describing interchange form.
func Marshal(d *Document) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(b, '\n'), nil
}

// Unmarshal reconstructs a document from its interchange form.
func Unmarshal(b []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse interchange document: %w", err)
	}
	return &d, nil
}

type kindEnvelope struct {
	Kind ElementKind `json:"kind"`
}

func peekKind(raw json.RawMessage) (ElementKind, error) {
	var env kindEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("read kind tag: %w", err)
	}
	if env.Kind == "" {
		return "", fmt.Errorf("missing kind tag in %s", truncate(raw))
	}
	return env.Kind, nil
}

func truncate(raw json.RawMessage) string {
	const max = 60
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

func (a *Act) MarshalJSON() ([]byte, error) {
	type alias Act
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		*alias
	}{KindAct, (*alias)(a)})
}

func (s *Scene) MarshalJSON() ([]byte, error) {
	type alias Scene
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		*alias
	}{KindScene, (*alias)(s)})
}

func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindComment, alias(c)})
}

func (d StageDirection) MarshalJSON() ([]byte, error) {
	type alias StageDirection
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindStageDirection, alias(d)})
}

func (d Dialogue) MarshalJSON() ([]byte, error) {
	type alias Dialogue
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindDialogue, alias(d)})
}

func (c Cue) MarshalJSON() ([]byte, error) {
	type alias Cue
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindCue, alias(c)})
}

func (t Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindText, alias(t)})
}

func (d InlineDirection) MarshalJSON() ([]byte, error) {
	type alias InlineDirection
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindInlineDirection, alias(d)})
}

func (m Mention) MarshalJSON() ([]byte, error) {
	type alias Mention
	return json.Marshal(struct {
		Kind ElementKind `json:"kind"`
		alias
	}{KindMention, alias(m)})
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var env struct {
		Title      string            `json:"title"`
		Metadata   []Metadata        `json:"metadata"`
		Items      []json.RawMessage `json:"items"`
		Characters []*Character      `json:"characters"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	d.Title = env.Title
	d.Metadata = env.Metadata
	d.Characters = env.Characters
	d.Items = nil
	if env.Items != nil {
		d.Items = make([]Item, 0, len(env.Items))
	}
	for _, raw := range env.Items {
		item, err := decodeItem(raw)
		if err != nil {
			return err
		}
		d.Items = append(d.Items, item)
	}
	return nil
}

func (a *Act) UnmarshalJSON(b []byte) error {
	var env struct {
		Title    string            `json:"title"`
		Line     int               `json:"line"`
		Elements []json.RawMessage `json:"elements"`
		Scenes   []*Scene          `json:"scenes"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	a.Title = env.Title
	a.Line = env.Line
	a.Scenes = env.Scenes
	a.Elements = nil
	if env.Elements != nil {
		a.Elements = make([]Element, 0, len(env.Elements))
	}
	for _, raw := range env.Elements {
		el, err := decodeElement(raw)
		if err != nil {
			return err
		}
		a.Elements = append(a.Elements, el)
	}
	return nil
}

func (s *Scene) UnmarshalJSON(b []byte) error {
	var env struct {
		Title    string            `json:"title"`
		Line     int               `json:"line"`
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	s.Title = env.Title
	s.Line = env.Line
	s.Elements = nil
	if env.Elements != nil {
		s.Elements = make([]Element, 0, len(env.Elements))
	}
	for _, raw := range env.Elements {
		el, err := decodeElement(raw)
		if err != nil {
			return err
		}
		s.Elements = append(s.Elements, el)
	}
	return nil
}

func (d *StageDirection) UnmarshalJSON(b []byte) error {
	var env struct {
		Segments []json.RawMessage `json:"segments"`
		Line     int               `json:"line"`
		EndLine  int               `json:"end_line"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	d.Line = env.Line
	d.EndLine = env.EndLine
	d.Segments = nil
	if env.Segments != nil {
		d.Segments = make([]Segment, 0, len(env.Segments))
	}
	for _, raw := range env.Segments {
		seg, err := decodeSegment(raw)
		if err != nil {
			return err
		}
		d.Segments = append(d.Segments, seg)
	}
	return nil
}

func (d *Dialogue) UnmarshalJSON(b []byte) error {
	var env struct {
		Speakers []CharacterRef    `json:"speakers"`
		Segments []json.RawMessage `json:"segments"`
		Line     int               `json:"line"`
		EndLine  int               `json:"end_line"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	d.Speakers = env.Speakers
	d.Line = env.Line
	d.EndLine = env.EndLine
	d.Segments = nil
	if env.Segments != nil {
		d.Segments = make([]Segment, 0, len(env.Segments))
	}
	for _, raw := range env.Segments {
		seg, err := decodeSegment(raw)
		if err != nil {
			return err
		}
		d.Segments = append(d.Segments, seg)
	}
	return nil
}

func (d *InlineDirection) UnmarshalJSON(b []byte) error {
	var env struct {
		Segments []json.RawMessage `json:"segments"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	d.Segments = nil
	if env.Segments != nil {
		d.Segments = make([]Segment, 0, len(env.Segments))
	}
	for _, raw := range env.Segments {
		seg, err := decodeSegment(raw)
		if err != nil {
			return err
		}
		d.Segments = append(d.Segments, seg)
	}
	return nil
}

func decodeItem(raw json.RawMessage) (Item, error) {
	kind, err := peekKind(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindAct:
		var a Act
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return &a, nil
	case KindScene:
		var s Scene
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return decodeElement(raw)
	}
}

func decodeElement(raw json.RawMessage) (Element, error) {
	kind, err := peekKind(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindComment:
		var c Comment
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case KindStageDirection:
		var d StageDirection
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindDialogue:
		var d Dialogue
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindCue:
		var c Cue
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown element kind %q", kind)
	}
}

func decodeSegment(raw json.RawMessage) (Segment, error) {
	kind, err := peekKind(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindText:
		var t Text
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindInlineDirection:
		var d InlineDirection
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindMention:
		var m Mention
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown segment kind %q", kind)
	}
}
