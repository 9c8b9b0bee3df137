/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"

	"stagescript/internal/domain"
)

// Mode selects the failure policy of a parse pass.
type Mode int

const (
	// Lenient runs to completion and returns a best-effort tree together
	// with every diagnostic collected along the way.
	Lenient Mode = iota
	// Strict aborts on the first error-severity diagnostic.
	Strict
)

// ParseError is the single structured failure surfaced in strict mode.
type ParseError struct {
	Diagnostic domain.Diagnostic
}

func (e *ParseError) Error() string {
	d := e.Diagnostic
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
}

// collector accumulates diagnostics in source order. No diagnostic is ever
// dropped; in strict mode the first error is additionally latched as the
// pass failure.
type collector struct {
	mode  Mode
	diags []domain.Diagnostic
	err   error
}

func (c *collector) add(kind domain.DiagnosticKind, sev domain.Severity, line int, format string, args ...any) {
	d := domain.Diagnostic{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...), Severity: sev}
	c.diags = append(c.diags, d)
	if c.mode == Strict && sev == domain.SeverityError && c.err == nil {
		c.err = &ParseError{Diagnostic: d}
	}
}

// failed reports the latched strict-mode failure, if any.
func (c *collector) failed() error { return c.err }

// parseContext is the single mutable state value threaded through the
// block scanner and tree builder. Each parse call owns its own context, so
// concurrent parses never interfere.
type parseContext struct {
	mode Mode
	pre  bool // pre-structural phase: metadata is still eligible
	reg  *Registry
	col  *collector
}

func (c *parseContext) diag(kind domain.DiagnosticKind, sev domain.Severity, line int, format string, args ...any) {
	c.col.add(kind, sev, line, format, args...)
}
