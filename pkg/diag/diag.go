// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package diag defines the single tagged diagnostic value carried through
// every stage of the assembler pipeline.
package diag

import "fmt"

// Phase names the pipeline stage that raised a diagnostic.
type Phase string

const (
	PhaseLexer     Phase = "lexer"
	PhaseValidator Phase = "validator"
	PhasePass1     Phase = "pass1"
	PhasePass2     Phase = "pass2"
	PhaseObjProg   Phase = "objprog"
	PhaseLoader    Phase = "loader"
)

// Severity distinguishes a halting error from an advisory warning.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is the single carrier type for every error and warning the
// pipeline produces. Every stage appends to a []Diagnostic rather than
// returning a bare error for recoverable per-line problems.
type Diagnostic struct {
	Phase     Phase
	Line      int
	Severity  Severity
	Message   string
	Excerpt   string // raw source line, when available
	Label     string
	Opcode    string
	Operand   string
	LocctrHex string // current location counter, hex, when available
	Hint      string // remediation hint
}

func (d Diagnostic) Error() string {
	return d.String()
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("line %d: [%s] %s: %s", d.Line, d.Phase, d.Severity, d.Message)
	if d.LocctrHex != "" {
		s += fmt.Sprintf(" [locctr=%s]", d.LocctrHex)
	}
	if d.Hint != "" {
		s += " (" + d.Hint + ")"
	}
	return s
}

// IsError reports whether d halts progression to the next stage.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Bag is an ordered collection of diagnostics with convenience
// constructors matching each stage's needs.
type Bag []Diagnostic

// Add appends a new diagnostic built from the given fields.
func (b *Bag) Add(phase Phase, line int, severity Severity, message string, opts ...Option) {
	d := Diagnostic{Phase: phase, Line: line, Severity: severity, Message: message}
	for _, opt := range opts {
		opt(&d)
	}
	*b = append(*b, d)
}

// Errorf appends an error-severity diagnostic.
func (b *Bag) Errorf(phase Phase, line int, format string, args ...interface{}) {
	b.Add(phase, line, SeverityError, fmt.Sprintf(format, args...))
}

// Warnf appends a warning-severity diagnostic.
func (b *Bag) Warnf(phase Phase, line int, format string, args ...interface{}) {
	b.Add(phase, line, SeverityWarning, fmt.Sprintf(format, args...))
}

// ErrorfAt is Errorf plus the current location counter, rendered in hex,
// for stages where one is available.
func (b *Bag) ErrorfAt(phase Phase, line int, locctr int64, format string, args ...interface{}) {
	b.Add(phase, line, SeverityError, fmt.Sprintf(format, args...), WithLocctrHex(fmt.Sprintf("%04X", locctr)))
}

// WarnfAt is Warnf plus the current location counter, rendered in hex, for
// stages where one is available.
func (b *Bag) WarnfAt(phase Phase, line int, locctr int64, format string, args ...interface{}) {
	b.Add(phase, line, SeverityWarning, fmt.Sprintf(format, args...), WithLocctrHex(fmt.Sprintf("%04X", locctr)))
}

// HasErrors reports whether the bag contains at least one error-severity
// diagnostic.
func (b Bag) HasErrors() bool {
	for _, d := range b {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Option customizes a Diagnostic built via Bag.Add.
type Option func(*Diagnostic)

func WithExcerpt(excerpt string) Option    { return func(d *Diagnostic) { d.Excerpt = excerpt } }
func WithLabel(label string) Option        { return func(d *Diagnostic) { d.Label = label } }
func WithOpcode(opcode string) Option       { return func(d *Diagnostic) { d.Opcode = opcode } }
func WithOperand(operand string) Option     { return func(d *Diagnostic) { d.Operand = operand } }
func WithLocctrHex(locctr string) Option    { return func(d *Diagnostic) { d.LocctrHex = locctr } }
func WithHint(hint string) Option           { return func(d *Diagnostic) { d.Hint = hint } }
