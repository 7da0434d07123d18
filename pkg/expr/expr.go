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

// Package expr implements the fixed-point-free expression evaluator used
// by EQU, ORG, WORD, and addressing resolution: a left-to-right sequence
// of terms joined by '+'/'-', where a term is '*' (current locctr), a
// numeric literal, or an uppercased symbol. There is no operator
// precedence and no parentheses — this is intentional, not a gap; see
// SPEC_FULL.md's design notes.
package expr

import (
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/litparse"
)

// Lookup resolves a symbol name to its value. ok is false when the symbol
// is not yet defined.
type Lookup func(name string) (value int64, ok bool)

// Result is the outcome of evaluating an expression.
type Result struct {
	Value int64
	// Resolvable is false when any term referenced an undefined symbol.
	Resolvable bool
	// IsPlainSymbol is true iff the expression is exactly one bare
	// symbol reference: no arithmetic, not '*', not a numeric literal.
	// Pass 2 uses this to decide whether a WORD operand needs
	// relocation.
	IsPlainSymbol bool
}

// Evaluate evaluates text against the current symbol table and locctr.
func Evaluate(text string, lookup Lookup, locctr int64) Result {
	terms, ops := split(text)

	value, resolvable, _ := evalTerm(terms[0], lookup, locctr)

	for i, op := range ops {
		v, ok, _ := evalTerm(terms[i+1], lookup, locctr)
		if !ok {
			resolvable = false
		}
		if op == '+' {
			value += v
		} else {
			value -= v
		}
	}

	isPlainSymbol := false
	if len(terms) == 1 {
		_, _, kind := evalTerm(terms[0], lookup, locctr)
		isPlainSymbol = kind == termSymbol
	}

	return Result{Value: value, Resolvable: resolvable, IsPlainSymbol: isPlainSymbol}
}

type termKind int

const (
	termNumeric termKind = iota
	termStar
	termSymbol
)

func evalTerm(t string, lookup Lookup, locctr int64) (value int64, ok bool, kind termKind) {
	t = strings.TrimSpace(t)

	if t == "*" {
		return locctr, true, termStar
	}

	// A term shaped like a label is always a symbol, even when its letters
	// also happen to be hex digits ("A", "FACE").
	if !litparse.IsValidLabel(t) {
		if v, err := litparse.ParseNumeric(t); err == nil {
			return v, true, termNumeric
		}
	}

	v, found := lookup(strings.ToUpper(t))
	return v, found, termSymbol
}

// split breaks text into terms and the '+'/'-' operators joining them. A
// leading '+' or '-' is folded into the first term rather than treated as
// a binary operator.
func split(text string) (terms []string, ops []byte) {
	var cur strings.Builder

	for i := 0; i < len(text); i++ {
		c := text[i]

		if c == ' ' || c == '\t' {
			continue
		}

		if c == '+' || c == '-' {
			if cur.Len() == 0 && len(terms) == 0 {
				cur.WriteByte(c)
				continue
			}
			terms = append(terms, cur.String())
			cur.Reset()
			ops = append(ops, c)
			continue
		}

		cur.WriteByte(c)
	}

	terms = append(terms, cur.String())

	return terms, ops
}
