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

// Package pass1 implements symbol resolution and location-counter
// assignment: the symbol table, the intermediate list, program
// name/start/length, and the deferred-EQU fixed point.
package pass1

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/expr"
	"github.com/YusufEmad04/sic-project/pkg/litparse"
	"github.com/YusufEmad04/sic-project/pkg/optable"
	"github.com/YusufEmad04/sic-project/pkg/token"
)

// parseStartAddress parses a START operand as hex, matching SIC/XE
// convention and the validator's IsValidHex check: unlike most numeric
// operands, a bare digit string here means hex, never decimal.
func parseStartAddress(s string) (int64, error) {
	if !litparse.IsValidHex(s) {
		return 0, fmt.Errorf("invalid START address %q", s)
	}
	return strconv.ParseInt(s, 16, 64)
}

// SymbolTable maps an uppercased symbol name to its 20-bit address.
type SymbolTable map[string]int64

// Entry is a tokenized line annotated with its Pass 1 outcome.
type Entry struct {
	Line      token.Line
	Locctr    int64
	HasLocctr bool
	Size      int64
}

// Result is everything Pass 1 produces.
type Result struct {
	Intermediate []Entry
	Symbols      SymbolTable
	ProgramName  string
	StartAddress int64
	Length       int64
	Diagnostics  diag.Bag
	Success      bool
}

type deferredEQU struct {
	Label   string
	Operand string
	Locctr  int64
	LineNo  int
	Index   int // index into Result.Intermediate
}

// Run executes Pass 1 over the tokenized lines.
func Run(lines []token.Line) Result {
	res := Result{Symbols: make(SymbolTable)}

	var locctr int64
	var foundStart, foundEnd, sawContent bool
	var deferred []deferredEQU

	lookup := func(name string) (int64, bool) {
		v, ok := res.Symbols[name]
		return v, ok
	}

	for _, line := range lines {
		if line.IsEmpty || line.IsComment {
			res.Intermediate = append(res.Intermediate, Entry{Line: line})
			continue
		}

		if foundEnd {
			res.Intermediate = append(res.Intermediate, Entry{Line: line})
			continue
		}

		switch line.Opcode {
		case "START":
			if foundStart {
				res.Diagnostics.ErrorfAt(diag.PhasePass1, line.LineNo, locctr, "duplicate START directive")
			} else if sawContent {
				res.Diagnostics.ErrorfAt(diag.PhasePass1, line.LineNo, locctr, "START must be the first line of the program")
			}

			val, err := parseStartAddress(line.Operand)
			if err != nil {
				val = 0
			}

			locctr = val
			res.StartAddress = val
			if line.Label != "" {
				res.ProgramName = line.Label
			} else {
				res.ProgramName = "PROG"
			}
			foundStart = true

			if line.Label != "" {
				res.Symbols[strings.ToUpper(line.Label)] = locctr
			}

			res.Intermediate = append(res.Intermediate, Entry{Line: line, Locctr: locctr, HasLocctr: true})

		case "END":
			foundEnd = true
			res.Length = locctr - res.StartAddress
			res.Intermediate = append(res.Intermediate, Entry{Line: line})

		case "EQU":
			entryIndex := len(res.Intermediate)
			res.Intermediate = append(res.Intermediate, Entry{Line: line, Locctr: locctr, HasLocctr: true})

			if line.Label == "" || line.Operand == "" {
				res.Diagnostics.ErrorfAt(diag.PhasePass1, line.LineNo, locctr, "EQU requires a label and an operand")
				sawContent = true
				continue
			}

			result := expr.Evaluate(line.Operand, lookup, locctr)
			if result.Resolvable {
				res.Symbols[strings.ToUpper(line.Label)] = result.Value
			} else {
				deferred = append(deferred, deferredEQU{
					Label: line.Label, Operand: line.Operand,
					Locctr: locctr, LineNo: line.LineNo, Index: entryIndex,
				})
			}

			sawContent = true

		case "ORG":
			res.Intermediate = append(res.Intermediate, Entry{Line: line, Locctr: locctr, HasLocctr: true})

			result := expr.Evaluate(line.Operand, lookup, locctr)
			if !result.Resolvable {
				res.Diagnostics.ErrorfAt(diag.PhasePass1, line.LineNo, locctr,
					"ORG expression references an undefined symbol and cannot be resolved immediately")
			} else {
				locctr = result.Value
			}

			sawContent = true

		default:
			if line.Label != "" {
				key := strings.ToUpper(line.Label)
				if prior, exists := res.Symbols[key]; exists {
					res.Diagnostics.Add(diag.PhasePass1, line.LineNo, diag.SeverityError,
						fmt.Sprintf("duplicate symbol %q (previously defined at %04X)", line.Label, prior),
						diag.WithLabel(line.Label), diag.WithLocctrHex(fmt.Sprintf("%04X", locctr)))
				} else {
					res.Symbols[key] = locctr
				}
			}

			size, err := sizeOf(line)
			if err != "" {
				res.Diagnostics.ErrorfAt(diag.PhasePass1, line.LineNo, locctr, err)
			}

			res.Intermediate = append(res.Intermediate, Entry{
				Line: line, Locctr: locctr, HasLocctr: true, Size: size,
			})

			locctr += size
			sawContent = true
		}
	}

	if !foundEnd {
		res.Diagnostics.WarnfAt(diag.PhasePass1, len(lines), locctr, "missing END directive")
		res.Length = locctr - res.StartAddress
	}

	resolveDeferred(&res, deferred, lookup)

	res.Success = !res.Diagnostics.HasErrors()

	return res
}

// resolveDeferred repeatedly re-tries every deferred EQU's expression,
// inserting symbols as they resolve, until a full pass resolves nothing.
func resolveDeferred(res *Result, deferred []deferredEQU, lookup expr.Lookup) {
	maxIter := len(deferred) + 1

	for iter := 0; iter < maxIter && len(deferred) > 0; iter++ {
		var remaining []deferredEQU
		resolvedAny := false

		for _, d := range deferred {
			result := expr.Evaluate(d.Operand, lookup, d.Locctr)
			if result.Resolvable {
				res.Symbols[strings.ToUpper(d.Label)] = result.Value
				resolvedAny = true
			} else {
				remaining = append(remaining, d)
			}
		}

		deferred = remaining
		if !resolvedAny {
			break
		}
	}

	for _, d := range deferred {
		res.Diagnostics.ErrorfAt(diag.PhasePass1, d.LineNo, d.Locctr,
			"undefined symbol or circular reference in EQU expression for %q", d.Label)
	}
}

// sizeOf returns the byte size of a line per the Pass 1 size table. An
// empty err string means success.
func sizeOf(line token.Line) (int64, string) {
	switch line.Opcode {
	case "START", "END", "BASE", "NOBASE", "EQU", "ORG", "LTORG", "USE", "CSECT", "EXTDEF", "EXTREF":
		return 0, ""
	case "BYTE":
		n, err := litparse.CalculateByteConstantSize(line.Operand)
		if err != nil {
			return 0, fmt.Sprintf("invalid BYTE operand %q", line.Operand)
		}
		return int64(n), ""
	case "WORD":
		return 3, ""
	case "RESB":
		n, err := litparse.ParseNumeric(line.Operand)
		if err != nil {
			return 0, fmt.Sprintf("invalid RESB operand %q", line.Operand)
		}
		return n, ""
	case "RESW":
		n, err := litparse.ParseNumeric(line.Operand)
		if err != nil {
			return 0, fmt.Sprintf("invalid RESW operand %q", line.Operand)
		}
		return 3 * n, ""
	}

	op, ok := optable.Lookup(line.Opcode)
	if !ok {
		return 0, fmt.Sprintf("unknown opcode %q", line.Opcode)
	}

	if line.Extended {
		return 4, ""
	}

	switch op.Format {
	case optable.Format1:
		return 1, ""
	case optable.Format2:
		return 2, ""
	case optable.Format3:
		return 3, ""
	}

	return 0, fmt.Sprintf("opcode %q has no known format", line.Opcode)
}
