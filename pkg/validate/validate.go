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

// Package validate implements the parser/validator stage: per-line
// syntactic checks producing errors and warnings. It never transforms its
// input.
package validate

import (
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/litparse"
	"github.com/YusufEmad04/sic-project/pkg/optable"
	"github.com/YusufEmad04/sic-project/pkg/token"
)

// Validate runs every per-line syntax check over lines and returns the
// accumulated diagnostics.
func Validate(lines []token.Line) diag.Bag {
	var bag diag.Bag

	for _, line := range lines {
		validateLine(line, &bag)
	}

	return bag
}

func validateLine(line token.Line, bag *diag.Bag) {
	if line.IsEmpty || line.IsComment {
		return
	}

	if line.Label != "" && !litparse.IsValidLabel(line.Label) {
		bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
			"invalid label syntax",
			diag.WithLabel(line.Label), diag.WithExcerpt(line.Raw),
			diag.WithHint("labels are <=16 chars, start with a letter, and contain only letters/digits/underscore"))
	}

	if line.Opcode == "" {
		bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
			"missing opcode", diag.WithExcerpt(line.Raw))
		return
	}

	op, isOp := optable.Lookup(line.Opcode)
	isDirective := optable.IsDirective(line.Opcode)

	if !isOp && !isDirective {
		bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
			"unknown opcode or directive",
			diag.WithOpcode(line.Opcode), diag.WithExcerpt(line.Raw))
		return
	}

	if line.Extended && (!isOp || op.Format != optable.Format3) {
		bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
			"'+' extended-format prefix is only valid on Format-3 instructions",
			diag.WithOpcode(line.Opcode), diag.WithExcerpt(line.Raw))
	}

	if isDirective {
		validateDirective(line, bag)
		return
	}

	if line.Prefix == token.PrefixImmediate && line.Indexed {
		bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
			"immediate addressing cannot be combined with indexed addressing",
			diag.WithOpcode(line.Opcode), diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
	}

	if op.Format == optable.Format2 {
		validateFormat2(line, op, bag)
	}
}

func validateDirective(line token.Line, bag *diag.Bag) {
	switch line.Opcode {
	case "START":
		if line.Operand == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityWarning,
				"START missing start address, defaulting to 0", diag.WithExcerpt(line.Raw))
		} else if !litparse.IsValidHex(line.Operand) {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"START operand must be a hex address", diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
		}

	case "BYTE":
		if !litparse.IsValidByteConstant(line.Operand) {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"BYTE requires a valid C'...' or X'...' constant",
				diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
		}

	case "WORD":
		if line.Operand == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"WORD requires an operand", diag.WithExcerpt(line.Raw))
		}
		// A WORD operand may be a number or a symbol (resolved later);
		// syntax alone cannot distinguish these without a symbol table
		// lookup, which the validator deliberately does not perform.

	case "RESB", "RESW":
		n, _ := litparse.ParseNumeric(line.Operand)
		if !litparse.IsValidDecimal(line.Operand) || n <= 0 {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				line.Opcode+" requires a positive decimal integer operand",
				diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
		}

	case "BASE":
		if line.Operand == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"BASE requires an operand", diag.WithExcerpt(line.Raw))
		}

	case "NOBASE", "LTORG":
		if line.Operand != "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityWarning,
				line.Opcode+" does not take an operand", diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
		}

	case "EQU":
		if line.Label == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"EQU requires a label", diag.WithExcerpt(line.Raw))
		}
		if line.Operand == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"EQU requires an operand", diag.WithExcerpt(line.Raw))
		}

	case "ORG":
		if line.Operand == "" {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"ORG requires an operand", diag.WithExcerpt(line.Raw))
		}
	}
}

func validateFormat2(line token.Line, op optable.Op, bag *diag.Bag) {
	operands := splitOperands(line.Operand)

	switch line.Opcode {
	case "SVC":
		if len(operands) != 1 || !litparse.IsValidDecimal(operands[0]) {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"SVC requires a single decimal operand", diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
		}

	case "SHIFTL", "SHIFTR":
		if len(operands) != 2 {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				line.Opcode+" requires a register and a decimal count",
				diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
			return
		}
		if _, ok := optable.LookupRegister(operands[0]); !ok {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"invalid register operand", diag.WithOperand(operands[0]), diag.WithExcerpt(line.Raw))
		}
		if !litparse.IsValidDecimal(operands[1]) {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"shift count must be a decimal integer", diag.WithOperand(operands[1]), diag.WithExcerpt(line.Raw))
		}

	case "CLEAR", "TIXR":
		if len(operands) != 1 {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				line.Opcode+" requires a single register operand",
				diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
			return
		}
		if _, ok := optable.LookupRegister(operands[0]); !ok {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				"invalid register operand", diag.WithOperand(operands[0]), diag.WithExcerpt(line.Raw))
		}

	default:
		if len(operands) != op.Arity {
			bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
				line.Opcode+" has the wrong number of operands",
				diag.WithOperand(line.Operand), diag.WithExcerpt(line.Raw))
			return
		}
		for _, operand := range operands {
			if _, ok := optable.LookupRegister(operand); !ok {
				bag.Add(diag.PhaseValidator, line.LineNo, diag.SeverityError,
					"invalid register operand", diag.WithOperand(operand), diag.WithExcerpt(line.Raw))
			}
		}
	}
}

func splitOperands(operand string) []string {
	if operand == "" {
		return nil
	}
	parts := strings.Split(operand, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
