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

// Package pass2 implements code generation: for every instruction line it
// resolves the addressing flags, target address, displacement mode, and
// emits the object-code hex string. It tracks the BASE register as
// pass-local state.
package pass2

import (
	"fmt"
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/expr"
	"github.com/YusufEmad04/sic-project/pkg/litparse"
	"github.com/YusufEmad04/sic-project/pkg/optable"
	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/token"
)

// Format is the effective instruction format of an entry; 0 means the
// entry carries no object code at all.
type Format int

const (
	FormatNone Format = 0
	Format1    Format = 1
	Format2    Format = 2
	Format3    Format = 3
	Format4    Format = 4
)

func (f Format) String() string {
	if f == FormatNone {
		return "none"
	}
	return fmt.Sprintf("%d", int(f))
}

// AddrMode is the addressing mode selected for an operand.
type AddrMode int

const (
	AddrSimple AddrMode = iota
	AddrImmediate
	AddrIndirect
)

func (m AddrMode) String() string {
	switch m {
	case AddrImmediate:
		return "immediate"
	case AddrIndirect:
		return "indirect"
	default:
		return "simple"
	}
}

// DispMode is the displacement scheme chosen for a Format-3 instruction,
// or Direct for a Format-3 immediate literal / Format-4 address field.
type DispMode int

const (
	DispNone DispMode = iota
	DispPCRelative
	DispBaseRelative
	DispDirect
)

func (m DispMode) String() string {
	switch m {
	case DispPCRelative:
		return "pc-relative"
	case DispBaseRelative:
		return "base-relative"
	case DispDirect:
		return "direct"
	default:
		return "none"
	}
}

// Entry is one line's Pass 2 outcome.
type Entry struct {
	Line      token.Line
	Locctr    int64
	HasLocctr bool

	Format Format
	N, I, X, B, P, E byte

	Target    int64
	HasTarget bool

	Disp    int64
	HasDisp bool

	DispMode DispMode
	AddrMode AddrMode

	HexCode            string
	NeedsModification bool
}

// Result is everything Pass 2 produces.
type Result struct {
	Entries     []Entry
	Diagnostics diag.Bag
	Success     bool
}

// Run executes Pass 2 over a completed Pass 1 result.
func Run(p1 pass1.Result) Result {
	var res Result
	var base *int64

	for _, ientry := range p1.Intermediate {
		line := ientry.Line

		switch {
		case line.IsEmpty || line.IsComment:
			res.Entries = append(res.Entries, Entry{Line: line})
			continue

		case line.Opcode == "START", line.Opcode == "END", line.Opcode == "LTORG",
			line.Opcode == "EQU", line.Opcode == "ORG", line.Opcode == "RESB", line.Opcode == "RESW",
			line.Opcode == "USE", line.Opcode == "CSECT", line.Opcode == "EXTDEF", line.Opcode == "EXTREF":
			res.Entries = append(res.Entries, Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr})
			continue

		case line.Opcode == "BASE":
			val, ok := resolveBase(line.Operand, p1.Symbols)
			if !ok {
				res.Diagnostics.ErrorfAt(diag.PhasePass2, line.LineNo, ientry.Locctr, "undefined symbol for BASE: %q", line.Operand)
			} else {
				base = &val
			}
			res.Entries = append(res.Entries, Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr})
			continue

		case line.Opcode == "NOBASE":
			base = nil
			res.Entries = append(res.Entries, Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr})
			continue

		case line.Opcode == "BYTE":
			res.Entries = append(res.Entries, emitByte(line, ientry, &res.Diagnostics))
			continue

		case line.Opcode == "WORD":
			res.Entries = append(res.Entries, emitWord(line, ientry, p1.Symbols, &res.Diagnostics))
			continue
		}

		res.Entries = append(res.Entries, emitInstruction(line, ientry, p1.Symbols, base, &res.Diagnostics))
	}

	res.Success = !res.Diagnostics.HasErrors()
	return res
}

func resolveBase(operand string, symtab pass1.SymbolTable) (int64, bool) {
	key := strings.ToUpper(strings.TrimSpace(operand))
	if v, ok := symtab[key]; ok {
		return v, true
	}
	if v, err := litparse.ParseNumeric(operand); err == nil {
		return v, true
	}
	return 0, false
}

func emitByte(line token.Line, ientry pass1.Entry, bag *diag.Bag) Entry {
	e := Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr}

	bytes, err := litparse.ByteConstantBytes(line.Operand)
	if err != nil {
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, ientry.Locctr, "invalid BYTE operand %q", line.Operand)
		return e
	}

	var sb strings.Builder
	for _, b := range bytes {
		fmt.Fprintf(&sb, "%02X", b)
	}
	e.HexCode = sb.String()

	return e
}

func emitWord(line token.Line, ientry pass1.Entry, symtab pass1.SymbolTable, bag *diag.Bag) Entry {
	e := Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr}

	lookup := func(name string) (int64, bool) {
		v, ok := symtab[name]
		return v, ok
	}

	result := expr.Evaluate(line.Operand, lookup, ientry.Locctr)
	if !result.Resolvable {
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, ientry.Locctr, "undefined symbol in WORD operand %q", line.Operand)
		return e
	}

	e.HexCode = fmt.Sprintf("%06X", uint32(result.Value)&0xFFFFFF)
	e.NeedsModification = result.IsPlainSymbol

	return e
}

func emitInstruction(line token.Line, ientry pass1.Entry, symtab pass1.SymbolTable, base *int64, bag *diag.Bag) Entry {
	e := Entry{Line: line, Locctr: ientry.Locctr, HasLocctr: ientry.HasLocctr}

	op, ok := optable.Lookup(line.Opcode)
	if !ok {
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, ientry.Locctr, "unknown opcode %q", line.Opcode)
		return e
	}

	effFormat := op.Format
	if line.Extended {
		e.Format = Format4
	} else {
		e.Format = Format(effFormat)
	}

	switch {
	case effFormat == optable.Format1:
		e.HexCode = fmt.Sprintf("%02X", op.Opcode)

	case effFormat == optable.Format2:
		code, err := encodeFormat2(line)
		if err != "" {
			bag.ErrorfAt(diag.PhasePass2, line.LineNo, ientry.Locctr, err)
			return e
		}
		e.HexCode = fmt.Sprintf("%02X%02X", op.Opcode, code)

	case e.Format == Format4:
		encodeFormat4(&e, op, line, symtab, bag)

	default: // Format 3
		encodeFormat3(&e, op, line, symtab, ientry.Locctr, base, bag)
	}

	return e
}

// encodeFormat2 packs two 4-bit register/immediate fields into one byte.
func encodeFormat2(line token.Line) (byte, string) {
	operands := splitOperands(line.Operand)

	var r1, r2 byte

	switch line.Opcode {
	case "SVC":
		if len(operands) != 1 {
			return 0, "SVC requires one operand"
		}
		v, err := litparse.ParseNumeric(operands[0])
		if err != nil {
			return 0, fmt.Sprintf("invalid SVC operand %q", operands[0])
		}
		r1 = byte(v) & 0x0F

	case "SHIFTL", "SHIFTR":
		if len(operands) != 2 {
			return 0, line.Opcode + " requires a register and a count"
		}
		reg, ok := optable.LookupRegister(operands[0])
		if !ok {
			return 0, fmt.Sprintf("invalid register %q", operands[0])
		}
		count, err := litparse.ParseNumeric(operands[1])
		if err != nil {
			return 0, fmt.Sprintf("invalid shift count %q", operands[1])
		}
		r1 = reg
		r2 = byte(count-1) & 0x0F

	case "CLEAR", "TIXR":
		if len(operands) != 1 {
			return 0, line.Opcode + " requires one register operand"
		}
		reg, ok := optable.LookupRegister(operands[0])
		if !ok {
			return 0, fmt.Sprintf("invalid register %q", operands[0])
		}
		r1 = reg

	default:
		if len(operands) != 2 {
			return 0, line.Opcode + " requires two register operands"
		}
		reg1, ok1 := optable.LookupRegister(operands[0])
		reg2, ok2 := optable.LookupRegister(operands[1])
		if !ok1 {
			return 0, fmt.Sprintf("invalid register %q", operands[0])
		}
		if !ok2 {
			return 0, fmt.Sprintf("invalid register %q", operands[1])
		}
		r1, r2 = reg1, reg2
	}

	return (r1 << 4) | (r2 & 0x0F), ""
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

// resolveAddressing computes n/i/x and the addressing mode from a line's
// prefix/indexed flags and evaluates its operand, per SPEC_FULL.md §4.8.
func resolveAddressing(line token.Line, symtab pass1.SymbolTable, locctr int64) (n, i, x byte, mode AddrMode, target int64, hasTarget bool, fatal string) {
	n, i = 1, 1
	mode = AddrSimple

	switch line.Prefix {
	case token.PrefixImmediate:
		n, i = 0, 1
		mode = AddrImmediate
	case token.PrefixIndirect:
		n, i = 1, 0
		mode = AddrIndirect
	}

	if line.Indexed {
		x = 1
	}

	if line.Operand == "" {
		return n, i, x, mode, 0, false, ""
	}

	lookup := func(name string) (int64, bool) {
		v, ok := symtab[name]
		return v, ok
	}

	result := expr.Evaluate(line.Operand, lookup, locctr)
	if result.Resolvable {
		return n, i, x, mode, result.Value, true, ""
	}

	if mode != AddrImmediate {
		return n, i, x, mode, 0, false, fmt.Sprintf("undefined symbol in operand %q", line.Operand)
	}

	return n, i, x, mode, 0, false, ""
}

func encodeFormat3(e *Entry, op optable.Op, line token.Line, symtab pass1.SymbolTable, locctr int64, base *int64, bag *diag.Bag) {
	n, i, x, mode, target, hasTarget, fatal := resolveAddressing(line, symtab, locctr)
	if fatal != "" {
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, locctr, fatal)
		return
	}

	e.N, e.I, e.X, e.E = n, i, x, 0
	e.AddrMode = mode

	pc := locctr + 3

	var disp int64
	var b, p byte
	var dispMode DispMode

	switch {
	case mode == AddrImmediate && isPureNumeric(line.Operand):
		v, _ := litparse.ParseNumeric(line.Operand)
		disp = v & 0xFFF
		dispMode = DispDirect

	case hasTarget:
		var ok bool
		disp, b, p, dispMode, ok = selectDisplacement(target, pc, base)
		if !ok {
			bag.Add(diag.PhasePass2, line.LineNo, diag.SeverityError,
				"displacement out of range for PC-relative or BASE-relative addressing",
				diag.WithHint("use '+' to force extended (Format 4) addressing"),
				diag.WithLocctrHex(fmt.Sprintf("%04X", locctr)))
			return
		}

	case mode == AddrImmediate && line.Operand != "":
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, locctr,
			"undefined symbol in immediate operand %q; Format 3 cannot carry an unresolved relocatable address, use '+' for extended format", line.Operand)
		return

	default: // no operand, e.g. RSUB
		disp, b, p, dispMode = 0, 0, 0, DispNone
	}

	e.B, e.P = b, p
	e.Target = target
	e.HasTarget = hasTarget
	e.Disp = disp
	e.HasDisp = true
	e.DispMode = dispMode

	byte1 := (op.Opcode & 0xFC) | (n << 1) | i
	byte2 := (x << 7) | (b << 6) | (p << 5) | (e.E << 4) | byte((disp>>8)&0x0F)
	byte3 := byte(disp & 0xFF)

	e.HexCode = fmt.Sprintf("%02X%02X%02X", byte1, byte2, byte3)
}

func encodeFormat4(e *Entry, op optable.Op, line token.Line, symtab pass1.SymbolTable, bag *diag.Bag) {
	n, i, x, mode, target, _, fatal := resolveAddressing(line, symtab, 0)
	if fatal != "" {
		bag.ErrorfAt(diag.PhasePass2, line.LineNo, e.Locctr, fatal)
		return
	}

	e.N, e.I, e.X, e.B, e.P, e.E = n, i, x, 0, 0, 1
	e.AddrMode = mode
	e.DispMode = DispDirect

	var addr int64
	switch {
	case line.Operand == "":
		addr = 0

	case mode == AddrImmediate && isPureNumeric(line.Operand):
		addr, _ = litparse.ParseNumeric(line.Operand)

	default:
		addr = target
		e.NeedsModification = (n == 1 && i == 1) || (mode == AddrImmediate)
	}

	e.Target = addr
	e.HasTarget = true
	e.Disp = addr
	e.HasDisp = true

	addr20 := uint32(addr) & 0xFFFFF

	byte1 := (op.Opcode & 0xFC) | (n << 1) | i
	byte2 := (x << 7) | (e.B << 6) | (e.P << 5) | (e.E << 4) | byte((addr20>>16)&0x0F)
	byte3 := byte((addr20 >> 8) & 0xFF)
	byte4 := byte(addr20 & 0xFF)

	e.HexCode = fmt.Sprintf("%02X%02X%02X%02X", byte1, byte2, byte3, byte4)
}

func isPureNumeric(operand string) bool {
	if litparse.IsValidLabel(operand) {
		return false
	}
	_, err := litparse.ParseNumeric(operand)
	return err == nil
}

// selectDisplacement implements SPEC_FULL.md §4.9: prefer PC-relative,
// fall back to BASE-relative, else report out-of-range.
func selectDisplacement(target, pc int64, base *int64) (disp int64, b, p byte, mode DispMode, ok bool) {
	dispPC := target - pc
	if dispPC >= -2048 && dispPC <= 2047 {
		return dispPC & 0xFFF, 0, 1, DispPCRelative, true
	}

	if base != nil {
		dispBase := target - *base
		if dispBase >= 0 && dispBase <= 4095 {
			return dispBase, 1, 0, DispBaseRelative, true
		}
	}

	return 0, 0, 0, DispNone, false
}
