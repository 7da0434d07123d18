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

// Package objprog assembles Pass 2's per-line object code into the H/T/M/E
// object program records: caret-delimited text output ready for a loader.
package objprog

import (
	"fmt"
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/pass2"
)

// maxTextBytes is the largest payload a single text record may carry: 30
// bytes, i.e. 60 hex characters.
const maxTextBytes = 30

// Result is the fully assembled object program.
type Result struct {
	Header       string
	Text         []string
	Modification []string
	End          string
	Diagnostics  diag.Bag
	Success      bool
}

// Records returns every record in H, T..., M..., E emission order.
func (r Result) Records() []string {
	out := make([]string, 0, 2+len(r.Text)+len(r.Modification))
	out = append(out, r.Header)
	out = append(out, r.Text...)
	out = append(out, r.Modification...)
	out = append(out, r.End)
	return out
}

// String renders the object program as caret-delimited lines, one record
// per line, matching the classic SIC/XE object deck layout.
func (r Result) String() string {
	var sb strings.Builder
	for _, rec := range r.Records() {
		sb.WriteString(rec)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Run builds the object program records from the completed Pass 1 and
// Pass 2 results.
func Run(p1 pass1.Result, p2 pass2.Result) Result {
	var res Result

	res.Header = header(p1)
	res.Text = textRecords(p2)
	res.Modification = modificationRecords(p1, p2)
	res.End = endRecord(p1)

	res.Success = !p2.Diagnostics.HasErrors()

	return res
}

// padName truncates or right-pads a program name to exactly 6 characters.
func padName(name string) string {
	if len(name) > 6 {
		name = name[:6]
	}
	return fmt.Sprintf("%-6s", name)
}

func header(p1 pass1.Result) string {
	return fmt.Sprintf("H^%s^%06X^%06X", padName(p1.ProgramName), p1.StartAddress, p1.Length)
}

type textRun struct {
	start int64
	codes []string
	bytes int
}

func (t *textRun) add(locctr int64, hexCode string) {
	if len(t.codes) == 0 {
		t.start = locctr
	}
	t.codes = append(t.codes, hexCode)
	t.bytes += len(hexCode) / 2
}

func (t *textRun) render() string {
	return fmt.Sprintf("T^%06X^%02X^%s", t.start, t.bytes, strings.Join(t.codes, ""))
}

func textRecords(p2 pass2.Result) []string {
	var records []string
	var run *textRun

	flush := func() {
		if run != nil && len(run.codes) > 0 {
			records = append(records, run.render())
		}
		run = nil
	}

	for _, e := range p2.Entries {
		if e.HexCode == "" {
			flush()
			continue
		}

		codeBytes := len(e.HexCode) / 2

		if run != nil && run.bytes+codeBytes > maxTextBytes {
			flush()
		}

		if run == nil {
			run = &textRun{}
		}
		run.add(e.Locctr, e.HexCode)
	}

	flush()

	return records
}

func modificationRecords(p1 pass1.Result, p2 pass2.Result) []string {
	var records []string

	for _, e := range p2.Entries {
		if !e.NeedsModification || e.Format != pass2.Format4 {
			continue
		}
		// The modification spans the 5 nibbles (20 bits) of the address
		// field, which begins one nibble into the instruction's second
		// byte: addr + 1.
		records = append(records, fmt.Sprintf("M^%06X^%02X^+%s", e.Locctr+1, 5, padName(p1.ProgramName)))
	}

	return records
}

func endRecord(p1 pass1.Result) string {
	first := p1.StartAddress

	for _, ientry := range p1.Intermediate {
		if ientry.Line.Opcode != "END" {
			continue
		}
		if ientry.Line.Operand != "" {
			if v, ok := p1.Symbols[strings.ToUpper(ientry.Line.Operand)]; ok {
				first = v
			}
		}
		break
	}

	return fmt.Sprintf("E^%06X", first)
}
