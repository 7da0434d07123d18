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

package pass1_test

import (
	"strings"
	"testing"

	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/token"
)

func TestRunBuildsSymbolTableAndLength(t *testing.T) {
	source := `COPY   START  1000
FIRST  LDA    #0
       STA    RESULT
RESULT RESW   1
       END    FIRST
`
	res := pass1.Run(token.Tokenize(source))
	if !res.Success {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}

	if res.ProgramName != "COPY" {
		t.Errorf("ProgramName = %q, want COPY", res.ProgramName)
	}
	if res.StartAddress != 0x1000 {
		t.Errorf("StartAddress = %#X, want %#X", res.StartAddress, 0x1000)
	}

	wantSymbols := map[string]int64{
		"FIRST":  0x1000,
		"RESULT": 0x1006,
	}
	for name, want := range wantSymbols {
		got, ok := res.Symbols[name]
		if !ok {
			t.Errorf("symbol %q not defined", name)
			continue
		}
		if got != want {
			t.Errorf("symbol %q = %#X, want %#X", name, got, want)
		}
	}

	if res.Length != 0x0009 {
		t.Errorf("Length = %#X, want %#X", res.Length, 0x0009)
	}
}

func TestRunDuplicateSymbolIsError(t *testing.T) {
	source := `PROG   START  0
A      LDA    A
A      STA    A
       END    A
`
	res := pass1.Run(token.Tokenize(source))
	if res.Success {
		t.Fatal("expected a duplicate-symbol error")
	}
}

func TestRunDeferredEQUChain(t *testing.T) {
	source := `PROG   START  0
B      EQU    A
A      EQU    100
       END
`
	res := pass1.Run(token.Tokenize(source))
	if !res.Success {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}

	if v, ok := res.Symbols["A"]; !ok || v != 100 {
		t.Errorf("symbol A = %d, ok=%v, want 100", v, ok)
	}
	if v, ok := res.Symbols["B"]; !ok || v != 100 {
		t.Errorf("symbol B = %d, ok=%v, want 100", v, ok)
	}
}

func TestRunUnresolvableEQUIsError(t *testing.T) {
	source := `PROG   START  0
B      EQU    NOSUCHSYMBOL
       END
`
	res := pass1.Run(token.Tokenize(source))
	if res.Success {
		t.Fatal("expected an unresolved-symbol error for the EQU chain")
	}
}

// TestRunDuplicateSymbolNamesBothAddresses covers Scenario F: two labels
// named LOOP must produce exactly one error, and the error must name both
// addresses involved rather than silently keeping the first or last.
func TestRunDuplicateSymbolNamesBothAddresses(t *testing.T) {
	source := `PROG   START  0
LOOP   LDA    LOOP
       STA    LOOP
LOOP   LDA    LOOP
       END    PROG
`
	res := pass1.Run(token.Tokenize(source))
	if res.Success {
		t.Fatal("expected a duplicate-symbol error")
	}

	errCount := 0
	for _, d := range res.Diagnostics {
		if d.IsError() {
			errCount++
			if !strings.Contains(d.Message, "LOOP") {
				t.Errorf("duplicate-symbol diagnostic %q does not name the symbol", d.Message)
			}
			if s := d.String(); !strings.Contains(s, "0000") || !strings.Contains(s, "0006") {
				t.Errorf("duplicate-symbol diagnostic %q does not name both addresses 0000 and 0006", s)
			}
		}
	}
	if errCount != 1 {
		t.Fatalf("got %d error diagnostics, want exactly 1 for the single duplicate LOOP", errCount)
	}
}

// TestRunDeferredEQUResolvesAfterForwardRESB covers Scenario G: an EQU
// referencing a symbol plus an offset, defined before the symbol it
// depends on, must resolve once the fixed-point pass reaches it.
func TestRunDeferredEQUResolvesAfterForwardRESB(t *testing.T) {
	source := `PROG   START  0
BUFEND EQU    BUFFER+4096
BUFFER RESB   4096
       END    PROG
`
	res := pass1.Run(token.Tokenize(source))
	if !res.Success {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}

	bufferAddr, ok := res.Symbols["BUFFER"]
	if !ok {
		t.Fatal("symbol BUFFER not defined")
	}
	bufendAddr, ok := res.Symbols["BUFEND"]
	if !ok {
		t.Fatal("symbol BUFEND not defined")
	}
	if bufendAddr != bufferAddr+4096 {
		t.Errorf("BUFEND = %#X, want BUFFER+4096 = %#X", bufendAddr, bufferAddr+4096)
	}
}

func TestRunMissingEndWarns(t *testing.T) {
	source := `PROG   START  0
A      LDA    A
`
	res := pass1.Run(token.Tokenize(source))
	if res.Success == false {
		t.Fatalf("a missing END is a warning, not an error: %v", res.Diagnostics)
	}
	if len(res.Diagnostics) == 0 {
		t.Error("expected a warning diagnostic for the missing END")
	}
}
