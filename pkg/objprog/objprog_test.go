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

package objprog_test

import (
	"strings"
	"testing"

	"github.com/YusufEmad04/sic-project/pkg/objprog"
	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/pass2"
	"github.com/YusufEmad04/sic-project/pkg/token"
)

func TestRunHeaderAndEnd(t *testing.T) {
	source := `COPY   START  1000
FIRST  LDA    #0
       END    FIRST
`
	p1 := pass1.Run(token.Tokenize(source))
	p2 := pass2.Run(p1)
	res := objprog.Run(p1, p2)

	if !strings.HasPrefix(res.Header, "H^COPY  ^001000^") {
		t.Errorf("Header = %q, want prefix H^COPY  ^001000^", res.Header)
	}
	if res.End != "E^001000" {
		t.Errorf("End = %q, want E^001000", res.End)
	}
}

func TestRunModificationRecordForFormat4(t *testing.T) {
	source := `COPY   START  0
FIRST  +JSUB  RDREC
RDREC  RSUB
       END    FIRST
`
	p1 := pass1.Run(token.Tokenize(source))
	p2 := pass2.Run(p1)
	res := objprog.Run(p1, p2)

	if len(res.Modification) != 1 {
		t.Fatalf("got %d modification records, want 1: %v", len(res.Modification), res.Modification)
	}
	if !strings.HasPrefix(res.Modification[0], "M^000001^05^+COPY") {
		t.Errorf("Modification[0] = %q, want prefix M^000001^05^+COPY", res.Modification[0])
	}
}

// TestRunWordReferencingSymbolProducesNoModificationRecord covers the
// documented reference-behavior limitation: pkg/pass2 tags a plain-symbol
// WORD operand with NeedsModification, but the record generator only
// emits M records for Format 4, so a WORD-only program must still come
// out with zero M records.
func TestRunWordReferencingSymbolProducesNoModificationRecord(t *testing.T) {
	source := `COPY   START  0
FIRST  LDA    #0
PTR    WORD   FIRST
       END    FIRST
`
	p1 := pass1.Run(token.Tokenize(source))
	p2 := pass2.Run(p1)
	res := objprog.Run(p1, p2)

	if len(res.Modification) != 0 {
		t.Errorf("got %d modification records, want 0 for a WORD-only symbol reference: %v", len(res.Modification), res.Modification)
	}
}

func TestRunTextRecordSplitsOnGap(t *testing.T) {
	source := `COPY   START  0
FIRST  LDA    #0
GAP    RESW   1
NEXT   LDA    #0
       END    FIRST
`
	p1 := pass1.Run(token.Tokenize(source))
	p2 := pass2.Run(p1)
	res := objprog.Run(p1, p2)

	if len(res.Text) != 2 {
		t.Fatalf("got %d text records, want 2 (split by the RESW gap): %v", len(res.Text), res.Text)
	}
}

func TestRunSimpleStraightLineProgram(t *testing.T) {
	source := `SIMPLE  START   0
        LDA     FIVE
        ADD     THREE
        STA     RESULT
        RSUB
FIVE    WORD    5
THREE   WORD    3
RESULT  RESW    1
        END     SIMPLE
`
	p1 := pass1.Run(token.Tokenize(source))
	if !p1.Success {
		t.Fatalf("pass1 errors: %v", p1.Diagnostics)
	}

	p2 := pass2.Run(p1)
	if !p2.Success {
		t.Fatalf("pass2 errors: %v", p2.Diagnostics)
	}

	res := objprog.Run(p1, p2)

	if res.Header != "H^SIMPLE^000000^000015" {
		t.Errorf("Header = %q, want H^SIMPLE^000000^000015", res.Header)
	}

	if len(res.Text) != 1 {
		t.Fatalf("got %d text records, want 1: %v", len(res.Text), res.Text)
	}
	want := "T^000000^12^0320091B20090F20094F0000000005000003"
	if res.Text[0] != want {
		t.Errorf("Text[0] = %q, want %q", res.Text[0], want)
	}

	if len(res.Modification) != 0 {
		t.Errorf("got %d modification records, want 0: %v", len(res.Modification), res.Modification)
	}

	if res.End != "E^000000" {
		t.Errorf("End = %q, want E^000000", res.End)
	}
}

func TestRunTextRecordClosesAt30Bytes(t *testing.T) {
	var b strings.Builder
	b.WriteString("COPY   START  0\n")
	for i := 0; i < 11; i++ {
		b.WriteString("       LDA    #0\n")
	}
	b.WriteString("       END\n")

	p1 := pass1.Run(token.Tokenize(b.String()))
	p2 := pass2.Run(p1)
	res := objprog.Run(p1, p2)

	if len(res.Text) != 2 {
		t.Fatalf("got %d text records, want 2 (33 bytes split at the 30-byte boundary): %v", len(res.Text), res.Text)
	}
}
