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

package token_test

import (
	"testing"

	"github.com/YusufEmad04/sic-project/pkg/token"
)

func TestTokenizeLabelledInstruction(t *testing.T) {
	lines := token.Tokenize("LOOP   LDA    BUFFER,X")

	line := lines[0]
	if line.Label != "LOOP" {
		t.Errorf("Label = %q, want LOOP", line.Label)
	}
	if line.Opcode != "LDA" {
		t.Errorf("Opcode = %q, want LDA", line.Opcode)
	}
	if line.Operand != "BUFFER" {
		t.Errorf("Operand = %q, want BUFFER", line.Operand)
	}
	if !line.Indexed {
		t.Error("Indexed = false, want true")
	}
}

func TestTokenizeUnlabelledExtended(t *testing.T) {
	lines := token.Tokenize("       +JSUB  RDREC")

	line := lines[0]
	if line.Label != "" {
		t.Errorf("Label = %q, want empty", line.Label)
	}
	if !line.Extended {
		t.Error("Extended = false, want true")
	}
	if line.Opcode != "JSUB" {
		t.Errorf("Opcode = %q, want JSUB", line.Opcode)
	}
	if line.Operand != "RDREC" {
		t.Errorf("Operand = %q, want RDREC", line.Operand)
	}
}

func TestTokenizeImmediateAndIndirect(t *testing.T) {
	tests := []struct {
		Raw    string
		Prefix token.Prefix
	}{
		{"       LDA    #BUFEND", token.PrefixImmediate},
		{"       J      @RETADR", token.PrefixIndirect},
	}

	for _, test := range tests {
		line := token.Tokenize(test.Raw)[0]
		if line.Prefix != test.Prefix {
			t.Errorf("Tokenize(%q).Prefix = %v, want %v", test.Raw, line.Prefix, test.Prefix)
		}
	}
}

func TestTokenizeComment(t *testing.T) {
	line := token.Tokenize(".THIS IS A COMMENT")[0]
	if !line.IsComment {
		t.Error("IsComment = false, want true")
	}
}

func TestTokenizeInlineComment(t *testing.T) {
	line := token.Tokenize("       LDA    A    . load A")[0]
	if line.Opcode != "LDA" {
		t.Errorf("Opcode = %q, want LDA", line.Opcode)
	}
	if line.Comment == "" {
		t.Error("Comment = empty, want non-empty")
	}
}

func TestTokenizeEmptyLine(t *testing.T) {
	line := token.Tokenize("   ")[0]
	if !line.IsEmpty {
		t.Error("IsEmpty = false, want true")
	}
}

func TestTokenizeFormat2DoesNotStripIndex(t *testing.T) {
	line := token.Tokenize("       COMPR  A,X")[0]
	if line.Indexed {
		t.Error("Indexed = true, want false for a Format-2 register pair")
	}
	if line.Operand != "A,X" {
		t.Errorf("Operand = %q, want A,X", line.Operand)
	}
}

func TestTokenizeByteConstantWithDot(t *testing.T) {
	line := token.Tokenize("EOF    BYTE   C'EOF.'")[0]
	if line.Operand != "C'EOF.'" {
		t.Errorf("Operand = %q, want C'EOF.' (period inside quotes must not split the comment)", line.Operand)
	}
}
