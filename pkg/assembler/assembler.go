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

// Package assembler orchestrates the full pipeline: tokenize, validate,
// Pass 1, Pass 2, and object-program generation. It is the one public
// entry point a driver needs.
package assembler

import (
	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/objprog"
	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/pass2"
	"github.com/YusufEmad04/sic-project/pkg/token"
	"github.com/YusufEmad04/sic-project/pkg/validate"
)

// Result carries every staged value the pipeline produces, each a pure
// value independent of the others.
type Result struct {
	Tokens      []token.Line
	Pass1       pass1.Result
	Pass2       pass2.Result
	Object      objprog.Result
	Diagnostics diag.Bag
	Success     bool
}

// Assemble runs the full pipeline over source text. It always runs every
// stage it can: a validator error does not prevent Pass 1 or Pass 2 from
// running, so that a caller sees as many diagnostics as possible in one
// pass. Success reflects whether any stage raised an error-severity
// diagnostic.
func Assemble(source string) Result {
	var res Result

	res.Tokens = token.Tokenize(source)

	validateDiags := validate.Validate(res.Tokens)
	res.Diagnostics = append(res.Diagnostics, validateDiags...)

	res.Pass1 = pass1.Run(res.Tokens)
	res.Diagnostics = append(res.Diagnostics, res.Pass1.Diagnostics...)

	res.Pass2 = pass2.Run(res.Pass1)
	res.Diagnostics = append(res.Diagnostics, res.Pass2.Diagnostics...)

	res.Object = objprog.Run(res.Pass1, res.Pass2)

	res.Success = !res.Diagnostics.HasErrors()

	return res
}
