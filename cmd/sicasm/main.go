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

// Command sicasm assembles SIC/XE source into an object program, or
// round-trips an object program through the memory loader for a hex dump.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/YusufEmad04/sic-project/pkg/assembler"
	"github.com/YusufEmad04/sic-project/pkg/diag"
	"github.com/YusufEmad04/sic-project/pkg/loader"
)

var (
	memFlag     string
	verboseFlag bool
	listingFlag bool
	outFlag     string
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "sicasm sourceFile",
	Short: "SIC/XE two-pass assembler",
	Long: `sicasm reads SIC/XE assembly source and produces a relocatable
object program in H/T/M/E record format. Each diagnostic is followed by
the offending source line; when stderr is a terminal the location is shown
in bold and errors in red. No caret underline is drawn.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssemble,
}

var loadCmd = &cobra.Command{
	Use:   "load objectFile",
	Short: "Load an object program and print a hex/ASCII memory dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&memFlag, "mem", "xe", "memory model: 'sic' (32 KiB) or 'xe' (1 MiB)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print every stage's diagnostics, not just errors")
	rootCmd.Flags().BoolVar(&listingFlag, "listing", false, "print a location-counter listing alongside the object program")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the object program to this file instead of stdout")

	rootCmd.AddCommand(loadCmd)
}

func memSize() int {
	if strings.EqualFold(memFlag, "sic") {
		return loader.SizeSIC
	}
	return loader.SizeXE
}

func runAssemble(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	result := assembler.Assemble(string(source))

	reportDiagnostics(result.Diagnostics, string(source), args[0])

	if listingFlag {
		printListing(result)
	}

	out := result.Object.String()

	if outFlag != "" {
		if err := os.WriteFile(outFlag, []byte(out), 0666); err != nil {
			return err
		}
	} else {
		fmt.Print(out)
	}

	if !result.Success {
		os.Exit(1)
	}

	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	records := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")

	img := loader.NewImage(memSize())
	if err := loader.Load(img, records, nil); err != nil {
		log.Println(err)
		os.Exit(2)
	}

	fmt.Print(img.Dump(img.ProgramStart, img.ProgramEnd))

	return nil
}

func printListing(result assembler.Result) {
	for i, e := range result.Pass2.Entries {
		if e.Line.IsEmpty || e.Line.IsComment {
			continue
		}
		locctr := ""
		if e.HasLocctr {
			locctr = fmt.Sprintf("%04X", e.Locctr)
		}
		fmt.Fprintf(os.Stderr, "%4d  %-6s  %-32s  %s\n", i+1, locctr, strings.TrimRight(e.Line.Raw, " \t"), e.HexCode)
	}
}

func reportDiagnostics(bag diag.Bag, source, filename string) {
	lines := strings.Split(source, "\n")
	colorize := term.IsTerminal(int(os.Stderr.Fd()))

	for _, d := range bag {
		if !verboseFlag && !d.IsError() {
			continue
		}

		var excerpt string
		if d.Line > 0 && d.Line <= len(lines) {
			excerpt = lines[d.Line-1]
		}

		prefix := fmt.Sprintf("%s:%d", filename, d.Line)
		if colorize {
			prefix = "\033[1m" + prefix + "\033[0m"
		}

		msg := fmt.Sprintf("%s: %s: %s", prefix, d.Severity, d.Message)
		if colorize && d.IsError() {
			msg = "\033[31m" + msg + "\033[0m"
		}

		log.Println(msg)

		if excerpt != "" {
			log.Println(excerpt)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
