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

// Package loader loads an assembled object program into a flat,
// byte-addressed memory image and tags every written byte with the
// metadata a debugger or disassembler would want.
package loader

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/YusufEmad04/sic-project/pkg/pass1"
	"github.com/YusufEmad04/sic-project/pkg/pass2"
)

// MetaType classifies a byte of the memory image.
type MetaType int

const (
	MetaEmpty MetaType = iota
	MetaCode
	MetaData
	MetaReserved
	MetaModified
)

func (t MetaType) String() string {
	switch t {
	case MetaCode:
		return "code"
	case MetaData:
		return "data"
	case MetaReserved:
		return "reserved"
	case MetaModified:
		return "modified"
	default:
		return "empty"
	}
}

// Meta describes one byte of the memory image.
type Meta struct {
	Type        MetaType
	SourceLine  int
	Instruction string
	Label       string
}

// Size presets matching the two memory models a SIC/XE program may target.
const (
	SizeSIC = 32 * 1024
	SizeXE  = 1024 * 1024
)

// Image is a loaded object program: a zeroed byte array with per-byte
// metadata and the program's start/end addresses.
type Image struct {
	Memory       []byte
	Meta         []Meta
	ProgramStart int64
	ProgramEnd   int64
	FirstExec    int64
}

// NewImage allocates a zeroed image of the given size.
func NewImage(size int) *Image {
	return &Image{
		Memory: make([]byte, size),
		Meta:   make([]Meta, size),
	}
}

// Reset zeroes every byte and clears all metadata, leaving the image the
// same size it started at.
func (img *Image) Reset() {
	for i := range img.Memory {
		img.Memory[i] = 0
	}
	for i := range img.Meta {
		img.Meta[i] = Meta{}
	}
	img.ProgramStart, img.ProgramEnd, img.FirstExec = 0, 0, 0
}

// entry is one byte range's source-line metadata, precomputed from the
// text records so that tagging is O(1) per byte instead of a per-byte
// linear scan over the object program.
type entry struct {
	start, end int64 // [start, end)
	meta       Meta
}

// EntryInfo carries one Pass 1/Pass 2 line's source-level metadata for a
// byte range of the memory image: the source-line number, the
// instruction or directive text, and the label that defined the range,
// if any. Load tags every byte in [Start, End) with this metadata when
// EntryInfo values are supplied.
type EntryInfo struct {
	Start, End  int64 // [Start, End)
	Type        MetaType
	SourceLine  int
	Instruction string
	Label       string
}

// BuildEntryInfo derives per-byte source metadata from a completed Pass 1
// and Pass 2 result. pass2.Run iterates p1.Intermediate directly, so
// p2.Entries[i] and p1.Intermediate[i] describe the same source line;
// BuildEntryInfo relies on that correspondence to recover the byte range
// each line occupies.
func BuildEntryInfo(p1 pass1.Result, p2 pass2.Result) []EntryInfo {
	var infos []EntryInfo

	for i, ientry := range p1.Intermediate {
		line := ientry.Line
		if line.IsEmpty || line.IsComment || !ientry.HasLocctr || ientry.Size == 0 {
			continue
		}

		mtype := MetaCode
		switch line.Opcode {
		case "BYTE", "WORD":
			mtype = MetaData
		case "RESB", "RESW":
			mtype = MetaReserved
		}

		instruction := strings.TrimRight(line.Raw, " \t")
		if i < len(p2.Entries) {
			if code := p2.Entries[i].HexCode; code != "" {
				instruction = fmt.Sprintf("%-32s %s", instruction, code)
			}
		}

		infos = append(infos, EntryInfo{
			Start:       ientry.Locctr,
			End:         ientry.Locctr + ientry.Size,
			Type:        mtype,
			SourceLine:  line.LineNo,
			Instruction: instruction,
			Label:       line.Label,
		})
	}

	return infos
}

// Load parses the caret-delimited H/T/M/E records produced by pkg/objprog
// and writes the resulting bytes into img. info, when non-nil, supplies
// the source-line/instruction/label metadata BuildEntryInfo derives from
// Pass 1 and Pass 2; a bare object file loaded without that context
// passes nil and gets byte-level Type tagging only. Out-of-bounds writes
// are silently dropped.
func Load(img *Image, records []string, info []EntryInfo) error {
	img.Reset()

	var entries []entry
	var mods []struct{ addr, span int64 }

	for _, rec := range records {
		if rec == "" {
			continue
		}

		fields := strings.Split(rec, "^")
		switch rec[0] {
		case 'H':
			if len(fields) != 4 {
				return fmt.Errorf("malformed header record %q", rec)
			}
			start, err := strconv.ParseInt(fields[2], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed header start address %q", fields[2])
			}
			length, err := strconv.ParseInt(fields[3], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed header length %q", fields[3])
			}
			img.ProgramStart = start
			img.ProgramEnd = start + length
			img.FirstExec = start

		case 'T':
			if len(fields) != 4 {
				return fmt.Errorf("malformed text record %q", rec)
			}
			start, err := strconv.ParseInt(fields[1], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed text record address %q", fields[1])
			}
			payload, err := hex.DecodeString(fields[3])
			if err != nil {
				return fmt.Errorf("malformed text record payload %q: %w", fields[3], err)
			}

			for i, b := range payload {
				writeByte(img, start+int64(i), b)
			}

			entries = append(entries, entry{
				start: start,
				end:   start + int64(len(payload)),
				meta:  Meta{Type: MetaCode},
			})

		case 'M':
			if len(fields) != 4 {
				return fmt.Errorf("malformed modification record %q", rec)
			}
			addr, err := strconv.ParseInt(fields[1], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed modification record address %q", fields[1])
			}
			halfBytes, err := strconv.ParseInt(fields[2], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed modification record length %q", fields[2])
			}
			span := (halfBytes + 1) / 2
			mods = append(mods, struct{ addr, span int64 }{addr, span})

		case 'E':
			if len(fields) != 2 {
				return fmt.Errorf("malformed end record %q", rec)
			}
			addr, err := strconv.ParseInt(fields[1], 16, 64)
			if err != nil {
				return fmt.Errorf("malformed end record address %q", fields[1])
			}
			img.FirstExec = addr

		default:
			return fmt.Errorf("unknown record type %q", rec)
		}
	}

	tagEntries(img, entries)
	applyInfo(img, info)

	for _, m := range mods {
		retagModified(img, m.addr, m.span)
	}

	return nil
}

// applyInfo overwrites the Type, SourceLine, Instruction, and Label of
// every byte covered by an EntryInfo range. It runs after tagEntries (so
// it can set MetaReserved for RESB/RESW ranges, which the T records
// never cover) and before retagModified (so a later modification record
// still wins the Type tag).
func applyInfo(img *Image, infos []EntryInfo) {
	for _, info := range infos {
		for addr := info.Start; addr < info.End; addr++ {
			if addr < 0 || addr >= int64(len(img.Meta)) {
				continue
			}
			img.Meta[addr] = Meta{
				Type:        info.Type,
				SourceLine:  info.SourceLine,
				Instruction: info.Instruction,
				Label:       info.Label,
			}
		}
	}
}

func writeByte(img *Image, addr int64, b byte) {
	if addr < 0 || addr >= int64(len(img.Memory)) {
		return
	}
	img.Memory[addr] = b
}

// tagEntries stamps every byte's metadata from the precomputed entry
// list, giving O(1) lookup per byte rather than rescanning the object
// program for each address.
func tagEntries(img *Image, entries []entry) {
	for _, e := range entries {
		for addr := e.start; addr < e.end; addr++ {
			if addr < 0 || addr >= int64(len(img.Meta)) {
				continue
			}
			img.Meta[addr] = e.meta
		}
	}
}

func retagModified(img *Image, addr, span int64) {
	for i := int64(0); i < span; i++ {
		a := addr + i
		if a < 0 || a >= int64(len(img.Meta)) {
			continue
		}
		img.Meta[a].Type = MetaModified
	}
}

// ReadByte returns the byte at addr, or an error if addr is out of range.
func (img *Image) ReadByte(addr int64) (byte, error) {
	if addr < 0 || addr >= int64(len(img.Memory)) {
		return 0, fmt.Errorf("address %06X out of range", addr)
	}
	return img.Memory[addr], nil
}

// ReadWord reads a big-endian 3-byte SIC/XE word starting at addr.
func (img *Image) ReadWord(addr int64) (int64, error) {
	if addr < 0 || addr+3 > int64(len(img.Memory)) {
		return 0, fmt.Errorf("address %06X out of range", addr)
	}
	v := int64(img.Memory[addr])<<16 | int64(img.Memory[addr+1])<<8 | int64(img.Memory[addr+2])
	return v, nil
}

// MetaAt returns the metadata tagged at addr.
func (img *Image) MetaAt(addr int64) (Meta, error) {
	if addr < 0 || addr >= int64(len(img.Meta)) {
		return Meta{}, fmt.Errorf("address %06X out of range", addr)
	}
	return img.Meta[addr], nil
}

// Dump renders a hex/ASCII dump of [start, end) in the style of a
// conventional memory monitor: 16 bytes per line, address, hex columns,
// and a printable-ASCII gutter.
func (img *Image) Dump(start, end int64) string {
	if start < 0 {
		start = 0
	}
	if end > int64(len(img.Memory)) {
		end = int64(len(img.Memory))
	}

	var sb strings.Builder

	for addr := start; addr < end; addr += 16 {
		lineEnd := addr + 16
		if lineEnd > end {
			lineEnd = end
		}

		fmt.Fprintf(&sb, "%06X  ", addr)

		row := img.Memory[addr:lineEnd]
		fmt.Fprintf(&sb, "%-48s", hex.EncodeToString(row))

		sb.WriteString(" |")
		for _, b := range row {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}
