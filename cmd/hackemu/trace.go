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

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/lassandro/hackasm/pkg/assembler"
	"github.com/lassandro/hackasm/pkg/machine"
)

// tracer prints the instruction at the program counter after every step,
// along with its source line when a symbol table was loaded.
type tracer struct {
	out      *bufio.Writer
	symtable *assembler.SymTable
	source   []byte
}

func (tr *tracer) sourceLine(addr uint16) string {
	if tr.symtable == nil || tr.source == nil {
		return ""
	}

	offset, exists := tr.symtable.Symbols[addr]

	if !exists || offset < 0 || offset > int64(len(tr.source)) {
		return ""
	}

	line := tr.source[offset:]

	if end := bytes.IndexByte(line, '\n'); end != -1 {
		line = line[:end]
	}

	return strings.TrimSpace(string(line))
}

func (tr *tracer) printInstruction(addr uint16, mc *machine.Machine) {
	text := "<invalid>"

	if inst, err := assembler.Disassemble(
		mc.State.ROM[addr&machine.ADDRESS_MASK],
	); err == nil {
		text = inst.String()
	}

	fmt.Fprintf(
		tr.out,
		"%s %-16s %s\n",
		bold(fmt.Sprintf("[%#04x]", addr)),
		text,
		tr.sourceLine(addr),
	)
}

func (tr *tracer) Step(mc *machine.Machine) {
	tr.printInstruction(mc.State.Program, mc)
}

func (tr *tracer) Read(addr uint16, mc *machine.Machine) {
	fmt.Fprintf(
		tr.out, "         RAM[%#04x] -> %#04x\n", addr, mc.State.RAM[addr],
	)
}

func (tr *tracer) Write(addr uint16, mc *machine.Machine) {
	fmt.Fprintf(
		tr.out, "         RAM[%#04x] <- %#04x\n", addr, mc.State.RAM[addr],
	)
}
