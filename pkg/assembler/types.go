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

package assembler

import (
	"fmt"
	"strings"
)

type FieldType uint

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

func (cursor Cursor) prefix() string {
	if cursor.Line == 0 {
		return ""
	}

	return fmt.Sprintf("%02d:%02d: ", cursor.Line, cursor.Column)
}

// Instruction is either an AddressInstruction or a ComputationInstruction.
// No other type can satisfy it.
type Instruction interface {
	fmt.Stringer
	instruction()
}

// @address
type AddressInstruction struct {
	Address string
}

func (AddressInstruction) instruction() {}

func (inst AddressInstruction) String() string {
	return "@" + inst.Address
}

// dest=comp;jump
type ComputationInstruction struct {
	Destination string
	Computation string
	JumpType    string
}

func (ComputationInstruction) instruction() {}

func (inst ComputationInstruction) String() string {
	var builder strings.Builder

	if inst.Destination != "" {
		builder.WriteString(inst.Destination)
		builder.WriteByte('=')
	}

	builder.WriteString(inst.Computation)

	if inst.JumpType != "" {
		builder.WriteByte(';')
		builder.WriteString(inst.JumpType)
	}

	return builder.String()
}

// A cleaned line of source along with where it came from.
type Line struct {
	Text     string
	Position Cursor
}

type Statement struct {
	Address     uint16
	Source      Line
	Instruction Instruction
	Word        string
	Value       uint16
}

// Program holds one statement per ROM address, in source order.
type Program []Statement

func (program Program) Words() []string {
	words := make([]string, len(program))

	for i, statement := range program {
		words[i] = statement.Word
	}

	return words
}

func (program Program) Values() []uint16 {
	values := make([]uint16, len(program))

	for i, statement := range program {
		values[i] = statement.Value
	}

	return values
}

type SymTable struct {
	Source  string
	Symbols map[uint16]int64
}

type TokenError interface {
	GetPosition() Cursor
}

type MalformedInstructionError struct {
	Position Cursor
	Received string
	Reason   string
}

func (err *MalformedInstructionError) GetPosition() Cursor {
	return err.Position
}

func (err *MalformedInstructionError) Error() string {
	return fmt.Sprintf(
		"%sMalformed instruction %q: %s",
		err.Position.prefix(),
		err.Received,
		err.Reason,
	)
}

type UnknownMnemonicError struct {
	Position Cursor
	Field    FieldType
	Received string
}

func (err *UnknownMnemonicError) GetPosition() Cursor {
	return err.Position
}

func (err *UnknownMnemonicError) Error() string {
	var fieldString string

	switch err.Field {
	case FIELD_DEST:
		fieldString = "destination"
	case FIELD_COMP:
		fieldString = "computation"
	case FIELD_JUMP:
		fieldString = "jump"
	default:
		fieldString = "<invalid>"
	}

	return fmt.Sprintf(
		"%sUnknown %s mnemonic '%s'\n\twant:%s",
		err.Position.prefix(),
		fieldString,
		err.Received,
		strings.Join(quoteAll(Mnemonics(err.Field)), ", "),
	)
}

type AddressOutOfRangeError struct {
	Position Cursor
	Received string
	Limit    uint16
}

func (err *AddressOutOfRangeError) GetPosition() Cursor {
	return err.Position
}

func (err *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf(
		"%sAddress must be a decimal literal in range\n\twant:0-%d\n\thave:%s",
		err.Position.prefix(),
		err.Limit,
		err.Received,
	)
}

// Raised with panic when the encoder produces a word that breaks the layout
// of its instruction type. Never caused by bad input.
type InvariantViolationError struct {
	Received string
	Reason   string
}

func (err *InvariantViolationError) Error() string {
	return fmt.Sprintf(
		"Encoding invariant violated for %q: %s", err.Received, err.Reason,
	)
}

type OversizedBinaryError struct {
	Received int
}

func (err *OversizedBinaryError) Error() string {
	return fmt.Sprintf(
		"Binary exceeds allowed size\n\twant:%d\n\thave:%d",
		ROM_SIZE,
		err.Received,
	)
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))

	for i, value := range values {
		quoted[i] = "'" + value + "'"
	}

	return quoted
}
