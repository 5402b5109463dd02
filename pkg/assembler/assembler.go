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
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lassandro/hackasm/pkg/encoding"
)

// Parse splits a cleaned line of Hack assembly into its instruction fields.
// The line must already be stripped of whitespace and comments. Mnemonics
// are not checked here; Encode rejects the ones it does not know.
func Parse(line string) (Instruction, error) {
	return parseInstruction(line, Cursor{})
}

// Encode renders an instruction as 16 '0'/'1' characters.
func Encode(inst Instruction) (string, error) {
	return encodeInstruction(inst, Cursor{})
}

// Mnemonics returns the sorted, non-empty mnemonics accepted for a field.
func Mnemonics(field FieldType) []string {
	var table map[string]string

	switch field {
	case FIELD_DEST:
		table = destTable
	case FIELD_COMP:
		table = compTable
	case FIELD_JUMP:
		table = jumpTable
	default:
		return nil
	}

	result := make([]string, 0, len(table))

	for mnemonic := range table {
		if mnemonic != "" {
			result = append(result, mnemonic)
		}
	}

	sort.Strings(result)

	return result
}

func parseInstruction(line string, cursor Cursor) (Instruction, error) {
	if len(line) == 0 {
		return nil, &MalformedInstructionError{
			cursor, line, "empty strings cannot be converted into instructions",
		}
	}

	for i := 0; i < len(line); i++ {
		if line[i] >= utf8.RuneSelf {
			return nil, &MalformedInstructionError{
				cursor, line, "character exceeds ASCII limit",
			}
		}
	}

	if line[0] == '@' {
		return AddressInstruction{Address: line[1:]}, nil
	}

	var inst ComputationInstruction
	var start int = 0

	if i := strings.IndexByte(line, '='); i != -1 {
		inst.Destination = line[:i]
		start = i + 1
	}

	if j := strings.IndexByte(line, ';'); j != -1 {
		if j < start {
			return nil, &MalformedInstructionError{
				cursor, line, "jump separator precedes destination separator",
			}
		}

		inst.Computation = line[start:j]
		inst.JumpType = line[j+1:]
	} else {
		inst.Computation = line[start:]
	}

	if inst.Computation == "" {
		return nil, &MalformedInstructionError{
			cursor, line, "computation can never be empty",
		}
	}

	return inst, nil
}

func encodeInstruction(inst Instruction, cursor Cursor) (string, error) {
	switch inst := inst.(type) {
	case AddressInstruction:
		value, err := encoding.DecodeAddress(inst.Address)

		if err != nil {
			return "", &AddressOutOfRangeError{
				cursor, inst.Address, encoding.ADDRESS_MAX,
			}
		}

		word := encoding.FormatWord(value)

		if len(word) != encoding.WORD_BITS || word[0] != '0' {
			panic(&InvariantViolationError{
				word, "address word must be 16 bits with a clear high bit",
			})
		}

		return word, nil

	case ComputationInstruction:
		dest, ok := destTable[inst.Destination]

		if !ok {
			return "", &UnknownMnemonicError{
				cursor, FIELD_DEST, inst.Destination,
			}
		}

		comp, ok := compTable[inst.Computation]

		if !ok {
			return "", &UnknownMnemonicError{
				cursor, FIELD_COMP, inst.Computation,
			}
		}

		jump, ok := jumpTable[inst.JumpType]

		if !ok {
			return "", &UnknownMnemonicError{
				cursor, FIELD_JUMP, inst.JumpType,
			}
		}

		word := COMPUTATION_PREFIX + comp + dest + jump

		if len(word) != encoding.WORD_BITS ||
			!strings.HasPrefix(word, COMPUTATION_PREFIX) {
			panic(&InvariantViolationError{
				word, "computation word must be 16 bits starting with 111",
			})
		}

		return word, nil

	default:
		panic(fmt.Sprintf("Unsupported instruction type %T", inst))
	}
}
