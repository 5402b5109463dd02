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
	"strconv"

	"github.com/lassandro/hackasm/pkg/encoding"
)

var destCodes map[string]string
var compCodes map[string]string
var jumpCodes map[string]string

func init() {
	destCodes = invert(destTable)
	compCodes = invert(compTable)
	jumpCodes = invert(jumpTable)
}

func invert(table map[string]string) map[string]string {
	result := make(map[string]string, len(table))

	for mnemonic, code := range table {
		if _, exists := result[code]; exists {
			panic("Duplicate code " + code + " in mnemonic table")
		}

		result[code] = mnemonic
	}

	return result
}

// Disassemble turns a machine word back into the instruction that encodes
// to it.
func Disassemble(word uint16) (Instruction, error) {
	if word>>15 == 0 {
		return AddressInstruction{
			Address: strconv.FormatUint(uint64(word), 10),
		}, nil
	}

	text := encoding.FormatWord(word)

	if text[:3] != COMPUTATION_PREFIX {
		return nil, &MalformedInstructionError{
			Received: text, Reason: "reserved bits must be set",
		}
	}

	comp, ok := compCodes[text[3:10]]

	if !ok {
		return nil, &UnknownMnemonicError{
			Field: FIELD_COMP, Received: text[3:10],
		}
	}

	return ComputationInstruction{
		Destination: destCodes[text[10:13]],
		Computation: comp,
		JumpType:    jumpCodes[text[13:16]],
	}, nil
}
