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

package encoding

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	WORD_BITS    = 16
	ADDRESS_BITS = 15
	ADDRESS_MAX  = 1<<ADDRESS_BITS - 1
)

// Decodes a base-10 address literal in the range 0 to 32767. Signs, hex
// prefixes and digit separators are rejected.
func DecodeAddress(s string) (uint16, error) {
	if len(s) == 0 {
		return 0, errors.New("Empty address literal")
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("Invalid digit %q in address literal", s[i])
		}
	}

	result, err := strconv.ParseUint(s, 10, ADDRESS_BITS)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a word written as exactly 16 '0'/'1' characters.
func DecodeWord(s string) (uint16, error) {
	if len(s) != WORD_BITS {
		return 0, fmt.Errorf(
			"Invalid word length %d, want %d", len(s), WORD_BITS,
		)
	}

	result, err := strconv.ParseUint(s, 2, WORD_BITS)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

func FormatWord(value uint16) string {
	return fmt.Sprintf("%016b", value)
}
