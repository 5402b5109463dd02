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

package machine

const (
	ROM_SIZE     = 1 << 15
	RAM_SIZE     = 1 << 15
	ADDRESS_MASK = 0x7FFF
)

const (
	MEMSPACE_REGISTERS uint16 = 0x0000
	MEMSPACE_STATIC    uint16 = 0x0010
	MEMSPACE_SCREEN    uint16 = 0x4000
	MEMSPACE_KBD       uint16 = 0x6000
)

// C-instruction fields
// ---- [1|1 1|a|c1 c2 c3 c4 c5 c6|d1 d2 d3|j1 j2 j3]
const (
	INST_COMPUTE uint16 = 1 << 15
	COMP_MEMORY  uint16 = 1 << 12

	ALU_ZX uint16 = 1 << 11
	ALU_NX uint16 = 1 << 10
	ALU_ZY uint16 = 1 << 9
	ALU_NY uint16 = 1 << 8
	ALU_F  uint16 = 1 << 7
	ALU_NO uint16 = 1 << 6

	DEST_A uint16 = 1 << 5
	DEST_D uint16 = 1 << 4
	DEST_M uint16 = 1 << 3

	JUMP_LT uint16 = 1 << 2
	JUMP_EQ uint16 = 1 << 1
	JUMP_GT uint16 = 1 << 0

	JUMP_ALWAYS = JUMP_LT | JUMP_EQ | JUMP_GT
)
