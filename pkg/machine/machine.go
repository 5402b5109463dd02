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

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/hackasm/pkg/encoding"
)

func (mc *MachineState) Reset() {
	mc.A = 0x0000
	mc.D = 0x0000
	mc.Program = 0x0000

	for i := range mc.ROM {
		mc.ROM[i] = 0x0000
	}

	for i := range mc.RAM {
		mc.RAM[i] = 0x0000
	}
}

// LoadProgram resets the machine and copies words into ROM from address 0.
func (mc *Machine) LoadProgram(words []uint16) error {
	if len(words) > ROM_SIZE {
		return fmt.Errorf(
			"Program of %d words exceeds ROM size %d", len(words), ROM_SIZE,
		)
	}

	mc.State.Reset()
	copy(mc.State.ROM[:], words)

	return nil
}

// LoadBin reads big-endian words.
func (mc *Machine) LoadBin(reader io.Reader) error {
	var words []uint16

	scratch := make([]byte, 2)

	for {
		_, err := io.ReadFull(reader, scratch)

		if err == io.EOF {
			break
		} else if err == io.ErrUnexpectedEOF {
			return errors.New("Error reading binary: odd number of bytes")
		} else if err != nil {
			return err
		}

		if len(words) == ROM_SIZE {
			return fmt.Errorf("Binary exceeds ROM size %d", ROM_SIZE)
		}

		words = append(words, binary.BigEndian.Uint16(scratch))
	}

	return mc.LoadProgram(words)
}

// LoadHack reads one '0'/'1' word per line. Blank lines are skipped.
func (mc *Machine) LoadHack(reader io.Reader) error {
	var words []uint16

	scanner := bufio.NewScanner(reader)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())

		if text == "" {
			continue
		}

		word, err := encoding.DecodeWord(text)

		if err != nil {
			return fmt.Errorf("%02d: %w", line, err)
		}

		if len(words) == ROM_SIZE {
			return fmt.Errorf("Program exceeds ROM size %d", ROM_SIZE)
		}

		words = append(words, word)
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return mc.LoadProgram(words)
}

func (mc *Machine) read(addr uint16) uint16 {
	addr &= ADDRESS_MASK

	if addr == MEMSPACE_KBD {
		var key byte
		var err error = io.EOF

		if mc.Devices != nil && mc.Devices.Keyboard != nil {
			key, err = mc.Devices.Keyboard.ReadByte()
			if err != nil && err != io.EOF {
				panic(err)
			}
		}

		if err != io.EOF {
			mc.State.RAM[MEMSPACE_KBD] = uint16(key)
		} else {
			mc.State.RAM[MEMSPACE_KBD] = 0
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.RAM[addr]
}

func (mc *Machine) write(addr uint16, value uint16) {
	addr &= ADDRESS_MASK

	if addr != MEMSPACE_KBD {
		mc.State.RAM[addr] = value
	}

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func alu(x, y uint16, control uint16) uint16 {
	var out uint16

	if control&ALU_ZX != 0 {
		x = 0
	}

	if control&ALU_NX != 0 {
		x = ^x
	}

	if control&ALU_ZY != 0 {
		y = 0
	}

	if control&ALU_NY != 0 {
		y = ^y
	}

	if control&ALU_F != 0 {
		out = x + y
	} else {
		out = x & y
	}

	if control&ALU_NO != 0 {
		out = ^out
	}

	return out
}

// Halted reports whether the next instruction jumps unconditionally back to
// the A-instruction that loaded its own address, the usual end-of-program
// loop.
func (mc *Machine) Halted() bool {
	pc := mc.State.Program & ADDRESS_MASK

	if pc == 0 {
		return false
	}

	instruction := mc.State.ROM[pc]

	return instruction&INST_COMPUTE != 0 &&
		instruction&JUMP_ALWAYS == JUMP_ALWAYS &&
		instruction&(DEST_A|DEST_M) == 0 &&
		mc.State.A == pc-1 &&
		mc.State.ROM[pc-1] == pc-1
}

// Run steps until the machine halts or cycles instructions have executed,
// returning how many ran.
func (mc *Machine) Run(cycles uint) uint {
	var executed uint

	for executed < cycles && !mc.Halted() {
		mc.Step()
		executed++
	}

	return executed
}

func (mc *Machine) Step() {
	instruction := mc.State.ROM[mc.State.Program&ADDRESS_MASK]

	// A    |0|value                         | Load address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	if instruction&INST_COMPUTE == 0 {
		mc.State.A = instruction
		mc.State.Program++
	} else {
		// C    |1|11|a|c1-c6      |d1-d3|j1-j3 | Compute
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		addr := mc.State.A

		var y uint16

		if instruction&COMP_MEMORY != 0 {
			y = mc.read(addr)
		} else {
			y = addr
		}

		out := alu(mc.State.D, y, instruction)

		if instruction&DEST_M != 0 {
			mc.write(addr, out)
		}

		if instruction&DEST_A != 0 {
			mc.State.A = out
		}

		if instruction&DEST_D != 0 {
			mc.State.D = out
		}

		value := int16(out)

		if (instruction&JUMP_LT != 0 && value < 0) ||
			(instruction&JUMP_EQ != 0 && value == 0) ||
			(instruction&JUMP_GT != 0 && value > 0) {
			mc.State.Program = addr
		} else {
			mc.State.Program++
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}
}
