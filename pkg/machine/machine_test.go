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

package machine_test

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lassandro/hackasm/pkg/assembler"
	"github.com/lassandro/hackasm/pkg/encoding"
	"github.com/lassandro/hackasm/pkg/machine"
)

func assemble(source string) assembler.Program {
	program, errs := assembler.AssembleHackSource(
		strings.NewReader(source), nil, assembler.Options{},
	)
	Expect(errs).To(BeEmpty())

	return program
}

func word(line string) uint16 {
	inst, err := assembler.Parse(line)
	Expect(err).NotTo(HaveOccurred())

	text, err := assembler.Encode(inst)
	Expect(err).NotTo(HaveOccurred())

	value, err := encoding.DecodeWord(text)
	Expect(err).NotTo(HaveOccurred())

	return value
}

// Reference semantics for every computation mnemonic.
var computations = map[string]func(a, d, m uint16) uint16{
	"0":   func(a, d, m uint16) uint16 { return 0 },
	"1":   func(a, d, m uint16) uint16 { return 1 },
	"-1":  func(a, d, m uint16) uint16 { return 0xFFFF },
	"D":   func(a, d, m uint16) uint16 { return d },
	"A":   func(a, d, m uint16) uint16 { return a },
	"M":   func(a, d, m uint16) uint16 { return m },
	"!D":  func(a, d, m uint16) uint16 { return ^d },
	"!A":  func(a, d, m uint16) uint16 { return ^a },
	"!M":  func(a, d, m uint16) uint16 { return ^m },
	"-D":  func(a, d, m uint16) uint16 { return -d },
	"-A":  func(a, d, m uint16) uint16 { return -a },
	"-M":  func(a, d, m uint16) uint16 { return -m },
	"D+1": func(a, d, m uint16) uint16 { return d + 1 },
	"A+1": func(a, d, m uint16) uint16 { return a + 1 },
	"M+1": func(a, d, m uint16) uint16 { return m + 1 },
	"D-1": func(a, d, m uint16) uint16 { return d - 1 },
	"A-1": func(a, d, m uint16) uint16 { return a - 1 },
	"M-1": func(a, d, m uint16) uint16 { return m - 1 },
	"D+A": func(a, d, m uint16) uint16 { return d + a },
	"D+M": func(a, d, m uint16) uint16 { return d + m },
	"D-A": func(a, d, m uint16) uint16 { return d - a },
	"D-M": func(a, d, m uint16) uint16 { return d - m },
	"A-D": func(a, d, m uint16) uint16 { return a - d },
	"M-D": func(a, d, m uint16) uint16 { return m - d },
	"D&A": func(a, d, m uint16) uint16 { return d & a },
	"D&M": func(a, d, m uint16) uint16 { return d & m },
	"D|A": func(a, d, m uint16) uint16 { return d | a },
	"D|M": func(a, d, m uint16) uint16 { return d | m },
}

var _ = Describe("Machine", func() {
	var (
		mc *machine.Machine
	)

	BeforeEach(func() {
		mc = new(machine.Machine)
		mc.State.Reset()
	})

	It("should load an address into A", func() {
		Expect(mc.LoadProgram(assemble("@1234").Values())).To(Succeed())

		mc.Step()

		Expect(mc.State.A).To(Equal(uint16(1234)))
		Expect(mc.State.Program).To(Equal(uint16(1)))
	})

	It("should know every computation mnemonic", func() {
		mnemonics := assembler.Mnemonics(assembler.FIELD_COMP)

		Expect(mnemonics).To(HaveLen(len(computations)))
		for _, mnemonic := range mnemonics {
			Expect(computations).To(HaveKey(mnemonic))
		}
	})

	Describe("ALU", func() {
		operands := [][3]uint16{
			{17, 5, 9},
			{3, 0xFFFE, 0x8000},
			{0x7FFF, 0, 0x00FF},
			{0x1234, 0x0F0F, 0xAAAA},
		}

		for comp, want := range computations {
			comp, want := comp, want
			It("should compute "+comp, func() {
				instruction := word("D=" + comp)

				for _, operand := range operands {
					a, d, m := operand[0], operand[1], operand[2]

					Expect(mc.LoadProgram([]uint16{instruction})).To(Succeed())
					mc.State.A = a
					mc.State.D = d
					mc.State.RAM[a&machine.ADDRESS_MASK] = m

					mc.Step()

					Expect(mc.State.D).To(
						Equal(want(a, d, m)),
						"D=%s with A=%#04x D=%#04x M=%#04x", comp, a, d, m,
					)
				}
			})
		}
	})

	DescribeTable("jumps",
		func(jump string, out uint16, taken bool) {
			Expect(mc.LoadProgram([]uint16{word("D;" + jump)})).To(Succeed())
			mc.State.A = 42
			mc.State.D = out

			mc.Step()

			if taken {
				Expect(mc.State.Program).To(Equal(uint16(42)))
			} else {
				Expect(mc.State.Program).To(Equal(uint16(1)))
			}
		},
		Entry("JGT positive", "JGT", uint16(1), true),
		Entry("JGT zero", "JGT", uint16(0), false),
		Entry("JGT negative", "JGT", uint16(0xFFFF), false),
		Entry("JEQ positive", "JEQ", uint16(1), false),
		Entry("JEQ zero", "JEQ", uint16(0), true),
		Entry("JEQ negative", "JEQ", uint16(0x8000), false),
		Entry("JGE positive", "JGE", uint16(0x7FFF), true),
		Entry("JGE zero", "JGE", uint16(0), true),
		Entry("JGE negative", "JGE", uint16(0xFFFF), false),
		Entry("JLT positive", "JLT", uint16(1), false),
		Entry("JLT zero", "JLT", uint16(0), false),
		Entry("JLT negative", "JLT", uint16(0x8000), true),
		Entry("JNE positive", "JNE", uint16(1), true),
		Entry("JNE zero", "JNE", uint16(0), false),
		Entry("JNE negative", "JNE", uint16(0xFFFF), true),
		Entry("JLE positive", "JLE", uint16(1), false),
		Entry("JLE zero", "JLE", uint16(0), true),
		Entry("JLE negative", "JLE", uint16(0xFFFF), true),
		Entry("JMP positive", "JMP", uint16(1), true),
		Entry("JMP zero", "JMP", uint16(0), true),
		Entry("JMP negative", "JMP", uint16(0xFFFF), true),
	)

	It("should store to every destination using the old A", func() {
		Expect(mc.LoadProgram(assemble("AMD=D+1").Values())).To(Succeed())
		mc.State.A = 100
		mc.State.D = 7

		mc.Step()

		Expect(mc.State.RAM[100]).To(Equal(uint16(8)))
		Expect(mc.State.A).To(Equal(uint16(8)))
		Expect(mc.State.D).To(Equal(uint16(8)))
	})

	It("should jump to the old A", func() {
		Expect(mc.LoadProgram(assemble("A=0;JMP").Values())).To(Succeed())
		mc.State.A = 9

		mc.Step()

		Expect(mc.State.Program).To(Equal(uint16(9)))
		Expect(mc.State.A).To(Equal(uint16(0)))
	})

	It("should write the screen", func() {
		Expect(mc.LoadProgram(assemble("@16384\nM=-1").Values())).To(Succeed())

		mc.Run(2)

		Expect(mc.State.RAM[machine.MEMSPACE_SCREEN]).To(Equal(uint16(0xFFFF)))
	})

	It("should read the keyboard", func() {
		mc.Devices = &machine.DeviceHandler{
			Keyboard: bufio.NewReader(strings.NewReader("a")),
		}
		Expect(mc.LoadProgram(
			assemble("@24576\nD=M\n@24576\nD=M").Values(),
		)).To(Succeed())

		mc.Run(2)
		Expect(mc.State.D).To(Equal(uint16('a')))

		mc.Run(2)
		Expect(mc.State.D).To(Equal(uint16(0)))
	})

	Context("when running programs", func() {
		const add = `
			// R0 = 2 + 3
			@2
			D=A
			@3
			D=D+A
			@0
			M=D
			@6
			0;JMP
		`

		const max = `
			// R2 = max(R0, R1)
			@0
			D=M
			@1
			D=D-M
			@10
			D;JGT
			@1
			D=M
			@12
			0;JMP
			@0
			D=M
			@2
			M=D
			@14
			0;JMP
		`

		const mult = `
			// R2 = R0 * R1
			@2
			M=0
			@1
			D=M
			@14
			D;JEQ
			@0
			D=M
			@2
			M=D+M
			@1
			M=M-1
			@2
			0;JMP
			@14
			0;JMP
		`

		It("should add", func() {
			Expect(mc.LoadProgram(assemble(add).Values())).To(Succeed())

			Expect(mc.Run(100)).To(Equal(uint(7)))
			Expect(mc.Halted()).To(BeTrue())
			Expect(mc.State.RAM[0]).To(Equal(uint16(5)))
		})

		DescribeTable("max",
			func(r0, r1, want uint16) {
				Expect(mc.LoadProgram(assemble(max).Values())).To(Succeed())
				mc.State.RAM[0] = r0
				mc.State.RAM[1] = r1

				Expect(mc.Run(100)).To(BeNumerically("<", 100))
				Expect(mc.State.RAM[2]).To(Equal(want))
			},
			Entry("first greater", uint16(9), uint16(3), uint16(9)),
			Entry("second greater", uint16(3), uint16(9), uint16(9)),
			Entry("equal", uint16(4), uint16(4), uint16(4)),
		)

		It("should multiply", func() {
			Expect(mc.LoadProgram(assemble(mult).Values())).To(Succeed())
			mc.State.RAM[0] = 6
			mc.State.RAM[1] = 7

			Expect(mc.Run(10000)).To(BeNumerically("<", 10000))
			Expect(mc.State.RAM[2]).To(Equal(uint16(42)))
		})

		It("should stop at the cycle limit", func() {
			Expect(mc.LoadProgram(assemble(mult).Values())).To(Succeed())
			mc.State.RAM[0] = 6
			mc.State.RAM[1] = 7

			Expect(mc.Run(5)).To(Equal(uint(5)))
			Expect(mc.Halted()).To(BeFalse())
		})
	})

	Context("when loading programs", func() {
		var program assembler.Program

		BeforeEach(func() {
			program = assemble("@7\nD=A\n@3\nM=D")
		})

		It("should load text words", func() {
			text := strings.Join(program.Words(), "\n") + "\n\n"

			Expect(mc.LoadHack(strings.NewReader(text))).To(Succeed())

			for addr, value := range program.Values() {
				Expect(mc.State.ROM[addr]).To(Equal(value))
			}
			Expect(mc.State.ROM[len(program)]).To(Equal(uint16(0)))
		})

		It("should load big-endian words", func() {
			buffer := new(bytes.Buffer)
			Expect(binary.Write(buffer, binary.BigEndian, program.Values())).
				To(Succeed())

			Expect(mc.LoadBin(buffer)).To(Succeed())

			for addr, value := range program.Values() {
				Expect(mc.State.ROM[addr]).To(Equal(value))
			}
		})

		It("should reject malformed text words", func() {
			Expect(mc.LoadHack(strings.NewReader("0000\n"))).NotTo(Succeed())
		})

		It("should reject a truncated binary", func() {
			Expect(mc.LoadBin(bytes.NewReader([]byte{0, 1, 2}))).
				NotTo(Succeed())
		})

		It("should reject oversized programs", func() {
			words := make([]uint16, machine.ROM_SIZE+1)

			Expect(mc.LoadProgram(words)).NotTo(Succeed())
		})
	})

	Context("with a debugger", func() {
		var (
			mockCtrl     *gomock.Controller
			mockDebugger *MockMachineDebugger
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			mockDebugger = NewMockMachineDebugger(mockCtrl)
			mc.Debugger = mockDebugger
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report steps and memory access", func() {
			Expect(mc.LoadProgram(assemble("@5\nM=1\nD=M").Values())).
				To(Succeed())

			mockDebugger.EXPECT().Step(mc).Times(3)
			mockDebugger.EXPECT().Write(uint16(5), mc)
			mockDebugger.EXPECT().Read(uint16(5), mc)

			mc.Run(3)

			Expect(mc.State.D).To(Equal(uint16(1)))
		})
	})
})
