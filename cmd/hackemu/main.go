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
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/lassandro/hackasm/pkg/assembler"
	"github.com/lassandro/hackasm/pkg/encoding"
	"github.com/lassandro/hackasm/pkg/machine"
	"github.com/lassandro/hackasm/pkg/term"
)

var helpvar bool
var tracevar bool
var cyclesvar uint
var ramvar string
var keysvar string

var color bool
var stdout *bufio.Writer

const usage = "hackemu [-cycles n] [-ram lo:hi] [-trace] filename"

// Cycles executed between checks for an interrupt
const runChunk = 1024

func init() {
	exe, _ := os.Executable()
	color = term.IsTerminal(os.Stdout.Fd())

	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)

	stdout = bufio.NewWriter(os.Stdout)
	atexit.Register(func() { stdout.Flush() })
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&tracevar, "trace", false,
		"Prints every executed instruction. Source lines are shown when a "+
			"'.hackdb' symbol table sits next to the program",
	)
	flag.UintVar(
		&cyclesvar, "cycles", 1000000,
		"Maximum number of instructions to execute",
	)
	flag.StringVar(
		&ramvar, "ram",
		fmt.Sprintf("%d:%d", machine.MEMSPACE_REGISTERS, machine.MEMSPACE_STATIC),
		"RAM window printed after the run, as lo:hi",
	)
	flag.StringVar(
		&keysvar, "keys", "",
		"Characters fed to the keyboard register, one per read",
	)
	flag.Parse()
}

func bold(s string) string {
	if !color {
		return s
	}

	return "\033[1m" + s + "\033[0m"
}

func loadSymTable(program string) (*assembler.SymTable, []byte) {
	filename := strings.TrimSuffix(program, filepath.Ext(program)) + ".hackdb"

	file, err := os.Open(filename)

	if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil, nil
	}

	defer file.Close()

	var symtable assembler.SymTable

	if err := gob.NewDecoder(file).Decode(&symtable); err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil, nil
	}

	if symtable.Source == "" {
		return &symtable, nil
	}

	source, err := os.ReadFile(symtable.Source)

	if err != nil {
		log.Println("Error loading source file")
		log.Println(err)
		return &symtable, nil
	}

	return &symtable, source
}

func printState(mc *machine.Machine, executed uint, lo, hi uint16) {
	regTable := table.NewWriter()
	regTable.SetTitle("Registers")
	regTable.AppendHeader(table.Row{"A", "D", "PC", "Cycles", "Halted"})
	regTable.AppendRow(table.Row{
		fmt.Sprintf("%#04x", mc.State.A),
		int16(mc.State.D),
		fmt.Sprintf("%#04x", mc.State.Program),
		executed,
		mc.Halted(),
	})

	fmt.Fprintln(stdout, regTable.Render())

	ramTable := table.NewWriter()
	ramTable.SetTitle(fmt.Sprintf("RAM [%d:%d]", lo, hi))
	ramTable.AppendHeader(table.Row{"Addr", "Value", "Hex", "Binary"})

	for addr := uint32(lo); addr < uint32(hi); addr++ {
		value := mc.State.RAM[addr]

		ramTable.AppendRow(table.Row{
			addr,
			int16(value),
			fmt.Sprintf("%#04x", value),
			encoding.FormatWord(value),
		})
	}

	fmt.Fprintln(stdout, ramTable.Render())
}

func hackemu() int {
	if helpvar {
		fmt.Fprintln(stdout, usage)
		flag.CommandLine.SetOutput(stdout)
		flag.PrintDefaults()
		return 0
	}

	var lo, hi uint16

	if _, err := fmt.Sscanf(ramvar, "%d:%d", &lo, &hi); err != nil ||
		lo > hi || hi > machine.RAM_SIZE {
		log.Printf("Invalid RAM window '%s'", ramvar)
		return 1
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	mc := new(machine.Machine)

	if filepath.Ext(args[0]) == ".bin" {
		err = mc.LoadBin(file)
	} else {
		err = mc.LoadHack(file)
	}

	if err != nil {
		log.Println(err)
		return 1
	}

	if keysvar != "" {
		mc.Devices = &machine.DeviceHandler{
			Keyboard: bufio.NewReader(bytes.NewReader([]byte(keysvar))),
		}
	}

	if tracevar {
		tr := &tracer{out: stdout}
		tr.symtable, tr.source = loadSymTable(args[0])
		mc.Debugger = tr

		tr.printInstruction(mc.State.Program, mc)
	}

	var interrupted atomic.Bool

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	go func() {
		for range c {
			interrupted.Store(true)
		}
	}()

	var executed uint

	for executed < cyclesvar && !mc.Halted() && !interrupted.Load() {
		chunk := cyclesvar - executed

		if chunk > runChunk {
			chunk = runChunk
		}

		executed += mc.Run(chunk)
	}

	if interrupted.Load() {
		log.Println("Interrupted")
	}

	printState(mc, executed, lo, hi)

	return 0
}

func main() {
	atexit.Exit(hackemu())
}
