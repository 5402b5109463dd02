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
	"encoding/binary"
	"encoding/gob"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/k0kubun/pp/v3"
	"github.com/tebeka/atexit"

	"github.com/lassandro/hackasm/pkg/assembler"
	"github.com/lassandro/hackasm/pkg/term"
)

var helpvar bool
var debugvar bool
var outvar string
var formatvar string
var listingvar bool
var dumpvar bool
var workersvar int
var haltvar bool
var mnemonicsvar bool
var verbosevar bool

var color bool
var stdout *bufio.Writer

const usage = "hackasm [-debug] [-out outfile] [-format text|bin] filename"

func init() {
	color = term.IsTerminal(os.Stderr.Fd())

	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	stdout = bufio.NewWriter(os.Stdout)
	atexit.Register(func() { stdout.Flush() })
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.hackdb'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.StringVar(
		&formatvar, "format", "text",
		"Output format: 'text' writes one binary word per line (.hack), "+
			"'bin' writes big-endian words (.bin)",
	)
	flag.BoolVar(
		&listingvar, "listing", false,
		"Prints a table of ROM addresses, source and machine words",
	)
	flag.BoolVar(
		&dumpvar, "dump", false,
		"Pretty-prints every parsed statement to stderr",
	)
	flag.IntVar(
		&workersvar, "workers", 1,
		"Number of goroutines translating lines",
	)
	flag.BoolVar(
		&haltvar, "halt", false,
		"Stops at the first error instead of reporting all of them",
	)
	flag.BoolVar(
		&mnemonicsvar, "mnemonics", false,
		"Prints every accepted mnemonic and its bits",
	)
	flag.BoolVar(
		&verbosevar, "verbose", false,
		"Logs every translated line to stderr",
	)
	flag.Parse()
}

func bold(s string) string {
	if !color {
		return s
	}

	return "\033[1m" + s + "\033[0m"
}

func red(s string) string {
	if !color {
		return s
	}

	return "\033[31m" + s + "\033[0m"
}

func printMnemonics() error {
	mnemonicTable := table.NewWriter()
	mnemonicTable.SetTitle("Mnemonics")
	mnemonicTable.AppendHeader(table.Row{"Field", "Mnemonic", "Bits"})

	for _, field := range []struct {
		Name  string
		Type  assembler.FieldType
		Build func(string) assembler.ComputationInstruction
		Bits  func(string) string
	}{
		{
			"dest",
			assembler.FIELD_DEST,
			func(m string) assembler.ComputationInstruction {
				return assembler.ComputationInstruction{
					Destination: m, Computation: "0",
				}
			},
			func(word string) string { return word[10:13] },
		},
		{
			"comp",
			assembler.FIELD_COMP,
			func(m string) assembler.ComputationInstruction {
				return assembler.ComputationInstruction{Computation: m}
			},
			func(word string) string { return word[3:10] },
		},
		{
			"jump",
			assembler.FIELD_JUMP,
			func(m string) assembler.ComputationInstruction {
				return assembler.ComputationInstruction{
					Computation: "0", JumpType: m,
				}
			},
			func(word string) string { return word[13:16] },
		},
	} {
		for _, mnemonic := range assembler.Mnemonics(field.Type) {
			word, err := assembler.Encode(field.Build(mnemonic))

			if err != nil {
				return err
			}

			mnemonicTable.AppendRow(
				table.Row{field.Name, mnemonic, field.Bits(word)},
			)
		}

		mnemonicTable.AppendSeparator()
	}

	fmt.Fprintln(stdout, mnemonicTable.Render())

	return nil
}

func printListing(program assembler.Program) {
	listing := table.NewWriter()
	listing.AppendHeader(
		table.Row{"ROM", "Line", "Source", "Instruction", "Binary"},
	)

	for _, statement := range program {
		listing.AppendRow(table.Row{
			fmt.Sprintf("%#04x", statement.Address),
			statement.Source.Position.Line,
			statement.Source.Text,
			statement.Instruction.String(),
			statement.Word,
		})
	}

	fmt.Fprintln(stdout, listing.Render())
}

func sourceLine(source []byte, cursor assembler.Cursor) string {
	if cursor.LineByte < 0 || cursor.LineByte > int64(len(source)) {
		return ""
	}

	line := source[cursor.LineByte:]

	if end := bytes.IndexByte(line, '\n'); end != -1 {
		line = line[:end]
	}

	return strings.TrimSuffix(string(line), "\r")
}

func reportErrors(source []byte, errs []error) {
	for _, err := range errs {
		tokenErr, ok := err.(assembler.TokenError)

		if !ok || tokenErr.GetPosition().Line == 0 {
			log.Println(err)
			continue
		}

		cursor := tokenErr.GetPosition()

		underlinefmt := fmt.Sprintf(
			"%% %ds%s",
			int(cursor.Byte-cursor.LineByte)+1,
			strings.Repeat("~", int(cursor.Size)-1),
		)

		log.Printf(
			"%s\n%s\n%s",
			err,
			sourceLine(source, cursor),
			red(fmt.Sprintf(underlinefmt, "^")),
		)
	}
}

func writeProgram(program assembler.Program) error {
	buffer := new(bytes.Buffer)

	switch formatvar {
	case "text":
		for _, word := range program.Words() {
			buffer.WriteString(word)
			buffer.WriteByte('\n')
		}
	case "bin":
		if err := binary.Write(
			buffer, binary.BigEndian, program.Values(),
		); err != nil {
			return err
		}
	}

	return os.WriteFile(outvar, buffer.Bytes(), 0666)
}

func writeSymTable(symtable *assembler.SymTable) error {
	filename := filepath.Join(
		filepath.Dir(outvar),
		strings.TrimSuffix(filepath.Base(outvar), filepath.Ext(outvar))+
			".hackdb",
	)

	file, err := os.OpenFile(
		filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666,
	)

	if err != nil {
		return fmt.Errorf("Error creating symbol table: %w", err)
	}

	defer file.Close()

	if err := gob.NewEncoder(file).Encode(symtable); err != nil {
		return fmt.Errorf("Error writing symbol table: %w", err)
	}

	return nil
}

func hackasm() int {
	if helpvar {
		fmt.Fprintln(stdout, usage)
		flag.CommandLine.SetOutput(stdout)
		flag.PrintDefaults()
		return 0
	}

	if mnemonicsvar {
		if err := printMnemonics(); err != nil {
			log.Println(err)
			return 1
		}

		return 0
	}

	var ext string

	switch formatvar {
	case "text":
		ext = ".hack"
	case "bin":
		ext = ".bin"
	default:
		log.Printf("Unknown output format '%s'", formatvar)
		return 1
	}

	args := flag.Args()

	var infile string
	var input io.Reader

	if stat, err := os.Stdin.Stat(); err == nil &&
		stat.Mode()&os.ModeCharDevice == 0 && len(args) == 0 {
		input = os.Stdin
		log.SetPrefix(bold("<stdin>:"))

		if outvar == "" {
			outvar = "out" + ext
		}
	} else {
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

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid Hack assembly file", filename)
			return 1
		}

		input = file
		infile = file.Name()
		log.SetPrefix(bold(filename + ":"))

		if outvar == "" {
			outvar = filepath.Join(
				filepath.Dir(infile),
				strings.TrimSuffix(filename, filepath.Ext(filename))+ext,
			)
		}
	}

	source, err := io.ReadAll(input)

	if err != nil {
		log.Println(err)
		return 1
	}

	var symtable assembler.SymTable
	var symtarget *assembler.SymTable = nil

	if debugvar {
		if infile != "" {
			if symtable.Source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				symtable.Source = ""
			}
		}
		symtable.Symbols = make(map[uint16]int64)
		symtarget = &symtable
	}

	opts := assembler.Options{Workers: workersvar, HaltOnError: haltvar}

	if verbosevar {
		opts.Logger = slog.New(slog.NewTextHandler(
			os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug},
		))
	}

	program, errs := assembler.AssembleHackSource(
		bytes.NewReader(source), symtarget, opts,
	)

	if len(errs) > 0 {
		reportErrors(source, errs)
		return 1
	}

	if dumpvar {
		printer := pp.New()
		printer.SetOutput(os.Stderr)
		printer.SetColoringEnabled(color)

		for _, statement := range program {
			printer.Println(statement)
		}
	}

	if listingvar {
		printListing(program)
	}

	if err := writeProgram(program); err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return 1
	}

	if debugvar {
		if err := writeSymTable(&symtable); err != nil {
			log.Println(err)
			return 1
		}
	}

	return 0
}

func main() {
	atexit.Exit(hackasm())
}
