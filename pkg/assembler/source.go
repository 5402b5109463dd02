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
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/lassandro/hackasm/pkg/encoding"
)

type Options struct {
	// Lines are translated on this many goroutines. Zero or one runs
	// sequentially.
	Workers int

	// Stop at the first failing line instead of reporting every one.
	HaltOnError bool

	Logger *slog.Logger
}

// CleanLine drops a trailing // comment and every whitespace character.
func CleanLine(raw string) string {
	if i := strings.Index(raw, "//"); i != -1 {
		raw = raw[:i]
	}

	return strings.Map(func(char rune) rune {
		if unicode.IsSpace(char) {
			return -1
		}

		return char
	}, raw)
}

// ReadHackSource cleans every line of input and discards the blank ones.
func ReadHackSource(input io.Reader) ([]Line, error) {
	var lines []Line
	var advance int

	scanner := bufio.NewScanner(input)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		n, token, err := bufio.ScanLines(data, atEOF)

		if token != nil {
			advance = n
		}

		return n, token, err
	})

	var cursor = Cursor{Line: 1}

	for scanner.Scan() {
		raw := scanner.Text()

		if text := CleanLine(raw); text != "" {
			code := raw

			if i := strings.Index(code, "//"); i != -1 {
				code = code[:i]
			}

			start := len(code) - len(strings.TrimLeftFunc(code, unicode.IsSpace))

			lines = append(lines, Line{
				Text: text,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   start + 1,
					Byte:     cursor.LineByte + int64(start),
					Size:     int64(len(strings.TrimSpace(code))),
					LineByte: cursor.LineByte,
				},
			})
		}

		cursor.Line++
		cursor.LineByte += int64(advance)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// AssembleLines translates each line into the word at the ROM address equal
// to its index. On failure the program is nil and errs holds one error per
// failing line, in line order.
func AssembleLines(lines []Line, opts Options) (program Program, errs []error) {
	if len(lines) > ROM_SIZE {
		return nil, []error{&OversizedBinaryError{len(lines)}}
	}

	program = make(Program, len(lines))
	lineErrs := make([]error, len(lines))

	// Lowest failing index; lines past it are skipped when halting.
	var failed atomic.Int64
	failed.Store(int64(len(lines)))

	assemble := func(index int) {
		if opts.HaltOnError && int64(index) > failed.Load() {
			return
		}

		line := lines[index]

		word, inst, err := assembleLine(line)

		if err != nil {
			lineErrs[index] = err

			for {
				current := failed.Load()
				if int64(index) >= current ||
					failed.CompareAndSwap(current, int64(index)) {
					break
				}
			}

			if opts.Logger != nil {
				opts.Logger.Debug(
					"rejected instruction",
					"line", line.Position.Line,
					"text", line.Text,
					"error", err,
				)
			}

			return
		}

		value, err := encoding.DecodeWord(word)

		if err != nil {
			panic(&InvariantViolationError{word, err.Error()})
		}

		program[index] = Statement{
			Address:     uint16(index),
			Source:      line,
			Instruction: inst,
			Word:        word,
			Value:       value,
		}

		if opts.Logger != nil {
			opts.Logger.Debug(
				"assembled instruction",
				"line", line.Position.Line,
				"address", index,
				"instruction", inst.String(),
				"word", word,
			)
		}
	}

	if opts.Workers <= 1 {
		for index := range lines {
			assemble(index)

			if opts.HaltOnError && lineErrs[index] != nil {
				break
			}
		}
	} else {
		var group errgroup.Group
		group.SetLimit(opts.Workers)

		for index := range lines {
			if opts.HaltOnError && int64(index) > failed.Load() {
				break
			}

			index := index
			group.Go(func() error {
				assemble(index)
				return nil
			})
		}

		group.Wait()
	}

	for _, err := range lineErrs {
		if err != nil {
			errs = append(errs, err)

			if opts.HaltOnError {
				break
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return program, nil
}

func assembleLine(line Line) (string, Instruction, error) {
	inst, err := parseInstruction(line.Text, line.Position)

	if err != nil {
		return "", nil, err
	}

	word, err := encodeInstruction(inst, line.Position)

	if err != nil {
		return "", nil, err
	}

	return word, inst, nil
}

// AssembleHackSource reads, cleans and assembles a whole source file. When
// symtable is non-nil it receives the source byte offset of every ROM
// address.
func AssembleHackSource(input io.Reader, symtable *SymTable, opts Options) (Program, []error) {
	lines, err := ReadHackSource(input)

	if err != nil {
		return nil, []error{err}
	}

	program, errs := AssembleLines(lines, opts)

	if len(errs) > 0 {
		return nil, errs
	}

	if symtable != nil {
		if symtable.Symbols == nil {
			symtable.Symbols = make(map[uint16]int64, len(program))
		}

		for _, statement := range program {
			symtable.Symbols[statement.Address] = statement.Source.Position.LineByte
		}
	}

	return program, nil
}
