// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"bytes"
	"debug/elf"
	"debug/gosym"
	"errors"
	"fmt"
)

// Symbols provides symbol lookups on a loaded ELF image, such as the
// NonSecure World kernel, to annotate execution context faults.
type Symbols struct {
	exe   *elf.File
	table *gosym.Table
}

// NewSymbols parses an ELF image.
func NewSymbols(buf []byte) (s *Symbols, err error) {
	exe, err := elf.NewFile(bytes.NewReader(buf))

	if err != nil {
		return
	}

	return &Symbols{exe: exe}, nil
}

// Lookup returns the named symbol.
func (s *Symbols) Lookup(name string) (*elf.Symbol, error) {
	syms, err := s.exe.Symbols()

	if err != nil {
		return nil, err
	}

	for _, sym := range syms {
		if sym.Name == name {
			return &sym, nil
		}
	}

	return nil, fmt.Errorf("symbol %s not found", name)
}

func (s *Symbols) goSymTable() (symTable *gosym.Table, err error) {
	if s.table != nil {
		return s.table, nil
	}

	text := s.exe.Section(".text")
	pclntab := s.exe.Section(".gopclntab")
	symtab := s.exe.Section(".gosymtab")

	if text == nil || pclntab == nil || symtab == nil {
		return nil, errors.New("missing Go symbol sections")
	}

	lineTableData, err := pclntab.Data()

	if err != nil {
		return
	}

	symTableData, err := symtab.Data()

	if err != nil {
		return
	}

	if s.table, err = gosym.NewTable(symTableData, gosym.NewLineTable(lineTableData, text.Addr)); err != nil {
		return
	}

	return s.table, nil
}

// PCToLine returns the source file and line of a program counter.
func (s *Symbols) PCToLine(pc uint64) (string, error) {
	symTable, err := s.goSymTable()

	if err != nil {
		return "", err
	}

	file, line, _ := symTable.PCToLine(pc)

	if file == "" {
		return "", fmt.Errorf("pc %#x not found", pc)
	}

	return fmt.Sprintf("%s:%d", file, line), nil
}
