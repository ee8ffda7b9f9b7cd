// Benchterm
// Copyright (c) 2026 The Benchterm Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Benchterm.
//
// Benchterm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Benchterm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Benchterm.  If not, see <http://www.gnu.org/licenses/>.

package results

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/flashchine/benchterm/pkg/extract"
	"github.com/flashchine/benchterm/pkg/vterm"
)

const (
	SheetMain   = "Log"
	SheetPassed = "PASSED"
)

var toneFontColor = map[vterm.Tone]string{
	vterm.ToneDefault: "000000",
	vterm.ToneGreen:   "008000",
	vterm.ToneRed:     "FF0000",
}

// appendRow adds one record row to the given sheet, creating the workbook
// with both sheets and header rows on first use.
func (g *Gate) appendRow(sheet string, rec extract.Record) error {
	wb, err := g.openWorkbook()
	if err != nil {
		return err
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	rowIdx := len(rows) + 1

	for col := 0; col < extract.FieldCount; col++ {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := wb.SetCellValue(sheet, cell, rec.Values[col]); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
		styleID, err := wb.NewStyle(&excelize.Style{
			Font: &excelize.Font{Color: toneFontColor[rec.Tones[col]]},
		})
		if err != nil {
			return fmt.Errorf("failed to create cell style: %w", err)
		}
		if err := wb.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", cell, err)
		}
	}

	return g.writeWorkbook(wb)
}

func (g *Gate) openWorkbook() (*excelize.File, error) {
	exists, err := afero.Exists(g.fs, g.xlsxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", g.xlsxPath, err)
	}
	if !exists {
		return newWorkbook()
	}

	b, err := afero.ReadFile(g.fs, g.xlsxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", g.xlsxPath, err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", g.xlsxPath, err)
	}
	return wb, nil
}

func newWorkbook() (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), SheetMain); err != nil {
		return nil, fmt.Errorf("failed to rename default sheet: %w", err)
	}
	if _, err := wb.NewSheet(SheetPassed); err != nil {
		return nil, fmt.Errorf("failed to create PASSED sheet: %w", err)
	}
	for _, sheet := range []string{SheetMain, SheetPassed} {
		for col, name := range extract.Fields {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, fmt.Errorf("failed to build header cell: %w", err)
			}
			if err := wb.SetCellValue(sheet, cell, name); err != nil {
				return nil, fmt.Errorf("failed to write header: %w", err)
			}
		}
	}
	return wb, nil
}

func (g *Gate) writeWorkbook(wb *excelize.File) error {
	f, err := g.fs.Create(g.xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", g.xlsxPath, err)
	}
	defer func() { _ = f.Close() }()

	if err := wb.Write(f); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
