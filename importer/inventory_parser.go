package importer

import (
	"fmt"
	"io"
	"strings"

	"labelprep/normalization"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ReadInventoryFile читает первый лист xlsx-файла инвентаря
func ReadInventoryFile(filePath string) (*normalization.RawTable, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return readFirstSheet(f, filePath)
}

// ReadInventory читает xlsx из потока (загрузка файла без сохранения на диск)
func ReadInventory(r io.Reader) (*normalization.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel stream: %w", err)
	}
	defer f.Close()

	return readFirstSheet(f, "<stream>")
}

func readFirstSheet(f *excelize.File, source string) (*normalization.RawTable, error) {
	// Получаем имя первого листа
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	// Заголовок - первая непустая строка
	headerIdx := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, fmt.Errorf("%w: sheet %q has no rows", normalization.ErrEmptyFile, sheetName)
	}

	header := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		header[i] = strings.TrimSpace(h)
	}

	table := &normalization.RawTable{
		Header:     header,
		Records:    make([][]string, 0, len(rows)-headerIdx-1),
		HeaderLine: headerIdx + 1,
	}
	for _, row := range rows[headerIdx+1:] {
		// GetRows обрезает пустые ячейки в конце строки; дополняем до ширины заголовка
		record := make([]string, len(header))
		copy(record, row)
		table.Records = append(table.Records, record)
	}

	log.Debug().Str("component", "importer").
		Str("source", source).
		Str("sheet", sheetName).
		Int("columns", len(header)).
		Int("rows", len(table.Records)).
		Msg("spreadsheet read")

	return table, nil
}

// isEmptyRow проверяет, является ли строка пустой
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
