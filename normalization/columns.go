package normalization

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// columnRename правило переименования колонки
type columnRename struct {
	from   string
	to     string
	prefix bool
}

func (r columnRename) matches(header string) bool {
	if r.prefix {
		return strings.HasPrefix(header, r.from)
	}
	return header == r.from
}

// defaultColumnRenames применяются только если целевой колонки еще нет
var defaultColumnRenames = []columnRename{
	{from: "Product Name*", to: ColProductName},
	{from: "Vendor/Supplier*", to: ColVendor},
	{from: "DOH Compliant (Yes/No)", to: ColDOH},
	{from: "Concentrate Type", to: ColRatio},
	{from: "Joint Ratio", to: ColJointRatio},
	{from: "Quantity Received*", to: ColQuantity},
	{from: "Weight Unit*", to: ColUnits, prefix: true},
	{from: "Price*", to: ColPrice, prefix: true},
	{from: "Product Type*", to: ColProductType},
	{from: "Product Brand", to: ColProductBrand},
	{from: "Product Strain", to: ColProductStrain},
	{from: "Weight*", to: ColWeight},
}

// DefaultTypeOverrides исправления известных опечаток в типах продукции
func DefaultTypeOverrides() map[string]string {
	return map[string]string{
		"all-in-one":              TypeVapeCartridge,
		"vape cartrige":           TypeVapeCartridge,
		"rosin":                   TypeConcentrate,
		"mini buds":               TypeFlower,
		"bud":                     TypeFlower,
		"pre roll":                TypePreRoll,
		"preroll":                 TypePreRoll,
		"infused preroll":         TypeInfusedPreRoll,
		"alcohol/ethanol extract": TypeRSOTankers,
		"c02/ethanol extract":     TypeRSOTankers,
		"co2 concentrate":         TypeRSOTankers,
	}
}

// naTokens значения, которые экспорт из других систем пишет вместо пустой ячейки
var naTokens = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
	"#n/a": {},
}

// FieldNormalizer приводит колонки и ячейки к каноническому виду
type FieldNormalizer struct {
	renames       []columnRename
	typeOverrides map[string]string
}

// NormalizeResult результат нормализации колонок
type NormalizeResult struct {
	Table          *Table
	DroppedColumns []string
	Renamed        map[string]string
}

// NewFieldNormalizer создает нормализатор; nil overrides - таблица по умолчанию
func NewFieldNormalizer(typeOverrides map[string]string) *FieldNormalizer {
	if typeOverrides == nil {
		typeOverrides = DefaultTypeOverrides()
	}
	overrides := make(map[string]string, len(typeOverrides))
	for k, v := range typeOverrides {
		overrides[NormalizeProductType(k)] = v
	}
	return &FieldNormalizer{
		renames:       defaultColumnRenames,
		typeOverrides: overrides,
	}
}

// OverrideType применяет TYPE_OVERRIDES к значению типа
func (fn *FieldNormalizer) OverrideType(productType string) string {
	trimmed := strings.Join(strings.Fields(productType), " ")
	if fixed, ok := fn.typeOverrides[strings.ToLower(trimmed)]; ok {
		return fixed
	}
	return trimmed
}

// Normalize переименовывает колонки, схлопывает дубликаты, чистит ячейки
// и приводит логические поля к каноническим колонкам
func (fn *FieldNormalizer) Normalize(raw *RawTable) (*NormalizeResult, error) {
	logger := log.With().Str("component", "normalizer").Logger()

	if raw == nil || len(raw.Header) == 0 {
		return nil, ErrEmptyFile
	}

	headers := fn.renameHeaders(raw.Header)

	result := &NormalizeResult{Renamed: make(map[string]string)}
	for i, h := range raw.Header {
		if t := strings.TrimSpace(h); t != headers[i] {
			result.Renamed[t] = headers[i]
		}
	}

	// Схлопываем дубликаты: остается первое вхождение
	keep := make([]int, 0, len(headers))
	seen := make(map[string]struct{}, len(headers))
	columns := make([]string, 0, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			logger.Warn().Str("column", h).Int("index", i).Msg("dropping duplicate column")
			result.DroppedColumns = append(result.DroppedColumns, h)
			continue
		}
		seen[h] = struct{}{}
		keep = append(keep, i)
		columns = append(columns, h)
	}

	hasName := false
	for _, c := range ProductNameCandidates {
		if _, ok := seen[c]; ok {
			hasName = true
			break
		}
	}
	if !hasName {
		return nil, fmt.Errorf("%w: expected one of %v", ErrNoProductNameColumn, ProductNameCandidates)
	}

	table := &Table{Columns: columns, Rows: make([]Row, 0, len(raw.Records)), Lines: make([]int, 0, len(raw.Records))}
	firstLine := raw.firstDataLine()
	for n, record := range raw.Records {
		row := make(Row, len(columns))
		empty := true
		for j, idx := range keep {
			var cell string
			if idx < len(record) {
				cell = cleanCell(record[idx])
			}
			if cell != "" {
				empty = false
			}
			row[columns[j]] = cell
		}
		if empty {
			continue
		}
		fn.canonicalize(row)
		table.Rows = append(table.Rows, row)
		table.Lines = append(table.Lines, firstLine+n)
	}

	// Недостающие колонки синтезируются пустыми
	for _, c := range append([]string{ColProductName}, optionalColumns...) {
		if !table.HasColumn(c) {
			table.Columns = append(table.Columns, c)
		}
	}

	logger.Debug().
		Int("columns", len(table.Columns)).
		Int("rows", len(table.Rows)).
		Int("dropped_columns", len(result.DroppedColumns)).
		Msg("table normalized")

	result.Table = table
	return result, nil
}

// renameHeaders применяет карту переименований, не перезаписывая
// уже существующие канонические колонки
func (fn *FieldNormalizer) renameHeaders(header []string) []string {
	present := make(map[string]struct{}, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
		present[out[i]] = struct{}{}
	}

	for i, h := range out {
		for _, r := range fn.renames {
			if !r.matches(h) {
				continue
			}
			if _, exists := present[r.to]; exists {
				break
			}
			out[i] = r.to
			present[r.to] = struct{}{}
			break
		}
	}
	return out
}

// canonicalize заполняет канонические колонки через цепочки кандидатов
func (fn *FieldNormalizer) canonicalize(row Row) {
	row[ColProductName] = Resolve(row, ProductNameCandidates...)
	row[ColProductType] = fn.OverrideType(Resolve(row, ProductTypeCandidates...))
	row[ColProductBrand] = Resolve(row, BrandCandidates...)
	row[ColVendor] = Resolve(row, VendorCandidates...)
	row[ColProductStrain] = Resolve(row, StrainCandidates...)
	row[ColWeight] = Resolve(row, WeightCandidates...)
	row[ColQuantity] = Resolve(row, QuantityCandidates...)
}

// cleanCell обрезает пробелы; NA-маркеры превращаются в пустую строку
func cleanCell(v string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\u00a0", " "))
	if _, na := naTokens[strings.ToLower(v)]; na {
		return ""
	}
	return v
}
