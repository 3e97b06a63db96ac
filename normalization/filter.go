package normalization

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultExcludedTypes типы продукции, которые никогда не становятся этикетками
func DefaultExcludedTypes() []string {
	return []string{
		"Samples - Educational",
		"Sample - Vendor",
		"x-DEACTIVATED 1",
		"x-DEACTIVATED 2",
	}
}

// DefaultExcludedNamePatterns шаблоны имен: все подстроки шаблона должны встретиться
func DefaultExcludedNamePatterns() [][]string {
	return [][]string{
		{"trade sample", "not for sale"},
		{"deactivated"},
	}
}

// ExclusionFilter исключает образцы и деактивированные позиции
type ExclusionFilter struct {
	excludedTypes map[string]struct{}
	namePatterns  [][]string
}

// FilterReport счетчики исключенных строк по правилам
type FilterReport struct {
	Input          int `json:"input"`
	ExcludedByType int `json:"excluded_by_type"`
	ExcludedByName int `json:"excluded_by_name"`
	Remaining      int `json:"remaining"`
}

// NewExclusionFilter создает фильтр; nil - наборы по умолчанию
func NewExclusionFilter(types []string, namePatterns [][]string) *ExclusionFilter {
	if types == nil {
		types = DefaultExcludedTypes()
	}
	if namePatterns == nil {
		namePatterns = DefaultExcludedNamePatterns()
	}

	f := &ExclusionFilter{excludedTypes: make(map[string]struct{}, len(types))}
	for _, t := range types {
		f.excludedTypes[NormalizeProductType(t)] = struct{}{}
	}
	for _, p := range namePatterns {
		lowered := make([]string, 0, len(p))
		for _, s := range p {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				lowered = append(lowered, s)
			}
		}
		if len(lowered) > 0 {
			f.namePatterns = append(f.namePatterns, lowered)
		}
	}
	return f
}

// IsExcludedType проверяет тип продукции
func (f *ExclusionFilter) IsExcludedType(productType string) bool {
	_, ok := f.excludedTypes[NormalizeProductType(productType)]
	return ok
}

// IsExcludedName проверяет название по шаблонам
func (f *ExclusionFilter) IsExcludedName(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range f.namePatterns {
		all := true
		for _, sub := range pattern {
			if !strings.Contains(lower, sub) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Apply удаляет исключенные строки. Пустой результат допустим.
func (f *ExclusionFilter) Apply(t *Table) (*Table, FilterReport) {
	report := FilterReport{Input: len(t.Rows)}
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows)), Lines: make([]int, 0, len(t.Rows))}

	for i, row := range t.Rows {
		switch {
		case f.IsExcludedType(row[ColProductType]):
			report.ExcludedByType++
		case f.IsExcludedName(row[ColProductName]):
			report.ExcludedByName++
		default:
			out.Rows = append(out.Rows, row)
			out.Lines = append(out.Lines, t.lineOf(i))
		}
	}
	report.Remaining = len(out.Rows)

	log.Info().Str("component", "filter").
		Int("input", report.Input).
		Int("excluded_by_type", report.ExcludedByType).
		Int("excluded_by_name", report.ExcludedByName).
		Int("remaining", report.Remaining).
		Msg("exclusion filter applied")

	return out, report
}
