package normalization

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultBrandPattern извлекает бренд из имени вида "Product by Brand - 1g"
const DefaultBrandPattern = `(?i)\bby\s+([A-Za-z0-9'&. ]+?)\s*(?:-|$)`

// ExceptionRule правило для конкретной продуктовой линейки.
// Такие правила покрывают проблемы данных отдельных поставщиков и
// должны пересматриваться, а не обобщаться.
type ExceptionRule struct {
	NameContains    string `json:"name_contains"`
	WeightOverride  string `json:"weight_override,omitempty"`
	StripFromStrain bool   `json:"strip_from_strain"`
	Brand           string `json:"brand,omitempty"`

	stripRe *regexp.Regexp
}

// ExceptionTable настраиваемая таблица исключений
type ExceptionTable struct {
	Rules         []ExceptionRule `json:"rules"`
	BrandPatterns []string        `json:"brand_patterns"`

	brandRes []*regexp.Regexp
}

// DefaultExceptionTable встроенная таблица (линейка Moonshot)
func DefaultExceptionTable() *ExceptionTable {
	et := &ExceptionTable{
		Rules: []ExceptionRule{
			{NameContains: "Moonshot", WeightOverride: "2.5oz", StripFromStrain: true, Brand: "Moonshot"},
		},
		BrandPatterns: []string{DefaultBrandPattern},
	}
	if err := et.compile(); err != nil {
		panic(err)
	}
	return et
}

// LoadExceptionTable читает таблицу исключений из JSON-файла.
// Пустой путь - встроенная таблица.
func LoadExceptionTable(path string) (*ExceptionTable, error) {
	if path == "" {
		return DefaultExceptionTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exceptions file: %w", err)
	}

	var et ExceptionTable
	if err := json.Unmarshal(data, &et); err != nil {
		return nil, fmt.Errorf("failed to parse exceptions file %s: %w", path, err)
	}
	if len(et.BrandPatterns) == 0 {
		et.BrandPatterns = []string{DefaultBrandPattern}
	}
	if err := et.compile(); err != nil {
		return nil, err
	}
	return &et, nil
}

func (et *ExceptionTable) compile() error {
	for i := range et.Rules {
		rule := &et.Rules[i]
		rule.NameContains = strings.TrimSpace(rule.NameContains)
		if rule.NameContains == "" {
			return fmt.Errorf("exception rule %d: name_contains is required", i)
		}
		rule.stripRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(rule.NameContains) + `\b`)
	}

	et.brandRes = et.brandRes[:0]
	for _, p := range et.BrandPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid brand pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("brand pattern %q must have a capture group", p)
		}
		et.brandRes = append(et.brandRes, re)
	}
	return nil
}

// Match возвращает первое правило, чье имя встречается в названии продукта
func (et *ExceptionTable) Match(productName string) *ExceptionRule {
	if et == nil {
		return nil
	}
	lower := strings.ToLower(productName)
	for i := range et.Rules {
		if strings.Contains(lower, strings.ToLower(et.Rules[i].NameContains)) {
			return &et.Rules[i]
		}
	}
	return nil
}

// StripFrom удаляет слово правила из строки и схлопывает пробелы
func (r *ExceptionRule) StripFrom(s string) string {
	if r == nil || !r.StripFromStrain || r.stripRe == nil {
		return s
	}
	return strings.Join(strings.Fields(r.stripRe.ReplaceAllString(s, " ")), " ")
}

// BrandFromName извлекает бренд по правилам и шаблонам
func (et *ExceptionTable) BrandFromName(productName string) string {
	if et == nil {
		return ""
	}
	if rule := et.Match(productName); rule != nil && rule.Brand != "" {
		return rule.Brand
	}
	for _, re := range et.brandRes {
		if m := re.FindStringSubmatch(productName); len(m) > 1 {
			if brand := strings.TrimSpace(m[1]); brand != "" {
				return brand
			}
		}
	}
	return ""
}

// ConfiguredBrand бренд из правила или из явно заданного шаблона.
// Шаблон по умолчанию не учитывается: он ловит любое " by ".
func (et *ExceptionTable) ConfiguredBrand(productName string) string {
	if et == nil {
		return ""
	}
	if rule := et.Match(productName); rule != nil && rule.Brand != "" {
		return rule.Brand
	}
	for i, re := range et.brandRes {
		if i < len(et.BrandPatterns) && et.BrandPatterns[i] == DefaultBrandPattern {
			continue
		}
		if m := re.FindStringSubmatch(productName); len(m) > 1 {
			if brand := strings.TrimSpace(m[1]); brand != "" {
				return brand
			}
		}
	}
	return ""
}
