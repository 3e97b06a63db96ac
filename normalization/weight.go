package normalization

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	embeddedUnitRe = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(g|oz|gram|ounce)`)
	ounceRe        = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(oz|ounce)`)
	jointRatioRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g\s*x\s*(\d+)`)
	packCountRe    = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*(?:pk|pack)\b`)
	numberRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// unitAliases синонимы единиц измерения
var unitAliases = map[string]string{
	"g":      "g",
	"gram":   "g",
	"grams":  "g",
	"gm":     "g",
	"gr":     "g",
	"oz":     "oz",
	"ounce":  "oz",
	"ounces": "oz",
	"mg":     "mg",
	"ml":     "ml",
	"fl oz":  "fl oz",
}

// DefaultOuncePackaging типовые фасовки в унциях по типу продукции.
// Первое значение списка используется по умолчанию.
func DefaultOuncePackaging() map[string][]string {
	return map[string][]string{
		TypeTincture:            {"1oz", "2oz", "4oz"},
		TypeTopical:             {"1oz", "2oz", "4oz"},
		TypeEdibleLiquid:        {"2oz", "12oz"},
		TypeHighCBDEdibleLiquid: {"2oz", "4oz"},
	}
}

// CanonicalUnit приводит единицу к каноническому виду; пустая - граммы
func CanonicalUnit(units string) string {
	key := strings.ToLower(strings.Join(strings.Fields(units), " "))
	if key == "" {
		return "g"
	}
	if u, ok := unitAliases[key]; ok {
		return u
	}
	// "oz.", "g."
	key = strings.Trim(key, ". ")
	if u, ok := unitAliases[key]; ok {
		return u
	}
	return key
}

// FormatNumber печатает число без лишних нулей: 3.50 -> 3.5, 2.0 -> 2
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseNumber разбирает число из ячейки, допуская мусор вокруг
func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, true
	}
	m := numberRe.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

// JointRatioFromName извлекает описание упаковки пре-роллов из названия:
// "0.5g x 2" или "2 Pack" вместе с весом
func JointRatioFromName(name, weight string) string {
	if m := jointRatioRe.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%sg x %s Pack", m[1], m[2])
	}
	if m := packCountRe.FindStringSubmatch(name); m != nil {
		if w, ok := parseNumber(weight); ok && w > 0 {
			return fmt.Sprintf("%sg x %s Pack", FormatNumber(w), m[1])
		}
	}
	return ""
}

// OunceIndex вес в унциях для уже встреченных одинаковых продуктов
type OunceIndex map[string]string

func ounceKey(rec *ProductRecord) string {
	return strings.ToLower(strings.Join(strings.Fields(rec.Description), " ")) + "|" + NormalizeProductType(rec.ProductType)
}

// WeightFormatter строит отображаемую строку веса
type WeightFormatter struct {
	exceptions  *ExceptionTable
	ozPackaging map[string][]string
	// ozKeys ключевые слова фасовок: сначала длинные, при равной длине по алфавиту
	ozKeys []string
}

// NewWeightFormatter создает форматтер; nil - встроенные таблицы
func NewWeightFormatter(exceptions *ExceptionTable, ozPackaging map[string][]string) *WeightFormatter {
	if exceptions == nil {
		exceptions = DefaultExceptionTable()
	}
	if ozPackaging == nil {
		ozPackaging = DefaultOuncePackaging()
	}
	raw := make([]string, 0, len(ozPackaging))
	for k := range ozPackaging {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	// При совпадении после нормализации остается первый ключ по алфавиту
	packaging := make(map[string][]string, len(ozPackaging))
	keys := make([]string, 0, len(ozPackaging))
	for _, k := range raw {
		key := NormalizeProductType(k)
		if _, dup := packaging[key]; dup || key == "" {
			continue
		}
		packaging[key] = ozPackaging[k]
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &WeightFormatter{exceptions: exceptions, ozPackaging: packaging, ozKeys: keys}
}

// ouncePackaging фасовки для типа продукции. Точное совпадение типа
// важнее вхождения ключевого слова: "cbd tincture" получает фасовки tincture.
func (wf *WeightFormatter) ouncePackaging(productType string) []string {
	normalized := NormalizeProductType(productType)
	if normalized == "" {
		return nil
	}
	if sizes, ok := wf.ozPackaging[normalized]; ok {
		return sizes
	}
	for _, key := range wf.ozKeys {
		if strings.Contains(normalized, key) {
			return wf.ozPackaging[key]
		}
	}
	return nil
}

// isOunce запись уже записана в унциях
func isOunce(rec *ProductRecord) bool {
	if ounceRe.MatchString(rec.Weight) {
		return true
	}
	_, ok := parseNumber(rec.Weight)
	return ok && CanonicalUnit(rec.Units) == "oz"
}

// BuildOunceIndex собирает веса продуктов, записанных в унциях.
// Первое вхождение выигрывает.
func (wf *WeightFormatter) BuildOunceIndex(records []*ProductRecord) OunceIndex {
	idx := make(OunceIndex)
	for _, rec := range records {
		if rec.Description == "" || !isOunce(rec) {
			continue
		}
		key := ounceKey(rec)
		if _, exists := idx[key]; exists {
			continue
		}
		if w, err := wf.CombinedWeight(rec, nil); err == nil && w != "" {
			idx[key] = w
		}
	}
	return idx
}

// CombinedWeight строка веса с единицей. Ошибка означает, что вес не
// разобран и возвращено исходное значение ячейки.
func (wf *WeightFormatter) CombinedWeight(rec *ProductRecord, idx OunceIndex) (string, error) {
	if rule := wf.exceptions.Match(rec.ProductName); rule != nil && rule.WeightOverride != "" {
		return rule.WeightOverride, nil
	}

	if IsPreRollType(rec.ProductType) {
		if rec.JointRatio != "" {
			return rec.JointRatio, nil
		}
		if jr := JointRatioFromName(rec.ProductName, rec.Weight); jr != "" {
			return jr, nil
		}
	}

	raw := strings.TrimSpace(rec.Weight)
	if raw == "" {
		return "", nil
	}
	if embeddedUnitRe.MatchString(raw) {
		return raw, nil
	}

	w, ok := parseNumber(raw)
	if !ok {
		return raw, fmt.Errorf("unparseable weight %q", raw)
	}

	unit := CanonicalUnit(rec.Units)
	if unit == "g" && !rec.IsClassic() {
		if v, found := idx[ounceKey(rec)]; found {
			return v, nil
		}
		if sizes := wf.ouncePackaging(rec.ProductType); len(sizes) > 0 {
			return sizes[0], nil
		}
	}

	return FormatNumber(w) + unit, nil
}
