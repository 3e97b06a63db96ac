package normalization

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultClassicRatio шаблон для классических типов без разобранного значения
const DefaultClassicRatio = "THC: | BR | CBD:"

// nonBreakingHyphen разделитель описания и веса
const nonBreakingHyphen = "\u2011"

var (
	cannabinoidValueRe = regexp.MustCompile(`(?i)\b(THC|THCA|CBD|CBDA|CBC|CBN|CBG)\b\s*:?\s*\d`)
	percentOrMgRe      = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(%|mg)`)
	weightSuffixRe     = regexp.MustCompile(`(?i)\s+-\s*\d+(?:\.\d+)?\s*(?:g|gm|grams?|oz|ounces?|mg|ml)?\s*$`)
	byBrandRe          = regexp.MustCompile(`(?i)\s+by\s+`)
)

// FormatPrice форматирует цену: $15 для целых сумм, $15.50 для дробных
func FormatPrice(raw string) string {
	raw = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(raw))
	if raw == "" {
		return ""
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ""
	}
	if d.Equal(d.Truncate(0)) {
		return "$" + d.StringFixed(0)
	}
	return "$" + d.StringFixed(2)
}

// PickCannabinoid максимальное правдоподобное значение (0, 100] среди кандидатов.
// Пустая строка, если ни одно не разобрано.
func PickCannabinoid(row Row, candidates ...string) string {
	var best decimal.Decimal
	found := false
	hundred := decimal.NewFromInt(100)

	for _, c := range candidates {
		raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(row[c]), "%"))
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		if !v.IsPositive() || v.GreaterThan(hundred) {
			continue
		}
		if !found || v.GreaterThan(best) {
			best = v
			found = true
		}
	}
	if !found {
		return ""
	}
	return best.String()
}

// hasParseableRatio значение похоже на соотношение или содержание каннабиноидов
func hasParseableRatio(ratio string) bool {
	return HasRatioPattern(ratio) || cannabinoidValueRe.MatchString(ratio) || percentOrMgRe.MatchString(ratio)
}

// RatioDisplay строка Ratio_or_THC_CBD. Для классических типов - шаблон,
// если в колонке Ratio нет разбираемого значения; для остальных - как есть.
func RatioDisplay(rec *ProductRecord) string {
	ratio := strings.TrimSpace(rec.Ratio)
	if rec.IsClassic() {
		if hasParseableRatio(ratio) {
			return ratio
		}
		return DefaultClassicRatio
	}
	return ratio
}

// DescriptionFromName убирает суффикс " - 1g" и хвост " by <бренд>".
// Хвост режется, только если после " by " стоит один из brands:
// "Stand By Me - 1g" остается "Stand By Me".
func DescriptionFromName(name string, brands ...string) string {
	desc := strings.TrimSpace(name)
	for _, loc := range byBrandRe.FindAllStringIndex(desc, -1) {
		tail := strings.TrimSpace(weightSuffixRe.ReplaceAllString(desc[loc[1]:], ""))
		if startsWithBrand(tail, brands) {
			desc = desc[:loc[0]]
			break
		}
	}
	desc = weightSuffixRe.ReplaceAllString(desc, "")
	return strings.TrimSpace(desc)
}

// startsWithBrand хвост начинается с одного из брендов целым словом
func startsWithBrand(tail string, brands []string) bool {
	lower := strings.ToLower(tail)
	for _, brand := range brands {
		brand = strings.ToLower(strings.TrimSpace(brand))
		if brand == "" || !strings.HasPrefix(lower, brand) {
			continue
		}
		rest := lower[len(brand):]
		if rest == "" || !isWordByte(rest[0]) {
			return true
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80
}

// DescAndWeight описание и вес через неразрывный дефис
func DescAndWeight(description, weight string) string {
	if weight == "" {
		return description
	}
	if description == "" {
		return weight
	}
	return description + " " + nonBreakingHyphen + " " + weight
}
