package normalization

import (
	"regexp"
	"strings"
)

// Линии (lineage) товаров
const (
	LineageSativa        = "SATIVA"
	LineageIndica        = "INDICA"
	LineageHybrid        = "HYBRID"
	LineageHybridSativa  = "HYBRID/SATIVA"
	LineageHybridIndica  = "HYBRID/INDICA"
	LineageCBD           = "CBD"
	LineageMixed         = "MIXED"
	LineageParaphernalia = "PARAPHERNALIA"
)

// Специальные значения штамма
const (
	StrainCBDBlend = "CBD Blend"
	StrainMixed    = "Mixed"
)

// Типы продукции, на которые завязаны отдельные правила
const (
	TypeFlower                 = "flower"
	TypePreRoll                = "pre-roll"
	TypeInfusedPreRoll         = "infused pre-roll"
	TypeConcentrate            = "concentrate"
	TypeSolventlessConcentrate = "solventless concentrate"
	TypeVapeCartridge          = "vape cartridge"
	TypeRSOTankers             = "rso/co2 tankers"
	TypeEdibleSolid            = "edible (solid)"
	TypeEdibleLiquid           = "edible (liquid)"
	TypeHighCBDEdibleLiquid    = "high cbd edible liquid"
	TypeTincture               = "tincture"
	TypeTopical                = "topical"
	TypeCapsule                = "capsule"
	TypeParaphernalia          = "paraphernalia"
)

// classicTypes классические типы: строгие правила линий
var classicTypes = map[string]struct{}{
	TypeFlower:                 {},
	TypePreRoll:                {},
	TypeInfusedPreRoll:         {},
	TypeConcentrate:            {},
	TypeSolventlessConcentrate: {},
	TypeVapeCartridge:          {},
	TypeRSOTankers:             {},
}

// edibleTypes съедобная категория
var edibleTypes = map[string]struct{}{
	TypeEdibleSolid:         {},
	TypeEdibleLiquid:        {},
	TypeHighCBDEdibleLiquid: {},
	TypeTincture:            {},
	TypeTopical:             {},
	TypeCapsule:             {},
}

// lineageAliases таблица приведения текста линии к каноническому виду
var lineageAliases = map[string]string{
	"sativa":        LineageSativa,
	"s":             LineageSativa,
	"indica":        LineageIndica,
	"i":             LineageIndica,
	"hybrid":        LineageHybrid,
	"h":             LineageHybrid,
	"hybrid/sativa": LineageHybridSativa,
	"sativa_hybrid": LineageHybridSativa,
	"sativa hybrid": LineageHybridSativa,
	"hybrid_sativa": LineageHybridSativa,
	"hybrid/indica": LineageHybridIndica,
	"indica_hybrid": LineageHybridIndica,
	"indica hybrid": LineageHybridIndica,
	"hybrid_indica": LineageHybridIndica,
	"cbd":           LineageCBD,
	"cbd_blend":     LineageCBD,
	"cbd blend":     LineageCBD,
	"mixed":         LineageMixed,
	"mix":           LineageMixed,
	"paraphernalia": LineageParaphernalia,
}

// lineageOrder порядок линий для пакетной генерации
var lineageOrder = []string{
	LineageSativa,
	LineageIndica,
	LineageHybrid,
	LineageHybridSativa,
	LineageHybridIndica,
	LineageCBD,
	LineageMixed,
	LineageParaphernalia,
}

var (
	cannabinoidTokenRe = regexp.MustCompile(`(?i)\b(CBD|CBC|CBN|CBG)\b`)
	cbdTokenRe         = regexp.MustCompile(`(?i)\bCBD\b`)
	thcTokenRe         = regexp.MustCompile(`(?i)\bTHC\b`)
	ratioPatternRe     = regexp.MustCompile(`\d+(?:\.\d+)?\s*:\s*\d+(?:\.\d+)?`)
)

// NormalizeProductType приводит тип продукции к ключу таксономии
func NormalizeProductType(productType string) string {
	return strings.ToLower(strings.Join(strings.Fields(productType), " "))
}

// IsClassicType проверяет принадлежность к классическим типам
func IsClassicType(productType string) bool {
	_, ok := classicTypes[NormalizeProductType(productType)]
	return ok
}

// IsEdibleType проверяет принадлежность к съедобной категории
func IsEdibleType(productType string) bool {
	_, ok := edibleTypes[NormalizeProductType(productType)]
	return ok
}

func isType(productType, want string) bool {
	return NormalizeProductType(productType) == want
}

// IsParaphernaliaType проверяет, что тип - аксессуары
func IsParaphernaliaType(productType string) bool {
	return isType(productType, TypeParaphernalia)
}

// IsPreRollType проверяет пре-роллы, в том числе infused
func IsPreRollType(productType string) bool {
	t := NormalizeProductType(productType)
	return t == TypePreRoll || t == TypeInfusedPreRoll
}

// CanonicalLineage приводит текст линии к каноническому значению.
// Неизвестный текст возвращается в верхнем регистре.
func CanonicalLineage(raw string) string {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if key == "" {
		return ""
	}
	if canonical, ok := lineageAliases[key]; ok {
		return canonical
	}
	return strings.ToUpper(key)
}

// IsKnownLineage проверяет, что значение входит в перечень линий
func IsKnownLineage(lineage string) bool {
	for _, l := range lineageOrder {
		if l == lineage {
			return true
		}
	}
	return false
}

// LineageRank позиция линии в порядке пакетной генерации
func LineageRank(lineage string) int {
	for i, l := range lineageOrder {
		if l == lineage {
			return i
		}
	}
	return len(lineageOrder)
}

// HasCannabinoidToken ищет токены CBD/CBC/CBN/CBG
func HasCannabinoidToken(texts ...string) bool {
	for _, text := range texts {
		if cannabinoidTokenRe.MatchString(text) {
			return true
		}
	}
	return false
}

// HasRatioPattern ищет соотношение вида 1:1, 10:1
func HasRatioPattern(text string) bool {
	return ratioPatternRe.MatchString(text)
}

// hasCBDOnlySignal CBD упомянут явно, а THC - нет
func hasCBDOnlySignal(texts ...string) bool {
	cbd, thc := false, false
	for _, text := range texts {
		if cbdTokenRe.MatchString(text) {
			cbd = true
		}
		if thcTokenRe.MatchString(text) {
			thc = true
		}
	}
	return cbd && !thc
}
