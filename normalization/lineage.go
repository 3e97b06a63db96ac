package normalization

import (
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LineageResolver назначает линию и штамм по правилам таксономии
type LineageResolver struct {
	exceptions *ExceptionTable
}

// NewLineageResolver создает резолвер; nil - встроенная таблица исключений
func NewLineageResolver(exceptions *ExceptionTable) *LineageResolver {
	if exceptions == nil {
		exceptions = DefaultExceptionTable()
	}
	return &LineageResolver{exceptions: exceptions}
}

// Resolve выполняет полную последовательность для записи:
// линия, затем штамм (штамм "CBD Blend" переводит линию в CBD),
// затем проверка инвариантов
func (lr *LineageResolver) Resolve(rec *ProductRecord) {
	rec.Lineage = lr.ResolveLineage(rec)
	rec.ProductStrain = lr.DeriveStrain(rec)
	if rec.ProductStrain == StrainCBDBlend {
		rec.Lineage = LineageCBD
	}
	rec.Lineage = EnforceLineageInvariants(rec, rec.Lineage)
}

// ResolveLineage шаги 1-3: канонизация текста, запрет MIXED для
// классических типов, значение по умолчанию для пустой линии
func (lr *LineageResolver) ResolveLineage(rec *ProductRecord) string {
	if IsParaphernaliaType(rec.ProductType) {
		return LineageParaphernalia
	}

	lineage := CanonicalLineage(rec.Lineage)
	classic := rec.IsClassic()

	if classic && lineage == LineageMixed {
		return LineageHybrid
	}

	if lineage == "" {
		switch {
		case classic:
			return LineageHybrid
		case IsEdibleType(rec.ProductType):
			if hasCBDOnlySignal(rec.ProductName, rec.RawDescription) {
				return LineageCBD
			}
			return LineageMixed
		default:
			if HasCannabinoidToken(rec.RawDescription, rec.ProductName) {
				return LineageCBD
			}
			return LineageMixed
		}
	}

	return lineage
}

// EnforceLineageInvariants классические типы не бывают MIXED,
// остальные не бывают HYBRID
func EnforceLineageInvariants(rec *ProductRecord, lineage string) string {
	if IsParaphernaliaType(rec.ProductType) {
		return LineageParaphernalia
	}
	if rec.IsClassic() {
		if lineage == LineageMixed || lineage == "" {
			return LineageHybrid
		}
		return lineage
	}
	if lineage == LineageHybrid || lineage == "" {
		if HasCannabinoidToken(rec.RawDescription, rec.ProductName) {
			return LineageCBD
		}
		return LineageMixed
	}
	return lineage
}

// DeriveStrain вычисляет Product Strain. Правила проверяются по порядку,
// срабатывает первое подходящее.
func (lr *LineageResolver) DeriveStrain(rec *ProductRecord) string {
	logger := log.With().Str("component", "strain").Str("product", rec.ProductName).Logger()
	productType := NormalizeProductType(rec.ProductType)

	if productType == TypeParaphernalia {
		return StrainMixed
	}

	tincture := productType == TypeTincture
	if !IsEdibleType(productType) || tincture {
		if hasCBDBlendSignal(rec.Ratio, rec.RawDescription, rec.ProductName) {
			if tincture {
				logger.Debug().Str("strain", StrainCBDBlend).Msg("tincture strain decided by cannabinoid signal")
			}
			return StrainCBDBlend
		}
	}

	if rule := lr.exceptions.Match(rec.ProductName); rule != nil && rule.StripFromStrain {
		source := rec.ProductStrain
		if source == "" {
			source = rec.ProductName
		}
		if strain := rule.StripFrom(source); strain != "" {
			return NormalizeStrainText(strain)
		}
		return StrainMixed
	}

	switch {
	case tincture:
		logger.Debug().Str("strain", StrainMixed).Msg("tincture strain defaulted")
		return StrainMixed
	case productType == TypeRSOTankers:
		if HasCannabinoidToken(rec.RawDescription) || strings.Contains(rec.RawDescription, ":") {
			return StrainCBDBlend
		}
		return StrainMixed
	case IsEdibleType(productType):
		if HasCannabinoidToken(rec.ProductName) {
			return StrainCBDBlend
		}
		return StrainMixed
	}

	strain := NormalizeStrainText(rec.ProductStrain)
	if strain == "" && !rec.IsClassic() {
		return StrainMixed
	}
	return strain
}

// hasCBDBlendSignal токен каннабиноида или соотношение вида 1:1
func hasCBDBlendSignal(texts ...string) bool {
	for _, text := range texts {
		if HasCannabinoidToken(text) || HasRatioPattern(text) {
			return true
		}
	}
	return false
}

// NormalizeStrainText схлопывает пробелы; строку целиком в нижнем
// регистре приводит к Title Case. Верхний регистр не трогаем (GG4, OG).
func NormalizeStrainText(strain string) string {
	strain = strings.Join(strings.Fields(strain), " ")
	if strain == "" {
		return ""
	}
	if strain == strings.ToLower(strain) {
		return cases.Title(language.English).String(strain)
	}
	return strain
}

// isBucketStrain штаммы-корзины не сверяются с базой и не записываются в нее
func isBucketStrain(strain string) bool {
	return strain == "" || strings.EqualFold(strain, StrainCBDBlend) || strings.EqualFold(strain, StrainMixed)
}
