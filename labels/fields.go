package labels

import (
	"strings"

	"labelprep/normalization"
)

// LabelFields словарь полей одной этикетки
type LabelFields map[string]string

// FieldBuilder строит поля этикетки из нормализованной записи
type FieldBuilder struct {
	exceptions *normalization.ExceptionTable
}

// NewFieldBuilder создает построитель полей. nil - встроенная таблица исключений.
func NewFieldBuilder(exceptions *normalization.ExceptionTable) *FieldBuilder {
	if exceptions == nil {
		exceptions = normalization.DefaultExceptionTable()
	}
	return &FieldBuilder{exceptions: exceptions}
}

// Brand бренд для этикетки: колонка бренда, затем правила и шаблоны
// из таблицы исключений, затем поставщик
func (b *FieldBuilder) Brand(rec *normalization.ProductRecord) string {
	if brand := strings.TrimSpace(rec.ProductBrand); brand != "" {
		return brand
	}
	if brand := b.exceptions.BrandFromName(rec.ProductName); brand != "" {
		return brand
	}
	return strings.TrimSpace(rec.Vendor)
}

// Strain штамм для этикетки с повторным применением правила вырезания
func (b *FieldBuilder) Strain(rec *normalization.ProductRecord) string {
	strain := rec.ProductStrain
	if rule := b.exceptions.Match(rec.ProductName); rule != nil && rule.StripFromStrain {
		if stripped := rule.StripFrom(strain); stripped != "" {
			strain = stripped
		} else {
			strain = normalization.StrainMixed
		}
	}
	return strain
}

// LineageDisplay текст линии на этикетке. Танкеры RSO/CO2 и капсулы
// печатают бренд вместо линии.
func LineageDisplay(rec *normalization.ProductRecord, brand string) string {
	switch normalization.NormalizeProductType(rec.ProductType) {
	case normalization.TypeRSOTankers, normalization.TypeCapsule:
		return brand
	}
	return rec.Lineage
}

// Plain поля этикетки без маркеров
func (b *FieldBuilder) Plain(rec *normalization.ProductRecord) LabelFields {
	brand := b.Brand(rec)
	return LabelFields{
		FieldDescription:   rec.Description,
		FieldDescAndWeight: rec.DescAndWeight,
		FieldProductBrand:  brand,
		FieldProductStrain: b.Strain(rec),
		FieldLineage:       LineageDisplay(rec, brand),
		FieldProductType:   rec.ProductType,
		FieldWeightUnits:   rec.WeightUnits,
		FieldJointRatio:    rec.JointRatio,
		FieldPrice:         rec.Price,
		FieldRatio:         rec.RatioOrTHCCBD,
		FieldTHC:           rec.THC,
		FieldCBD:           rec.CBD,
		FieldDOH:           rec.DOH,
		FieldVendor:        rec.Vendor,
	}
}

// Build поля этикетки, обернутые маркерами для шаблонизатора
func (b *FieldBuilder) Build(rec *normalization.ProductRecord) LabelFields {
	return WrapFields(b.Plain(rec))
}

// WrapFields оборачивает каждое поле маркерами
func WrapFields(plain LabelFields) LabelFields {
	out := make(LabelFields, len(plain))
	for field, value := range plain {
		out[field] = Wrap(field, value)
	}
	return out
}

// UnwrapFields снимает маркеры со всех полей. Поля без корректных маркеров
// возвращаются как есть.
func UnwrapFields(wrapped LabelFields) LabelFields {
	out := make(LabelFields, len(wrapped))
	for field, value := range wrapped {
		out[field], _ = Unwrap(field, value)
	}
	return out
}
