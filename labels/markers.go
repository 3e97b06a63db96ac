package labels

import (
	"strings"
)

// Имена полей этикетки
const (
	FieldDescription   = "Description"
	FieldPrice         = "Price"
	FieldLineage       = "Lineage"
	FieldProductBrand  = "ProductBrand"
	FieldRatio         = "Ratio_or_THC_CBD"
	FieldWeightUnits   = "WeightUnits"
	FieldProductStrain = "ProductStrain"
	FieldDOH           = "DOH"
	FieldDescAndWeight = "DescAndWeight"
	FieldJointRatio    = "JointRatio"
	FieldVendor        = "Vendor"
	FieldTHC           = "THC"
	FieldCBD           = "CBD"
	FieldProductType   = "ProductType"
)

// fieldMarkers токены маркеров, по которым шаблонизатор находит поля
var fieldMarkers = map[string]string{
	FieldDescription:   "DESC",
	FieldPrice:         "PRICE",
	FieldLineage:       "LINEAGE",
	FieldProductBrand:  "PRODUCTBRAND_CENTER",
	FieldRatio:         "RATIO",
	FieldWeightUnits:   "WEIGHTUNITS",
	FieldProductStrain: "PRODUCTSTRAIN",
	FieldDOH:           "DOH",
	FieldDescAndWeight: "DESC_AND_WEIGHT",
	FieldJointRatio:    "JOINT_RATIO",
	FieldVendor:        "VENDOR",
	FieldTHC:           "THC",
	FieldCBD:           "CBD",
	FieldProductType:   "PRODUCTTYPE",
}

// LabelFieldNames порядок полей этикетки при экспорте
var LabelFieldNames = []string{
	FieldDescription,
	FieldDescAndWeight,
	FieldProductBrand,
	FieldProductStrain,
	FieldLineage,
	FieldProductType,
	FieldWeightUnits,
	FieldJointRatio,
	FieldPrice,
	FieldRatio,
	FieldTHC,
	FieldCBD,
	FieldDOH,
	FieldVendor,
}

// MarkerFor возвращает токен маркера для поля.
// Для поля вне таблицы токен - имя поля в верхнем регистре без разделителей.
func MarkerFor(field string) string {
	if m, ok := fieldMarkers[field]; ok {
		return m
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(field) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Wrap оборачивает значение маркерами поля. Пустое значение остается пустым.
func Wrap(field, value string) string {
	if value == "" {
		return ""
	}
	m := MarkerFor(field)
	return m + "_START" + value + m + "_END"
}

// Unwrap снимает маркеры поля. false, если значение не обернуто маркерами этого поля.
func Unwrap(field, wrapped string) (string, bool) {
	if wrapped == "" {
		return "", true
	}
	m := MarkerFor(field)
	start, end := m+"_START", m+"_END"
	if len(wrapped) < len(start)+len(end) ||
		!strings.HasPrefix(wrapped, start) || !strings.HasSuffix(wrapped, end) {
		return wrapped, false
	}
	return wrapped[len(start) : len(wrapped)-len(end)], true
}
