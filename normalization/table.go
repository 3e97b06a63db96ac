package normalization

import "strings"

// Канонические имена колонок после переименования
const (
	ColProductName   = "ProductName"
	ColProductType   = "ProductType"
	ColProductBrand  = "ProductBrand"
	ColVendor        = "Vendor"
	ColLineage       = "Lineage"
	ColProductStrain = "ProductStrain"
	ColWeight        = "Weight"
	ColUnits         = "Units"
	ColPrice         = "Price"
	ColQuantity      = "Quantity*"
	ColRatio         = "Ratio"
	ColJointRatio    = "JointRatio"
	ColDOH           = "DOH"
	ColDescription   = "Description"
)

// Цепочки кандидатов для логических полей.
// Побеждает первый непустой кандидат.
var (
	ProductNameCandidates = []string{ColProductName, "Product Name*", ColDescription}
	ProductTypeCandidates = []string{ColProductType, "Product Type*", "Product Type"}
	BrandCandidates       = []string{ColProductBrand, "Product Brand", "Brand"}
	VendorCandidates      = []string{ColVendor, "Vendor/Supplier*", "Supplier"}
	LineageCandidates     = []string{ColLineage}
	StrainCandidates      = []string{ColProductStrain, "Product Strain", "Strain"}
	WeightCandidates      = []string{ColWeight, "Weight*"}
	UnitsCandidates       = []string{ColUnits}
	PriceCandidates       = []string{ColPrice}
	QuantityCandidates    = []string{ColQuantity, "Quantity"}
	RatioCandidates       = []string{ColRatio}
	JointRatioCandidates  = []string{ColJointRatio}
	DOHCandidates         = []string{ColDOH}

	// Для THC/CBD берется максимум, а не первый непустой
	THCCandidates = []string{"Total THC", "THC test result", "THC Content", "THC"}
	CBDCandidates = []string{"Total CBD", "CBD test result", "CBD Content", "CBD"}
)

// optionalColumns колонки, которые синтезируются пустыми при отсутствии
var optionalColumns = []string{
	ColProductType, ColProductBrand, ColVendor, ColLineage, ColProductStrain,
	ColWeight, ColUnits, ColPrice, ColQuantity, ColRatio, ColJointRatio, ColDOH,
}

// RawTable сырые данные листа: заголовок и строки как есть.
// HeaderLine - номер строки листа с заголовком (0 считается строкой 1),
// Records идут сразу за ним.
type RawTable struct {
	Header     []string
	Records    [][]string
	HeaderLine int
}

// firstDataLine номер строки листа для Records[0]
func (r *RawTable) firstDataLine() int {
	if r.HeaderLine < 1 {
		return 2
	}
	return r.HeaderLine + 1
}

// Row строка таблицы: имя колонки -> значение ячейки
type Row map[string]string

// Table нормализованная таблица с уникальными именами колонок.
// Lines[i] - номер строки листа для Rows[i].
type Table struct {
	Columns []string
	Rows    []Row
	Lines   []int
}

// HasColumn проверяет наличие колонки
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// lineOf номер строки листа; для таблиц без Lines - порядковый номер
func (t *Table) lineOf(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Resolve возвращает первое непустое значение из цепочки кандидатов
func Resolve(row Row, candidates ...string) string {
	return ResolveOr(row, "", candidates...)
}

// ResolveOr как Resolve, но со значением по умолчанию
func ResolveOr(row Row, def string, candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(row[c]); v != "" {
			return v
		}
	}
	return def
}
