package normalization

// ProductRecord нормализованная запись продукта (одна будущая этикетка)
type ProductRecord struct {
	ProductName   string `json:"ProductName"`
	ProductType   string `json:"ProductType"`
	ProductBrand  string `json:"ProductBrand"`
	Vendor        string `json:"Vendor"`
	Lineage       string `json:"Lineage"`
	ProductStrain string `json:"ProductStrain"`

	THC string `json:"THC"`
	CBD string `json:"CBD"`

	Weight      string `json:"Weight"`
	Units       string `json:"Units"`
	WeightUnits string `json:"WeightUnits"` // CombinedWeight
	JointRatio  string `json:"JointRatio"`

	Price    string `json:"Price"`
	Quantity string `json:"Quantity"`
	DOH      string `json:"DOH"`

	Ratio          string `json:"Ratio"`
	RatioOrTHCCBD  string `json:"Ratio_or_THC_CBD"`
	Description    string `json:"Description"`
	DescAndWeight  string `json:"DescAndWeight"`
	RawDescription string `json:"-"`

	// SourceLineage линия как записана в таблице, до значений по умолчанию и сверки;
	// из нее считается write-back
	SourceLineage string `json:"-"`
	// Row номер строки в исходном листе, как его видит пользователь
	Row int `json:"-"`
}

// Clone возвращает независимую копию записи
func (r *ProductRecord) Clone() *ProductRecord {
	c := *r
	return &c
}

// IsClassic относится ли запись к классическим типам
func (r *ProductRecord) IsClassic() bool {
	return IsClassicType(r.ProductType)
}

func cloneRecords(records []*ProductRecord) []*ProductRecord {
	out := make([]*ProductRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
