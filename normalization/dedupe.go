package normalization

import "strings"

// dedupeKey ключ дедупликации: название, поставщик, бренд, вес
type dedupeKey struct {
	name   string
	vendor string
	brand  string
	weight string
}

func keyOf(rec *ProductRecord) dedupeKey {
	return dedupeKey{
		name:   strings.TrimSpace(rec.ProductName),
		vendor: strings.TrimSpace(rec.Vendor),
		brand:  strings.TrimSpace(rec.ProductBrand),
		weight: strings.TrimSpace(rec.Weight),
	}
}

// Deduplicate удаляет повторы по (ProductName, Vendor, Brand, Weight).
// Остается первая запись; возвращает число удаленных.
func Deduplicate(records []*ProductRecord) ([]*ProductRecord, int) {
	seen := make(map[dedupeKey]struct{}, len(records))
	out := make([]*ProductRecord, 0, len(records))
	for _, rec := range records {
		k := keyOf(rec)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out, len(records) - len(out)
}
