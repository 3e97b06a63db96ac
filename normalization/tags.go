package normalization

import (
	"sort"
	"strings"
)

// Tag элемент списка доступных для выбора продуктов
type Tag struct {
	ProductName   string `json:"ProductName"`
	ProductType   string `json:"ProductType"`
	Lineage       string `json:"Lineage"`
	ProductBrand  string `json:"ProductBrand"`
	Vendor        string `json:"Vendor"`
	ProductStrain string `json:"ProductStrain"`
	WeightUnits   string `json:"WeightUnits"`
}

// FilterOptions значения выпадающих фильтров
type FilterOptions struct {
	Vendors      []string `json:"vendors"`
	Brands       []string `json:"brands"`
	ProductTypes []string `json:"product_types"`
	Lineages     []string `json:"lineages"`
	Weights      []string `json:"weights"`
	Strains      []string `json:"strains"`
}

func buildTags(records []*ProductRecord) []Tag {
	tags := make([]Tag, 0, len(records))
	for _, rec := range records {
		tags = append(tags, Tag{
			ProductName:   rec.ProductName,
			ProductType:   rec.ProductType,
			Lineage:       rec.Lineage,
			ProductBrand:  rec.ProductBrand,
			Vendor:        rec.Vendor,
			ProductStrain: rec.ProductStrain,
			WeightUnits:   rec.WeightUnits,
		})
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].ProductName) < strings.ToLower(tags[j].ProductName)
	})
	return tags
}

// distinct уникальные непустые значения в порядке сортировки
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func buildFilterOptions(records []*ProductRecord) FilterOptions {
	var vendors, brands, types, lineages, weights, strains []string
	for _, rec := range records {
		vendors = append(vendors, rec.Vendor)
		brands = append(brands, rec.ProductBrand)
		types = append(types, rec.ProductType)
		lineages = append(lineages, rec.Lineage)
		weights = append(weights, rec.WeightUnits)
		strains = append(strains, rec.ProductStrain)
	}

	opts := FilterOptions{
		Vendors:      distinct(vendors),
		Brands:       distinct(brands),
		ProductTypes: distinct(types),
		Lineages:     distinct(lineages),
		Weights:      distinct(weights),
		Strains:      distinct(strains),
	}
	sort.SliceStable(opts.Lineages, func(i, j int) bool {
		return LineageRank(opts.Lineages[i]) < LineageRank(opts.Lineages[j])
	})
	return opts
}
