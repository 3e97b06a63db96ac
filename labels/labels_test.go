package labels

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"labelprep/normalization"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestMarkers_RoundTrip(t *testing.T) {
	faker := gofakeit.New(7)

	for _, field := range LabelFieldNames {
		for i := 0; i < 20; i++ {
			value := faker.Sentence(3)
			wrapped := Wrap(field, value)

			marker := MarkerFor(field)
			assert.Equal(t, marker+"_START"+value+marker+"_END", wrapped)

			got, ok := Unwrap(field, wrapped)
			require.True(t, ok, field)
			assert.Equal(t, value, got)
		}
	}
}

func TestMarkers_Tokens(t *testing.T) {
	assert.Equal(t, "PRICE_START$15PRICE_END", Wrap(FieldPrice, "$15"))
	assert.Equal(t, "PRODUCTBRAND_CENTER_STARTAcmePRODUCTBRAND_CENTER_END", Wrap(FieldProductBrand, "Acme"))
	assert.Equal(t, "DESC_AND_WEIGHT", MarkerFor(FieldDescAndWeight))
	assert.Equal(t, "RATIO", MarkerFor(FieldRatio))
	assert.Equal(t, "QUANTITY", MarkerFor("Quantity*"))

	assert.Equal(t, "", Wrap(FieldPrice, ""))
	got, ok := Unwrap(FieldPrice, "")
	assert.True(t, ok)
	assert.Equal(t, "", got)

	_, ok = Unwrap(FieldPrice, Wrap(FieldLineage, "SATIVA"))
	assert.False(t, ok, "markers of another field")
	_, ok = Unwrap(FieldPrice, "PRICE_START")
	assert.False(t, ok)
}

func TestNormalizeTagName(t *testing.T) {
	tests := map[string]string{
		"Blue Dream - 3.5g":                "blue dream 35g",
		"  blue-dream   3.5g ":             "blue dream 35g",
		"Bl\u00fce Dr\u00e9am \u2011 3.5g": "blue dream 35g",
		"Gelato #41 (Pre-Roll)":            "gelato 41 pre roll",
		"":                                 "",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, NormalizeTagName(input), input)
	}
}

func records(names ...string) []*normalization.ProductRecord {
	out := make([]*normalization.ProductRecord, 0, len(names))
	for _, n := range names {
		out = append(out, &normalization.ProductRecord{ProductName: n, ProductType: normalization.TypeFlower, Lineage: normalization.LineageHybrid})
	}
	return out
}

func TestSelector_Select(t *testing.T) {
	recs := records("Blue Dream - 3.5g", "Gelato 41", "Runtz 1g", "Gelato 41")
	recs[3].Weight = "7"
	s := NewSelector(recs)

	sel := s.Select([]string{"runtz 1G", "blue-dream 3.5g", "GELATO41", "Unknown Kush", "Runtz 1g"})

	require.Len(t, sel.Records, 4)
	assert.Equal(t, "Runtz 1g", sel.Records[0].ProductName)
	assert.Equal(t, "Blue Dream - 3.5g", sel.Records[1].ProductName)
	assert.Equal(t, "Gelato 41", sel.Records[2].ProductName)
	assert.Equal(t, "7", sel.Records[3].Weight, "every record with the selected name is returned")
	assert.Equal(t, []string{"Unknown Kush"}, sel.Unmatched)
}

func TestSelector_Resolve(t *testing.T) {
	s := NewSelector(records("Blue Dream - 3.5g", "Gelato 41"))

	name, ok := s.Resolve("Blue Dream - 3.5g")
	assert.True(t, ok)
	assert.Equal(t, "Blue Dream - 3.5g", name)

	name, ok = s.Resolve("BLUE DREAM 3.5G")
	assert.True(t, ok, "first pass: punctuation and case")
	assert.Equal(t, "Blue Dream - 3.5g", name)

	name, ok = s.Resolve("gelato41")
	assert.True(t, ok, "second pass: whitespace")
	assert.Equal(t, "Gelato 41", name)

	_, ok = s.Resolve("")
	assert.False(t, ok)
}

func TestSelector_RandomNamesKeepOrder(t *testing.T) {
	faker := gofakeit.New(11)
	seen := map[string]bool{}
	var names []string
	for len(names) < 30 {
		n := faker.BeerName()
		if key := NormalizeTagName(n); key != "" && !seen[key] {
			seen[key] = true
			names = append(names, n)
		}
	}

	s := NewSelector(records(names...))
	faker.ShuffleStrings(names)

	sel := s.Select(names)
	require.Len(t, sel.Records, len(names))
	for i, rec := range sel.Records {
		assert.Equal(t, names[i], rec.ProductName)
	}
	assert.Empty(t, sel.Unmatched)
}

func TestFieldBuilder_Brand(t *testing.T) {
	b := NewFieldBuilder(nil)

	assert.Equal(t, "Acme", b.Brand(&normalization.ProductRecord{ProductBrand: " Acme ", Vendor: "Dist Co"}))
	assert.Equal(t, "Moonshot", b.Brand(&normalization.ProductRecord{ProductName: "Grape Moonshot", Vendor: "Dist Co"}))
	assert.Equal(t, "Kush Co", b.Brand(&normalization.ProductRecord{ProductName: "Gummies by Kush Co - 10pk", Vendor: "Dist Co"}))
	assert.Equal(t, "Dist Co", b.Brand(&normalization.ProductRecord{ProductName: "Blue Dream", Vendor: "Dist Co"}))
	assert.Equal(t, "", b.Brand(&normalization.ProductRecord{ProductName: "Blue Dream"}))
}

func TestFieldBuilder_Plain(t *testing.T) {
	b := NewFieldBuilder(nil)

	rso := &normalization.ProductRecord{
		ProductName: "Full Spectrum Oil", ProductType: normalization.TypeRSOTankers,
		ProductBrand: "Acme", Lineage: normalization.LineageIndica, Price: "$40",
	}
	fields := b.Plain(rso)
	assert.Equal(t, "Acme", fields[FieldLineage], "tankers show the brand")
	assert.Equal(t, "$40", fields[FieldPrice])

	capsule := &normalization.ProductRecord{ProductName: "Sleep Caps", ProductType: "Capsule", Vendor: "Dist Co", Lineage: normalization.LineageCBD}
	assert.Equal(t, "Dist Co", b.Plain(capsule)[FieldLineage])

	flower := &normalization.ProductRecord{ProductName: "Blue Dream", ProductType: normalization.TypeFlower, Lineage: normalization.LineageSativa}
	assert.Equal(t, normalization.LineageSativa, b.Plain(flower)[FieldLineage])

	moonshot := &normalization.ProductRecord{ProductName: "Grape Moonshot", ProductType: normalization.TypeTincture, ProductStrain: "Grape Moonshot"}
	assert.Equal(t, "Grape", b.Plain(moonshot)[FieldProductStrain])

	bare := &normalization.ProductRecord{ProductName: "Moonshot", ProductType: normalization.TypeTincture, ProductStrain: "Moonshot"}
	assert.Equal(t, normalization.StrainMixed, b.Plain(bare)[FieldProductStrain])
}

func TestFieldBuilder_BuildWrapsEveryField(t *testing.T) {
	b := NewFieldBuilder(nil)
	rec := &normalization.ProductRecord{
		ProductName: "Blue Dream - 3.5g", ProductType: normalization.TypeFlower,
		ProductBrand: "Acme", Lineage: normalization.LineageSativa, ProductStrain: "Blue Dream",
		WeightUnits: "3.5g", Price: "$35", Description: "Blue Dream",
		DescAndWeight: "Blue Dream \u2011 3.5g", RatioOrTHCCBD: normalization.DefaultClassicRatio,
		THC: "23.5",
	}

	plain := b.Plain(rec)
	wrapped := b.Build(rec)
	require.Len(t, wrapped, len(LabelFieldNames))

	for field, value := range wrapped {
		got, ok := Unwrap(field, value)
		require.True(t, ok, field)
		assert.Equal(t, plain[field], got, field)
		if plain[field] == "" {
			assert.Empty(t, value, field)
		}
	}
	assert.Equal(t, plain, UnwrapFields(wrapped))
}

func TestBuildPages(t *testing.T) {
	var labels []LabelFields
	for i := 0; i < 11; i++ {
		labels = append(labels, LabelFields{FieldDescription: SlotName(i)})
	}

	pages, err := BuildPages(labels, TemplateHorizontal)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0], 9)
	assert.Equal(t, labels[0], pages[0]["Label1"])
	assert.Equal(t, labels[9], pages[1]["Label1"])
	assert.Equal(t, labels[10], pages[1]["Label2"])
	assert.Equal(t, LabelFields{}, pages[1]["Label9"])

	pages, err = BuildPages(labels, TemplateMini)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Len(t, pages[0], 20)
	assert.Empty(t, pages[0]["Label20"])

	pages, err = BuildPages(nil, TemplateVertical)
	require.NoError(t, err)
	assert.Empty(t, pages)

	_, err = BuildPages(labels, Template("poster"))
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate(" Mini ")
	require.NoError(t, err)
	assert.Equal(t, TemplateMini, tmpl)
	assert.Equal(t, 20, tmpl.LabelsPerPage())
	assert.Equal(t, 9, TemplateDouble.LabelsPerPage())

	_, err = ParseTemplate("poster")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

type staticSource struct {
	records []*normalization.ProductRecord
}

func (s staticSource) Records() []*normalization.ProductRecord { return s.records }

func (s staticSource) AllRecordsByLineage() []*normalization.ProductRecord {
	out := append([]*normalization.ProductRecord(nil), s.records...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if normalization.LineageRank(out[j].Lineage) < normalization.LineageRank(out[i].Lineage) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func sampleSource() staticSource {
	return staticSource{records: []*normalization.ProductRecord{
		{ProductName: "Gelato 1g", ProductType: normalization.TypeFlower, Lineage: normalization.LineageHybrid, Description: "Gelato", Price: "$10"},
		{ProductName: "Blue Dream 1g", ProductType: normalization.TypeFlower, Lineage: normalization.LineageSativa, Description: "Blue Dream", Price: "$12"},
		{ProductName: "Relief Drops", ProductType: normalization.TypeTincture, Lineage: normalization.LineageCBD, Description: "Relief Drops"},
	}}
}

func TestGenerator_ForSelection(t *testing.T) {
	g := NewGenerator(sampleSource(), nil, TemplateHorizontal)

	result, err := g.ForSelection([]string{"relief drops", "Gelato 1g", "Missing"})
	require.NoError(t, err)

	require.Len(t, result.Labels, 2)
	assert.Equal(t, "Relief Drops", result.Labels[0][FieldDescription])
	assert.Equal(t, "Gelato", result.Labels[1][FieldDescription])
	assert.Equal(t, []string{"Missing"}, result.Unmatched)

	require.Len(t, result.Pages, 1)
	assert.Equal(t, "DESC_STARTRelief DropsDESC_END", result.Pages[0]["Label1"][FieldDescription])
	assert.Equal(t, "PRICE_START$10PRICE_END", result.Pages[0]["Label2"][FieldPrice])
	assert.Empty(t, result.Pages[0]["Label3"])
}

func TestGenerator_All(t *testing.T) {
	g := NewGenerator(sampleSource(), nil, TemplateMini)

	result, err := g.All()
	require.NoError(t, err)
	require.Len(t, result.Labels, 3)
	assert.Equal(t, normalization.LineageSativa, result.Labels[0][FieldLineage])
	assert.Equal(t, normalization.LineageHybrid, result.Labels[1][FieldLineage])
	assert.Equal(t, normalization.LineageCBD, result.Labels[2][FieldLineage])
	assert.Len(t, result.Pages[0], 20)
}

func TestGenerator_NoData(t *testing.T) {
	g := NewGenerator(staticSource{}, nil, TemplateHorizontal)

	_, err := g.ForSelection([]string{"Gelato 1g"})
	assert.True(t, errors.Is(err, normalization.ErrNoData))

	_, err = g.All()
	assert.ErrorIs(t, err, normalization.ErrNoData)
}

func TestExporter(t *testing.T) {
	result, err := NewGenerator(sampleSource(), nil, TemplateHorizontal).All()
	require.NoError(t, err)

	dir := t.TempDir()
	e := NewExporter()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "labels.csv")
		require.NoError(t, e.Export(FormatCSV, path, result))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var rows []ExportedLabel
		require.NoError(t, csvutil.Unmarshal(data, &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "Blue Dream", rows[0].Description)
		assert.Equal(t, "$12", rows[0].Price)
		assert.Equal(t, 1, rows[2].Page)
		assert.Equal(t, "Label3", rows[2].Slot)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "labels.json")
		require.NoError(t, e.Export(FormatJSON, path, result))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var payload struct {
			Template string                         `json:"template"`
			Total    int                            `json:"total"`
			Pages    []map[string]map[string]string `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "horizontal", payload.Template)
		assert.Equal(t, 3, payload.Total)
		require.Len(t, payload.Pages, 1)
		assert.Equal(t, "DESC_STARTBlue DreamDESC_END", payload.Pages[0]["Label1"][FieldDescription])
	})

	t.Run("excel", func(t *testing.T) {
		path := filepath.Join(dir, "labels.xlsx")
		require.NoError(t, e.Export(FormatExcel, path, result))

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Labels")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, "Description", rows[0][2])
		assert.Equal(t, "Gelato", rows[2][2])
	})

	assert.Error(t, e.Export(ExportFormat("pdf"), filepath.Join(dir, "labels.pdf"), result))
}
