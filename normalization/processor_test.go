package normalization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"labelprep/database"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink запоминает переданные обновления
type recordingSink struct {
	mu      sync.Mutex
	batches [][]database.StrainUpdate
	accept  bool
}

func (s *recordingSink) Enqueue(updates []database.StrainUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, updates)
	return s.accept
}

// countingReader возвращает фиксированную таблицу и считает вызовы
type countingReader struct {
	table *RawTable
	err   error
	calls int
}

func (r *countingReader) Read(path string) (*RawTable, error) {
	r.calls++
	return r.table, r.err
}

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644))
	return path
}

func inventoryTable() *RawTable {
	return &RawTable{
		Header: []string{
			"Product Name*", "Product Type*", "Weight*", "Units", "Lineage", "Ratio",
			"Product Brand", "Vendor/Supplier*", "Product Strain", "Price* (Tier Name)", "Total THC", "THC test result",
		},
		Records: [][]string{
			{"Grape Moonshot", "Tincture", "2", "g", "", "", "", "Moon Labs", "", "30", "", ""},
			{"CBD Tincture 1:1", "Tincture", "1", "oz", "", "10:1 CBD", "Calm Co", "Calm Co", "", "45.5", "", ""},
			{"Blue Dream by Kush Co - 3.5g", "Flower", "3.5g", "", "mixed", "", "", "Kush Co", "blue dream", "35", "22.10", "24.8"},
			{"Blue Dream by Kush Co - 3.5g", "Flower", "3.5g", "", "sativa", "", "", "Kush Co", "blue dream", "35", "", ""},
			{"Blue Dream by Kush Co - 7g", "Flower", "7", "g", "sativa", "", "", "Kush Co", "blue dream", "60", "", ""},
			{"Trade Sample - Not For Sale", "Flower", "1", "g", "", "", "", "Kush Co", "", "", "", ""},
			{"Edu Kit", "Samples - Educational", "1", "g", "", "", "", "Kush Co", "", "", "", ""},
			{"Gelato 0.5g x 2", "Pre Roll", "1", "g", "hybrid", "", "", "Kush Co", "gelato", "20", "", ""},
			{"Rolling Papers", "Paraphernalia", "", "", "", "", "Zig", "Zig", "", "2", "", ""},
			{"Mystery Gummies", "Edible (Solid)", "10", "g", "hybrid", "", "", "Sweet", "", "abc", "", ""},
		},
	}
}

func newTestProcessor(reader *countingReader, sink StrainSink, cache *FileCache) *Processor {
	deps := Dependencies{Reader: reader.Read, Cache: cache}
	if sink != nil {
		deps.Sink = sink
	}
	return NewProcessor(DefaultOptions(), deps)
}

func findRecord(t *testing.T, records []*ProductRecord, name, weight string) *ProductRecord {
	t.Helper()
	for _, r := range records {
		if r.ProductName == name && (weight == "" || r.Weight == weight) {
			return r
		}
	}
	t.Fatalf("record %q (%s) not found", name, weight)
	return nil
}

func TestProcessor_LoadTable_Scenarios(t *testing.T) {
	p := newTestProcessor(&countingReader{}, nil, nil)

	summary, err := p.LoadTable(context.Background(), inventoryTable())
	require.NoError(t, err)

	assert.Equal(t, 10, summary.TotalRows)
	assert.Equal(t, 1, summary.ExcludedByType)
	assert.Equal(t, 1, summary.ExcludedByName)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 7, summary.Records)
	assert.NotEmpty(t, summary.LoadID)

	records := p.Records()

	moonshot := findRecord(t, records, "Grape Moonshot", "")
	assert.Equal(t, "Grape", moonshot.ProductStrain)
	assert.Equal(t, LineageMixed, moonshot.Lineage)
	assert.Equal(t, "2.5oz", moonshot.WeightUnits)
	assert.Equal(t, "$30", moonshot.Price)
	assert.Equal(t, "", moonshot.RatioOrTHCCBD)

	cbd := findRecord(t, records, "CBD Tincture 1:1", "")
	assert.Equal(t, StrainCBDBlend, cbd.ProductStrain)
	assert.Equal(t, LineageCBD, cbd.Lineage)
	assert.Equal(t, "1oz", cbd.WeightUnits)
	assert.Equal(t, "10:1 CBD", cbd.RatioOrTHCCBD)
	assert.Equal(t, "$45.50", cbd.Price)

	bd := findRecord(t, records, "Blue Dream by Kush Co - 3.5g", "3.5g")
	assert.Equal(t, LineageHybrid, bd.Lineage, "classic MIXED becomes HYBRID")
	assert.Equal(t, "Blue Dream", bd.ProductStrain)
	assert.Equal(t, "3.5g", bd.WeightUnits)
	assert.Equal(t, "24.8", bd.THC)
	assert.Equal(t, DefaultClassicRatio, bd.RatioOrTHCCBD)
	assert.Equal(t, "Blue Dream", bd.Description)
	assert.Equal(t, "Blue Dream \u2011 3.5g", bd.DescAndWeight)

	bd7 := findRecord(t, records, "Blue Dream by Kush Co - 7g", "")
	assert.Equal(t, "7g", bd7.WeightUnits)
	assert.Equal(t, LineageSativa, bd7.Lineage)

	preroll := findRecord(t, records, "Gelato 0.5g x 2", "")
	assert.Equal(t, TypePreRoll, preroll.ProductType)
	assert.Equal(t, "0.5g x 2 Pack", preroll.JointRatio)
	assert.Equal(t, "0.5g x 2 Pack", preroll.WeightUnits)

	papers := findRecord(t, records, "Rolling Papers", "")
	assert.Equal(t, LineageParaphernalia, papers.Lineage)
	assert.Equal(t, StrainMixed, papers.ProductStrain)

	gummies := findRecord(t, records, "Mystery Gummies", "")
	assert.Equal(t, LineageMixed, gummies.Lineage, "non-classic HYBRID is demoted")
	assert.Equal(t, "", gummies.Price)

	// Непарсибельная цена - предупреждение, строка сохраняется
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, StageRecord, summary.Warnings[0].Stage)
	assert.Equal(t, "Mystery Gummies", summary.Warnings[0].ProductName)
	assert.Equal(t, 11, summary.Warnings[0].Row)
	assert.Equal(t, 1, summary.FallbackRows)
}

func TestProcessor_LineageInvariantsHoldForLoadedData(t *testing.T) {
	p := newTestProcessor(&countingReader{}, nil, nil)
	_, err := p.LoadTable(context.Background(), inventoryTable())
	require.NoError(t, err)

	for _, rec := range p.Records() {
		if rec.IsClassic() {
			assert.NotEqual(t, LineageMixed, rec.Lineage, rec.ProductName)
		} else {
			assert.NotEqual(t, LineageHybrid, rec.Lineage, rec.ProductName)
		}
	}
}

func TestProcessor_LoadTable_WriteBackUsesSheetLineage(t *testing.T) {
	table := &RawTable{
		Header: inventoryTable().Header,
		Records: [][]string{
			{"Blue Dream - 3.5g", "Flower", "3.5", "g", "mixed", "", "", "Kush Co", "Blue Dream", "35", "", ""},
			{"Blue Dream - 7g", "Flower", "7", "g", "Mixed", "", "", "Kush Co", "Blue Dream", "60", "", ""},
			{"Gelato - 1g", "Flower", "1", "g", "", "", "", "Kush Co", "Gelato", "12", "", ""},
			{"Runtz - 1g", "Flower", "1", "g", "indica dominant", "", "", "Kush Co", "Runtz", "12", "", ""},
		},
	}
	sink := &recordingSink{accept: true}
	p := newTestProcessor(&countingReader{}, sink, nil)

	summary, err := p.LoadTable(context.Background(), table)
	require.NoError(t, err)

	assert.Empty(t, sink.batches, "defaulted lineages are not observations")
	assert.Equal(t, 0, summary.WriteBackQueued)
	assert.Equal(t, 1, summary.UnknownLineages)

	records := p.Records()
	assert.Equal(t, LineageHybrid, findRecord(t, records, "Blue Dream - 7g", "").Lineage)
	assert.Equal(t, LineageHybrid, findRecord(t, records, "Gelato - 1g", "").Lineage)
	assert.Equal(t, "INDICA DOMINANT", findRecord(t, records, "Runtz - 1g", "").Lineage)
}

func TestProcessor_LoadTable_MixedMajoritySkipsWriteBack(t *testing.T) {
	table := &RawTable{
		Header: inventoryTable().Header,
		Records: [][]string{
			{"Blue Dream - 1g", "Flower", "1", "g", "mixed", "", "", "Kush Co", "Blue Dream", "10", "", ""},
			{"Blue Dream - 3.5g", "Flower", "3.5", "g", "mixed", "", "", "Kush Co", "Blue Dream", "35", "", ""},
			{"Blue Dream - 7g", "Flower", "7", "g", "sativa", "", "", "Kush Co", "Blue Dream", "60", "", ""},
			{"Gelato - 1g", "Flower", "1", "g", "mixed", "", "", "Kush Co", "Gelato", "12", "", ""},
			{"Gelato - 3.5g", "Flower", "3.5", "g", "indica", "", "", "Kush Co", "Gelato", "30", "", ""},
		},
	}
	sink := &recordingSink{accept: true}
	p := newTestProcessor(&countingReader{}, sink, nil)

	summary, err := p.LoadTable(context.Background(), table)
	require.NoError(t, err)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, []database.StrainUpdate{{Name: "Gelato", Lineage: LineageIndica}}, sink.batches[0])
	assert.Equal(t, 1, summary.WriteBackQueued)
}

func TestProcessor_LoadTable_DescriptionKeepsByInName(t *testing.T) {
	table := &RawTable{
		Header: inventoryTable().Header,
		Records: [][]string{
			{"Stand By Me - 1g", "Flower", "1", "g", "indica", "", "", "Kush Co", "Stand By Me", "12", "", ""},
			{"Runtz by Kush Co - 1g", "Flower", "1", "g", "hybrid", "", "", "Kush Co", "Runtz", "12", "", ""},
		},
	}
	p := newTestProcessor(&countingReader{}, nil, nil)
	_, err := p.LoadTable(context.Background(), table)
	require.NoError(t, err)

	records := p.Records()
	assert.Equal(t, "Stand By Me", findRecord(t, records, "Stand By Me - 1g", "").Description)
	assert.Equal(t, "Runtz", findRecord(t, records, "Runtz by Kush Co - 1g", "").Description)
}

func TestProcessor_Load_CacheHitSkipsReparseAndWriteBack(t *testing.T) {
	path := writeTempFile(t, "inventory.xlsx", 64)
	reader := &countingReader{table: inventoryTable()}
	sink := &recordingSink{accept: true}
	p := newTestProcessor(reader, sink, NewFileCache(2))

	first, err := p.Load(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 2, first.WriteBackQueued)
	firstRecords := p.Records()

	second, err := p.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.LoadID, second.LoadID)

	assert.Equal(t, 1, reader.calls)
	assert.Len(t, sink.batches, 1)
	assert.Equal(t, firstRecords, p.Records())
	assert.Equal(t, []database.StrainUpdate{
		{Name: "Blue Dream", Lineage: LineageSativa},
		{Name: "Gelato", Lineage: LineageHybrid},
	}, sink.batches[0])
}

func TestProcessor_Load_RejectedWriteBackIsNotCounted(t *testing.T) {
	path := writeTempFile(t, "inventory.xlsx", 64)
	sink := &recordingSink{accept: false}
	p := newTestProcessor(&countingReader{table: inventoryTable()}, sink, nil)

	summary, err := p.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.WriteBackQueued)
	assert.Len(t, sink.batches, 1)
}

func TestProcessor_Load_FatalErrorsClearState(t *testing.T) {
	good := writeTempFile(t, "good.xlsx", 64)
	reader := &countingReader{table: inventoryTable()}
	p := newTestProcessor(reader, nil, nil)
	p.opts.MaxFileBytes = 100

	_, err := p.Load(context.Background(), good)
	require.NoError(t, err)
	require.NotEmpty(t, p.Records())

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"too large", writeTempFile(t, "big.xlsx", 101), ErrFileTooLarge},
		{"empty", writeTempFile(t, "empty.xlsx", 0), ErrEmptyFile},
		{"missing", filepath.Join(t.TempDir(), "missing.xlsx"), os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Load(context.Background(), good)
			require.NoError(t, err)

			_, err = p.Load(context.Background(), tt.path)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, p.Records())
			assert.Empty(t, p.AvailableTags())
			assert.Nil(t, p.Summary())
		})
	}
}

func TestProcessor_Load_ReaderErrors(t *testing.T) {
	path := writeTempFile(t, "broken.xlsx", 10)

	p := newTestProcessor(&countingReader{err: errors.New("zip: not a valid zip file")}, nil, nil)
	_, err := p.Load(context.Background(), path)
	assert.Error(t, err)

	p = newTestProcessor(&countingReader{table: &RawTable{Header: []string{"Product Name*"}}}, nil, nil)
	_, err = p.Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrEmptyFile)

	p = newTestProcessor(&countingReader{table: &RawTable{
		Header:  []string{"Vendor"},
		Records: [][]string{{"Acme"}},
	}}, nil, nil)
	_, err = p.Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoProductNameColumn)
}

func TestProcessor_AllRowsFilteredIsNoData(t *testing.T) {
	p := newTestProcessor(&countingReader{}, nil, nil)
	summary, err := p.LoadTable(context.Background(), &RawTable{
		Header:  []string{"Product Name*", "Product Type*"},
		Records: [][]string{{"Old (deactivated)", "flower"}, {"Kit", "Sample - Vendor"}},
	})

	require.NoError(t, err)
	assert.True(t, summary.NoData())
	assert.Empty(t, p.Records())
	assert.Empty(t, p.AvailableTags())
}

func TestProcessor_DeduplicationKey(t *testing.T) {
	faker := gofakeit.New(42)

	raw := &RawTable{Header: []string{"Product Name*", "Product Type*", "Weight*", "Vendor/Supplier*", "Product Brand"}}
	expected := 0
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("%s %d", faker.BeerName(), i)
		vendor := faker.Company()
		raw.Records = append(raw.Records,
			[]string{name, "flower", "1g", vendor, "House"},
			[]string{name, "flower", "1g", vendor, "House"},        // дубликат
			[]string{name, "flower", "3.5g", vendor, "House"},      // другой вес
			[]string{name, "flower", "1g", vendor + " 2", "House"}, // другой поставщик
		)
		expected += 3
	}

	p := newTestProcessor(&countingReader{}, nil, nil)
	summary, err := p.LoadTable(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, expected, summary.Records)
	assert.Equal(t, 50, summary.Duplicates)
}

func TestProcessor_TagsAndOrdering(t *testing.T) {
	p := newTestProcessor(&countingReader{}, nil, nil)
	_, err := p.LoadTable(context.Background(), inventoryTable())
	require.NoError(t, err)

	tags := p.AvailableTags()
	require.Len(t, tags, 7)
	for i := 1; i < len(tags); i++ {
		assert.LessOrEqual(t, strings.ToLower(tags[i-1].ProductName), strings.ToLower(tags[i].ProductName))
	}

	byLineage := p.AllRecordsByLineage()
	for i := 1; i < len(byLineage); i++ {
		assert.LessOrEqual(t, LineageRank(byLineage[i-1].Lineage), LineageRank(byLineage[i].Lineage))
	}
	assert.Equal(t, LineageSativa, byLineage[0].Lineage)
	assert.Equal(t, LineageParaphernalia, byLineage[len(byLineage)-1].Lineage)

	opts := p.FilterOptions()
	assert.Equal(t, []string{LineageSativa, LineageHybrid, LineageCBD, LineageMixed, LineageParaphernalia}, opts.Lineages)
	assert.Contains(t, opts.Vendors, "Kush Co")
	assert.Contains(t, opts.Weights, "2.5oz")

	// Изменение копии не влияет на состояние конвейера
	records := p.Records()
	records[0].ProductName = "mutated"
	assert.NotEqual(t, "mutated", p.Records()[0].ProductName)
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := guard(func() error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, guard(func() error { return nil }))
}
