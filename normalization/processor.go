package normalization

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TableReader читает сырую таблицу из файла
type TableReader func(path string) (*RawTable, error)

// Options явная конфигурация конвейера
type Options struct {
	MaxFileBytes           int64
	ReconcileBatchSize     int
	ReconcileMinConfidence float64

	Exceptions           *ExceptionTable
	TypeOverrides        map[string]string
	ExcludedTypes        []string
	ExcludedNamePatterns [][]string
	OuncePackaging       map[string][]string
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		MaxFileBytes:           50 << 20,
		ReconcileBatchSize:     100,
		ReconcileMinConfidence: 0.5,
	}
}

// Dependencies внешние участники конвейера. Store, Sink и Cache необязательны.
type Dependencies struct {
	Reader TableReader
	Store  StrainStore
	Sink   StrainSink
	Cache  *FileCache
}

// Processor конвейер нормализации одного файла инвентаря.
// Экземпляр принадлежит одной сессии и не рассчитан на параллельные вызовы.
type Processor struct {
	opts Options
	deps Dependencies

	normalizer *FieldNormalizer
	filter     *ExclusionFilter
	resolver   *LineageResolver
	weights    *WeightFormatter
	reconciler *Reconciler

	records []*ProductRecord
	tags    []Tag
	summary *LoadSummary
}

// NewProcessor создает конвейер
func NewProcessor(opts Options, deps Dependencies) *Processor {
	if opts.Exceptions == nil {
		opts.Exceptions = DefaultExceptionTable()
	}
	return &Processor{
		opts:       opts,
		deps:       deps,
		normalizer: NewFieldNormalizer(opts.TypeOverrides),
		filter:     NewExclusionFilter(opts.ExcludedTypes, opts.ExcludedNamePatterns),
		resolver:   NewLineageResolver(opts.Exceptions),
		weights:    NewWeightFormatter(opts.Exceptions, opts.OuncePackaging),
		reconciler: NewReconciler(deps.Store, opts.ReconcileBatchSize, opts.ReconcileMinConfidence),
	}
}

// Exceptions таблица исключений конвейера
func (p *Processor) Exceptions() *ExceptionTable {
	return p.opts.Exceptions
}

// Clear сбрасывает загруженные данные
func (p *Processor) Clear() {
	p.records = nil
	p.tags = nil
	p.summary = nil
}

// Load загружает и нормализует файл. При ошибке предыдущие данные
// сбрасываются и частичного состояния не остается.
func (p *Processor) Load(ctx context.Context, path string) (*LoadSummary, error) {
	start := time.Now()
	logger := log.With().Str("component", "processor").Str("path", path).Logger()

	p.Clear()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if p.opts.MaxFileBytes > 0 && info.Size() > p.opts.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), p.opts.MaxFileBytes)
	}

	key := FileCacheKey(path, info.ModTime(), info.Size())
	if entry, ok := p.deps.Cache.Get(key); ok {
		entry.Summary.CacheHit = true
		entry.Summary.Duration = time.Since(start)
		p.commit(entry.Records, entry.Summary)
		logger.Info().Int("records", len(entry.Records)).Msg("file served from cache")
		return entry.Summary.clone(), nil
	}

	if p.deps.Reader == nil {
		return nil, errors.New("no table reader configured")
	}
	raw, err := p.deps.Reader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	if raw == nil || len(raw.Records) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrEmptyFile, path)
	}

	summary := &LoadSummary{
		LoadID:    uuid.NewString(),
		Path:      path,
		TotalRows: len(raw.Records),
	}

	records, err := p.process(ctx, raw, summary)
	if err != nil {
		return nil, err
	}

	p.enqueueWriteBack(records, summary)

	summary.Duration = time.Since(start)
	p.deps.Cache.Set(key, records, summary)
	p.commit(records, summary)

	logger.Info().
		Str("load_id", summary.LoadID).
		Int("rows", summary.TotalRows).
		Int("records", summary.Records).
		Int("fallback_rows", summary.FallbackRows).
		Int("duplicates", summary.Duplicates).
		Dur("duration", summary.Duration).
		Msg("file loaded")

	return summary.clone(), nil
}

// LoadTable прогоняет уже прочитанную таблицу через конвейер без кэша
func (p *Processor) LoadTable(ctx context.Context, raw *RawTable) (*LoadSummary, error) {
	p.Clear()
	if raw == nil || len(raw.Records) == 0 {
		return nil, ErrEmptyFile
	}
	summary := &LoadSummary{LoadID: uuid.NewString(), TotalRows: len(raw.Records)}
	start := time.Now()

	records, err := p.process(ctx, raw, summary)
	if err != nil {
		return nil, err
	}
	p.enqueueWriteBack(records, summary)
	summary.Duration = time.Since(start)
	p.commit(records, summary)
	return summary.clone(), nil
}

// enqueueWriteBack передает наблюдения штаммов фоновому писателю.
// Вызывается только для свежего разбора, не для попадания в кэш.
func (p *Processor) enqueueWriteBack(records []*ProductRecord, summary *LoadSummary) {
	if p.deps.Sink == nil {
		return
	}
	updates := ComputeWriteBack(records)
	if len(updates) == 0 {
		return
	}
	if p.deps.Sink.Enqueue(updates) {
		summary.WriteBackQueued = len(updates)
	}
}

func (p *Processor) commit(records []*ProductRecord, summary *LoadSummary) {
	p.records = records
	p.summary = summary
	p.tags = buildTags(records)
}

// process выполняет стадии конвейера в фиксированном порядке
func (p *Processor) process(ctx context.Context, raw *RawTable, summary *LoadSummary) ([]*ProductRecord, error) {
	normalized, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	summary.DroppedColumns = normalized.DroppedColumns

	filtered, report := p.filter.Apply(normalized.Table)
	summary.ExcludedByType = report.ExcludedByType
	summary.ExcludedByName = report.ExcludedByName

	fallbackRows := make(map[int]struct{})
	warn := func(rec *ProductRecord, stage string, err error) {
		summary.addWarning(InferenceWarning{
			Row:         rec.Row,
			ProductName: rec.ProductName,
			Stage:       stage,
			Message:     err.Error(),
		}, fallbackRows)
	}

	records := make([]*ProductRecord, 0, len(filtered.Rows))
	for i, row := range filtered.Rows {
		rec := &ProductRecord{Row: filtered.lineOf(i)}
		if err := guard(func() error { return p.fillRecord(rec, row) }); err != nil {
			warn(rec, StageRecord, err)
		}
		records = append(records, rec)
	}

	records, summary.Duplicates = Deduplicate(records)

	for _, rec := range records {
		if err := guard(func() error { p.resolver.Resolve(rec); return nil }); err != nil {
			warn(rec, StageLineage, err)
			rec.Lineage = EnforceLineageInvariants(rec, CanonicalLineage(rec.Lineage))
		}
		if rec.Lineage != "" && !IsKnownLineage(rec.Lineage) {
			summary.UnknownLineages++
			log.Warn().Str("component", "lineage").
				Int("row", rec.Row).
				Str("product", rec.ProductName).
				Str("lineage", rec.Lineage).
				Msg("unknown lineage kept as is")
		}
	}

	ozIndex := p.weights.BuildOunceIndex(records)
	for _, rec := range records {
		if err := guard(func() error { return p.formatRecord(rec, ozIndex) }); err != nil {
			warn(rec, StageWeight, err)
		}
	}

	rr := p.reconciler.Reconcile(ctx, records)
	summary.ReconcileQueried = rr.Queried
	summary.ReconcileOverrides = rr.Overrides
	summary.ReconcileFailures = rr.Failures

	for _, rec := range records {
		rec.Lineage = EnforceLineageInvariants(rec, rec.Lineage)
	}

	summary.Records = len(records)
	if summary.NoData() {
		log.Info().Str("component", "processor").Msg("no records left after filtering")
	}
	return records, nil
}

// guard выполняет шаг строки, превращая панику в ошибку
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}

// fillRecord переносит значения строки в запись
func (p *Processor) fillRecord(rec *ProductRecord, row Row) error {
	rec.ProductName = strings.TrimLeft(row[ColProductName], " \t")
	rec.ProductType = row[ColProductType]
	rec.ProductBrand = row[ColProductBrand]
	rec.Vendor = row[ColVendor]
	rec.Lineage = Resolve(row, LineageCandidates...)
	rec.SourceLineage = CanonicalLineage(rec.Lineage)
	rec.ProductStrain = row[ColProductStrain]
	rec.Weight = row[ColWeight]
	rec.Units = Resolve(row, UnitsCandidates...)
	rec.JointRatio = Resolve(row, JointRatioCandidates...)
	rec.Quantity = row[ColQuantity]
	rec.DOH = Resolve(row, DOHCandidates...)
	rec.Ratio = Resolve(row, RatioCandidates...)
	rec.RawDescription = row[ColDescription]
	rec.THC = PickCannabinoid(row, THCCandidates...)
	rec.CBD = PickCannabinoid(row, CBDCandidates...)
	rec.Description = DescriptionFromName(rec.ProductName, rec.ProductBrand, rec.Vendor, p.opts.Exceptions.ConfiguredBrand(rec.ProductName))

	if rec.ProductName == "" {
		return errors.New("empty product name")
	}

	rawPrice := Resolve(row, PriceCandidates...)
	rec.Price = FormatPrice(rawPrice)
	if rawPrice != "" && rec.Price == "" {
		return fmt.Errorf("unparseable price %q", rawPrice)
	}
	return nil
}

// formatRecord вес, соотношение и производные поля отображения
func (p *Processor) formatRecord(rec *ProductRecord, ozIndex OunceIndex) error {
	rec.RatioOrTHCCBD = RatioDisplay(rec)

	if IsPreRollType(rec.ProductType) && rec.JointRatio == "" {
		rec.JointRatio = JointRatioFromName(rec.ProductName, rec.Weight)
	}

	weight, err := p.weights.CombinedWeight(rec, ozIndex)
	rec.WeightUnits = weight
	rec.DescAndWeight = DescAndWeight(rec.Description, weight)
	return err
}

// Summary отчет последней загрузки
func (p *Processor) Summary() *LoadSummary {
	if p.summary == nil {
		return nil
	}
	return p.summary.clone()
}

// Records копии записей в порядке файла
func (p *Processor) Records() []*ProductRecord {
	return cloneRecords(p.records)
}

// AllRecordsByLineage записи для пакетной генерации: по линии, затем по названию
func (p *Processor) AllRecordsByLineage() []*ProductRecord {
	out := cloneRecords(p.records)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := LineageRank(out[i].Lineage), LineageRank(out[j].Lineage)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(out[i].ProductName) < strings.ToLower(out[j].ProductName)
	})
	return out
}

// AvailableTags список тегов, построенный при загрузке
func (p *Processor) AvailableTags() []Tag {
	return append([]Tag(nil), p.tags...)
}

// FilterOptions значения для фильтров по загруженным данным
func (p *Processor) FilterOptions() FilterOptions {
	return buildFilterOptions(p.records)
}
