package normalization

import (
	"context"
	"sort"

	"labelprep/database"

	"github.com/rs/zerolog/log"
)

// StrainStore источник сведений о штаммах (чтение)
type StrainStore interface {
	GetStrainInfoBatch(ctx context.Context, names []string) (map[string]*database.StrainInfo, error)
}

// StrainSink приемник наблюдений для фоновой записи в базу.
// Enqueue не блокирует; false - обновления отброшены.
type StrainSink interface {
	Enqueue(updates []database.StrainUpdate) bool
}

// ReconcileReport итог сверки с базой штаммов
type ReconcileReport struct {
	Queried   int
	Overrides int
	Failures  int
}

// Reconciler сверяет линии классических продуктов с базой штаммов
type Reconciler struct {
	store         StrainStore
	batchSize     int
	minConfidence float64
}

// NewReconciler создает сверку; store может быть nil - тогда сверка пропускается
func NewReconciler(store StrainStore, batchSize int, minConfidence float64) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{store: store, batchSize: batchSize, minConfidence: minConfidence}
}

// reconcilable участвует ли запись в сверке и write-back
func reconcilable(rec *ProductRecord) bool {
	return rec.IsClassic() && !isBucketStrain(rec.ProductStrain)
}

// validClassicLineage линия из базы допустима для классического типа
func validClassicLineage(lineage string) bool {
	return IsKnownLineage(lineage) && lineage != LineageMixed && lineage != LineageParaphernalia
}

// Reconcile переопределяет линии по базе. Ошибки базы не прерывают загрузку:
// запись сохраняет значение из таблицы.
func (r *Reconciler) Reconcile(ctx context.Context, records []*ProductRecord) ReconcileReport {
	var report ReconcileReport
	if r == nil || r.store == nil {
		return report
	}
	logger := log.With().Str("component", "reconcile").Logger()

	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, rec := range records {
		if !reconcilable(rec) {
			continue
		}
		key := database.NormalizeStrainName(rec.ProductStrain)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, rec.ProductStrain)
	}
	if len(names) == 0 {
		return report
	}
	sort.Strings(names)

	infos := make(map[string]*database.StrainInfo, len(names))
	for start := 0; start < len(names); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("reconciliation interrupted")
			report.Failures++
			break
		}
		end := min(start+r.batchSize, len(names))
		batch := names[start:end]
		report.Queried += len(batch)

		found, err := r.store.GetStrainInfoBatch(ctx, batch)
		if err != nil {
			logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("strain lookup failed, keeping spreadsheet lineage")
			report.Failures++
			continue
		}
		for k, v := range found {
			infos[k] = v
		}
	}

	for _, rec := range records {
		if !reconcilable(rec) {
			continue
		}
		info, ok := infos[database.NormalizeStrainName(rec.ProductStrain)]
		if !ok {
			continue
		}
		lineage := r.lineageFrom(info)
		if lineage == "" || lineage == rec.Lineage {
			continue
		}
		logger.Info().
			Str("product", rec.ProductName).
			Str("strain", rec.ProductStrain).
			Str("from", rec.Lineage).
			Str("to", lineage).
			Msg("lineage overridden from strain database")
		rec.Lineage = lineage
		report.Overrides++
	}

	return report
}

// lineageFrom суверенная линия приоритетна; каноническая - только при
// достаточной уверенности
func (r *Reconciler) lineageFrom(info *database.StrainInfo) string {
	if s := CanonicalLineage(info.SovereignLineage); s != "" && validClassicLineage(s) {
		return s
	}
	if info.Confidence < r.minConfidence {
		return ""
	}
	if c := CanonicalLineage(info.CanonicalLineage); validClassicLineage(c) {
		return c
	}
	return ""
}

// ComputeWriteBack самая частая линия каждого штамма в текущей загрузке.
// Считается по линиям из таблицы до значений по умолчанию и сверки.
// Пустые и неизвестные линии не учитываются; штамм, у которого MIXED
// встречается чаще любой другой линии, не записывается.
func ComputeWriteBack(records []*ProductRecord) []database.StrainUpdate {
	type tally struct {
		name   string
		counts map[string]int
	}
	tallies := make(map[string]*tally)
	keys := make([]string, 0)

	for _, rec := range records {
		if !reconcilable(rec) {
			continue
		}
		lineage := rec.SourceLineage
		if !IsKnownLineage(lineage) || lineage == LineageParaphernalia {
			continue
		}
		key := database.NormalizeStrainName(rec.ProductStrain)
		t, ok := tallies[key]
		if !ok {
			t = &tally{name: rec.ProductStrain, counts: make(map[string]int)}
			tallies[key] = t
			keys = append(keys, key)
		}
		t.counts[lineage]++
	}

	sort.Strings(keys)
	updates := make([]database.StrainUpdate, 0, len(keys))
	for _, key := range keys {
		t := tallies[key]
		best, bestCount := "", 0
		for lineage, count := range t.counts {
			if lineage == LineageMixed {
				continue
			}
			if count > bestCount || (count == bestCount && LineageRank(lineage) < LineageRank(best)) {
				best, bestCount = lineage, count
			}
		}
		if best == "" || t.counts[LineageMixed] > bestCount {
			continue
		}
		updates = append(updates, database.StrainUpdate{Name: t.name, Lineage: best})
	}
	return updates
}
