package normalization

import (
	"fmt"
	"time"
)

// Стадии обработки строки, на которых возможны предупреждения
const (
	StageRecord  = "record"
	StageLineage = "lineage"
	StageWeight  = "weight"
)

// InferenceWarning проблема вывода для одной строки. Строка при этом
// остается в наборе со значениями по умолчанию.
type InferenceWarning struct {
	Row         int    `json:"row"`
	ProductName string `json:"product_name"`
	Stage       string `json:"stage"`
	Message     string `json:"message"`
}

func (w InferenceWarning) String() string {
	return fmt.Sprintf("row %d (%s) %s: %s", w.Row, w.ProductName, w.Stage, w.Message)
}

// LoadSummary отчет о загрузке файла
type LoadSummary struct {
	LoadID         string             `json:"load_id"`
	Path           string             `json:"path"`
	CacheHit       bool               `json:"cache_hit"`
	TotalRows      int                `json:"total_rows"`
	ExcludedByType int                `json:"excluded_by_type"`
	ExcludedByName int                `json:"excluded_by_name"`
	Duplicates     int                `json:"duplicates"`
	Records        int                `json:"records"`
	DroppedColumns []string           `json:"dropped_columns,omitempty"`
	FallbackRows   int                `json:"fallback_rows"`
	Warnings       []InferenceWarning `json:"warnings,omitempty"`

	// UnknownLineages записи, чья линия не входит в перечень
	UnknownLineages int `json:"unknown_lineages"`

	ReconcileQueried   int `json:"reconcile_queried"`
	ReconcileOverrides int `json:"reconcile_overrides"`
	ReconcileFailures  int `json:"reconcile_failures"`
	WriteBackQueued    int `json:"write_back_queued"`

	Duration time.Duration `json:"duration"`
}

// NoData после фильтрации не осталось ни одной записи
func (s *LoadSummary) NoData() bool {
	return s.Records == 0
}

// addWarning регистрирует предупреждение; FallbackRows считает строки, а не предупреждения
func (s *LoadSummary) addWarning(w InferenceWarning, fallbackRows map[int]struct{}) {
	s.Warnings = append(s.Warnings, w)
	if _, seen := fallbackRows[w.Row]; !seen {
		fallbackRows[w.Row] = struct{}{}
		s.FallbackRows++
	}
}

func (s *LoadSummary) clone() *LoadSummary {
	c := *s
	c.DroppedColumns = append([]string(nil), s.DroppedColumns...)
	c.Warnings = append([]InferenceWarning(nil), s.Warnings...)
	return &c
}
