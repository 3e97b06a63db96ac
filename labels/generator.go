package labels

import (
	"fmt"

	"labelprep/normalization"

	"github.com/rs/zerolog/log"
)

// RecordSource источник загруженных записей (normalization.Processor)
type RecordSource interface {
	Records() []*normalization.ProductRecord
	AllRecordsByLineage() []*normalization.ProductRecord
}

// Result подготовленные этикетки
type Result struct {
	Template  Template      `json:"template"`
	Pages     []Page        `json:"pages"`
	Labels    []LabelFields `json:"-"`
	Unmatched []string      `json:"unmatched,omitempty"`
}

// Generator готовит словари полей для шаблонизатора
type Generator struct {
	source   RecordSource
	builder  *FieldBuilder
	template Template
}

// NewGenerator создает генератор этикеток
func NewGenerator(source RecordSource, builder *FieldBuilder, template Template) *Generator {
	if builder == nil {
		builder = NewFieldBuilder(nil)
	}
	return &Generator{source: source, builder: builder, template: template}
}

// ForSelection этикетки для выбранных тегов в порядке выбора
func (g *Generator) ForSelection(selected []string) (*Result, error) {
	records := g.source.Records()
	if len(records) == 0 {
		return nil, normalization.ErrNoData
	}

	sel := NewSelector(records).Select(selected)
	result, err := g.render(sel.Records)
	if err != nil {
		return nil, err
	}
	result.Unmatched = sel.Unmatched

	log.Info().Str("component", "selector").
		Int("selected", len(selected)).
		Int("labels", len(result.Labels)).
		Int("unmatched", len(sel.Unmatched)).
		Msg("labels prepared for selection")
	return result, nil
}

// All этикетки для всех записей, упорядоченные по линии
func (g *Generator) All() (*Result, error) {
	records := g.source.AllRecordsByLineage()
	if len(records) == 0 {
		return nil, normalization.ErrNoData
	}
	return g.render(records)
}

func (g *Generator) render(records []*normalization.ProductRecord) (*Result, error) {
	result := &Result{Template: g.template, Labels: make([]LabelFields, 0, len(records))}
	wrapped := make([]LabelFields, 0, len(records))
	for _, rec := range records {
		plain := g.builder.Plain(rec)
		result.Labels = append(result.Labels, plain)
		wrapped = append(wrapped, WrapFields(plain))
	}

	pages, err := BuildPages(wrapped, g.template)
	if err != nil {
		return nil, fmt.Errorf("failed to build label pages: %w", err)
	}
	result.Pages = pages
	return result, nil
}
