package labels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Template шаблон листа этикеток
type Template string

const (
	TemplateHorizontal Template = "horizontal"
	TemplateVertical   Template = "vertical"
	TemplateDouble     Template = "double"
	TemplateMini       Template = "mini"
)

// ErrUnknownTemplate неизвестный шаблон
var ErrUnknownTemplate = errors.New("unknown label template")

var labelsPerPage = map[Template]int{
	TemplateHorizontal: 9,
	TemplateVertical:   9,
	TemplateDouble:     9,
	TemplateMini:       20,
}

// ParseTemplate разбирает имя шаблона без учета регистра
func ParseTemplate(name string) (Template, error) {
	t := Template(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := labelsPerPage[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// LabelsPerPage количество этикеток на листе
func (t Template) LabelsPerPage() int {
	return labelsPerPage[t]
}

// Page лист этикеток: слот (Label1..LabelN) -> поля
type Page map[string]LabelFields

// SlotName имя слота по номеру с единицы
func SlotName(n int) string {
	return "Label" + strconv.Itoa(n)
}

// BuildPages раскладывает этикетки по листам шаблона.
// Незаполненные слоты последнего листа - пустые словари.
func BuildPages(labels []LabelFields, t Template) ([]Page, error) {
	perPage := t.LabelsPerPage()
	if perPage == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, string(t))
	}

	pages := make([]Page, 0, (len(labels)+perPage-1)/perPage)
	for start := 0; start < len(labels); start += perPage {
		page := make(Page, perPage)
		for slot := 0; slot < perPage; slot++ {
			fields := LabelFields{}
			if i := start + slot; i < len(labels) {
				fields = labels[i]
			}
			page[SlotName(slot+1)] = fields
		}
		pages = append(pages, page)
	}
	return pages, nil
}
