package labels

import (
	"strings"
	"unicode"

	"labelprep/normalization"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTagName ключ первого прохода сопоставления: без диакритики,
// в нижнем регистре, дефисы как пробелы, без пунктуации, схлопнутые пробелы
func NormalizeTagName(name string) string {
	// transform.Chain хранит состояние, поэтому собирается на каждый вызов
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Pd, r):
			b.WriteRune(' ')
		case unicode.IsPunct(r), unicode.IsSymbol(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// looseTagKey ключ второго прохода: регистр и пробелы не учитываются
func looseTagKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Selection результат разрешения выбранных тегов
type Selection struct {
	Records   []*normalization.ProductRecord
	Unmatched []string
}

// Selector сопоставляет выбранные пользователем названия с загруженными записями
type Selector struct {
	byName map[string][]*normalization.ProductRecord
	exact  map[string]string
	loose  map[string]string
}

// NewSelector строит индексы по названиям записей.
// При коллизии ключей побеждает первое название в порядке файла.
func NewSelector(records []*normalization.ProductRecord) *Selector {
	s := &Selector{
		byName: make(map[string][]*normalization.ProductRecord),
		exact:  make(map[string]string),
		loose:  make(map[string]string),
	}
	for _, rec := range records {
		name := rec.ProductName
		s.byName[name] = append(s.byName[name], rec)

		if key := NormalizeTagName(name); key != "" {
			if _, ok := s.exact[key]; !ok {
				s.exact[key] = name
			}
		}
		if key := looseTagKey(name); key != "" {
			if _, ok := s.loose[key]; !ok {
				s.loose[key] = name
			}
		}
	}
	return s
}

// Resolve возвращает каноническое название записи для выбранного тега
func (s *Selector) Resolve(name string) (string, bool) {
	if _, ok := s.byName[name]; ok && name != "" {
		return name, true
	}
	if canonical, ok := s.exact[NormalizeTagName(name)]; ok {
		return canonical, true
	}
	if canonical, ok := s.loose[looseTagKey(name)]; ok {
		return canonical, true
	}
	return "", false
}

// Select возвращает записи в порядке выбора. Несопоставленные названия
// пропускаются с предупреждением, повторный выбор того же товара игнорируется.
func (s *Selector) Select(names []string) Selection {
	var sel Selection
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		canonical, ok := s.Resolve(name)
		if !ok {
			log.Warn().Str("component", "selector").Str("tag", name).Msg("selected tag not found in loaded data")
			sel.Unmatched = append(sel.Unmatched, name)
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		sel.Records = append(sel.Records, s.byName[canonical]...)
	}
	return sel
}
