package normalization

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileCacheDefaultMaxEntries размер кэша по умолчанию
const FileCacheDefaultMaxEntries = 5

// FileCacheEntry результат обработки файла
type FileCacheEntry struct {
	Records []*ProductRecord
	Summary *LoadSummary
}

// FileCache кэш разобранных файлов с вытеснением FIFO.
// Ключ - путь, время модификации и размер файла.
type FileCache struct {
	entries    map[string]*FileCacheEntry
	order      []string
	maxEntries int
	mu         sync.Mutex
}

// NewFileCache создает кэш на maxEntries файлов
func NewFileCache(maxEntries int) *FileCache {
	if maxEntries <= 0 {
		maxEntries = FileCacheDefaultMaxEntries
	}
	return &FileCache{
		entries:    make(map[string]*FileCacheEntry),
		maxEntries: maxEntries,
	}
}

// FileCacheKey строит ключ кэша
func FileCacheKey(path string, modTime time.Time, size int64) string {
	return fmt.Sprintf("%s|%d|%d", path, modTime.UnixNano(), size)
}

// Get возвращает копию записей из кэша
func (fc *FileCache) Get(key string) (*FileCacheEntry, bool) {
	if fc == nil || key == "" {
		return nil, false
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	entry, exists := fc.entries[key]
	if !exists {
		return nil, false
	}
	return &FileCacheEntry{Records: cloneRecords(entry.Records), Summary: entry.Summary.clone()}, true
}

// Set сохраняет копию записей, вытесняя самую старую при переполнении
func (fc *FileCache) Set(key string, records []*ProductRecord, summary *LoadSummary) {
	if fc == nil || key == "" {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, exists := fc.entries[key]; !exists {
		for len(fc.order) >= fc.maxEntries {
			oldest := fc.order[0]
			fc.order = fc.order[1:]
			delete(fc.entries, oldest)
			log.Debug().Str("component", "cache").Str("key", oldest).Msg("evicted cached file")
		}
		fc.order = append(fc.order, key)
	}

	fc.entries[key] = &FileCacheEntry{Records: cloneRecords(records), Summary: summary.clone()}
}

// Len количество файлов в кэше
func (fc *FileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.entries)
}

// Clear очищает кэш
func (fc *FileCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries = make(map[string]*FileCacheEntry)
	fc.order = nil
}
