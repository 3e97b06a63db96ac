package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// ErrStrainNotFound штамм отсутствует в базе
var ErrStrainNotFound = errors.New("strain not found")

// batchQueryChunk предел параметров одного IN (...) запроса
const batchQueryChunk = 500

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// StrainInfo сведения о штамме из базы
type StrainInfo struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	NormalizedName   string         `json:"normalized_name"`
	CanonicalLineage string         `json:"canonical_lineage"`
	SovereignLineage string         `json:"sovereign_lineage"`
	Confidence       float64        `json:"confidence"`
	TotalOccurrences int            `json:"total_occurrences"`
	LineageCounts    map[string]int `json:"lineage_counts,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// EffectiveLineage возвращает суверенную линию, если она задана, иначе каноническую
func (si *StrainInfo) EffectiveLineage() string {
	if si == nil {
		return ""
	}
	if si.SovereignLineage != "" {
		return si.SovereignLineage
	}
	return si.CanonicalLineage
}

// StrainUpdate наблюдение "штамм -> линия" для записи в базу
type StrainUpdate struct {
	Name      string `json:"name"`
	Lineage   string `json:"lineage"`
	Sovereign bool   `json:"sovereign"`
}

// StrainDB база штаммов на SQLite
type StrainDB struct {
	conn *sql.DB
}

// NormalizeStrainName приводит имя штамма к ключу поиска
func NormalizeStrainName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewStrainDB создает новое подключение к базе штаммов
func NewStrainDB(dbPath string) (*StrainDB, error) {
	config := DBConfig{}

	// Для in-memory SQLite требуется ровно одно соединение,
	// иначе каждое новое соединение получит пустую БД без таблиц.
	if isInMemoryDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewStrainDBWithConfig(dbPath, config)
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// buildDSN добавляет pragma-параметры драйвера, чтобы они действовали на каждом соединении пула
func buildDSN(dbPath string, busyTimeout time.Duration) string {
	params := fmt.Sprintf("_busy_timeout=%d&_foreign_keys=on", busyTimeout.Milliseconds())
	if !isInMemoryDB(dbPath) {
		params += "&_journal_mode=WAL"
	}
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + params
	}
	return dbPath + "?" + params
}

// NewStrainDBWithConfig создает новое подключение к базе штаммов с конфигурацией
func NewStrainDBWithConfig(dbPath string, config DBConfig) (*StrainDB, error) {
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	conn, err := sql.Open("sqlite3", buildDSN(dbPath, config.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open strain database: %w", err)
	}

	// SQLite плохо справляется с большим количеством одновременных соединений
	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(4)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(2)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping strain database: %w", err)
	}

	if err := InitStrainSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize strain schema: %w", err)
	}

	log.Debug().Str("component", "strain_db").Str("path", dbPath).Msg("strain database opened")

	return &StrainDB{conn: conn}, nil
}

// Close закрывает подключение к базе штаммов
func (db *StrainDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *StrainDB) Ping() error {
	return db.conn.Ping()
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *StrainDB) GetDB() *sql.DB {
	return db.conn
}

const strainColumns = `id, name, normalized_name, canonical_lineage, sovereign_lineage,
	confidence, total_occurrences, created_at, updated_at`

func scanStrain(scanner interface{ Scan(...any) error }) (*StrainInfo, error) {
	info := &StrainInfo{}
	err := scanner.Scan(
		&info.ID,
		&info.Name,
		&info.NormalizedName,
		&info.CanonicalLineage,
		&info.SovereignLineage,
		&info.Confidence,
		&info.TotalOccurrences,
		&info.CreatedAt,
		&info.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// GetStrainInfo возвращает сведения о штамме по имени
func (db *StrainDB) GetStrainInfo(ctx context.Context, name string) (*StrainInfo, error) {
	key := NormalizeStrainName(name)
	if key == "" {
		return nil, ErrStrainNotFound
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+strainColumns+` FROM strains WHERE normalized_name = ?`, key)
	info, err := scanStrain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStrainNotFound
		}
		return nil, fmt.Errorf("failed to get strain %q: %w", name, err)
	}

	counts, err := db.lineageCounts(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	info.LineageCounts = counts

	return info, nil
}

func (db *StrainDB) lineageCounts(ctx context.Context, strainID int64) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT lineage, count FROM strain_lineage_counts WHERE strain_id = ?`, strainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lineage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var lineage string
		var count int
		if err := rows.Scan(&lineage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan lineage count: %w", err)
		}
		counts[lineage] = count
	}
	return counts, rows.Err()
}

// GetStrainInfoBatch возвращает сведения о нескольких штаммах.
// Ключ результата - нормализованное имя штамма; отсутствующие штаммы не попадают в результат.
func (db *StrainDB) GetStrainInfoBatch(ctx context.Context, names []string) (map[string]*StrainInfo, error) {
	keys := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := NormalizeStrainName(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	result := make(map[string]*StrainInfo, len(keys))
	for start := 0; start < len(keys); start += batchQueryChunk {
		end := start + batchQueryChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, key := range chunk {
			args[i] = key
		}

		rows, err := db.conn.QueryContext(ctx,
			`SELECT `+strainColumns+` FROM strains WHERE normalized_name IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query strain batch: %w", err)
		}
		for rows.Next() {
			info, err := scanStrain(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan strain: %w", err)
			}
			result[info.NormalizedName] = info
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// AddOrUpdateStrain регистрирует наблюдение линии для штамма.
// Счетчик наблюдений увеличивается, каноническая линия пересчитывается как самая частая.
// При sovereign=true линия также фиксируется как суверенная.
func (db *StrainDB) AddOrUpdateStrain(ctx context.Context, name, lineage string, sovereign bool) error {
	key := NormalizeStrainName(name)
	lineage = strings.ToUpper(strings.TrimSpace(lineage))
	if key == "" || lineage == "" {
		return fmt.Errorf("strain name and lineage are required")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	strainID, err := upsertStrainRow(ctx, tx, name, key)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO strain_lineage_counts (strain_id, lineage, count) VALUES (?, ?, 1)
		ON CONFLICT(strain_id, lineage) DO UPDATE SET count = count + 1
	`, strainID, lineage); err != nil {
		return fmt.Errorf("failed to increment lineage count: %w", err)
	}

	canonical, confidence, total, err := recomputeCanonical(ctx, tx, strainID)
	if err != nil {
		return err
	}

	query := `UPDATE strains SET canonical_lineage = ?, confidence = ?, total_occurrences = ?, updated_at = ? WHERE id = ?`
	args := []any{canonical, confidence, total, time.Now().UTC(), strainID}
	if sovereign {
		query = `UPDATE strains SET canonical_lineage = ?, confidence = ?, total_occurrences = ?, updated_at = ?, sovereign_lineage = ? WHERE id = ?`
		args = []any{canonical, confidence, total, time.Now().UTC(), lineage, strainID}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update strain: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit strain update: %w", err)
	}
	return nil
}

// SetSovereignLineage фиксирует суверенную линию штамма без учета наблюдения.
// Пустая линия снимает суверенное значение.
func (db *StrainDB) SetSovereignLineage(ctx context.Context, name, lineage string) error {
	key := NormalizeStrainName(name)
	if key == "" {
		return fmt.Errorf("strain name is required")
	}
	lineage = strings.ToUpper(strings.TrimSpace(lineage))

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	strainID, err := upsertStrainRow(ctx, tx, name, key)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE strains SET sovereign_lineage = ?, updated_at = ? WHERE id = ?`,
		lineage, time.Now().UTC(), strainID); err != nil {
		return fmt.Errorf("failed to set sovereign lineage: %w", err)
	}

	return tx.Commit()
}

// CountStrains возвращает количество штаммов в базе
func (db *StrainDB) CountStrains(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM strains`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count strains: %w", err)
	}
	return count, nil
}

func upsertStrainRow(ctx context.Context, tx *sql.Tx, name, key string) (int64, error) {
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO strains (name, normalized_name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET updated_at = excluded.updated_at
	`, strings.TrimSpace(name), key, now, now); err != nil {
		return 0, fmt.Errorf("failed to upsert strain: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM strains WHERE normalized_name = ?`, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get strain id: %w", err)
	}
	return id, nil
}

// recomputeCanonical выбирает самую частую линию; при равенстве побеждает первая по алфавиту
func recomputeCanonical(ctx context.Context, tx *sql.Tx, strainID int64) (string, float64, int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT lineage, count FROM strain_lineage_counts WHERE strain_id = ? ORDER BY count DESC, lineage ASC`, strainID)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to read lineage counts: %w", err)
	}
	defer rows.Close()

	var canonical string
	var best, total int
	for rows.Next() {
		var lineage string
		var count int
		if err := rows.Scan(&lineage, &count); err != nil {
			return "", 0, 0, fmt.Errorf("failed to scan lineage count: %w", err)
		}
		if canonical == "" {
			canonical = lineage
			best = count
		}
		total += count
	}
	if err := rows.Err(); err != nil {
		return "", 0, 0, err
	}

	var confidence float64
	if total > 0 {
		confidence = float64(best) / float64(total)
	}
	return canonical, confidence, total, nil
}
