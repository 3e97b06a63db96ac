package database

import (
	"database/sql"
)

// strainMigrations миграции базы штаммов в порядке применения
var strainMigrations = []migration{
	{name: "001_create_strains", up: createStrainsTable},
	{name: "002_create_strain_lineage_counts", up: createStrainLineageCountsTable},
}

// InitStrainSchema создает или обновляет схему базы штаммов
func InitStrainSchema(db *sql.DB) error {
	for _, m := range strainMigrations {
		if err := ensureMigrationApplied(db, m); err != nil {
			return err
		}
	}
	return nil
}

func createStrainsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS strains (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			normalized_name TEXT NOT NULL UNIQUE,
			canonical_lineage TEXT NOT NULL DEFAULT '',
			sovereign_lineage TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			total_occurrences INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_strains_canonical_lineage ON strains(canonical_lineage);
	`)
	return err
}

func createStrainLineageCountsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS strain_lineage_counts (
			strain_id INTEGER NOT NULL REFERENCES strains(id) ON DELETE CASCADE,
			lineage TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (strain_id, lineage)
		)
	`)
	return err
}
