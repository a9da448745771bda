package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT,
					category_type TEXT NOT NULL DEFAULT 'expense',
					color TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date TEXT NOT NULL,
					amount TEXT NOT NULL,
					payee TEXT NOT NULL,
					particulars TEXT,
					code TEXT,
					reference TEXT,
					tran_type TEXT,
					this_party_account TEXT,
					other_party_account TEXT,
					serial TEXT,
					transaction_code TEXT,
					batch_number TEXT,
					originating_bank_branch TEXT,
					processed_date TEXT,
					category_id INTEGER REFERENCES categories(id),
					classification_status TEXT NOT NULL DEFAULT 'unclassified',
					confidence_score REAL,
					is_auto_approved INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_status ON transactions(classification_status)`,
				`CREATE INDEX idx_transactions_dedupe ON transactions(date, amount, payee)`,

				`CREATE TABLE IF NOT EXISTS classification_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id INTEGER NOT NULL REFERENCES transactions(id),
					category_id INTEGER NOT NULL REFERENCES categories(id),
					payee TEXT NOT NULL,
					particulars TEXT,
					tran_type TEXT,
					amount TEXT NOT NULL,
					classification_method TEXT NOT NULL,
					confidence_score REAL,
					was_corrected INTEGER NOT NULL DEFAULT 0,
					previous_category_id INTEGER,
					classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_history_method ON classification_history(classification_method)`,
				`CREATE INDEX idx_history_transaction_id ON classification_history(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed default categories",
		Up: func(tx *sql.Tx) error {
			defaults := []struct {
				name, description, kind, color string
			}{
				{"Groceries", "Food and household supplies", "expense", "#4CAF50"},
				{"Utilities", "Electricity, water, internet, phone", "expense", "#2196F3"},
				{"Entertainment", "Movies, dining out, hobbies, subscriptions", "expense", "#FF9800"},
				{"Transportation", "Gas, public transport, parking, vehicle maintenance", "expense", "#9C27B0"},
				{"Healthcare", "Medical expenses, pharmacy, insurance", "expense", "#F44336"},
				{"Shopping", "Clothing, electronics, household items", "expense", "#E91E63"},
				{"Housing", "Rent, mortgage, property maintenance", "expense", "#795548"},
				{"Salary", "Monthly salary and wages", "income", "#8BC34A"},
				{"Savings", "Transfers to savings accounts", "expense", "#00BCD4"},
				{"Other", "Miscellaneous expenses", "expense", "#9E9E9E"},
			}

			for _, cat := range defaults {
				_, err := tx.Exec(`
					INSERT INTO categories (name, description, category_type, color)
					VALUES (?, ?, ?, ?)
					ON CONFLICT(name) DO NOTHING
				`, cat.name, cat.description, cat.kind, cat.color)
				if err != nil {
					return fmt.Errorf("failed to seed category %s: %w", cat.name, err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// PRAGMA does not accept bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version of the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
