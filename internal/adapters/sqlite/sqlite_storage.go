package sqlite

import (
	"context"
	"database/sql" // basic sql
	"fmt"

	_ "github.com/mattn/go-sqlite3" // additional driver for sqlite

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// Implements ports.HistoryStore

type SQLiteStorage struct {
	DB *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite db: %w", err)
	}
	return &SQLiteStorage{DB: db}, nil
}

func migrate(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS slot_outcomes (
			slot INTEGER PRIMARY KEY,
			epoch INTEGER NOT NULL,
			proposer_index INTEGER NOT NULL,
			missed BOOLEAN NOT NULL,
			watched BOOLEAN NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS attestation_misses (
			validator_index INTEGER NOT NULL,
			epoch INTEGER NOT NULL,
			escalated BOOLEAN NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (validator_index, epoch)
		);`,
		`CREATE TABLE IF NOT EXISTS slashings (
			validator_index INTEGER PRIMARY KEY,
			epoch INTEGER NOT NULL,
			watched BOOLEAN NOT NULL,
			observed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_epoch ON slot_outcomes(epoch);`,
		`CREATE INDEX IF NOT EXISTS idx_misses_epoch ON attestation_misses(epoch);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// RecordSlotOutcome inserts or updates the outcome of one slot. Re-running a
// tick after a transient failure overwrites the same row rather than
// duplicating it.
func (s *SQLiteStorage) RecordSlotOutcome(ctx context.Context, outcome domain.SlotOutcome, proposer domain.ValidatorIndex, watched bool) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO slot_outcomes (slot, epoch, proposer_index, missed, watched)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			missed=excluded.missed,
			watched=excluded.watched,
			updated_at=CURRENT_TIMESTAMP;`,
		uint64(outcome.Slot), uint64(outcome.Slot.Epoch()), uint64(proposer), outcome.Missed, watched,
	)
	return err
}

// RecordAttestationMiss inserts or updates a per-epoch attestation miss.
func (s *SQLiteStorage) RecordAttestationMiss(ctx context.Context, index domain.ValidatorIndex, epoch domain.Epoch, escalated bool) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO attestation_misses (validator_index, epoch, escalated)
		VALUES (?, ?, ?)
		ON CONFLICT(validator_index, epoch) DO UPDATE SET
			escalated=excluded.escalated,
			updated_at=CURRENT_TIMESTAMP;`,
		uint64(index), uint64(epoch), escalated,
	)
	return err
}

// RecordSlashing inserts a newly observed slashing. The primary key keeps
// the record once per validator for the lifetime of the database.
func (s *SQLiteStorage) RecordSlashing(ctx context.Context, index domain.ValidatorIndex, epoch domain.Epoch, watched bool) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO slashings (validator_index, epoch, watched)
		VALUES (?, ?, ?)
		ON CONFLICT(validator_index) DO NOTHING;`,
		uint64(index), uint64(epoch), watched,
	)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.DB.Close()
}
