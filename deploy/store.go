package deploy

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists deployment records in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) a record store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle. Used by tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			network TEXT NOT NULL,
			address TEXT NOT NULL,
			salt TEXT NOT NULL,
			deployer TEXT NOT NULL,
			tx_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deployments_network ON deployments(network);
	`)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Save inserts a record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (id, network, address, salt, deployer, tx_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Network, rec.Address, rec.Salt, rec.Deployer, rec.TxHash, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save deployment record: %w", err)
	}
	return nil
}

// ByNetwork lists records for one network, newest first.
func (s *Store) ByNetwork(ctx context.Context, network string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, network, address, salt, deployer, tx_hash, created_at
		 FROM deployments WHERE network = ? ORDER BY created_at DESC`,
		network,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployment records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Network, &rec.Address, &rec.Salt, &rec.Deployer, &rec.TxHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deployment record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
