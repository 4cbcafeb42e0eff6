// Package postgres implements crdt.ContactTrustStore over PostgreSQL.
package postgres

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/securelegion/shield-core/pkg/config"
	"github.com/securelegion/shield-core/pkg/crdt"
	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

// TrustStore persists contact verification records in PostgreSQL.
type TrustStore struct {
	db *sql.DB
}

// New opens a PostgreSQL-backed TrustStore and ensures its schema exists.
func New(cfg config.PostgresConfig) (*TrustStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("hostadapters/postgres: connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("hostadapters/postgres: ping: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &TrustStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("hostadapters/postgres: init schema: %w", err)
	}
	return store, nil
}

func (s *TrustStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contact_trust (
		device_id     VARCHAR(32) PRIMARY KEY,
		safety_number TEXT NOT NULL,
		verified      BOOLEAN NOT NULL DEFAULT false,
		updated_at    TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements crdt.ContactTrustStore.
func (s *TrustStore) Get(contact hybrid.DeviceID) (crdt.TrustRecord, bool, error) {
	query := `SELECT device_id, safety_number, verified FROM contact_trust WHERE device_id = $1`

	var deviceIDHex, safetyNumber string
	var verified bool
	err := s.db.QueryRow(query, hex.EncodeToString(contact[:])).Scan(&deviceIDHex, &safetyNumber, &verified)
	if err == sql.ErrNoRows {
		return crdt.TrustRecord{}, false, nil
	}
	if err != nil {
		return crdt.TrustRecord{}, false, fmt.Errorf("hostadapters/postgres: get: %w", err)
	}

	return crdt.TrustRecord{Contact: contact, SafetyNumber: safetyNumber, Verified: verified}, true, nil
}

// Put implements crdt.ContactTrustStore.
func (s *TrustStore) Put(record crdt.TrustRecord) error {
	query := `
		INSERT INTO contact_trust (device_id, safety_number, verified, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET safety_number = EXCLUDED.safety_number, verified = EXCLUDED.verified, updated_at = NOW()
	`
	_, err := s.db.Exec(query, hex.EncodeToString(record.Contact[:]), record.SafetyNumber, record.Verified)
	if err != nil {
		return fmt.Errorf("hostadapters/postgres: put: %w", err)
	}
	return nil
}

// Delete implements crdt.ContactTrustStore.
func (s *TrustStore) Delete(contact hybrid.DeviceID) error {
	_, err := s.db.Exec(`DELETE FROM contact_trust WHERE device_id = $1`, hex.EncodeToString(contact[:]))
	if err != nil {
		return fmt.Errorf("hostadapters/postgres: delete: %w", err)
	}
	return nil
}

// Close releases the underlying database connection pool.
func (s *TrustStore) Close() error {
	return s.db.Close()
}
