package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// The data column is json rather than jsonb so key order survives a round trip.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS saga_records (
	user_id      TEXT PRIMARY KEY,
	data         JSON NOT NULL,
	version      BIGINT NOT NULL,
	last_updated TEXT NOT NULL
)`

// PostgresStore keeps records in the saga_records table.
type PostgresStore struct {
	db     *sqlx.DB
	clock  Clock
	logger infralogger.Logger
}

// NewPostgresStore creates a PostgresStore on db.
func NewPostgresStore(db *sqlx.DB, clock Clock, log infralogger.Logger) *PostgresStore {
	return &PostgresStore{db: db, clock: clock, logger: log}
}

// EnsureSchema creates the saga_records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type recordRow struct {
	Data        []byte `db:"data"`
	Version     int64  `db:"version"`
	LastUpdated string `db:"last_updated"`
}

func (s *PostgresStore) Read(ctx context.Context, userID string) (json.RawMessage, bool, error) {
	query := `
		SELECT data, version, last_updated
		FROM saga_records
		WHERE user_id = $1
	`

	var row recordRow
	err := s.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record %s: %w", userID, err)
	}

	record, err := withMetadata(row.Data, Metadata{LastUpdated: row.LastUpdated, Version: row.Version})
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Write upserts the record in one statement. The row lock taken by the
// conflict path serializes concurrent writers for the same user.
func (s *PostgresStore) Write(ctx context.Context, userID string, data json.RawMessage) (Metadata, error) {
	if err := validateObject(data); err != nil {
		return Metadata{}, err
	}

	query := `
		INSERT INTO saga_records (user_id, data, version, last_updated)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			data = EXCLUDED.data,
			version = saga_records.version + 1,
			last_updated = EXCLUDED.last_updated
		RETURNING version
	`

	lastUpdated := s.clock.stamp()

	var version int64
	if err := s.db.QueryRowxContext(ctx, query, userID, string(data), lastUpdated).Scan(&version); err != nil {
		s.logger.Error("Postgres write failed",
			infralogger.String("user_id", userID),
			infralogger.Error(err),
		)
		return Metadata{}, fmt.Errorf("upsert record %s: %w", userID, err)
	}

	return Metadata{LastUpdated: lastUpdated, Version: version}, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM saga_records`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
