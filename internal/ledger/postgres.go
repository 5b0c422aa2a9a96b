package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

const positionsSchema = `
CREATE TABLE IF NOT EXISTS defi_positions (
	id         BIGSERIAL PRIMARY KEY,
	date       TEXT NOT NULL,
	source     TEXT NOT NULL,
	pool       TEXT NOT NULL,
	t1_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
	t2_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
	t1_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
	t2_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
	fees       DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// positionRow mirrors the defi_positions table. The derived total is not a
// column: it is recomputed on every load.
type positionRow struct {
	Date     string  `db:"date"`
	Source   string  `db:"source"`
	Pool     string  `db:"pool"`
	T1Amount float64 `db:"t1_amount"`
	T2Amount float64 `db:"t2_amount"`
	T1Value  float64 `db:"t1_value"`
	T2Value  float64 `db:"t2_value"`
	Fees     float64 `db:"fees"`
}

// PostgresStore keeps positions in a Postgres table with the same append-only
// semantics as the CSV store.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// OpenPostgres connects to Postgres and ensures the schema exists.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{db: db, timeout: 5 * time.Second}
	if _, err := db.Exec(positionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure positions schema: %w", err)
	}
	return store, nil
}

// Load returns every recorded snapshot in insertion order.
func (s *PostgresStore) Load(ctx context.Context) ([]domain.DefiPosition, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []positionRow
	query := `SELECT date, source, pool, t1_amount, t2_amount, t1_value, t2_value, fees
		FROM defi_positions ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	positions := make([]domain.DefiPosition, 0, len(rows))
	for _, r := range rows {
		p := domain.DefiPosition{
			Date:     r.Date,
			Source:   r.Source,
			Pool:     r.Pool,
			T1Amount: r.T1Amount,
			T2Amount: r.T2Amount,
			T1Value:  r.T1Value,
			T2Value:  r.T2Value,
			Fees:     r.Fees,
		}
		p.Normalize()
		positions = append(positions, p)
	}
	return positions, nil
}

// Append inserts one position snapshot.
func (s *PostgresStore) Append(ctx context.Context, position domain.DefiPosition) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `INSERT INTO defi_positions
		(date, source, pool, t1_amount, t2_amount, t1_value, t2_value, fees)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		position.Date, position.Source, position.Pool,
		position.T1Amount, position.T2Amount,
		position.T1Value, position.T2Value, position.Fees)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
