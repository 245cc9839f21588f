package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"healthScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS account_snapshots (
	network               TEXT NOT NULL,
	address               TEXT NOT NULL,
	fetched_at            TIMESTAMPTZ NOT NULL,
	label                 TEXT NOT NULL DEFAULT '',
	total_collateral_usd  NUMERIC NOT NULL,
	total_debt_usd        NUMERIC NOT NULL,
	available_borrows_usd NUMERIC NOT NULL,
	liquidation_threshold NUMERIC NOT NULL,
	loan_to_value         NUMERIC NOT NULL,
	health_factor         TEXT NOT NULL,
	tier                  TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network, address, fetched_at)
);
`

// Store provides Postgres persistence for tracker state and account snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Ping verifies the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Get returns the JSON document stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("key required")
	}
	var value []byte
	row := s.pool.QueryRow(ctx, `SELECT value::text FROM kv_store WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Put upserts a JSON document.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, string(value))
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key=$1`, key)
	return err
}

// UpsertSnapshots writes one row per successful fetch.
func (s *Store) UpsertSnapshots(ctx context.Context, snapshots []model.AccountSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO account_snapshots (
				network, address, fetched_at, label,
				total_collateral_usd, total_debt_usd, available_borrows_usd,
				liquidation_threshold, loan_to_value, health_factor, tier
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11)
			ON CONFLICT (network, address, fetched_at)
			DO UPDATE SET
				label = EXCLUDED.label,
				total_collateral_usd = EXCLUDED.total_collateral_usd,
				total_debt_usd = EXCLUDED.total_debt_usd,
				available_borrows_usd = EXCLUDED.available_borrows_usd,
				liquidation_threshold = EXCLUDED.liquidation_threshold,
				loan_to_value = EXCLUDED.loan_to_value,
				health_factor = EXCLUDED.health_factor,
				tier = EXCLUDED.tier
		`,
			snap.Network,
			snap.Address,
			snap.FetchedAt,
			snap.Label,
			snap.TotalCollateralUSD.String(),
			snap.TotalDebtUSD.String(),
			snap.AvailableBorrowsUSD.String(),
			snap.LiquidationThreshold.String(),
			snap.LoanToValue.String(),
			snap.HealthFactor,
			snap.Tier.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for an account.
func (s *Store) LatestSnapshot(ctx context.Context, network, address string) (model.AccountSnapshot, bool, error) {
	var snap model.AccountSnapshot
	var collateral, debt, borrows, threshold, ltv, tier string
	row := s.pool.QueryRow(ctx, `
		SELECT network, address, fetched_at, label,
			total_collateral_usd::text, total_debt_usd::text, available_borrows_usd::text,
			liquidation_threshold::text, loan_to_value::text, health_factor, tier
		FROM account_snapshots
		WHERE network=$1 AND address=$2
		ORDER BY fetched_at DESC
		LIMIT 1
	`, network, address)
	err := row.Scan(
		&snap.Network, &snap.Address, &snap.FetchedAt, &snap.Label,
		&collateral, &debt, &borrows, &threshold, &ltv, &snap.HealthFactor, &tier,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountSnapshot{}, false, nil
		}
		return model.AccountSnapshot{}, false, err
	}

	if snap.Tier, err = model.ParseRiskTier(tier); err != nil {
		return model.AccountSnapshot{}, false, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&snap.TotalCollateralUSD, collateral},
		{&snap.TotalDebtUSD, debt},
		{&snap.AvailableBorrowsUSD, borrows},
		{&snap.LiquidationThreshold, threshold},
		{&snap.LoanToValue, ltv},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return model.AccountSnapshot{}, false, fmt.Errorf("parse snapshot decimal: %w", err)
		}
	}
	return snap, true, nil
}
