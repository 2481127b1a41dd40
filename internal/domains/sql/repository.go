package domainssql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/callback-broker/internal/domains"
)

// The list lives in a single row; documentID is its fixed key.
const documentID = 1

type Repository struct {
	db *pgxpool.Pool
}

var _ domains.Repository = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Load(ctx context.Context) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var listBytes []byte
	row := tx.QueryRow(ctx, `SELECT domains FROM trusted_domains WHERE id = $1;`, documentID)
	if err := row.Scan(&listBytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("scanning row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing tx: %w", err)
	}

	var list []string
	if err := json.Unmarshal(listBytes, &list); err != nil {
		return nil, fmt.Errorf("unmarshaling domains: %w", err)
	}

	return list, nil
}

func (r *Repository) Save(ctx context.Context, list []string) error {
	listBytes, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshaling domains: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO trusted_domains (id, domains)
			 VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET domains = EXCLUDED.domains;`,
		documentID, listBytes,
	)
	if err != nil {
		return fmt.Errorf("upserting domains: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}
