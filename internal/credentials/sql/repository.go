package credentialssql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/callback-broker/internal/credentials"
	"github.com/openkcm/callback-broker/internal/serviceerr"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ credentials.Repository = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Get(ctx context.Context, service, account string) (credentials.Credential, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var credential credentials.Credential
	row := tx.QueryRow(ctx, `SELECT service, account, password FROM credentials WHERE service = $1 AND account = $2;`, service, account)
	if err := row.Scan(&credential.Service, &credential.Account, &credential.Password); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return credentials.Credential{}, serviceerr.ErrNotFound
		}

		return credentials.Credential{}, fmt.Errorf("scanning row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return credentials.Credential{}, fmt.Errorf("committing tx: %w", err)
	}

	return credential, nil
}

func (r *Repository) Set(ctx context.Context, credential credentials.Credential) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO credentials (service, account, password)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (service, account) DO UPDATE SET password = EXCLUDED.password;`,
		credential.Service, credential.Account, credential.Password,
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, service, account string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM credentials WHERE service = $1 AND account = $2;`, service, account)
	if err != nil {
		return fmt.Errorf("executing sql query: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

func (r *Repository) FindByService(ctx context.Context, service string) ([]credentials.Credential, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT service, account, password FROM credentials WHERE service = $1 ORDER BY account;`, service)
	if err != nil {
		return nil, fmt.Errorf("executing sql query: %w", err)
	}

	var found []credentials.Credential
	for rows.Next() {
		var credential credentials.Credential
		if err := rows.Scan(&credential.Service, &credential.Account, &credential.Password); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		found = append(found, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing tx: %w", err)
	}

	return found, nil
}

func (r *Repository) DeleteByService(ctx context.Context, service string) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM credentials WHERE service = $1;`, service)
	if err != nil {
		return 0, fmt.Errorf("executing sql query: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return int(ct.RowsAffected()), nil
}
