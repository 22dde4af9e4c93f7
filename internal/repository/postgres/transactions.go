package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jasettlement/walletledger/internal/apperrors"
	"github.com/jasettlement/walletledger/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, reference, wallet_id, type, amount_minor_units, description)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, reference, wallet_id, type, amount_minor_units, description
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction, t.ID, t.Reference, t.WalletID, t.Type, t.AmountMinor, t.Description)
	tx, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		return tx, fmt.Errorf("db error: %w", err)
	}

	return tx, nil
}

const getTransactionByReference = `-- name: GetTransactionByReference
SELECT id, created_at, reference, wallet_id, type, amount_minor_units, description
FROM transactions
WHERE reference = $1
`

func (r *TransactionRepo) GetTransactionByReference(ctx context.Context, reference string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByReference, reference)
	tx, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return tx, nil
	case errors.Is(err, pgx.ErrNoRows):
		return tx, apperrors.ErrTransactionNotFound
	default:
		return tx, fmt.Errorf("db error: %w", err)
	}
}

const listTransactions = `-- name: ListTransactions
SELECT id, created_at, reference, wallet_id, type, amount_minor_units, description
FROM transactions
WHERE wallet_id = $1
ORDER BY seq
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, walletID string) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, walletID)
	txs, err := pgx.CollectRows(rows, rowToTransaction)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return txs, nil
}

// Signed sum over the wallet history, mirrors ledger.Signed in SQL.
// COALESCE keeps an empty history at zero instead of NULL
const sumTransactions = `-- name: SumTransactions
SELECT COALESCE(SUM(
	CASE
		WHEN type IN ('CREDIT', 'TRANSFER_IN') THEN amount_minor_units
		WHEN type IN ('DEBIT', 'TRANSFER_OUT') THEN -amount_minor_units
		ELSE 0
	END
), 0)::bigint
FROM transactions
WHERE wallet_id = $1
`

func (r *TransactionRepo) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, sumTransactions, walletID).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CreatedAt, &t.Reference, &t.WalletID, &t.Type, &t.AmountMinor, &t.Description)
	return t, err
}
