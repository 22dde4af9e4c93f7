package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jasettlement/walletledger/internal/apperrors"
	"github.com/jasettlement/walletledger/internal/models"
	"github.com/jasettlement/walletledger/internal/repository"
)

type WalletRepo struct {
	DB DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (id, wallet_id, full_name, email, bvn, currency)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at, wallet_id, full_name, email, bvn, currency, version
`

func (r *WalletRepo) CreateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, createWallet, w.ID, w.WalletID, w.FullName, w.Email, w.BVN, w.Currency)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "wallets_email_key":
				return wallet, apperrors.ErrOwnerExists
			case "wallets_wallet_id_key":
				return wallet, repository.ErrWalletIDTaken
			}
		}

		return wallet, fmt.Errorf("db error: %w", err)
	}

	return wallet, nil
}

const getWallet = `-- name: GetWallet
SELECT id, created_at, updated_at, wallet_id, full_name, email, bvn, currency, version
FROM wallets
WHERE wallet_id = $1
`

func (r *WalletRepo) GetWallet(ctx context.Context, walletID string) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWallet, walletID)
	return collectWallet(rows)
}

// Locks the wallet row until the enclosing transaction ends.
// Concurrent operations on the same wallet queue here, which makes the
// balance check and the following append one serializable unit
const getWalletForUpdate = getWallet + `FOR UPDATE
`

func (r *WalletRepo) GetWalletForUpdate(ctx context.Context, walletID string) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWalletForUpdate, walletID)
	return collectWallet(rows)
}

const getWalletByEmail = `-- name: GetWalletByEmail
SELECT id, created_at, updated_at, wallet_id, full_name, email, bvn, currency, version
FROM wallets
WHERE email = $1
`

func (r *WalletRepo) GetWalletByEmail(ctx context.Context, email string) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWalletByEmail, email)
	return collectWallet(rows)
}

const updateOwner = `-- name: UpdateOwner
UPDATE wallets
SET full_name = $3, bvn = $4, updated_at = now(), version = version + 1
WHERE wallet_id = $1 AND version = $2
RETURNING id, created_at, updated_at, wallet_id, full_name, email, bvn, currency, version
`

// UpdateOwner applies owner detail changes with an optimistic version check.
// A missed version means somebody updated the wallet first
func (r *WalletRepo) UpdateOwner(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, updateOwner, w.WalletID, w.Version, w.FullName, w.BVN)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletConflict
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func collectWallet(rows pgx.Rows) (models.Wallet, error) {
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.WalletID, &w.FullName, &w.Email, &w.BVN, &w.Currency, &w.Version)
	return w, err
}
