package repository

import (
	"context"
	"errors"

	"github.com/jasettlement/walletledger/internal/models"
)

// Generated wallet id collided with an existing one.
// Not part of the caller facing taxonomy: wallet creation regenerates and retries
var ErrWalletIDTaken = errors.New("wallet id already taken")

// Wallet registry interface
type WalletRepo interface {
	// Create wallet
	// If a wallet with the same email exists must return apperrors.ErrOwnerExists
	// If the generated wallet id collides must return ErrWalletIDTaken so the
	// caller can regenerate and retry
	CreateWallet(ctx context.Context, wallet models.Wallet) (models.Wallet, error)

	// Get wallet by its external identifier
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWallet(ctx context.Context, walletID string) (models.Wallet, error)

	// Same as GetWallet but locks the wallet row until the enclosing
	// transaction ends. Every balance-check-then-append sequence must hold
	// this lock, it is what serializes operations on one wallet
	GetWalletForUpdate(ctx context.Context, walletID string) (models.Wallet, error)

	// Get wallet by owner email
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWalletByEmail(ctx context.Context, email string) (models.Wallet, error)

	// Update owner details (full name, bvn) guarded by the version counter
	// If the stored version differs must return apperrors.ErrWalletConflict
	UpdateOwner(ctx context.Context, wallet models.Wallet) (models.Wallet, error)
}

// Append-only transaction log interface
type TransactionRepo interface {
	// Append one ledger entry. Entries are never updated or deleted
	CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)

	// Get entry by its idempotency reference
	// If not found must return apperrors.ErrTransactionNotFound
	GetTransactionByReference(ctx context.Context, reference string) (models.Transaction, error)

	// List wallet history ordered oldest first
	ListTransactions(ctx context.Context, walletID string) ([]models.Transaction, error)

	// Signed sum of the wallet history in minor units.
	// Credits and transfers in count positive, debits and transfers out negative
	SumTransactions(ctx context.Context, walletID string) (int64, error)
}

// Storage aggregates the repositories and owns the transaction boundary
type Storage interface {
	Wallet() WalletRepo
	Transaction() TransactionRepo

	// InTx runs fn against a storage bound to one database transaction.
	// Commits if fn returns nil, rolls back otherwise
	InTx(ctx context.Context, fn func(s Storage) error) error
}
