package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/jasettlement/walletledger/internal/apperrors"
	"github.com/jasettlement/walletledger/internal/ledger"
	"github.com/jasettlement/walletledger/internal/models"
	"github.com/jasettlement/walletledger/internal/repository"
	"github.com/jasettlement/walletledger/internal/walletid"
)

// How many times to regenerate the wallet id on collision before giving up.
// The id space is ten digits, collisions are rare but nonzero
const createAttempts = 3

type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *Service {
	return &Service{storage: storage}
}

// WalletView is a wallet together with its derived balance.
// Balance is computed from the transaction log on every read
type WalletView struct {
	Wallet       models.Wallet
	BalanceMinor int64
}

// TransactionResult is a ledger entry together with the wallet balance
// right after the operation settled
type TransactionResult struct {
	Transaction  models.Transaction
	BalanceMinor int64
}

// HistoryEntry carries the running balance the wallet had after the entry
type HistoryEntry struct {
	Transaction  models.Transaction
	BalanceAfter int64
}

func (s *Service) CreateWallet(ctx context.Context, fullName string, email string, bvn string) (WalletView, error) {
	var view WalletView

	// Pre-check the email so replays fail cleanly, the unique index stays as safety net
	_, err := s.storage.Wallet().GetWalletByEmail(ctx, email)
	switch {
	case err == nil:
		return view, apperrors.ErrOwnerExists
	case !errors.Is(err, apperrors.ErrWalletNotFound):
		return view, fmt.Errorf("can't check owner email. Err: %w", err)
	}

	for range createAttempts {
		wallet, err := s.storage.Wallet().CreateWallet(ctx, models.Wallet{
			ID:       uuid.New(),
			WalletID: walletid.Generate(),
			FullName: fullName,
			Email:    email,
			BVN:      bvn,
			Currency: models.CurrencyNGN,
		})

		switch {
		case err == nil:
			return WalletView{Wallet: wallet, BalanceMinor: 0}, nil
		case errors.Is(err, repository.ErrWalletIDTaken):
			continue
		default:
			return view, err
		}
	}

	return view, fmt.Errorf("can't create wallet: wallet id collided %d times", createAttempts)
}

func (s *Service) GetWallet(ctx context.Context, walletID string) (WalletView, error) {
	var view WalletView

	wallet, err := s.storage.Wallet().GetWallet(ctx, walletID)
	if err != nil {
		return view, err
	}

	balance, err := s.storage.Transaction().SumTransactions(ctx, wallet.WalletID)
	if err != nil {
		return view, err
	}

	return WalletView{Wallet: wallet, BalanceMinor: balance}, nil
}

// UpdateOwner changes owner details guarded by the wallet version counter
func (s *Service) UpdateOwner(ctx context.Context, walletID string, fullName string, bvn string) (WalletView, error) {
	var view WalletView

	wallet, err := s.storage.Wallet().GetWallet(ctx, walletID)
	if err != nil {
		return view, err
	}

	wallet.FullName = fullName
	wallet.BVN = bvn

	updated, err := s.storage.Wallet().UpdateOwner(ctx, wallet)
	if err != nil {
		return view, err
	}

	balance, err := s.storage.Transaction().SumTransactions(ctx, updated.WalletID)
	if err != nil {
		return view, err
	}

	return WalletView{Wallet: updated, BalanceMinor: balance}, nil
}

func (s *Service) Deposit(ctx context.Context, walletID string, amount int64, description string, reference string) (TransactionResult, error) {
	var result TransactionResult

	if amount <= 0 {
		return result, apperrors.ErrAmountNotPositive
	}
	reference = orGenerated(reference)

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		wallet, err := store.Wallet().GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}

		if replayed, ok, err := s.replay(ctx, store, reference); err != nil {
			return err
		} else if ok {
			result = replayed
			return nil
		}

		created, err := store.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			Reference:   reference,
			WalletID:    wallet.WalletID,
			Type:        models.TransactionCredit,
			AmountMinor: amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		balance, err := store.Transaction().SumTransactions(ctx, wallet.WalletID)
		if err != nil {
			return err
		}

		result = TransactionResult{Transaction: created, BalanceMinor: balance}
		return nil
	})

	return result, err
}

func (s *Service) Withdraw(ctx context.Context, walletID string, amount int64, description string, reference string) (TransactionResult, error) {
	var result TransactionResult

	if amount <= 0 {
		return result, apperrors.ErrAmountNotPositive
	}
	reference = orGenerated(reference)

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		// The row lock makes check-then-append atomic with respect to any
		// other operation on this wallet
		wallet, err := store.Wallet().GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}

		if replayed, ok, err := s.replay(ctx, store, reference); err != nil {
			return err
		} else if ok {
			result = replayed
			return nil
		}

		balance, err := store.Transaction().SumTransactions(ctx, wallet.WalletID)
		if err != nil {
			return err
		}
		if balance < amount {
			return apperrors.ErrInsufficientFunds
		}

		created, err := store.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			Reference:   reference,
			WalletID:    wallet.WalletID,
			Type:        models.TransactionDebit,
			AmountMinor: amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		result = TransactionResult{Transaction: created, BalanceMinor: balance - amount}
		return nil
	})

	return result, err
}

// Transfer moves funds between two wallets as one atomic operation: the
// source balance check and both ledger entries share a single transaction.
// Returns the debit leg and the source balance after it
func (s *Service) Transfer(ctx context.Context, fromWalletID string, toWalletID string, amount int64, description string, reference string) (TransactionResult, error) {
	var result TransactionResult

	if amount <= 0 {
		return result, apperrors.ErrAmountNotPositive
	}
	reference = orGenerated(reference)
	debitRef := reference + "_debit"
	creditRef := reference + "_credit"

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		// Lock both wallet rows in sorted order so two opposing transfers
		// can't deadlock each other
		lockOrder := []string{fromWalletID, toWalletID}
		slices.Sort(lockOrder)
		lockOrder = slices.Compact(lockOrder)

		wallets := make(map[string]models.Wallet, len(lockOrder))
		for _, id := range lockOrder {
			w, err := store.Wallet().GetWalletForUpdate(ctx, id)
			if err != nil {
				side := "source"
				if id == toWalletID && id != fromWalletID {
					side = "destination"
				}
				return fmt.Errorf("%s wallet %q: %w", side, id, err)
			}
			wallets[id] = w
		}
		from, to := wallets[fromWalletID], wallets[toWalletID]

		if replayed, ok, err := s.replay(ctx, store, debitRef); err != nil {
			return err
		} else if ok {
			result = replayed
			return nil
		}

		balance, err := store.Transaction().SumTransactions(ctx, from.WalletID)
		if err != nil {
			return err
		}
		if balance < amount {
			return apperrors.ErrInsufficientFunds
		}

		debit, err := store.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			Reference:   debitRef,
			WalletID:    from.WalletID,
			Type:        models.TransactionTransferOut,
			AmountMinor: amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		_, err = store.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			Reference:   creditRef,
			WalletID:    to.WalletID,
			Type:        models.TransactionTransferIn,
			AmountMinor: amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		result = TransactionResult{Transaction: debit, BalanceMinor: balance - amount}
		return nil
	})

	return result, err
}

// ListTransactions returns the wallet history oldest first with the running
// balance after every entry
func (s *Service) ListTransactions(ctx context.Context, walletID string) ([]HistoryEntry, error) {
	wallet, err := s.storage.Wallet().GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	txs, err := s.storage.Transaction().ListTransactions(ctx, wallet.WalletID)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, 0, len(txs))
	var running int64
	for _, t := range txs {
		running += ledger.Signed(t)
		history = append(history, HistoryEntry{Transaction: t, BalanceAfter: running})
	}

	return history, nil
}

// replay returns the already recorded result when the reference was processed
// before. Detection happens before insertion, the unique index on reference
// is a safety net only
func (s *Service) replay(ctx context.Context, store repository.Storage, reference string) (TransactionResult, bool, error) {
	var result TransactionResult

	existing, err := store.Transaction().GetTransactionByReference(ctx, reference)
	switch {
	case errors.Is(err, apperrors.ErrTransactionNotFound):
		return result, false, nil
	case err != nil:
		return result, false, err
	}

	balance, err := store.Transaction().SumTransactions(ctx, existing.WalletID)
	if err != nil {
		return result, false, err
	}

	return TransactionResult{Transaction: existing, BalanceMinor: balance}, true, nil
}

// Reference must exist before any store mutation.
// Callers may supply their own, otherwise the engine picks one
func orGenerated(reference string) string {
	if reference == "" {
		return uuid.NewString()
	}
	return reference
}
