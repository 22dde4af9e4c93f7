package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/jasettlement/walletledger/internal/apperrors"
	"github.com/jasettlement/walletledger/internal/ledger"
	"github.com/jasettlement/walletledger/internal/models"
	"github.com/jasettlement/walletledger/internal/repository"
	"github.com/jasettlement/walletledger/internal/repository/postgres"
	"github.com/jasettlement/walletledger/internal/testutil"
)

func TestWalletService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper to create the service bound to a transaction that rolls back
	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage), storage)
		})
	}

	t.Run("CreateWallet", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				view, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")

				require.NoError(t, err, "creating new wallet should be ok")
				require.NotEmpty(t, view.Wallet.ID)
				require.True(t, strings.HasPrefix(view.Wallet.WalletID, "WALNG"), "wallet id should carry the fixed prefix")
				require.Len(t, view.Wallet.WalletID, 15, "prefix plus 10 digits")
				require.Equal(t, "Ada Obi", view.Wallet.FullName)
				require.Equal(t, models.CurrencyNGN, view.Wallet.Currency)
				require.Zero(t, view.BalanceMinor, "new wallet must start with zero balance")
			})
		})

		t.Run("duplicate email fails and persists nothing", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				first, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				_, err = s.CreateWallet(t.Context(), "Somebody Else", "ada@example.com", "0000000000")

				require.ErrorIs(t, err, apperrors.ErrOwnerExists)

				// The registered wallet is untouched and remains the only one for the email
				wallet, err := storage.Wallet().GetWalletByEmail(t.Context(), "ada@example.com")
				require.NoError(t, err)
				require.Equal(t, first.Wallet.ID, wallet.ID)
				require.Equal(t, "Ada Obi", wallet.FullName)
			})
		})
	})

	t.Run("GetWallet", func(t *testing.T) {
		t.Run("not found", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.GetWallet(t.Context(), "WALNG9999999999")

				require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
			})
		})

		t.Run("balance derived from history", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, 5000, "", "r1")
				require.NoError(t, err)
				_, err = s.Withdraw(t.Context(), created.Wallet.WalletID, 2000, "", "r2")
				require.NoError(t, err)

				view, err := s.GetWallet(t.Context(), created.Wallet.WalletID)

				require.NoError(t, err)
				require.Equal(t, int64(3000), view.BalanceMinor)
			})
		})
	})

	t.Run("Deposit", func(t *testing.T) {
		t.Run("deposit ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				result, err := s.Deposit(t.Context(), created.Wallet.WalletID, 5000, "top up", "r1")

				require.NoError(t, err)
				require.Equal(t, models.TransactionCredit, result.Transaction.Type)
				require.Equal(t, int64(5000), result.Transaction.AmountMinor)
				require.Equal(t, "r1", result.Transaction.Reference)
				require.Equal(t, "top up", result.Transaction.Description)
				require.Equal(t, int64(5000), result.BalanceMinor)
			})
		})

		t.Run("same reference replays prior result", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				first, err := s.Deposit(t.Context(), created.Wallet.WalletID, 5000, "top up", "r1")
				require.NoError(t, err)

				second, err := s.Deposit(t.Context(), created.Wallet.WalletID, 5000, "top up", "r1")

				require.NoError(t, err, "replay must not be an error")
				require.Equal(t, first.Transaction.ID, second.Transaction.ID, "replay must return the prior transaction")
				require.Equal(t, int64(5000), second.BalanceMinor, "balance must not change a second time")

				history, err := storage.Transaction().ListTransactions(t.Context(), created.Wallet.WalletID)
				require.NoError(t, err)
				require.Len(t, history, 1, "no duplicate entry may be created on replay")
			})
		})

		t.Run("engine re-checks amount", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, 0, "", "r1")
				require.ErrorIs(t, err, apperrors.ErrAmountNotPositive)

				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, -100, "", "r2")
				require.ErrorIs(t, err, apperrors.ErrAmountNotPositive)
			})
		})

		t.Run("unknown wallet", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.Deposit(t.Context(), "WALNG9999999999", 100, "", "r1")

				require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
			})
		})

		t.Run("blank reference is generated", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				result, err := s.Deposit(t.Context(), created.Wallet.WalletID, 100, "", "")

				require.NoError(t, err)
				require.NotEmpty(t, result.Transaction.Reference)
			})
		})
	})

	t.Run("Withdraw", func(t *testing.T) {
		t.Run("withdraw ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)
				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, 5000, "", "r1")
				require.NoError(t, err)

				result, err := s.Withdraw(t.Context(), created.Wallet.WalletID, 2000, "cash out", "r2")

				require.NoError(t, err)
				require.Equal(t, models.TransactionDebit, result.Transaction.Type)
				require.Equal(t, int64(3000), result.BalanceMinor)
			})
		})

		t.Run("insufficient funds leaves balance unchanged", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)
				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, 3000, "", "r1")
				require.NoError(t, err)

				_, err = s.Withdraw(t.Context(), created.Wallet.WalletID, 5000, "", "r3")

				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

				balance, err := storage.Transaction().SumTransactions(t.Context(), created.Wallet.WalletID)
				require.NoError(t, err)
				require.Equal(t, int64(3000), balance, "rejected withdrawal must not mutate the ledger")

				history, err := storage.Transaction().ListTransactions(t.Context(), created.Wallet.WalletID)
				require.NoError(t, err)
				require.Len(t, history, 1, "no entry may be created for the rejected withdrawal")
			})
		})

		t.Run("exact balance may be withdrawn", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)
				_, err = s.Deposit(t.Context(), created.Wallet.WalletID, 3000, "", "r1")
				require.NoError(t, err)

				result, err := s.Withdraw(t.Context(), created.Wallet.WalletID, 3000, "", "r2")

				require.NoError(t, err)
				require.Zero(t, result.BalanceMinor)
			})
		})
	})

	t.Run("Transfer", func(t *testing.T) {
		twoWallets := func(t *testing.T, s *Service) (string, string) {
			w1, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
			require.NoError(t, err)
			w2, err := s.CreateWallet(t.Context(), "Obi Eze", "obi@example.com", "0987654321")
			require.NoError(t, err)
			return w1.Wallet.WalletID, w2.Wallet.WalletID
		}

		t.Run("transfer ok with paired legs", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				from, to := twoWallets(t, s)
				_, err := s.Deposit(t.Context(), from, 5000, "", "r1")
				require.NoError(t, err)

				result, err := s.Transfer(t.Context(), from, to, 1000, "rent split", "r4")

				require.NoError(t, err)
				require.Equal(t, models.TransactionTransferOut, result.Transaction.Type)
				require.Equal(t, "r4_debit", result.Transaction.Reference)
				require.Equal(t, int64(4000), result.BalanceMinor)

				fromBalance, err := storage.Transaction().SumTransactions(t.Context(), from)
				require.NoError(t, err)
				require.Equal(t, int64(4000), fromBalance)

				toBalance, err := storage.Transaction().SumTransactions(t.Context(), to)
				require.NoError(t, err)
				require.Equal(t, int64(1000), toBalance)

				credit, err := storage.Transaction().GetTransactionByReference(t.Context(), "r4_credit")
				require.NoError(t, err)
				require.Equal(t, models.TransactionTransferIn, credit.Type)
				require.Equal(t, to, credit.WalletID)
				require.Equal(t, int64(1000), credit.AmountMinor)
			})
		})

		t.Run("insufficient funds applies nothing", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				from, to := twoWallets(t, s)
				_, err := s.Deposit(t.Context(), from, 500, "", "r1")
				require.NoError(t, err)

				_, err = s.Transfer(t.Context(), from, to, 1000, "", "r4")

				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

				toHistory, err := storage.Transaction().ListTransactions(t.Context(), to)
				require.NoError(t, err)
				require.Empty(t, toHistory, "no leg may survive a rejected transfer")

				fromBalance, err := storage.Transaction().SumTransactions(t.Context(), from)
				require.NoError(t, err)
				require.Equal(t, int64(500), fromBalance)
			})
		})

		t.Run("missing wallet is named", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				w1, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				_, err = s.Transfer(t.Context(), w1.Wallet.WalletID, "WALNG9999999999", 100, "", "r4")

				require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
				require.Contains(t, err.Error(), "destination")
				require.Contains(t, err.Error(), "WALNG9999999999")
			})
		})

		t.Run("same reference replays the debit leg", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				from, to := twoWallets(t, s)
				_, err := s.Deposit(t.Context(), from, 5000, "", "r1")
				require.NoError(t, err)

				first, err := s.Transfer(t.Context(), from, to, 1000, "", "r4")
				require.NoError(t, err)

				second, err := s.Transfer(t.Context(), from, to, 1000, "", "r4")

				require.NoError(t, err)
				require.Equal(t, first.Transaction.ID, second.Transaction.ID)

				fromBalance, err := storage.Transaction().SumTransactions(t.Context(), from)
				require.NoError(t, err)
				require.Equal(t, int64(4000), fromBalance, "replayed transfer must not move funds again")
			})
		})
	})

	t.Run("UpdateOwner", func(t *testing.T) {
		t.Run("update ok", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)

				view, err := s.UpdateOwner(t.Context(), created.Wallet.WalletID, "Ada Eze", "0987654321")

				require.NoError(t, err)
				require.Equal(t, "Ada Eze", view.Wallet.FullName)
				require.Equal(t, created.Wallet.Version+1, view.Wallet.Version)
			})
		})

		t.Run("not found", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.UpdateOwner(t.Context(), "WALNG9999999999", "Ada Eze", "0987654321")

				require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
			})
		})
	})

	t.Run("ListTransactions", func(t *testing.T) {
		t.Run("running balance matches the fold at every point", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				created, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
				require.NoError(t, err)
				id := created.Wallet.WalletID

				_, err = s.Deposit(t.Context(), id, 5000, "", "r1")
				require.NoError(t, err)
				_, err = s.Withdraw(t.Context(), id, 2000, "", "r2")
				require.NoError(t, err)
				_, err = s.Deposit(t.Context(), id, 100, "", "r3")
				require.NoError(t, err)

				history, err := s.ListTransactions(t.Context(), id)

				require.NoError(t, err)
				require.Len(t, history, 3)

				var txs []models.Transaction
				for i, entry := range history {
					txs = append(txs, entry.Transaction)
					require.Equal(t, ledger.Balance(txs), entry.BalanceAfter, "entry %d running balance mismatch", i)
				}
				require.Equal(t, int64(3100), history[2].BalanceAfter)
			})
		})
	})

	// Runs on the shared pool, not the rollback harness: real concurrency
	// needs separate connections
	t.Run("concurrent withdrawals never overdraw", func(t *testing.T) {
		storage := postgres.NewStorage(pg.Pool)
		s := NewService(storage)

		created, err := s.CreateWallet(t.Context(), "Conc Urrent", "concurrent@example.com", "1111111111")
		require.NoError(t, err)
		id := created.Wallet.WalletID

		t.Cleanup(func() {
			ctx := context.Background()
			_, _ = pg.Pool.Exec(ctx, "DELETE FROM transactions WHERE wallet_id = $1", id)
			_, _ = pg.Pool.Exec(ctx, "DELETE FROM wallets WHERE wallet_id = $1", id)
		})

		_, err = s.Deposit(t.Context(), id, 5000, "", "conc-seed")
		require.NoError(t, err)

		const attempts = 10
		var succeeded atomic.Int64
		errs := make(chan error, attempts)
		var wg sync.WaitGroup

		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := s.Withdraw(t.Context(), id, 1000, "", fmt.Sprintf("conc-%d", i))
				if err == nil {
					succeeded.Add(1)
					return
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.ErrorIs(t, err, apperrors.ErrInsufficientFunds, "rejected withdrawal must fail the funds check only")
		}
		require.EqualValues(t, 5, succeeded.Load(), "exactly balance/amount withdrawals may pass")

		balance, err := storage.Transaction().SumTransactions(t.Context(), id)
		require.NoError(t, err)
		require.Zero(t, balance, "joint overdraft must be impossible")
	})

	// The worked example: deposits, rejected overdraft, transfer
	t.Run("ledger scenario", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			w1, err := s.CreateWallet(t.Context(), "Ada Obi", "ada@example.com", "1234567890")
			require.NoError(t, err)
			w2, err := s.CreateWallet(t.Context(), "Obi Eze", "obi@example.com", "0987654321")
			require.NoError(t, err)

			deposit, err := s.Deposit(t.Context(), w1.Wallet.WalletID, 5000, "", "r1")
			require.NoError(t, err)
			require.Equal(t, int64(5000), deposit.BalanceMinor)

			withdraw, err := s.Withdraw(t.Context(), w1.Wallet.WalletID, 2000, "", "r2")
			require.NoError(t, err)
			require.Equal(t, int64(3000), withdraw.BalanceMinor)

			_, err = s.Withdraw(t.Context(), w1.Wallet.WalletID, 5000, "", "r3")
			require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

			view, err := s.GetWallet(t.Context(), w1.Wallet.WalletID)
			require.NoError(t, err)
			require.Equal(t, int64(3000), view.BalanceMinor, "rejected withdrawal must leave balance at 3000")

			transfer, err := s.Transfer(t.Context(), w1.Wallet.WalletID, w2.Wallet.WalletID, 1000, "", "r4")
			require.NoError(t, err)
			require.Equal(t, int64(2000), transfer.BalanceMinor)

			w2view, err := s.GetWallet(t.Context(), w2.Wallet.WalletID)
			require.NoError(t, err)
			require.Equal(t, int64(1000), w2view.BalanceMinor)
		})
	})
}
