package handlers

import (
	"context"
	"net/http"

	"github.com/jasettlement/walletledger/internal/handlers/middleware"
	"github.com/jasettlement/walletledger/internal/logger"
	"github.com/jasettlement/walletledger/internal/service/wallet"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(walletService walletService, logger logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/wallets", handleCreateWallet(walletService, logger))
	mux.Handle("POST /api/v1/wallets/deposit", handleDeposit(walletService, logger))
	mux.Handle("POST /api/v1/wallets/withdraw", handleWithdraw(walletService, logger))
	mux.Handle("POST /api/v1/wallets/transfer", handleTransfer(walletService, logger))
	mux.Handle("GET /api/v1/wallets/{walletId}", handleGetWallet(walletService, logger))
	mux.Handle("PATCH /api/v1/wallets/{walletId}", handleUpdateOwner(walletService, logger))
	mux.Handle("GET /api/v1/wallets/{walletId}/transactions", handleListTransactions(walletService, logger))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type walletService interface {
	// Create wallet for the owner
	// Has to return apperrors.ErrOwnerExists if email already registered
	CreateWallet(ctx context.Context, fullName string, email string, bvn string) (wallet.WalletView, error)

	// Get wallet with its freshly derived balance
	// Has to return apperrors.ErrWalletNotFound if wallet not found
	GetWallet(ctx context.Context, walletID string) (wallet.WalletView, error)

	// Update owner details with optimistic version check
	// Has to return apperrors.ErrWalletConflict on concurrent modification
	UpdateOwner(ctx context.Context, walletID string, fullName string, bvn string) (wallet.WalletView, error)

	Deposit(ctx context.Context, walletID string, amount int64, description string, reference string) (wallet.TransactionResult, error)
	Withdraw(ctx context.Context, walletID string, amount int64, description string, reference string) (wallet.TransactionResult, error)
	Transfer(ctx context.Context, fromWalletID string, toWalletID string, amount int64, description string, reference string) (wallet.TransactionResult, error)

	// Wallet history oldest first with running balances
	ListTransactions(ctx context.Context, walletID string) ([]wallet.HistoryEntry, error)
}
