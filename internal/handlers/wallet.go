package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jasettlement/walletledger/internal/apperrors"
	"github.com/jasettlement/walletledger/internal/handlers/render"
	"github.com/jasettlement/walletledger/internal/logger"
	"github.com/jasettlement/walletledger/internal/models"
	"github.com/jasettlement/walletledger/internal/service/wallet"
)

type walletView struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"walletId"`
	OwnerName    string    `json:"ownerName"`
	BalanceMinor int64     `json:"balanceMinorUnits"`
	Balance      string    `json:"balance"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type transactionView struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	WalletID     string    `json:"walletId"`
	Type         string    `json:"type"`
	AmountMinor  int64     `json:"amountMinorUnits"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Description  string    `json:"description,omitempty"`
	BalanceAfter *int64    `json:"balanceAfterMinorUnits,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Balances travel as exact minor units plus a display string in major units
func majorUnits(minor int64) string {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func toWalletView(v wallet.WalletView) walletView {
	return walletView{
		ID:           v.Wallet.ID.String(),
		WalletID:     v.Wallet.WalletID,
		OwnerName:    v.Wallet.FullName,
		BalanceMinor: v.BalanceMinor,
		Balance:      majorUnits(v.BalanceMinor),
		Currency:     v.Wallet.Currency,
		CreatedAt:    v.Wallet.CreatedAt,
		UpdatedAt:    v.Wallet.UpdatedAt,
	}
}

func toTransactionView(r wallet.TransactionResult) transactionView {
	balanceAfter := r.BalanceMinor
	return transactionView{
		ID:           r.Transaction.ID.String(),
		Reference:    r.Transaction.Reference,
		WalletID:     r.Transaction.WalletID,
		Type:         r.Transaction.Type,
		AmountMinor:  r.Transaction.AmountMinor,
		Amount:       majorUnits(r.Transaction.AmountMinor),
		Currency:     models.CurrencyNGN,
		Description:  r.Transaction.Description,
		BalanceAfter: &balanceAfter,
		CreatedAt:    r.Transaction.CreatedAt,
	}
}

func handleCreateWallet(s walletService, l logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		BVN      string `json:"bvn" validate:"required,len=10,numeric"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		view, err := s.CreateWallet(r.Context(), req.FullName, req.Email, req.BVN)

		switch {
		case err == nil:
			render.JSONWithStatus(w, toWalletView(view), http.StatusCreated)
		case errors.Is(err, apperrors.ErrOwnerExists):
			render.ServiceError(w, "Wallet already exists for this email", http.StatusConflict)
		default:
			l.Error("Failed to create wallet", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetWallet(s walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, err := s.GetWallet(r.Context(), r.PathValue("walletId"))

		switch {
		case err == nil:
			render.JSON(w, toWalletView(view))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		default:
			l.Error("Failed to get wallet", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateOwner(s walletService, l logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"fullName" validate:"required"`
		BVN      string `json:"bvn" validate:"required,len=10,numeric"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		view, err := s.UpdateOwner(r.Context(), r.PathValue("walletId"), req.FullName, req.BVN)

		switch {
		case err == nil:
			render.JSON(w, toWalletView(view))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrWalletConflict):
			render.ServiceError(w, "Wallet was modified concurrently, fetch and retry", http.StatusConflict)
		default:
			l.Error("Failed to update wallet owner", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeposit(s walletService, l logger.Logger) http.Handler {
	type request struct {
		WalletID    string `json:"walletId" validate:"required"`
		AmountMinor int64  `json:"amountMinorUnits" validate:"required,gt=0"`
		Description string `json:"description"`
		Reference   string `json:"reference"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.Deposit(r.Context(), req.WalletID, req.AmountMinor, req.Description, req.Reference)

		switch {
		case err == nil:
			render.JSON(w, toTransactionView(result))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAmountNotPositive):
			render.ServiceError(w, "Amount must be positive", http.StatusBadRequest)
		default:
			l.Error("Failed to process deposit", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleWithdraw(s walletService, l logger.Logger) http.Handler {
	type request struct {
		WalletID    string `json:"walletId" validate:"required"`
		AmountMinor int64  `json:"amountMinorUnits" validate:"required,gt=0"`
		Description string `json:"description"`
		Reference   string `json:"reference"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.Withdraw(r.Context(), req.WalletID, req.AmountMinor, req.Description, req.Reference)

		switch {
		case err == nil:
			render.JSON(w, toTransactionView(result))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient funds", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrAmountNotPositive):
			render.ServiceError(w, "Amount must be positive", http.StatusBadRequest)
		default:
			l.Error("Failed to process withdrawal", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleTransfer(s walletService, l logger.Logger) http.Handler {
	type request struct {
		FromWalletID string `json:"fromWalletId" validate:"required"`
		ToWalletID   string `json:"toWalletId" validate:"required"`
		AmountMinor  int64  `json:"amountMinorUnits" validate:"required,gt=0"`
		Description  string `json:"description"`
		Reference    string `json:"reference"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.Transfer(r.Context(), req.FromWalletID, req.ToWalletID, req.AmountMinor, req.Description, req.Reference)

		switch {
		case err == nil:
			render.JSON(w, toTransactionView(result))
		case errors.Is(err, apperrors.ErrWalletNotFound):
			// Transfer wraps the error naming the missing side
			render.ServiceError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient funds", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrAmountNotPositive):
			render.ServiceError(w, "Amount must be positive", http.StatusBadRequest)
		default:
			l.Error("Failed to process transfer", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(s walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		history, err := s.ListTransactions(r.Context(), r.PathValue("walletId"))

		switch {
		case err == nil:
			views := make([]transactionView, 0, len(history))
			for _, entry := range history {
				balanceAfter := entry.BalanceAfter
				views = append(views, transactionView{
					ID:           entry.Transaction.ID.String(),
					Reference:    entry.Transaction.Reference,
					WalletID:     entry.Transaction.WalletID,
					Type:         entry.Transaction.Type,
					AmountMinor:  entry.Transaction.AmountMinor,
					Amount:       majorUnits(entry.Transaction.AmountMinor),
					Currency:     models.CurrencyNGN,
					Description:  entry.Transaction.Description,
					BalanceAfter: &balanceAfter,
					CreatedAt:    entry.Transaction.CreatedAt,
				})
			}
			render.JSON(w, views)
		case errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Wallet not found", http.StatusNotFound)
		default:
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
