package apperrors

import (
	"errors"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrOwnerExists    = errors.New("wallet already exists for this email")
	ErrWalletConflict = errors.New("wallet was modified concurrently")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountNotPositive = errors.New("amount must be positive")

	ErrTransactionNotFound = errors.New("transaction not found")
)
