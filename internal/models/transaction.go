package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionCredit      = "CREDIT"
	TransactionDebit       = "DEBIT"
	TransactionTransferIn  = "TRANSFER_IN"
	TransactionTransferOut = "TRANSFER_OUT"
)

// Transaction is a single immutable ledger entry
// Once created it's never updated or deleted
type Transaction struct {
	ID        uuid.UUID
	CreatedAt time.Time

	// Idempotency key, unique across all transactions
	Reference string

	// External identifier of the owning wallet
	WalletID string

	Type string

	// Amount in minor currency units (kobo), always positive
	AmountMinor int64

	Description string
}
