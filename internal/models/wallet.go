package models

import (
	"time"

	"github.com/google/uuid"
)

// The only currency supported for now
const CurrencyNGN = "NGN"

type Wallet struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	// Human readable wallet identifier, unique, never changes once assigned
	WalletID string

	FullName string
	Email    string
	BVN      string
	Currency string

	// Optimistic concurrency guard for metadata updates
	// Balance is not stored here, so the counter guards owner details only
	Version int64
}
