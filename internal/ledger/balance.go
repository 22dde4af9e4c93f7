// Package ledger holds the balance arithmetic over transaction histories.
// Balance is always derived from the log, never stored.
package ledger

import (
	"fmt"

	"github.com/jasettlement/walletledger/internal/models"
)

// Signed returns the transaction amount with the sign its type contributes
// to the wallet balance.
// The type set is closed and enforced when entries are created, so an
// unknown type here is a programming error.
func Signed(t models.Transaction) int64 {
	switch t.Type {
	case models.TransactionCredit, models.TransactionTransferIn:
		return t.AmountMinor
	case models.TransactionDebit, models.TransactionTransferOut:
		return -t.AmountMinor
	default:
		panic(fmt.Sprintf("ledger: unknown transaction type %q", t.Type))
	}
}

// Balance folds a transaction history into the current balance in minor units.
func Balance(txs []models.Transaction) int64 {
	var total int64
	for _, t := range txs {
		total += Signed(t)
	}
	return total
}
