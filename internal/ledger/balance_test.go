package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasettlement/walletledger/internal/models"
)

func tx(txType string, amount int64) models.Transaction {
	return models.Transaction{Type: txType, AmountMinor: amount}
}

func TestSigned(t *testing.T) {
	require.Equal(t, int64(500), Signed(tx(models.TransactionCredit, 500)))
	require.Equal(t, int64(500), Signed(tx(models.TransactionTransferIn, 500)))
	require.Equal(t, int64(-500), Signed(tx(models.TransactionDebit, 500)))
	require.Equal(t, int64(-500), Signed(tx(models.TransactionTransferOut, 500)))

	require.Panics(t, func() { Signed(tx("REFUND", 500)) }, "unknown type must panic")
}

func TestBalance(t *testing.T) {
	t.Run("empty history is zero", func(t *testing.T) {
		require.Zero(t, Balance(nil))
	})

	t.Run("fold of mixed history", func(t *testing.T) {
		history := []models.Transaction{
			tx(models.TransactionCredit, 5000),
			tx(models.TransactionDebit, 2000),
			tx(models.TransactionTransferOut, 1000),
			tx(models.TransactionTransferIn, 300),
		}

		require.Equal(t, int64(2300), Balance(history))
	})

	t.Run("balance equals signed sum at every point", func(t *testing.T) {
		history := []models.Transaction{
			tx(models.TransactionCredit, 5000),
			tx(models.TransactionDebit, 2000),
			tx(models.TransactionCredit, 100),
			tx(models.TransactionTransferOut, 1000),
		}

		var running int64
		for i, entry := range history {
			running += Signed(entry)
			require.Equal(t, running, Balance(history[:i+1]))
		}
	})
}
