package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jasettlement/walletledger/internal/handlers"
	"github.com/jasettlement/walletledger/internal/logger"
	"github.com/jasettlement/walletledger/internal/repository/postgres"
	"github.com/jasettlement/walletledger/internal/service/wallet"
	"github.com/jasettlement/walletledger/internal/testutil"
)

type Services struct {
	WalletService *wallet.Service
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		walletService := wallet.NewService(storage)

		router := handlers.NewRouter(walletService, logger.NewNoOp())

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			WalletService: walletService,
		})
	})
}
