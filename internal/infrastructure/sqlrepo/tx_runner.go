package sqlrepo

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción de la fachada, con cualquiera de los
// dos motores.
type TxRunner struct {
	db sqldb.DB
}

// NewTxRunner construye el runner con la fachada.
func NewTxRunner(db sqldb.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run abre la transacción, ata los repositorios al Querier de la tx y delega Commit/Rollback
// (y el flush del snapshot embebido) en la fachada.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx sqldb.Querier) error {
		return fn(ctx, Bind(tx))
	})
}

// Bind repositorios sobre q (fachada o tx).
func Bind(q sqldb.Querier) inventory.Repos {
	return inventory.Repos{
		Items:      NewItemRepository(q),
		Movements:  NewMovementRepository(q),
		Ledger:     NewLedgerRepository(q),
		MasterData: NewMasterDataRepository(q),
	}
}
