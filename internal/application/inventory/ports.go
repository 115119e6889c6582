package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stoir-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Items      repository.ItemRepository
	Movements  repository.MovementRepository
	Ledger     repository.LedgerRepository
	MasterData repository.MasterDataRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil, Rollback en cualquier otro caso. Garantiza que documento,
// detalle y kardex se escriben juntos o no se escriben.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

// Clock fuente de tiempo de los movimientos (inyectable en tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
