package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stoir-api/internal/infrastructure/schema"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlrepo"
	"github.com/jhoicas/stoir-api/pkg/config"
)

// openTestDB conecta a STOIR_TEST_DATABASE_URL, aprovisiona el esquema y vacía las tablas.
// Sin la variable el test se omite.
func openTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	url := os.Getenv("STOIR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STOIR_TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 8})
	require.NoError(t, err)
	db := postgres.New(pool, nil, nil)
	t.Cleanup(func() { _ = db.Close(ctx, sqldb.CloseOptions{}) })

	_, err = schema.Ensure(ctx, db, nil)
	require.NoError(t, err)
	for _, table := range schema.ResetOrder {
		require.NoError(t, db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)))
	}
	return db
}

func TestRun_InsertDevuelveID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := db.Run(ctx, "INSERT INTO areas (code, name) VALUES (?, ?)", "A1", "Norte")
	require.NoError(t, err)
	assert.True(t, res.HasInsertedID)
	assert.Positive(t, res.InsertedID)
	assert.Equal(t, int64(1), res.ChangedRows)

	res, err = db.Run(ctx, "INSERT INTO areas (code, name) VALUES (?, ?) ON CONFLICT (code) DO NOTHING", "A1", "Norte")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.ChangedRows)
	assert.False(t, res.HasInsertedID)

	_, err = db.Run(ctx, "INSERT INTO areas (code, name) VALUES (?, ?)", "A1", "Otra")
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	row, err := db.Get(ctx, "SELECT name FROM areas WHERE code = ?", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Norte", row.String("name"))
}

func TestTransaction_AnidadaFallaRapido(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(ctx context.Context, _ sqldb.Querier) error {
		return db.Transaction(ctx, func(context.Context, sqldb.Querier) error { return nil })
	})
	assert.ErrorIs(t, err, domain.ErrNestedTransaction)
}

// Salidas concurrentes sobre el mismo artículo: el bloqueo de fila serializa las líneas,
// el stock nunca queda negativo y el kardex reproduce el saldo final.
func TestLedger_SalidasConcurrentes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	reads := sqlrepo.Bind(db)
	engine := inventory.NewLedgerEngine(sqlrepo.NewTxRunner(db), reads, inventory.Options{})
	_, err := reads.Items.InsertIfAbsent(ctx, &entity.Item{Code: "BRG001", Name: "Bearing", Unit: "PCS"})
	require.NoError(t, err)
	_, err = engine.ApplyMovement(ctx, inventory.MovementInput{
		Kind:  entity.KindReceipt,
		Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 20}},
	})
	require.NoError(t, err)

	var applied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			res, err := engine.ApplyMovement(gctx, inventory.MovementInput{
				Kind:  entity.KindIssue,
				Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 3}},
			})
			if err != nil {
				return err
			}
			applied.Add(res.Lines[0].Applied)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	item, err := engine.Item(ctx, "BRG001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Stock)
	assert.Equal(t, int64(20), applied.Load())

	rep, err := engine.Verify(ctx, "BRG001")
	require.NoError(t, err)
	assert.True(t, rep.Consistent, "%+v", rep)
}
