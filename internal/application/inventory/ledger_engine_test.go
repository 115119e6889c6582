package inventory_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/infrastructure/schema"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlrepo"
)

// stepClock avanza un segundo en cada lectura.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	eng  *inventory.LedgerEngine
	db   *sqlite.DB
	path string
}

func newFixture(t *testing.T, opts inventory.Options) *fixture {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stoir.sqlite")

	db, err := sqlite.Open(ctx, sqlite.Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx, sqldb.CloseOptions{Save: false}) })

	_, err = schema.Ensure(ctx, db, nil)
	require.NoError(t, err)

	if opts.Clock == nil {
		opts.Clock = &stepClock{now: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)}
	}
	eng := inventory.NewLedgerEngine(sqlrepo.NewTxRunner(db), sqlrepo.Bind(db), opts)
	return &fixture{eng: eng, db: db, path: path}
}

// addItem crea el artículo y, si stock > 0, registra la entrada inicial por el kardex.
func (f *fixture) addItem(t *testing.T, code string, stock, threshold int64) {
	t.Helper()
	ctx := context.Background()
	price := decimal.NewFromInt(1500)
	created, err := sqlrepo.Bind(f.db).Items.InsertIfAbsent(ctx, &entity.Item{
		Code: code, Name: "Artículo " + code, Unit: "PCS", ReorderThreshold: threshold, PurchasePrice: &price,
	})
	require.NoError(t, err)
	require.True(t, created)
	if stock > 0 {
		_, err := f.eng.ApplyMovement(ctx, inventory.MovementInput{
			Kind:  entity.KindReceipt,
			Lines: []inventory.LineInput{{ItemCode: code, Quantity: stock}},
		})
		require.NoError(t, err)
	}
}

func (f *fixture) stock(t *testing.T, code string) int64 {
	t.Helper()
	item, err := f.eng.Item(context.Background(), code)
	require.NoError(t, err)
	return item.Stock
}

func (f *fixture) ledger(t *testing.T, code string) []entity.LedgerEntry {
	t.Helper()
	entries, _, err := f.eng.History(context.Background(), code, 0, 0)
	require.NoError(t, err)
	return entries
}

func entriesFor(entries []entity.LedgerEntry, refNo string) []entity.LedgerEntry {
	var out []entity.LedgerEntry
	for _, e := range entries {
		if e.RefNo == refNo {
			out = append(out, e)
		}
	}
	return out
}

func assertConsistent(t *testing.T, f *fixture, code string) {
	t.Helper()
	rep, err := f.eng.Verify(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, rep.Consistent, "kardex inconsistente: %+v", rep)
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_ReceiptSumaStockYKardex(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 0, 0)

	price := decimal.RequireFromString("12500.50")
	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:        entity.KindReceipt,
		Number:      "rcv-001",
		PartnerCode: "",
		CreatedBy:   "admin",
		Lines: []inventory.LineInput{
			{ItemCode: " brg001 ", Quantity: 7, UnitPrice: &price},
			{ItemCode: "BRG001", Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "RCV-001", res.Document.Number)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(7), res.Lines[0].BalanceAfter)
	assert.Equal(t, int64(10), res.Lines[1].BalanceAfter)
	assert.Equal(t, int64(10), f.stock(t, "BRG001"))

	entries := f.ledger(t, "BRG001")
	require.Len(t, entries, 2)
	assert.Equal(t, entity.RefIn, entries[0].RefType)
	assert.Equal(t, "admin", entries[0].CreatedBy)
	assert.Equal(t, int64(10), entries[1].BalanceAfter)

	doc, err := f.eng.Document(context.Background(), entity.KindReceipt, "RCV-001")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)
	require.NotNil(t, doc.Lines[0].UnitPrice)
	assert.True(t, price.Equal(*doc.Lines[0].UnitPrice))
	require.NotNil(t, doc.Lines[1].UnitPrice, "sin precio se toma el de compra del artículo")
	assert.True(t, decimal.NewFromInt(1500).Equal(*doc.Lines[1].UnitPrice))
	assertConsistent(t, f, "BRG001")
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas: recorte al stock disponible
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_IssueRecortaAlDisponible(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 10, 0)

	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindIssue,
		Number: "ISS-A",
		Lines:  []inventory.LineInput{{ItemCode: "BRG001", Quantity: 15}},
	})
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	assert.Equal(t, int64(15), line.Requested)
	assert.Equal(t, int64(10), line.Applied)
	assert.True(t, line.Clamped)
	assert.Equal(t, int64(0), line.BalanceAfter)
	assert.Equal(t, int64(0), f.stock(t, "BRG001"))

	issued := entriesFor(f.ledger(t, "BRG001"), "ISS-A")
	require.Len(t, issued, 1)
	assert.Equal(t, int64(10), issued[0].QtyOut)
	assert.Equal(t, int64(0), issued[0].QtyIn)
	assert.Equal(t, int64(0), issued[0].BalanceAfter)

	doc, err := f.eng.Document(context.Background(), entity.KindIssue, "ISS-A")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, int64(10), doc.Lines[0].Quantity)
	assertConsistent(t, f, "BRG001")
}

func TestApplyMovement_SinStockOmiteLinea(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG003", 0, 0)

	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindClaim,
		Number: "CLM-1",
		Lines:  []inventory.LineInput{{ItemCode: "BRG003", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Skipped)
	assert.Empty(t, res.Document.Lines)
	assert.Empty(t, f.ledger(t, "BRG003"))

	doc, err := f.eng.Document(context.Background(), entity.KindClaim, "CLM-1")
	require.NoError(t, err)
	assert.Empty(t, doc.Lines)
}

func TestApplyMovement_PoliticaRejectFallaSinEfectos(t *testing.T) {
	f := newFixture(t, inventory.Options{UnderSupply: inventory.RejectUnderSupply})
	f.addItem(t, "BRG001", 10, 0)
	f.addItem(t, "BRG002", 1, 0)

	_, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindIssue,
		Number: "ISS-R",
		Lines: []inventory.LineInput{
			{ItemCode: "BRG001", Quantity: 4},
			{ItemCode: "BRG002", Quantity: 5},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(10), f.stock(t, "BRG001"))
	assert.Equal(t, int64(1), f.stock(t, "BRG002"))
	assert.Empty(t, entriesFor(f.ledger(t, "BRG001"), "ISS-R"))
	_, err = f.eng.Document(context.Background(), entity.KindIssue, "ISS-R")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes por conteo físico
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_AdjustmentRegistraDiferencia(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG002", 5, 0)

	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindAdjustment,
		Number: "ADJ-B",
		Lines:  []inventory.LineInput{{ItemCode: "BRG002", Quantity: 8, Note: "conteo mensual"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, int64(3), res.Lines[0].QtyIn)
	assert.Equal(t, int64(0), res.Lines[0].QtyOut)
	assert.Equal(t, int64(8), f.stock(t, "BRG002"))

	adj := entriesFor(f.ledger(t, "BRG002"), "ADJ-B")
	require.Len(t, adj, 1)
	assert.Equal(t, entity.RefAdj, adj[0].RefType)
	assert.Equal(t, int64(3), adj[0].QtyIn)
	assert.Equal(t, int64(0), adj[0].QtyOut)
	assert.Equal(t, int64(8), adj[0].BalanceAfter)
	assert.Equal(t, "conteo mensual", adj[0].Note)

	doc, err := f.eng.Document(context.Background(), entity.KindAdjustment, "ADJ-B")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, int64(5), doc.Lines[0].SystemQty)
	assert.Equal(t, int64(8), doc.Lines[0].PhysicalQty)
	assert.Equal(t, int64(3), doc.Lines[0].Difference)
	assertConsistent(t, f, "BRG002")
}

func TestApplyMovement_AdjustmentHaciaAbajoYSinDiferencia(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG004", 9, 0)

	_, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:  entity.KindAdjustment,
		Lines: []inventory.LineInput{{ItemCode: "BRG004", Quantity: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.stock(t, "BRG004"))

	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindAdjustment,
		Number: "ADJ-ZERO",
		Lines:  []inventory.LineInput{{ItemCode: "BRG004", Quantity: 0}},
	})
	require.NoError(t, err)
	require.Len(t, res.Document.Lines, 1)

	zero := entriesFor(f.ledger(t, "BRG004"), "ADJ-ZERO")
	require.Len(t, zero, 1)
	assert.Equal(t, int64(0), zero[0].QtyIn)
	assert.Equal(t, int64(0), zero[0].QtyOut)
	assert.Equal(t, int64(0), zero[0].BalanceAfter)
	assertConsistent(t, f, "BRG004")
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_ArticuloInexistenteRevierteTodo(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 2, 0)

	_, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:   entity.KindReceipt,
		Number: "RCV-C",
		Lines: []inventory.LineInput{
			{ItemCode: "BRG001", Quantity: 5},
			{ItemCode: "NOPE", Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int64(2), f.stock(t, "BRG001"))
	assert.Empty(t, entriesFor(f.ledger(t, "BRG001"), "RCV-C"))
	_, err = f.eng.Document(context.Background(), entity.KindReceipt, "RCV-C")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assertConsistent(t, f, "BRG001")
}

// ──────────────────────────────────────────────────────────────────────────────
// Números de documento
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_NumeroDuplicado(t *testing.T) {
	ctx := context.Background()
	in := inventory.MovementInput{
		Kind:   entity.KindReceipt,
		Number: "RCV-DUP",
		Lines:  []inventory.LineInput{{ItemCode: "BRG001", Quantity: 1}},
	}

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t, inventory.Options{})
		f.addItem(t, "BRG001", 0, 0)
		_, err := f.eng.ApplyMovement(ctx, in)
		require.NoError(t, err)
		_, err = f.eng.ApplyMovement(ctx, in)
		require.ErrorIs(t, err, domain.ErrDuplicate)
		assert.Equal(t, int64(1), f.stock(t, "BRG001"))
	})

	t.Run("ignore", func(t *testing.T) {
		f := newFixture(t, inventory.Options{Duplicates: inventory.IgnoreDuplicates})
		f.addItem(t, "BRG001", 0, 0)
		_, err := f.eng.ApplyMovement(ctx, in)
		require.NoError(t, err)
		res, err := f.eng.ApplyMovement(ctx, in)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, "RCV-DUP", res.Document.Number)
		require.Len(t, res.Document.Lines, 1)
		assert.Equal(t, int64(1), f.stock(t, "BRG001"))
		assert.Len(t, f.ledger(t, "BRG001"), 1)
	})
}

func TestApplyMovement_NumeroGenerado(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 3, 0)

	res, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
		Kind:  entity.KindIssue,
		Date:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Document.Number, "ISS-20260309-"), res.Document.Number)
	assert.Len(t, res.Document.Number, len("ISS-20260309-")+8)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_EntradaInvalida(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 1, 0)
	neg := decimal.NewFromInt(-1)

	cases := map[string]inventory.MovementInput{
		"tipo desconocido": {Kind: "transfer", Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 1}}},
		"sin líneas":       {Kind: entity.KindReceipt},
		"código vacío":     {Kind: entity.KindReceipt, Lines: []inventory.LineInput{{ItemCode: "  ", Quantity: 1}}},
		"cantidad cero":    {Kind: entity.KindIssue, Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 0}}},
		"conteo negativo":  {Kind: entity.KindAdjustment, Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: -1}}},
		"precio negativo":  {Kind: entity.KindReceipt, Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 1, UnitPrice: &neg}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.eng.ApplyMovement(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, int64(1), f.stock(t, "BRG001"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones anidadas
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_DentroDeTransaccionFallaRapido(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 1, 0)

	runner := sqlrepo.NewTxRunner(f.db)
	err := runner.Run(context.Background(), func(ctx context.Context, _ inventory.Repos) error {
		_, err := f.eng.ApplyMovement(ctx, inventory.MovementInput{
			Kind:  entity.KindReceipt,
			Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 1}},
		})
		return err
	})
	require.ErrorIs(t, err, domain.ErrNestedTransaction)
	assert.Equal(t, int64(1), f.stock(t, "BRG001"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades: stock nunca negativo y kardex reproducible
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_SecuenciaAleatoriaMantieneInvariantes(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	codes := []string{"BRG001", "BRG002", "BRG003"}
	for _, c := range codes {
		f.addItem(t, c, 4, 0)
	}

	rng := rand.New(rand.NewSource(42))
	kinds := []entity.DocumentKind{entity.KindReceipt, entity.KindIssue, entity.KindAdjustment, entity.KindClaim}
	for i := 0; i < 60; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		qty := int64(rng.Intn(12) + 1)
		if kind == entity.KindAdjustment {
			qty = int64(rng.Intn(10))
		}
		code := codes[rng.Intn(len(codes))]
		_, err := f.eng.ApplyMovement(context.Background(), inventory.MovementInput{
			Kind:  kind,
			Lines: []inventory.LineInput{{ItemCode: code, Quantity: qty}},
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f.stock(t, code), int64(0))
	}

	reports, err := f.eng.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(codes))
	for _, rep := range reports {
		assert.True(t, rep.Consistent, "%+v", rep)
	}
}

func TestReplay_DetectaRuptura(t *testing.T) {
	entries := []entity.LedgerEntry{
		{ID: 1, QtyIn: 5, BalanceAfter: 5},
		{ID: 2, QtyOut: 2, BalanceAfter: 4},
		{ID: 3, QtyIn: 1, BalanceAfter: 5},
	}
	rep := inventory.Replay("BRG001", 5, entries)
	assert.False(t, rep.Consistent)
	assert.Equal(t, int64(2), rep.BrokenAt)
	assert.Equal(t, int64(4), rep.Replayed)

	empty := inventory.Replay("BRG002", 0, nil)
	assert.True(t, empty.Consistent)
	assert.False(t, inventory.Replay("BRG003", 3, nil).Consistent)
}

// ──────────────────────────────────────────────────────────────────────────────
// Durabilidad: el commit queda en el archivo
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_PersisteEnSnapshot(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 6, 0)

	ctx := context.Background()
	reopened, err := sqlite.Open(ctx, sqlite.Options{Path: f.path})
	require.NoError(t, err)
	defer reopened.Close(ctx, sqldb.CloseOptions{Save: false})

	item, err := sqlrepo.Bind(reopened).Items.Get(ctx, "BRG001")
	require.NoError(t, err)
	assert.Equal(t, int64(6), item.Stock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reposición
// ──────────────────────────────────────────────────────────────────────────────

func TestReorderList(t *testing.T) {
	f := newFixture(t, inventory.Options{})
	f.addItem(t, "BRG001", 2, 5)
	f.addItem(t, "BRG002", 10, 5)
	f.addItem(t, "BRG003", 0, 4)

	list, err := f.eng.ReorderList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "BRG003", list[0].ItemCode)
	assert.Equal(t, int64(4), list[0].Shortage)
	assert.Equal(t, int64(8), list[0].SuggestedQty)

	assert.Equal(t, "BRG001", list[1].ItemCode)
	assert.Equal(t, int64(3), list[1].Shortage)
	assert.Equal(t, int64(8), list[1].SuggestedQty)
	assert.True(t, decimal.NewFromInt(12000).Equal(list[1].EstimatedCost))
}
