package dbtools_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stoir-api/internal/application/dbtools"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/infrastructure/schema"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlrepo"
)

type fixture struct {
	svc  *dbtools.Service
	eng  *inventory.LedgerEngine
	db   *sqlite.DB
	path string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stoir.sqlite")

	db, err := sqlite.Open(ctx, sqlite.Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx, sqldb.CloseOptions{Save: false}) })
	_, err = schema.Ensure(ctx, db, nil)
	require.NoError(t, err)

	runner := sqlrepo.NewTxRunner(db)
	reads := sqlrepo.Bind(db)
	eng := inventory.NewLedgerEngine(runner, reads, inventory.Options{})
	svc := dbtools.NewService(db, db, eng, runner, reads, nil)
	return &fixture{svc: svc, eng: eng, db: db, path: path}
}

func (f *fixture) stock(t *testing.T, code string) int64 {
	t.Helper()
	item, err := f.eng.Item(context.Background(), code)
	require.NoError(t, err)
	return item.Stock
}

// ──────────────────────────────────────────────────────────────────────────────
// Datos demo
// ──────────────────────────────────────────────────────────────────────────────

func TestSeed_CargaDatosYKardexDeApertura(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, map[string]int64{
		"areas": 10, "categories": 10, "suppliers": 5, "customers": 5, "items": 15, "opening_lines": 15,
	}, res.Counts)

	assert.Equal(t, int64(100), f.stock(t, "BRG001"))
	assert.Equal(t, int64(12), f.stock(t, "BRG015"))

	reports, err := f.eng.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 15)
	for _, rep := range reports {
		assert.True(t, rep.Consistent, "%+v", rep)
		assert.Equal(t, 1, rep.Entries)
	}

	again, err := f.svc.Seed(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Counts)
	assert.Equal(t, int64(100), f.stock(t, "BRG001"))
}

func TestSeedIfFirstRun(t *testing.T) {
	ctx := context.Background()

	t.Run("base vacía", func(t *testing.T) {
		f := newFixture(t)
		seeded, err := f.svc.SeedIfFirstRun(ctx)
		require.NoError(t, err)
		assert.True(t, seeded)

		seeded, err = f.svc.SeedIfFirstRun(ctx)
		require.NoError(t, err)
		assert.False(t, seeded)
	})

	t.Run("marcador no-seed", func(t *testing.T) {
		f := newFixture(t)
		_, err := sqlite.TouchNoSeedMarker(f.path)
		require.NoError(t, err)

		seeded, err := f.svc.SeedIfFirstRun(ctx)
		require.NoError(t, err)
		assert.False(t, seeded)
	})
}

func TestLoadSeedData(t *testing.T) {
	data, err := dbtools.LoadSeedData()
	require.NoError(t, err)
	require.Len(t, data.Customers, 5)
	assert.Equal(t, "AREA001", data.Customers[0].AreaCode)
	assert.Equal(t, "Pak Budi", data.Customers[0].ContactPerson)
	assert.Equal(t, "Bearing & Filter", data.Categories[0].Name)
}

// ──────────────────────────────────────────────────────────────────────────────
// Respaldo y restauración
// ──────────────────────────────────────────────────────────────────────────────

func TestBackup_DevuelveImagenSQLite(t *testing.T) {
	f := newFixture(t)

	image, name, err := f.svc.Backup(context.Background())
	require.NoError(t, err)
	assert.True(t, sqlite.LooksLikeSQLite(image))
	assert.True(t, strings.HasPrefix(name, "stoir-backup-"), name)
	assert.True(t, strings.HasSuffix(name, ".sqlite"), name)
}

func TestRestore_ImagenRotaArchivosYRequiereReinicio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Seed(ctx)
	require.NoError(t, err)

	image, _, err := f.svc.Backup(ctx)
	require.NoError(t, err)

	_, err = f.eng.ApplyMovement(ctx, inventory.MovementInput{
		Kind:  entity.KindIssue,
		Lines: []inventory.LineInput{{ItemCode: "BRG001", Quantity: 40}},
	})
	require.NoError(t, err)

	res, err := f.svc.Restore(ctx, image, dbtools.RestoreHint{Filename: "backup.sqlite"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.RequiresRestart)
	assert.FileExists(t, res.BackupPath)
	assert.FileExists(t, res.MovedTo)
	assert.FileExists(t, res.NoSeedMarkerPath)
	assert.True(t, strings.Contains(res.MovedTo, ".old-"), res.MovedTo)

	// el cierre no debe sobrescribir la imagen restaurada
	require.NoError(t, f.db.Close(ctx, sqldb.CloseOptions{Save: true}))
	onDisk, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(image, onDisk))

	reopened, err := sqlite.Open(ctx, sqlite.Options{Path: f.path})
	require.NoError(t, err)
	defer reopened.Close(ctx, sqldb.CloseOptions{Save: false})
	item, err := sqlrepo.Bind(reopened).Items.Get(ctx, "BRG001")
	require.NoError(t, err)
	assert.Equal(t, int64(100), item.Stock)
}

func TestRestore_ScriptSQLSeAplicaEnVivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	script := "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);\nINSERT INTO notes (body) VALUES ('restaurado');"
	res, err := f.svc.Restore(ctx, []byte(script), dbtools.RestoreHint{})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.RequiresRestart)
	assert.FileExists(t, res.NoSeedMarkerPath)

	row, err := f.db.Get(ctx, "SELECT body FROM notes")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "restaurado", row.String("body"))

	exists, err := schema.Exists(ctx, f.db, sqldb.SQLite)
	require.NoError(t, err)
	assert.False(t, exists, "las tablas previas deben eliminarse")
}

func TestRestore_ContenidoInvalido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Restore(ctx, []byte("esto no es una base"), dbtools.RestoreHint{ContentType: "application/octet-stream"})
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)

	_, err = f.svc.Restore(ctx, nil, dbtools.RestoreHint{})
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reset e información
// ──────────────────────────────────────────────────────────────────────────────

func TestReset_EmbebidoRotaArchivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Reset(ctx)
	require.NoError(t, err)
	assert.True(t, res.RequiresRestart)
	assert.FileExists(t, res.MovedTo)
	assert.FileExists(t, res.NoSeedMarkerPath)
	assert.NoFileExists(t, f.path)

	require.NoError(t, f.db.Close(ctx, sqldb.CloseOptions{Save: true}))
	assert.NoFileExists(t, f.path, "el cierre no debe recrear la base rotada")
}

func TestInfo_Embebido(t *testing.T) {
	f := newFixture(t)

	info, err := f.svc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", info.Provider)
	assert.True(t, info.Supported)
	assert.True(t, info.Exists)
	assert.Positive(t, info.Size)
	assert.Equal(t, f.path, info.Path)
	assert.False(t, info.NoSeedMarker)
}

// pgStub simula el proveedor relacional registrando las sentencias Exec.
type pgStub struct {
	sqldb.DB
	execs []string
}

func (p *pgStub) Provider() sqldb.Provider { return sqldb.Postgres }

func (p *pgStub) Exec(_ context.Context, stmt string) error {
	p.execs = append(p.execs, stmt)
	return nil
}

func TestOperacionesEnPostgres(t *testing.T) {
	stub := &pgStub{}
	svc := dbtools.NewService(stub, nil, nil, nil, inventory.Repos{}, nil)
	ctx := context.Background()

	_, _, err := svc.Backup(ctx)
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = svc.Restore(ctx, []byte("CREATE TABLE x (id INT);"), dbtools.RestoreHint{})
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.False(t, info.Supported)
	assert.Equal(t, "postgres", info.Provider)

	res, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.False(t, res.RequiresRestart)
	require.Len(t, stub.execs, len(schema.ResetOrder))
	assert.Equal(t, "TRUNCATE TABLE stock_count_lines CASCADE", stub.execs[0])
	assert.Equal(t, "TRUNCATE TABLE areas CASCADE", stub.execs[len(stub.execs)-1])
}
