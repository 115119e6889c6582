package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/storage"
	"github.com/jhoicas/stoir-api/pkg/config"
)

func TestOpen_SQLiteAprovisionaEsquema(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{Provider: config.ProviderSQLite, DataDir: t.TempDir()}

	b, err := storage.Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, sqldb.SQLite, b.Provider())
	require.NotNil(t, b.Embedded)
	assert.True(t, b.Schema.Created)
	assert.Equal(t, cfg.SQLitePath(), b.Embedded.Path())
	require.NoError(t, b.Close(ctx))
	assert.FileExists(t, cfg.SQLitePath())

	// Segunda apertura: el esquema ya existe.
	again, err := storage.Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer again.Close(ctx)
	assert.False(t, again.Schema.Created)
}

func TestOpen_ProveedorDesconocido(t *testing.T) {
	_, err := storage.Open(context.Background(), config.DBConfig{Provider: "oracle"}, nil, nil)
	assert.ErrorContains(t, err, "oracle")
}
