package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"github.com/jhoicas/stoir-api/internal/domain"
)

// sqliteHeader cabecera de 16 bytes de todo archivo SQLite 3.
var sqliteHeader = []byte("SQLite format 3\x00")

// LooksLikeSQLite valida la cabecera mágica.
func LooksLikeSQLite(b []byte) bool {
	return len(b) >= len(sqliteHeader) && bytes.Equal(b[:len(sqliteHeader)], sqliteHeader)
}

// LooksLikeSQLText heurística para volcados .sql.
func LooksLikeSQLText(text string) bool {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return false
	}
	return strings.Contains(s, "CREATE TABLE") ||
		strings.Contains(s, "INSERT INTO") ||
		strings.Contains(s, "BEGIN TRANSACTION") ||
		strings.Contains(s, "COMMIT") ||
		strings.HasPrefix(s, "PRAGMA ")
}

// Export devuelve la imagen completa actual de la base.
func (d *DB) Export(ctx context.Context) ([]byte, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	return d.serialize(ctx)
}

// RestoreSQL borra todos los objetos del esquema y ejecuta el script sobre la base viva.
// Se ejecuta fuera de una transacción explícita: el script puede traer su propio BEGIN/COMMIT.
func (d *DB) RestoreSQL(ctx context.Context, script string) error {
	script = strings.TrimSpace(script)
	if script == "" {
		return fmt.Errorf("%w: script vacío", domain.ErrInvalidSnapshot)
	}
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	if _, err := d.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	objects, err := queryAll(ctx, d.db,
		`SELECT type, name FROM sqlite_master
		 WHERE name NOT LIKE 'sqlite_%' AND type IN ('table','index','trigger','view')`, nil)
	if err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}

	order := map[string]int{"trigger": 1, "view": 2, "index": 3, "table": 4}
	sort.SliceStable(objects, func(i, j int) bool {
		return order[objects[i].String("type")] < order[objects[j].String("type")]
	})
	for _, obj := range objects {
		kind := strings.ToUpper(obj.String("type"))
		stmt := fmt.Sprintf("DROP %s IF EXISTS %s", kind, quoteIdent(obj.String("name")))
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop %s: %w", obj.String("name"), err)
		}
	}

	if _, err := d.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	d.log.Info().Int("dropped", len(objects)).Msg("restauración SQL aplicada")
	return d.saveLocked(ctx)
}

// load copia el archivo del snapshot a la base en memoria con la API de backup en línea.
// La copia queda como una base en memoria normal, sin tope de tamaño.
func (d *DB) load(ctx context.Context, image []byte) (err error) {
	if !LooksLikeSQLite(image) {
		return fmt.Errorf("%w: cabecera SQLite ausente en %s", domain.ErrInvalidSnapshot, d.path)
	}

	src, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(d.path)+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	srcConn, err := src.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	defer srcConn.Close()

	dstConn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer dstConn.Close()

	err = dstConn.Raw(func(dstDriver any) error {
		dst, ok := dstDriver.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dstDriver)
		}
		return srcConn.Raw(func(srcDriver any) error {
			from, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", srcDriver)
			}
			return copyDatabase(dst, from)
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	if _, err := dstConn.ExecContext(ctx, "SELECT count(*) FROM sqlite_master"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return nil
}

func copyDatabase(dst, src *sqlite3.SQLiteConn) error {
	backup, err := dst.Backup("main", src, "main")
	if err != nil {
		return fmt.Errorf("start backup: %w", err)
	}
	if _, err := backup.Step(-1); err != nil {
		return multierr.Append(fmt.Errorf("copy pages: %w", err), backup.Finish())
	}
	return backup.Finish()
}

func (d *DB) serialize(ctx context.Context) ([]byte, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var image []byte
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		b, err := c.Serialize("main")
		image = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("serialize database: %w", err)
	}
	return image, nil
}

// saveLocked escribe el snapshot (temporal + rename). Requiere mu tomado.
func (d *DB) saveLocked(ctx context.Context) error {
	if d.path == "" {
		return nil
	}
	start := time.Now()
	err := d.writeSnapshot(ctx)
	d.metrics.SnapshotSaved(time.Since(start), err)
	if err != nil {
		d.log.Error().Err(err).Str("path", d.path).Msg("fallo al guardar snapshot")
		return fmt.Errorf("save snapshot: %w: %w", domain.ErrDurability, err)
	}
	d.log.Debug().Str("path", d.path).Dur("took", time.Since(start)).Msg("snapshot guardado")
	return nil
}

func (d *DB) writeSnapshot(ctx context.Context) error {
	image, err := d.serialize(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return err
	}
	tmp := d.path + ".tmp"
	if err := writeSynced(tmp, image); err != nil {
		return err
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(d.path))
}

// writeSynced escribe el archivo y hace fsync antes de cerrarlo.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err := f.Sync(); err != nil {
		return multierr.Append(err, f.Close())
	}
	return f.Close()
}

// syncDir persiste la entrada del rename. En sistemas sin fsync de directorios se ignora.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) && !errors.Is(err, syscall.EINVAL) {
		return err
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
