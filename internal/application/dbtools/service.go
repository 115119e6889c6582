// Package dbtools operaciones de administración de la base: información, respaldo,
// restauración, reset y datos demo.
package dbtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/jhoicas/stoir-api/internal/application/dto"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/infrastructure/schema"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/stoir-api/pkg/logger"
)

// Embedded operaciones propias del motor embebido (las implementa *sqlite.DB).
type Embedded interface {
	Path() string
	Save(ctx context.Context) error
	Export(ctx context.Context) ([]byte, error)
	RestoreSQL(ctx context.Context, script string) error
	SuppressSaveOnClose()
}

// RestoreHint metadatos opcionales del archivo subido.
type RestoreHint struct {
	Filename    string
	ContentType string
}

// Service orquesta las operaciones; embedded es nil con PostgreSQL.
type Service struct {
	db       sqldb.DB
	embedded Embedded
	engine   *inventory.LedgerEngine
	txRunner inventory.TxRunner
	reads    inventory.Repos
	log      *logger.Logger
	now      func() time.Time
}

// NewService construye el servicio.
func NewService(
	db sqldb.DB,
	embedded Embedded,
	engine *inventory.LedgerEngine,
	txRunner inventory.TxRunner,
	reads inventory.Repos,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		db:       db,
		embedded: embedded,
		engine:   engine,
		txRunner: txRunner,
		reads:    reads,
		log:      log.Component("dbtools"),
		now:      time.Now,
	}
}

func (s *Service) provider() string { return string(s.db.Provider()) }

// filePath ruta del archivo embebido; ErrUnsupported si no hay archivo (PostgreSQL o solo memoria).
func (s *Service) filePath() (string, error) {
	if s.embedded == nil || s.embedded.Path() == "" {
		return "", fmt.Errorf("%s: %w", s.provider(), domain.ErrUnsupported)
	}
	return s.embedded.Path(), nil
}

// Info estado del almacenamiento.
func (s *Service) Info(ctx context.Context) (dto.DBInfo, error) {
	info := dto.DBInfo{Provider: s.provider()}
	path, err := s.filePath()
	if err != nil {
		return info, nil
	}
	info.Supported = true
	info.Path = path
	info.RequiresRestartAfterRestore = true
	info.NoSeedMarker = sqlite.HasNoSeedMarker(path)
	st, err := os.Stat(path)
	switch {
	case err == nil:
		info.Exists = true
		info.Size = st.Size()
	case !errors.Is(err, os.ErrNotExist):
		return info, fmt.Errorf("stat %s: %w", path, err)
	}
	return info, nil
}

// Backup hace flush y devuelve la imagen actual con un nombre de descarga.
func (s *Service) Backup(ctx context.Context) ([]byte, string, error) {
	if s.embedded == nil {
		return nil, "", fmt.Errorf("respaldo en %s: %w", s.provider(), domain.ErrUnsupported)
	}
	if err := s.embedded.Save(ctx); err != nil {
		return nil, "", err
	}
	image, err := s.embedded.Export(ctx)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("stoir-backup-%s.sqlite", sqlite.FileTimestamp(s.now()))
	s.log.Info().Int("bytes", len(image)).Str("file", name).Msg("respaldo generado")
	return image, name, nil
}

// Restore acepta una imagen SQLite (reemplaza el archivo; requiere reinicio) o un script
// SQL (se aplica sobre la base viva).
func (s *Service) Restore(ctx context.Context, payload []byte, hint RestoreHint) (dto.AdminResult, error) {
	res := dto.AdminResult{Provider: s.provider()}
	path, err := s.filePath()
	if err != nil {
		return res, err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return res, fmt.Errorf("%w: archivo vacío", domain.ErrInvalidSnapshot)
	}

	if sqlite.LooksLikeSQLite(payload) {
		return s.restoreImage(path, payload)
	}
	if looksLikeSQL(payload, hint) {
		if err := s.embedded.RestoreSQL(ctx, string(payload)); err != nil {
			return res, err
		}
		marker, err := sqlite.TouchNoSeedMarker(path)
		if err != nil {
			return res, fmt.Errorf("touch no-seed marker: %w", err)
		}
		res.OK = true
		res.NoSeedMarkerPath = marker
		res.Message = "Restauración SQL completada. La base ya está activa sin reiniciar."
		return res, nil
	}
	return res, fmt.Errorf("%w: no es un archivo SQLite ni un script SQL", domain.ErrInvalidSnapshot)
}

func looksLikeSQL(payload []byte, hint RestoreHint) bool {
	name := strings.ToLower(hint.Filename)
	ct := strings.ToLower(hint.ContentType)
	return strings.HasSuffix(name, ".sql") ||
		strings.Contains(ct, "sql") ||
		strings.HasPrefix(ct, "text/") ||
		sqlite.LooksLikeSQLText(string(payload))
}

// restoreImage copia el archivo actual a .bak, escribe la imagen en .restore-tmp, mueve el
// actual a .old y pone la nueva en su lugar. El cierre no vuelve a escribir la base vieja.
func (s *Service) restoreImage(path string, image []byte) (dto.AdminResult, error) {
	res := dto.AdminResult{Provider: s.provider()}
	ts := sqlite.FileTimestamp(s.now())

	s.embedded.SuppressSaveOnClose()

	backup := sqlite.BackupPath(path, ts)
	if err := sqlite.CopyFile(path, backup); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("no se pudo crear respaldo automático")
		backup = ""
	}

	tmp := sqlite.RestoreTmpPath(path, ts)
	if err := os.WriteFile(tmp, image, 0o644); err != nil {
		return res, fmt.Errorf("write restore file: %w", err)
	}
	old := sqlite.OldPath(path, ts)
	if _, err := sqlite.RenameIfExists(path, old); err != nil {
		return res, multierr.Append(fmt.Errorf("rotate current file: %w", err), removeIfExists(tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return res, multierr.Append(fmt.Errorf("install restored file: %w", err), removeIfExists(tmp))
	}

	marker, err := sqlite.TouchNoSeedMarker(path)
	if err != nil {
		return res, fmt.Errorf("touch no-seed marker: %w", err)
	}
	s.log.Info().Str("backup", backup).Str("old", old).Msg("imagen restaurada, se requiere reinicio")

	res.OK = true
	res.BackupPath = backup
	res.MovedTo = old
	res.NoSeedMarkerPath = marker
	res.RequiresRestart = true
	res.Message = "Restauración completada. Reinicie la aplicación para cargar la base nueva."
	return res, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Reset embebido: rota el archivo a .deleted y requiere reinicio.
// PostgreSQL: TRUNCATE de todas las tablas respetando dependencias.
func (s *Service) Reset(ctx context.Context) (dto.AdminResult, error) {
	res := dto.AdminResult{Provider: s.provider()}

	if s.db.Provider() == sqldb.Postgres {
		for _, table := range schema.ResetOrder {
			if err := s.db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
				s.log.Warn().Err(err).Str("table", table).Msg("truncate falló")
			}
		}
		res.OK = true
		res.Message = "Base PostgreSQL reiniciada. Se eliminaron todos los datos."
		return res, nil
	}

	path, err := s.filePath()
	if err != nil {
		return res, err
	}
	if err := s.embedded.Save(ctx); err != nil {
		s.log.Warn().Err(err).Msg("flush previo al reset falló")
	}
	ts := sqlite.FileTimestamp(s.now())
	marker, err := sqlite.TouchNoSeedMarker(path)
	if err != nil {
		return res, fmt.Errorf("touch no-seed marker: %w", err)
	}
	s.embedded.SuppressSaveOnClose()

	deleted := sqlite.DeletedPath(path, ts)
	moved, err := sqlite.RenameIfExists(path, deleted)
	if err != nil {
		return res, fmt.Errorf("rotate database file: %w", err)
	}
	if moved {
		res.MovedTo = deleted
	}
	s.log.Info().Str("moved_to", res.MovedTo).Msg("base embebida reiniciada, se requiere reinicio")

	res.OK = true
	res.NoSeedMarkerPath = marker
	res.RequiresRestart = true
	res.Message = "Base reiniciada. Reinicie la aplicación para empezar con una base vacía."
	return res, nil
}

// Seed inserta los datos demo ignorando códigos existentes. El stock inicial de los artículos
// nuevos se registra como una recepción de apertura para que el kardex lo refleje.
func (s *Service) Seed(ctx context.Context) (dto.AdminResult, error) {
	res := dto.AdminResult{Provider: s.provider()}
	data, err := LoadSeedData()
	if err != nil {
		return res, err
	}

	counts := map[string]int64{}
	var opening []inventory.LineInput
	err = s.txRunner.Run(ctx, func(ctx context.Context, r inventory.Repos) error {
		count := func(key string, created bool, err error) error {
			if err != nil {
				return err
			}
			if created {
				counts[key]++
			}
			return nil
		}
		for _, a := range data.Areas {
			created, err := r.MasterData.InsertArea(ctx, a)
			if err := count("areas", created, err); err != nil {
				return err
			}
		}
		for _, c := range data.Categories {
			created, err := r.MasterData.InsertCategory(ctx, c)
			if err := count("categories", created, err); err != nil {
				return err
			}
		}
		for _, sp := range data.Suppliers {
			created, err := r.MasterData.InsertSupplier(ctx, sp)
			if err := count("suppliers", created, err); err != nil {
				return err
			}
		}
		for _, c := range data.Customers {
			created, err := r.MasterData.InsertCustomer(ctx, c)
			if err := count("customers", created, err); err != nil {
				return err
			}
		}
		for _, it := range data.Items {
			created, err := r.Items.InsertIfAbsent(ctx, it.entity())
			if err := count("items", created, err); err != nil {
				return err
			}
			if created && it.Stock > 0 {
				opening = append(opening, inventory.LineInput{
					ItemCode:  it.Code,
					Quantity:  it.Stock,
					UnitPrice: it.entity().PurchasePrice,
				})
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("seed master data: %w", err)
	}

	if len(opening) > 0 {
		number := "SEED-OPENING-" + sqlite.FileTimestamp(s.now())
		if _, err := s.engine.ApplyMovement(ctx, inventory.MovementInput{
			Kind:      entity.KindReceipt,
			Number:    number,
			Note:      "Stock inicial (datos demo)",
			CreatedBy: "seed",
			Lines:     opening,
		}); err != nil {
			return res, fmt.Errorf("seed opening stock: %w", err)
		}
		counts["opening_lines"] = int64(len(opening))
	}

	s.log.Info().Interface("counts", counts).Msg("datos demo sembrados")
	res.OK = true
	res.Counts = counts
	res.Message = "Datos demo cargados."
	return res, nil
}

// SeedIfFirstRun siembra solo si no existe el marcador stoir.no-seed y no hay artículos.
func (s *Service) SeedIfFirstRun(ctx context.Context) (bool, error) {
	if s.embedded != nil && s.embedded.Path() != "" && sqlite.HasNoSeedMarker(s.embedded.Path()) {
		s.log.Debug().Msg("marcador no-seed presente, siembra omitida")
		return false, nil
	}
	n, err := s.reads.Items.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Seed(ctx); err != nil {
		return false, err
	}
	return true, nil
}
