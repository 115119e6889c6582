package sqlite

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NoSeedMarker nombre del archivo que desactiva la siembra demo.
const NoSeedMarker = "stoir.no-seed"

// FileTimestamp formato seguro para nombres de archivo (UTC, sin ":" ni ".").
func FileTimestamp(t time.Time) string {
	return strings.Replace(t.UTC().Format("2006-01-02_15-04-05.000"), ".", "-", 1)
}

// Rutas hermanas generadas por respaldo, restauración y reset.
func BackupPath(path, ts string) string     { return fmt.Sprintf("%s.bak-%s", path, ts) }
func OldPath(path, ts string) string        { return fmt.Sprintf("%s.old-%s", path, ts) }
func DeletedPath(path, ts string) string    { return fmt.Sprintf("%s.deleted-%s", path, ts) }
func RestoreTmpPath(path, ts string) string { return fmt.Sprintf("%s.restore-tmp-%s", path, ts) }

// NoSeedMarkerPath ruta del marcador junto al archivo de base.
func NoSeedMarkerPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), NoSeedMarker)
}

// HasNoSeedMarker indica si la siembra demo está desactivada.
func HasNoSeedMarker(dbPath string) bool {
	_, err := os.Stat(NoSeedMarkerPath(dbPath))
	return err == nil
}

// TouchNoSeedMarker crea el marcador y devuelve su ruta.
func TouchNoSeedMarker(dbPath string) (string, error) {
	p := NoSeedMarkerPath(dbPath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, []byte("1"), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// CopyFile copia src a dst. Devuelve os.ErrNotExist si src no existe.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RenameIfExists mueve src a dst si existe; moved=false si no había archivo.
func RenameIfExists(src, dst string) (moved bool, err error) {
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
