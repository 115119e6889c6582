package dto

import "github.com/jhoicas/stoir-api/internal/application/inventory"

// AdminResult respuesta común de las operaciones de administración de la base.
type AdminResult struct {
	OK               bool             `json:"ok"`
	Provider         string           `json:"provider"`
	Message          string           `json:"message,omitempty"`
	BackupPath       string           `json:"backupPath,omitempty"`
	MovedTo          string           `json:"movedTo,omitempty"`
	NoSeedMarkerPath string           `json:"noSeedMarkerPath,omitempty"`
	RequiresRestart  bool             `json:"requiresRestart"`
	Counts           map[string]int64 `json:"counts,omitempty"`
}

// DBInfo respuesta de GET /api/admin/db/info.
type DBInfo struct {
	Provider                    string `json:"provider"`
	Supported                   bool   `json:"supported"`
	Path                        string `json:"dbPath,omitempty"`
	Exists                      bool   `json:"exists"`
	Size                        int64  `json:"size"`
	NoSeedMarker                bool   `json:"noSeedMarker"`
	RequiresRestartAfterRestore bool   `json:"requiresRestartAfterRestore"`
}

// VerifySummary resultado de la verificación de todo el kardex.
type VerifySummary struct {
	Items        int                     `json:"items"`
	Inconsistent []inventory.ReplayReport `json:"inconsistent"`
	OK           bool                    `json:"ok"`
}

// NewVerifySummary resume los reportes dejando solo los inconsistentes.
func NewVerifySummary(reports []inventory.ReplayReport) VerifySummary {
	out := VerifySummary{Items: len(reports), Inconsistent: make([]inventory.ReplayReport, 0)}
	for _, rep := range reports {
		if !rep.Consistent {
			out.Inconsistent = append(out.Inconsistent, rep)
		}
	}
	out.OK = len(out.Inconsistent) == 0
	return out
}
