package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stoir-api/internal/application/dbtools"
	"github.com/jhoicas/stoir-api/internal/application/dto"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/bootstrap"
)

// NewInfoCommand muestra proveedor, ruta y tamaño de la base.
func NewInfoCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Información de la base activa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				info, err := app.DBTools.Info(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
}

// NewBackupCommand escribe la imagen de la base embebida en un archivo.
func NewBackupCommand(root *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Respaldar la base SQLite",
		Long: `Guarda la base embebida y escribe su imagen completa.
Sin -o el archivo se llama stoir-backup-<timestamp>.sqlite en el directorio actual.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				image, name, err := app.DBTools.Backup(ctx)
				if err != nil {
					return err
				}
				target := output
				if target == "" {
					target = name
				}
				if err := os.WriteFile(target, image, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "escribir respaldo", err)
				}
				return printJSON(cmd.OutOrStdout(), dto.AdminResult{
					OK:         true,
					Provider:   string(app.Backend.Provider()),
					BackupPath: target,
					Message:    fmt.Sprintf("%d bytes", len(image)),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo destino")
	return cmd
}

// NewRestoreCommand restaura una imagen SQLite o un script SQL.
func NewRestoreCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Restaurar desde un respaldo .sqlite o un script .sql",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "leer archivo", err)
			}
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.DBTools.Restore(ctx, payload, dbtools.RestoreHint{Filename: filepath.Base(args[0])})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

// NewResetCommand deja la base vacía.
func NewResetCommand(root *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reiniciar la base (requiere --yes)",
		Long: `SQLite: rota el archivo a .deleted-<timestamp> y crea el marcador no-seed;
el próximo arranque crea una base vacía. PostgreSQL: vacía todas las tablas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "reset borra todos los datos: confirma con --yes")
			}
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.DBTools.Reset(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirmar el reset")
	return cmd
}

// NewSeedCommand carga los datos demo.
func NewSeedCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Cargar datos demo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.DBTools.Seed(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

// NewVerifyCommand reproduce el kardex y lo compara con el stock.
func NewVerifyCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [CODE]",
		Short: "Verificar el kardex de un artículo o de todos",
		Long: `Reproduce el kardex desde 0 y lo compara con el stock actual.

Códigos de salida:
  0 - kardex consistente
  1 - al menos un artículo inconsistente
  2 - error del comando`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				var reports []inventory.ReplayReport
				if len(args) == 1 {
					rep, err := app.Engine.Verify(ctx, args[0])
					if err != nil {
						return err
					}
					reports = append(reports, rep)
				} else {
					all, err := app.Engine.VerifyAll(ctx)
					if err != nil {
						return err
					}
					reports = all
				}

				summary := dto.NewVerifySummary(reports)
				if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				if !summary.OK {
					return NewExitError(ExitFailure, fmt.Sprintf("%d artículo(s) con kardex inconsistente", len(summary.Inconsistent)))
				}
				return nil
			})
		},
	}
}

// NewMigrateCommand aprovisiona el esquema y aplica las migraciones pendientes.
func NewMigrateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crear esquema y aplicar migraciones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(_ context.Context, app *bootstrap.App) error {
				applied := app.Backend.Schema.Migrations
				if applied == nil {
					applied = []int64{}
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"provider":       app.Backend.Provider(),
					"schema_created": app.Backend.Schema.Created,
					"migrations":     applied,
				})
			})
		},
	}
}
