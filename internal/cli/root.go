// Package cli comandos de administración de stoirctl.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhoicas/stoir-api/internal/bootstrap"
	"github.com/jhoicas/stoir-api/pkg/config"
	"github.com/jhoicas/stoir-api/pkg/logger"
)

// RootOptions flags globales. Las vacías caen a la configuración de entorno.
type RootOptions struct {
	Provider    string
	DataDir     string
	DatabaseURL string
	LogLevel    string

	viper *viper.Viper
}

// NewRootCommand construye el comando raíz con todos los subcomandos.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stoirctl",
		Short: "Administración de la base de inventario",
		Long: `stoirctl opera sobre la misma base que la API: información, respaldo,
restauración, reset, datos demo, verificación del kardex y migraciones.

La configuración sale del entorno (DB_PROVIDER, DATA_DIR, DATABASE_URL, ...);
los flags globales tienen prioridad.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Provider, "provider", "", "motor de base de datos (sqlite|postgres)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "directorio del archivo SQLite")
	flags.StringVar(&opts.DatabaseURL, "database-url", "", "connection string de PostgreSQL")
	flags.StringVar(&opts.LogLevel, "log-level", "", "nivel de log (trace|debug|info|warn|error)")

	opts.viper = config.NewViper()
	for key, name := range map[string]string{
		"DB_PROVIDER":  "provider",
		"DATA_DIR":     "data-dir",
		"DATABASE_URL": "database-url",
		"LOG_LEVEL":    "log-level",
	} {
		_ = opts.viper.BindPFlag(key, flags.Lookup(name))
	}

	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// Execute corre la CLI y devuelve el código de salida.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// open carga la configuración y abre el almacenamiento. Los logs van a stderr para
// no mezclarse con la salida JSON.
func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*bootstrap.App, *logger.Logger, error) {
	cfg, err := config.FromViper(o.viper)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "configuración inválida", err)
	}
	log := logger.New(logger.Config{
		Env:    cfg.App.Env,
		Level:  cfg.App.LogLevel,
		Output: cmd.ErrOrStderr(),
	})
	app, err := bootstrap.Build(ctx, cfg, log, nil)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "abrir base de datos", err)
	}
	return app, log, nil
}

// withApp abre la base, ejecuta fn y cierra con flush final.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, log, err := o.open(ctx, cmd)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(ctx); err != nil {
		log.Error().Err(err).Msg("cerrar base de datos")
		if runErr == nil {
			runErr = WrapExitError(ExitCommandError, "cerrar base de datos", err)
		}
	}
	return runErr
}
