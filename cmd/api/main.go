package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stoir-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/stoir-api/internal/interfaces/http"
	"github.com/jhoicas/stoir-api/pkg/config"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("provider", cfg.DB.Provider).
		Msg("iniciando aplicación")

	ctx := context.Background()
	m := metrics.New()
	app, err := bootstrap.Build(ctx, cfg, log, m)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}

	// Datos demo solo en el primer arranque (sin marcador stoir.no-seed y sin artículos).
	if cfg.App.SeedDemo {
		seeded, err := app.DBTools.SeedIfFirstRun(ctx)
		if err != nil {
			log.Error().Err(err).Msg("cargar datos demo")
		} else if seeded {
			log.Info().Msg("datos demo cargados")
		}
	}

	server := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    256 << 20,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	server.Use(recover.New())

	httpRouter.Router(server, httpRouter.RouterDeps{
		Engine:   app.Engine,
		DBTools:  app.DBTools,
		Metrics:  m,
		Log:      log,
		Provider: string(app.Backend.Provider()),
		AppName:  cfg.App.Name,
	})

	go func() {
		if err := server.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Último flush del archivo embebido (se omite tras restaurar o resetear).
	if err := app.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar almacenamiento")
	}

	log.Info().Msg("aplicación detenida")
}
