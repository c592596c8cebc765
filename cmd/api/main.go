package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/registre-pyro/registre-api/internal/application/auth"
	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/internal/bootstrap"
	infrapdf "github.com/registre-pyro/registre-api/internal/infrastructure/pdf"
	httpRouter "github.com/registre-pyro/registre-api/internal/interfaces/http"
	"github.com/registre-pyro/registre-api/pkg/config"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("charger la configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("démarrage de l'application")

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialisation")
	}

	if cfg.Scheduler.Enabled {
		if err := deps.Facade.StartBackupScheduler(); err != nil {
			log.Fatal().Err(err).Msg("planification des sauvegardes")
		}
		if err := deps.Facade.StartPurgeScheduler(); err != nil {
			log.Fatal().Err(err).Msg("planification de la purge")
		}
		for _, j := range deps.Facade.SchedulerStatus().Jobs {
			log.Info().Str("job", j.Name).Str("spec", j.Spec).Time("next", j.Next).Msg("tâche planifiée")
		}
	} else {
		log.Warn().Msg("planificateur désactivé (SCHEDULER_ENABLED=false)")
	}

	saleUC := sales.NewUseCase(deps.Tx, deps.Sales, deps.Stores, deps.Location, log.Named("sales"))
	authUC := auth.NewAuthUseCase(deps.Users, deps.Stores, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    12 * 1024 * 1024, // trois photos de pièce d'identité
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(recover.New())

	// Swagger UI : http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Registre API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		SaleUC:    saleUC,
		PDF:       infrapdf.NewRegisterGenerator(deps.Location),
		Admin:     deps.Facade,
		JWTSecret: cfg.JWT.Secret,
		Location:  deps.Location,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("serveur HTTP arrêté")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("signal d'arrêt reçu, fermeture du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du serveur")
	}
	if err := deps.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arrêt du planificateur")
	}

	log.Info().Msg("application arrêtée")
}
