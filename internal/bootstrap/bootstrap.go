// Package bootstrap assemble les dépendances partagées par l'API et la CLI d'exploitation.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registre-pyro/registre-api/internal/application/admin"
	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/application/purge"
	"github.com/registre-pyro/registre-api/internal/domain/retention"
	"github.com/registre-pyro/registre-api/internal/infrastructure/metrics"
	"github.com/registre-pyro/registre-api/internal/infrastructure/pgdump"
	"github.com/registre-pyro/registre-api/internal/infrastructure/postgres"
	"github.com/registre-pyro/registre-api/internal/infrastructure/scheduler"
	"github.com/registre-pyro/registre-api/pkg/config"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// Container dépendances construites une fois au démarrage.
type Container struct {
	Pool      *pgxpool.Pool
	Users     *postgres.UserRepo
	Stores    *postgres.StoreRepo
	Sales     *postgres.SaleRepo
	Tx        *postgres.TxRunner
	Backups   *backup.Service
	Purges    *purge.Service
	Scheduler *scheduler.Scheduler
	Facade    *admin.Facade
	Jobs      *metrics.Jobs
	Location  *time.Location
}

// Build ouvre le pool, applique les migrations puis construit la façade d'administration.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connexion PostgreSQL: %w", err)
	}
	if err := postgres.Migrate(cfg.DB.MigrationURL(), log.Named("migrate")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	c := &Container{
		Pool:     pool,
		Users:    postgres.NewUserRepository(pool),
		Stores:   postgres.NewStoreRepository(pool),
		Sales:    postgres.NewSaleRepository(pool),
		Tx:       postgres.NewTxRunner(pool),
		Jobs:     metrics.NewJobs(nil),
		Location: loc,
	}

	dumper := pgdump.New(pgdump.Config{
		DumpBin:    cfg.Backup.DumpBin,
		RestoreBin: cfg.Backup.RestoreBin,
		MaxOutput:  cfg.Backup.MaxOutputBytes(),
	}, log)

	c.Backups = backup.NewService(
		backup.Config{Dir: cfg.Backup.Dir, MaxCount: cfg.Backup.MaxCount, SingleFlight: cfg.Backup.SingleFlight},
		Connection(cfg.DB),
		dumper,
		c.Users, c.Stores, c.Sales,
		log.Named("backup"),
		c.Jobs,
	)
	c.Purges = purge.NewService(c.Sales, retention.NewPolicy(cfg.Purge.RetentionMonths), loc, log.Named("purge"), c.Jobs)
	c.Scheduler = scheduler.New(loc, log)
	c.Facade = admin.NewFacade(admin.Config{
		BackupCron:   cfg.Backup.Cron,
		PurgeCron:    cfg.Purge.Cron,
		InitialDelay: cfg.Backup.InitialDelay,
	}, c.Backups, c.Purges, c.Scheduler, log)
	return c, nil
}

// Connection paramètres de connexion transmis à pg_dump / psql.
func Connection(db config.DBConfig) backup.Connection {
	return backup.Connection{
		URL:      db.DatabaseURL,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.DBName,
		User:     db.User,
		Password: db.Password,
		SSLMode:  db.SSLMode,
	}
}

// Close arrête le planificateur puis ferme le pool.
func (c *Container) Close(ctx context.Context) error {
	err := c.Facade.Stop(ctx)
	c.Pool.Close()
	return err
}
