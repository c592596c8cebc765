// Package admin est le point d'entrée unique des opérations de maintenance
// (sauvegarde, restauration, purge, planification) pour la couche HTTP et la CLI.
// Aucune opération ne propage d'erreur d'exécution : le résultat est porté par le rapport.
package admin

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/application/purge"
	"github.com/registre-pyro/registre-api/internal/infrastructure/scheduler"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// Noms des tâches planifiées.
const (
	JobBackup        = "backup"
	JobPurge         = "purge"
	JobInitialBackup = "initial-backup"
)

// Config horaires de maintenance.
type Config struct {
	BackupCron   string
	PurgeCron    string
	InitialDelay time.Duration
}

// RestoreReport résultat d'une restauration.
type RestoreReport struct {
	Success    bool      `json:"success"`
	Filename   string    `json:"filename"`
	Error      string    `json:"error,omitempty"`
	RestoredAt time.Time `json:"restored_at"`
}

// Facade regroupe les moteurs de sauvegarde et de purge et leur planification.
type Facade struct {
	cfg       Config
	backups   *backup.Service
	purges    *purge.Service
	scheduler *scheduler.Scheduler
	log       *logger.Logger
}

// NewFacade construit la façade d'administration.
func NewFacade(cfg Config, backups *backup.Service, purges *purge.Service, sched *scheduler.Scheduler, log *logger.Logger) *Facade {
	if log == nil {
		log = logger.Nop()
	}
	return &Facade{
		cfg:       cfg,
		backups:   backups,
		purges:    purges,
		scheduler: sched,
		log:       log.Named("admin"),
	}
}

// CreateAutomaticBackup déclenche une sauvegarde complète, comme le planificateur.
func (f *Facade) CreateAutomaticBackup(ctx context.Context) backup.Report {
	report := f.backups.CreateBackup(ctx)
	if report.Success {
		f.log.Info().Str("file", report.Filename).Int("evicted", len(report.Evicted)).Msg("sauvegarde créée")
	} else {
		f.log.Error().Str("error", report.Error).Msg("sauvegarde en échec")
	}
	return report
}

// GetBackupStats état du répertoire de sauvegarde.
func (f *Facade) GetBackupStats() backup.Stats {
	return f.backups.Stats()
}

// ListBackups sauvegardes présentes, plus récente d'abord.
func (f *Facade) ListBackups() ([]backup.Artifact, error) {
	return f.backups.ListBackups()
}

// RestoreBackup rejoue le fichier path sur la base.
func (f *Facade) RestoreBackup(ctx context.Context, path string) RestoreReport {
	report := RestoreReport{Filename: filepath.Base(path), RestoredAt: time.Now()}
	f.log.Warn().Str("file", report.Filename).Msg("restauration demandée")
	if err := f.backups.RestoreBackup(ctx, path); err != nil {
		report.Error = err.Error()
		return report
	}
	report.Success = true
	return report
}

// RestoreBackupByName restaure une sauvegarde du répertoire désignée par son nom.
func (f *Facade) RestoreBackupByName(ctx context.Context, name string) RestoreReport {
	path, err := f.backups.ResolveArtifact(name)
	if err != nil {
		return RestoreReport{Filename: name, Error: err.Error(), RestoredAt: time.Now()}
	}
	return f.RestoreBackup(ctx, path)
}

// ExportJSON écrit l'export JSON du registre dans w.
func (f *Facade) ExportJSON(ctx context.Context, w io.Writer) error {
	_, err := f.backups.ExportJSON(ctx, w)
	return err
}

// ExecutePurgeManually purge à la demande d'un administrateur ; actor est tracé.
func (f *Facade) ExecutePurgeManually(ctx context.Context, actor string) purge.Report {
	f.log.Warn().Str("actor", actor).Msg("purge manuelle déclenchée")
	report := f.purges.PurgeOldSales(ctx)
	f.log.Info().
		Str("actor", actor).
		Bool("success", report.Success).
		Int64("deleted", report.DeletedCount).
		Time("cutoff", report.CutoffDate).
		Msg("purge manuelle terminée")
	return report
}

// GetPurgeStats ventes totales et ventes purgeables à cet instant.
func (f *Facade) GetPurgeStats(ctx context.Context) purge.Stats {
	return f.purges.Stats(ctx)
}

// StartBackupScheduler planifie les sauvegardes et démarre le planificateur.
// Sans aucune sauvegarde sur disque, une première est lancée après InitialDelay.
// Seule une expression cron invalide renvoie une erreur.
func (f *Facade) StartBackupScheduler() error {
	if err := f.scheduler.Register(JobBackup, f.cfg.BackupCron, func(ctx context.Context) {
		f.CreateAutomaticBackup(ctx)
	}); err != nil {
		return err
	}
	if !f.backups.HasArtifacts() {
		scheduled := f.scheduler.After(JobInitialBackup, f.cfg.InitialDelay, func(ctx context.Context) {
			f.CreateAutomaticBackup(ctx)
		})
		if scheduled {
			f.log.Info().Dur("delay", f.cfg.InitialDelay).Msg("aucune sauvegarde : sauvegarde initiale programmée")
		}
	}
	f.scheduler.Start()
	return nil
}

// StartPurgeScheduler planifie la purge mensuelle et démarre le planificateur.
func (f *Facade) StartPurgeScheduler() error {
	if err := f.scheduler.Register(JobPurge, f.cfg.PurgeCron, func(ctx context.Context) {
		report := f.purges.PurgeOldSales(ctx)
		if !report.Success {
			f.log.Error().Str("error", report.Error).Msg("purge planifiée en échec")
		}
	}); err != nil {
		return err
	}
	f.scheduler.Start()
	return nil
}

// SchedulerStatus tâches planifiées et prochaines échéances.
func (f *Facade) SchedulerStatus() SchedulerStatus {
	return SchedulerStatus{
		Running:  f.scheduler.Running(),
		TimeZone: f.scheduler.Location().String(),
		Jobs:     f.scheduler.Status(),
	}
}

// SchedulerStatus vue d'ensemble du planificateur.
type SchedulerStatus struct {
	Running  bool                    `json:"running"`
	TimeZone string                  `json:"time_zone"`
	Jobs     []scheduler.EntryStatus `json:"jobs"`
}

// Stop arrête le planificateur et attend les tâches en cours.
func (f *Facade) Stop(ctx context.Context) error {
	return f.scheduler.Stop(ctx)
}
