package admin_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registre-pyro/registre-api/internal/application/admin"
	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/application/purge"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/retention"
	"github.com/registre-pyro/registre-api/internal/infrastructure/memory"
	"github.com/registre-pyro/registre-api/internal/infrastructure/metrics"
	"github.com/registre-pyro/registre-api/internal/infrastructure/scheduler"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const dump = "--\n-- PostgreSQL database dump\n--\n"

type stubDumper struct{ restored []byte }

func (d *stubDumper) Dump(context.Context, backup.Connection) ([]byte, error) {
	return []byte(dump), nil
}

func (d *stubDumper) Restore(_ context.Context, _ backup.Connection, content []byte) error {
	d.restored = content
	return nil
}

type env struct {
	dir    string
	dumper *stubDumper
	sales  *memory.SaleRepo
	facade *admin.Facade
}

func newEnv(t *testing.T, cfg admin.Config) *env {
	t.Helper()
	e := &env{
		dir:    filepath.Join(t.TempDir(), "backups"),
		dumper: &stubDumper{},
		sales:  memory.NewSaleRepo(),
	}
	jobs := metrics.NewJobs(prometheus.NewRegistry())
	backups := backup.NewService(backup.Config{Dir: e.dir, MaxCount: 10}, backup.Connection{URL: "postgres://registre@localhost/registre"},
		e.dumper, memory.NewUserRepo(), memory.NewStoreRepo(), e.sales, logger.Nop(), jobs)
	purges := purge.NewService(e.sales, retention.NewPolicy(19), time.UTC, logger.Nop(), jobs)
	sched := scheduler.New(time.UTC, logger.Nop())
	e.facade = admin.NewFacade(cfg, backups, purges, sched, logger.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.facade.Stop(ctx)
	})
	return e
}

func defaultConfig() admin.Config {
	return admin.Config{BackupCron: "0 0,12 * * *", PurgeCron: "0 2 1 * *", InitialDelay: 10 * time.Millisecond}
}

// ──────────────────────────────────────────────────────────────────────────────
// Planification
// ──────────────────────────────────────────────────────────────────────────────

func TestStartBackupScheduler_SauvegardeInitialeSiAucune(t *testing.T) {
	e := newEnv(t, defaultConfig())

	require.NoError(t, e.facade.StartBackupScheduler())

	require.Eventually(t, func() bool {
		return e.facade.GetBackupStats().Count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartBackupScheduler_PasDeSauvegardeInitialeSiExistante(t *testing.T) {
	e := newEnv(t, defaultConfig())
	require.NoError(t, os.MkdirAll(e.dir, 0o750))
	existing := backup.ArtifactName(time.Now().Add(-time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, existing), []byte(dump), 0o600))

	require.NoError(t, e.facade.StartBackupScheduler())

	assert.Never(t, func() bool {
		return e.facade.GetBackupStats().Count != 1
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestStartSchedulers_ExpressionInvalide(t *testing.T) {
	cfg := defaultConfig()
	cfg.BackupCron = "tous les jours"
	cfg.PurgeCron = "61 * * * *"
	e := newEnv(t, cfg)

	assert.Error(t, e.facade.StartBackupScheduler())
	assert.Error(t, e.facade.StartPurgeScheduler())
	assert.False(t, e.facade.SchedulerStatus().Running)
}

func TestSchedulerStatus_DeuxTaches(t *testing.T) {
	cfg := defaultConfig()
	cfg.InitialDelay = time.Hour
	e := newEnv(t, cfg)

	require.NoError(t, e.facade.StartBackupScheduler())
	require.NoError(t, e.facade.StartPurgeScheduler())

	status := e.facade.SchedulerStatus()
	assert.True(t, status.Running)
	assert.Equal(t, "UTC", status.TimeZone)
	require.Len(t, status.Jobs, 2)
	assert.Equal(t, admin.JobBackup, status.Jobs[0].Name)
	assert.Equal(t, admin.JobPurge, status.Jobs[1].Name)
	assert.False(t, status.Jobs[1].Next.IsZero())
	assert.Equal(t, 1, status.Jobs[1].Next.Day())
}

// ──────────────────────────────────────────────────────────────────────────────
// Opérations manuelles
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateAutomaticBackup_PuisRestauration(t *testing.T) {
	e := newEnv(t, defaultConfig())

	report := e.facade.CreateAutomaticBackup(context.Background())
	require.True(t, report.Success, report.Error)

	list, err := e.facade.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 1)

	restore := e.facade.RestoreBackupByName(context.Background(), report.Filename)
	require.True(t, restore.Success, restore.Error)
	assert.Equal(t, report.Filename, restore.Filename)
	assert.Equal(t, dump, string(e.dumper.restored))
}

func TestRestoreBackup_NeLevePasDErreur(t *testing.T) {
	e := newEnv(t, defaultConfig())

	byName := e.facade.RestoreBackupByName(context.Background(), "../../etc/passwd")
	assert.False(t, byName.Success)
	assert.NotEmpty(t, byName.Error)

	byPath := e.facade.RestoreBackup(context.Background(), filepath.Join(e.dir, "absent.sql"))
	assert.False(t, byPath.Success)
	assert.Contains(t, byPath.Error, "fichier de sauvegarde invalide")
	assert.Nil(t, e.dumper.restored)
}

func TestExecutePurgeManually(t *testing.T) {
	e := newEnv(t, defaultConfig())
	ctx := context.Background()
	require.NoError(t, e.sales.Create(ctx, &entity.Sale{StoreID: "s1", CreatedAt: time.Now().AddDate(-2, 0, 0)}))
	require.NoError(t, e.sales.Create(ctx, &entity.Sale{StoreID: "s1", CreatedAt: time.Now().AddDate(0, -1, 0)}))

	stats := e.facade.GetPurgeStats(ctx)
	assert.Equal(t, int64(2), stats.TotalSales)
	assert.Equal(t, int64(1), stats.OldSales)

	report := e.facade.ExecutePurgeManually(ctx, "admin@registre.fr")
	require.True(t, report.Success, report.Error)
	assert.Equal(t, stats.OldSales, report.DeletedCount)
}

func TestExportJSON(t *testing.T) {
	e := newEnv(t, defaultConfig())
	var buf bytes.Buffer
	require.NoError(t, e.facade.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"counts"`)
}
