// Package metrics expose les collecteurs Prometheus des tâches de maintenance
// (sauvegarde, restauration, purge).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Noms de tâches instrumentées.
const (
	JobBackup  = "backup"
	JobRestore = "restore"
	JobPurge   = "purge"
)

// Jobs regroupe les collecteurs des tâches de maintenance.
type Jobs struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	artifacts prometheus.Gauge
	purged    prometheus.Counter
}

var (
	defaultOnce sync.Once
	defaultJobs *Jobs
)

// NewJobs enregistre les collecteurs auprès du registerer fourni.
// Avec un registerer nil, le registerer Prometheus par défaut est utilisé (une seule fois).
func NewJobs(registerer prometheus.Registerer) *Jobs {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultJobs = buildJobs(prometheus.DefaultRegisterer)
		})
		return defaultJobs
	}
	return buildJobs(registerer)
}

// Tracker instrumente une exécution de tâche.
type Tracker struct {
	jobs  *Jobs
	job   string
	start time.Time
}

// Track démarre le suivi d'une exécution.
func (j *Jobs) Track(job string) *Tracker {
	return &Tracker{jobs: j, job: job, start: time.Now()}
}

// End clôt le suivi (durée, succès/échec) et renvoie err tel quel.
func (t *Tracker) End(err error) error {
	if t == nil || t.jobs == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.jobs.failures.WithLabelValues(t.job).Inc()
	}
	t.jobs.runs.WithLabelValues(t.job, status).Inc()
	t.jobs.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetArtifacts publie le nombre de fichiers de sauvegarde présents sur disque.
func (j *Jobs) SetArtifacts(n int) {
	if j == nil {
		return
	}
	j.artifacts.Set(float64(n))
}

// AddPurged incrémente le compteur de ventes purgées.
func (j *Jobs) AddPurged(n int64) {
	if j == nil || n <= 0 {
		return
	}
	j.purged.Add(float64(n))
}

func buildJobs(registerer prometheus.Registerer) *Jobs {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registre_jobs_total",
		Help: "Exécutions des tâches de maintenance par tâche et statut.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registre_jobs_failures_total",
		Help: "Échecs des tâches de maintenance.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registre_job_duration_seconds",
		Help:    "Durée des tâches de maintenance en secondes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	artifacts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registre_backup_artifacts",
		Help: "Nombre de fichiers de sauvegarde SQL conservés.",
	})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registre_sales_purged_total",
		Help: "Ventes supprimées par la purge de conservation.",
	})
	registerer.MustRegister(runs, failures, duration, artifacts, purged)
	return &Jobs{runs: runs, failures: failures, duration: duration, artifacts: artifacts, purged: purged}
}
