// Package purge applique la durée de conservation des ventes du registre.
package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/registre-pyro/registre-api/internal/domain/repository"
	"github.com/registre-pyro/registre-api/internal/domain/retention"
	"github.com/registre-pyro/registre-api/internal/infrastructure/metrics"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// Report résultat d'une purge. Jamais persisté.
type Report struct {
	Success      bool      `json:"success"`
	DeletedCount int64     `json:"deleted_count"`
	CutoffDate   time.Time `json:"cutoff_date"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Stats état du registre au regard de la date limite courante.
type Stats struct {
	TotalSales    int64     `json:"total_sales"`
	OldSales      int64     `json:"old_sales"`
	CutoffDate    time.Time `json:"cutoff_date"`
	PurgeEligible bool      `json:"purge_eligible"`
	Error         string    `json:"error,omitempty"`
}

// Service supprime les ventes antérieures à la date limite de conservation.
// Seul composant autorisé à supprimer des ventes automatiquement.
type Service struct {
	sales   repository.SaleRepository
	policy  retention.Policy
	log     *logger.Logger
	metrics *metrics.Jobs
	clock   func() time.Time
	loc     *time.Location
}

// NewService construit le moteur de purge. loc fixe le fuseau du calcul calendaire.
func NewService(sales repository.SaleRepository, policy retention.Policy, loc *time.Location, log *logger.Logger, jobs *metrics.Jobs) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		sales:   sales,
		policy:  policy,
		log:     log,
		metrics: jobs,
		clock:   time.Now,
		loc:     loc,
	}
}

// SetClock remplace l'horloge (tests).
func (s *Service) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// Cutoff date limite courante : maintenant moins la durée de conservation.
func (s *Service) Cutoff() time.Time {
	return s.policy.Cutoff(s.clock().In(s.loc))
}

// PurgeOldSales supprime les ventes créées strictement avant la date limite.
// Idempotent ; les erreurs du dépôt sont rapportées, jamais propagées.
func (s *Service) PurgeOldSales(ctx context.Context) Report {
	cutoff := s.Cutoff()
	tracker := s.metrics.Track(metrics.JobPurge)

	s.log.Info().Time("cutoff", cutoff).Int("months", s.policy.Months).Msg("démarrage de la purge")
	deleted, err := s.sales.DeleteSalesOlderThan(ctx, cutoff)
	_ = tracker.End(err)
	if err != nil {
		s.log.Error().Err(err).Time("cutoff", cutoff).Msg("échec de la purge")
		return Report{Success: false, DeletedCount: 0, CutoffDate: cutoff, Error: err.Error()}
	}

	s.metrics.AddPurged(deleted)
	msg := fmt.Sprintf("%d vente(s) antérieure(s) au %s supprimée(s)", deleted, cutoff.Format("02/01/2006"))
	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("purge terminée")
	return Report{Success: true, DeletedCount: deleted, CutoffDate: cutoff, Message: msg}
}

// Stats compte les ventes totales et celles qu'une purge supprimerait maintenant.
func (s *Service) Stats(ctx context.Context) Stats {
	cutoff := s.Cutoff()
	stats := Stats{CutoffDate: cutoff}

	total, err := s.sales.CountSales(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("comptage des ventes impossible")
		stats.Error = err.Error()
		return stats
	}
	old, err := s.sales.CountSalesOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("comptage des ventes expirées impossible")
		stats.Error = err.Error()
		return stats
	}

	stats.TotalSales = total
	stats.OldSales = old
	stats.PurgeEligible = old > 0
	return stats
}
