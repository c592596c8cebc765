package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
	"github.com/registre-pyro/registre-api/internal/infrastructure/metrics"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// DefaultMaxCount nombre de fichiers SQL conservés par défaut.
const DefaultMaxCount = 10

// Config paramètres du moteur de sauvegarde.
type Config struct {
	Dir      string
	MaxCount int
	// SingleFlight refuse une sauvegarde concurrente au lieu d'en produire deux.
	SingleFlight bool
}

// Service produit, liste, plafonne et restaure les dumps logiques de la base.
type Service struct {
	cfg     Config
	conn    Connection
	dumper  DumpProvider
	users   repository.UserRepository
	stores  repository.StoreRepository
	sales   repository.SaleRepository
	log     *logger.Logger
	metrics *metrics.Jobs
	clock   func() time.Time

	inFlight atomic.Bool
}

// NewService construit le moteur de sauvegarde.
func NewService(
	cfg Config,
	conn Connection,
	dumper DumpProvider,
	users repository.UserRepository,
	stores repository.StoreRepository,
	sales repository.SaleRepository,
	log *logger.Logger,
	jobs *metrics.Jobs,
) *Service {
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cfg:     cfg,
		conn:    conn,
		dumper:  dumper,
		users:   users,
		stores:  stores,
		sales:   sales,
		log:     log,
		metrics: jobs,
		clock:   time.Now,
	}
}

// SetClock remplace l'horloge (tests).
func (s *Service) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// Dir répertoire des sauvegardes.
func (s *Service) Dir() string { return s.cfg.Dir }

// CreateBackup produit un dump complet, l'écrit dans un fichier horodaté puis
// applique le plafond de rétention. Les erreurs sont rapportées dans le Report,
// jamais propagées : l'appelant peut être une tâche planifiée.
func (s *Service) CreateBackup(ctx context.Context) Report {
	now := s.clock()
	if s.cfg.SingleFlight {
		if !s.inFlight.CompareAndSwap(false, true) {
			s.log.Warn().Msg("sauvegarde ignorée : une autre est en cours")
			return Report{Success: false, Error: domain.ErrBackupInProgress.Error(), CreatedAt: now}
		}
		defer s.inFlight.Store(false)
	}

	tracker := s.metrics.Track(metrics.JobBackup)
	report, err := s.createBackup(ctx, now)
	_ = tracker.End(err)
	if err != nil {
		s.log.Error().Err(err).Str("target", s.conn.Target()).Msg("échec de la sauvegarde")
		return Report{Success: false, Error: err.Error(), CreatedAt: now}
	}
	return report
}

func (s *Service) createBackup(ctx context.Context, now time.Time) (Report, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o750); err != nil {
		return Report{}, fmt.Errorf("create backup dir: %w", err)
	}

	s.log.Info().Str("target", s.conn.Target()).Msg("démarrage de la sauvegarde")
	content, err := s.dumper.Dump(ctx, s.conn)
	if err != nil {
		return Report{}, fmt.Errorf("dump: %w", err)
	}
	if len(content) == 0 {
		return Report{}, fmt.Errorf("dump: sortie vide")
	}

	name, path, err := s.writeArtifact(now, content)
	if err != nil {
		return Report{}, err
	}
	s.log.Info().Str("file", name).Int("bytes", len(content)).Msg("sauvegarde écrite")

	report := Report{
		Success:   true,
		Filename:  name,
		Path:      path,
		SizeBytes: int64(len(content)),
		CreatedAt: now,
	}

	counts, err := s.countRecords(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("comptage des enregistrements impossible")
	} else {
		report.Counts = &counts
		s.log.Info().
			Int("users", counts.Users).
			Int("stores", counts.Stores).
			Int("sales", counts.Sales).
			Msg("contenu de la sauvegarde")
	}

	evicted, err := s.EnforceRetentionCap(ctx)
	if err != nil {
		// Le fichier est déjà écrit : l'échec du nettoyage ne fait pas échouer la sauvegarde.
		s.log.Error().Err(err).Msg("nettoyage des anciennes sauvegardes impossible")
	}
	report.Evicted = evicted
	return report, nil
}

// writeArtifact crée le fichier en exclusif ; en cas de collision de nom
// (deux sauvegardes dans la même milliseconde) l'horodatage est avancé.
func (s *Service) writeArtifact(at time.Time, content []byte) (string, string, error) {
	const maxAttempts = 100
	for i := 0; i < maxAttempts; i++ {
		name := ArtifactName(at.Add(time.Duration(i) * time.Millisecond))
		path := filepath.Join(s.cfg.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("create backup file: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", "", fmt.Errorf("write backup file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", "", fmt.Errorf("close backup file: %w", err)
		}
		return name, path, nil
	}
	return "", "", fmt.Errorf("create backup file: nom disponible introuvable")
}

// countRecords compte utilisateurs, magasins et ventes (magasin par magasin).
func (s *Service) countRecords(ctx context.Context) (Counts, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("list users: %w", err)
	}
	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("list stores: %w", err)
	}

	perStore := make([]int, len(stores))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, st := range stores {
		i, storeID := i, st.ID
		g.Go(func() error {
			sales, err := s.sales.ListSalesForStore(gctx, repository.SaleFilter{StoreID: storeID})
			if err != nil {
				return fmt.Errorf("list sales for store %s: %w", storeID, err)
			}
			perStore[i] = len(sales)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}

	total := 0
	for _, n := range perStore {
		total += n
	}
	return Counts{Users: len(users), Stores: len(stores), Sales: total}, nil
}

// Stats lecture du répertoire de sauvegarde. Un répertoire absent ou illisible
// donne Count = 0 et Error renseigné, jamais une erreur.
func (s *Service) Stats() Stats {
	stats := Stats{Directory: s.cfg.Dir, MaxCount: s.cfg.MaxCount}
	artifacts, err := s.ListBackups()
	if err != nil {
		stats.Error = err.Error()
		return stats
	}
	stats.Count = len(artifacts)
	s.metrics.SetArtifacts(stats.Count)
	return stats
}

// HasArtifacts indique si au moins une sauvegarde existe sur disque.
func (s *Service) HasArtifacts() bool {
	return s.Stats().Count > 0
}

// ResolveArtifact renvoie le chemin d'une sauvegarde à partir de son seul nom.
// Le nom doit respecter la convention, ce qui exclut toute sortie du répertoire.
func (s *Service) ResolveArtifact(name string) (string, error) {
	if !IsArtifactName(name) {
		return "", fmt.Errorf("%w: nom de sauvegarde %q", domain.ErrInvalidInput, name)
	}
	path := filepath.Join(s.cfg.Dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("stat backup: %w", err)
	}
	return path, nil
}
