// Package scheduler déclenche les tâches de maintenance (sauvegarde, purge)
// sur des horaires cron à fuseau fixe, indépendamment des requêtes HTTP.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/registre-pyro/registre-api/pkg/logger"
)

// Job tâche planifiée. Le contexte est annulé à l'arrêt du planificateur.
type Job func(ctx context.Context)

// EntryStatus état d'une tâche enregistrée.
type EntryStatus struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitempty"`
	Prev time.Time `json:"prev,omitempty"`
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler poignée explicite sur les déclencheurs, possédée par le démarrage du processus.
// Un échec ou une panique d'une exécution est journalisé et n'annule pas les suivantes.
type Scheduler struct {
	cron  *cron.Cron
	loc   *time.Location
	log   *logger.Logger
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New crée un planificateur dont les expressions sont évaluées dans loc.
func New(loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log))),
		),
		loc:     loc,
		log:     log,
		clock:   time.Now,
		entries: make(map[string]entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Location fuseau des expressions cron.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Register ajoute une tâche récurrente (expression cron à 5 champs).
// Un nom déjà enregistré remplace la tâche précédente.
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", name, spec, err)
	}
	if prev, ok := s.entries[name]; ok {
		s.cron.Remove(prev.id)
	}
	s.entries[name] = entry{id: id, spec: spec}
	s.log.Info().Str("job", name).Str("spec", spec).Str("tz", s.loc.String()).Msg("tâche planifiée")
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	s.log.Info().Str("job", name).Msg("exécution planifiée")
	job(s.ctx)
	s.log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("exécution terminée")
}

// Start démarre les déclencheurs. Sans effet si déjà démarré ;
// un planificateur arrêté ne redémarre pas.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if s.ctx.Err() != nil {
		s.log.Warn().Msg("planificateur déjà arrêté, démarrage ignoré")
		return
	}
	s.running = true
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.entries)).Msg("planificateur démarré")
}

// After exécute job une seule fois après delay, hors planning récurrent.
// Abandonné si le planificateur est arrêté avant l'échéance ; refusé (false)
// s'il l'est déjà.
func (s *Scheduler) After(name string, delay time.Duration, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		s.log.Warn().Str("job", name).Msg("planificateur arrêté, tâche différée ignorée")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", name).Interface("panic", r).Msg("panique dans une tâche différée")
			}
		}()
		s.run(name, job)
	}()
	return true
}

// RunNow exécute immédiatement une tâche enregistrée, avec la même protection
// contre les paniques que les exécutions planifiées.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("tâche inconnue: %s", name)
	}
	ce := s.cron.Entry(e.id)
	if ce.WrappedJob == nil {
		return fmt.Errorf("tâche inconnue: %s", name)
	}
	ce.WrappedJob.Run()
	return nil
}

// NextAfter prochaine échéance de la tâche strictement après t.
func (s *Scheduler) NextAfter(name string, t time.Time) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	ce := s.cron.Entry(e.id)
	if ce.Schedule == nil {
		return time.Time{}, false
	}
	return ce.Schedule.Next(t.In(s.loc)), true
}

// Next prochaine échéance de la tâche à partir de maintenant.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	return s.NextAfter(name, s.clock())
}

// Status liste les tâches enregistrées, triées par nom.
func (s *Scheduler) Status() []EntryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	out := make([]EntryStatus, 0, len(s.entries))
	for name, e := range s.entries {
		ce := s.cron.Entry(e.id)
		st := EntryStatus{Name: name, Spec: e.spec, Prev: ce.Prev}
		if ce.Schedule != nil {
			st.Next = ce.Schedule.Next(now.In(s.loc))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Running indique si les déclencheurs sont actifs.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop arrête les déclencheurs, annule le contexte des tâches en cours
// puis attend leur fin ou l'expiration de ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	// annulé sous verrou : aucun After ne peut plus appeler wg.Add une fois Wait lancé
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if wasRunning {
			<-s.cron.Stop().Done()
		}
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("planificateur arrêté")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}
