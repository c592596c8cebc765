// Package retention porte la règle de conservation des ventes du registre.
package retention

import "time"

// DefaultMonths durée légale de conservation d'une vente, en mois.
const DefaultMonths = 19

// Policy calcule la date limite de conservation à partir de "maintenant".
type Policy struct {
	Months int
}

// NewPolicy construit la politique ; months <= 0 retombe sur DefaultMonths.
func NewPolicy(months int) Policy {
	if months <= 0 {
		months = DefaultMonths
	}
	return Policy{Months: months}
}

// Cutoff renvoie now moins p.Months mois calendaires.
// Toute vente créée strictement avant cette date est purgeable.
func (p Policy) Cutoff(now time.Time) time.Time {
	return SubtractMonths(now, p.Months)
}

// IsExpired indique si une vente créée à createdAt est purgeable à la date now.
func (p Policy) IsExpired(createdAt, now time.Time) bool {
	return createdAt.Before(p.Cutoff(now))
}

// SubtractMonths recule t de n mois calendaires en conservant l'heure et le fuseau.
// Un jour inexistant dans le mois cible est ramené au dernier jour de ce mois
// (31 janvier moins 19 mois = 30 juin), là où time.AddDate déborderait sur le mois suivant.
func SubtractMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	idx := year*12 + int(month-1) - n
	ty, tm := idx/12, time.Month(idx%12+1)
	if idx%12 < 0 {
		ty, tm = (idx-11)/12, time.Month(idx%12+13)
	}
	if last := daysIn(ty, tm); day > last {
		day = last
	}
	return time.Date(ty, tm, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
