package backup

import (
	"context"
	"net/url"
	"strconv"
)

// Connection décrit la base à sauvegarder ou restaurer.
// URL est prioritaire ; sinon les paramètres discrets sont utilisés.
type Connection struct {
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// HasURL indique si la forme chaîne de connexion est disponible.
func (c Connection) HasURL() bool { return c.URL != "" }

// Target renvoie une description sans mot de passe, pour les logs.
func (c Connection) Target() string {
	if c.HasURL() {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "database-url"
		}
		return u.Redacted()
	}
	return c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
}

// DumpProvider produit et rejoue un dump logique complet de la base.
// L'implémentation par défaut lance pg_dump / psql ; un autre mécanisme
// (driver natif, snapshot managé) peut s'y substituer sans toucher au Service.
type DumpProvider interface {
	Dump(ctx context.Context, conn Connection) ([]byte, error)
	Restore(ctx context.Context, conn Connection, dump []byte) error
}
