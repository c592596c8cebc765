// Package pgdump implémente backup.DumpProvider avec les utilitaires PostgreSQL
// pg_dump (sortie SQL texte) et psql (rejoue le dump lu sur l'entrée standard).
package pgdump

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// DefaultMaxOutput plafond de la sortie capturée (50 Mo).
const DefaultMaxOutput int64 = 50 << 20

// ErrOutputTooLarge sortie de l'utilitaire au-delà du plafond configuré.
var ErrOutputTooLarge = errors.New("sortie de l'utilitaire trop volumineuse")

var _ backup.DumpProvider = (*Provider)(nil)

// Config chemins des binaires et plafond de sortie.
type Config struct {
	DumpBin    string
	RestoreBin string
	MaxOutput  int64
}

// Provider lance pg_dump / psql en sous-processus.
type Provider struct {
	cfg Config
	log *logger.Logger
}

// New construit le provider ; les champs vides prennent les valeurs par défaut.
func New(cfg Config, log *logger.Logger) *Provider {
	if cfg.DumpBin == "" {
		cfg.DumpBin = "pg_dump"
	}
	if cfg.RestoreBin == "" {
		cfg.RestoreBin = "psql"
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{cfg: cfg, log: log.Named("pgdump")}
}

// DumpArgs arguments pg_dump : schéma et données, sans propriétaires ni privilèges,
// avec DROP ... IF EXISTS en préambule pour rejouer sur une base non vide.
func DumpArgs(conn backup.Connection) []string {
	args := []string{"--clean", "--if-exists", "--no-owner", "--no-privileges"}
	return append(args, connArgs(conn)...)
}

// RestoreArgs arguments psql : arrêt à la première erreur, dump lu sur stdin.
func RestoreArgs(conn backup.Connection) []string {
	args := []string{"-v", "ON_ERROR_STOP=1", "--quiet", "--no-psqlrc"}
	return append(args, connArgs(conn)...)
}

func connArgs(conn backup.Connection) []string {
	if conn.HasURL() {
		dsn, _ := splitPassword(conn.URL)
		return []string{"--dbname=" + dsn}
	}
	var args []string
	if conn.Host != "" {
		args = append(args, "-h", conn.Host)
	}
	if conn.Port != 0 {
		args = append(args, "-p", strconv.Itoa(conn.Port))
	}
	if conn.User != "" {
		args = append(args, "-U", conn.User)
	}
	if conn.Database != "" {
		args = append(args, "-d", conn.Database)
	}
	return args
}

// connEnv mot de passe et mode SSL passés par l'environnement, jamais en argument.
func connEnv(conn backup.Connection) []string {
	env := os.Environ()
	if conn.HasURL() {
		if _, password := splitPassword(conn.URL); password != "" {
			env = append(env, "PGPASSWORD="+password)
		}
		return env
	}
	if conn.Password != "" {
		env = append(env, "PGPASSWORD="+conn.Password)
	}
	if conn.SSLMode != "" {
		env = append(env, "PGSSLMODE="+conn.SSLMode)
	}
	return env
}

// splitPassword retire le mot de passe d'une chaîne de connexion, URL
// (postgres://u:p@h/db) ou mots-clés (host=h password=p), et le renvoie à part.
func splitPassword(dsn string) (string, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return dsn, ""
		}
		password, ok := u.User.Password()
		if !ok {
			return dsn, ""
		}
		u.User = url.User(u.User.Username())
		return u.String(), password
	}
	var kept []string
	password := ""
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "password="); ok {
			password = strings.Trim(v, "'")
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " "), password
}

// Dump exécute pg_dump et renvoie sa sortie standard.
// Les lignes NOTICE sur stderr sont ignorées ; les autres sont journalisées en warning.
// Un code de sortie non nul est une erreur.
func (p *Provider) Dump(ctx context.Context, conn backup.Connection) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.cfg.DumpBin, DumpArgs(conn)...)
	cmd.Env = connEnv(conn)
	stdout := &limitedBuffer{max: p.cfg.MaxOutput}
	stderr := &limitedBuffer{max: p.cfg.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	p.logDiagnostics("pg_dump", stderr.Bytes())
	if stdout.overflow {
		return nil, fmt.Errorf("pg_dump: %w (> %d octets)", ErrOutputTooLarge, p.cfg.MaxOutput)
	}
	if err != nil {
		return nil, fmt.Errorf("pg_dump: %w%s", err, firstError(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Restore exécute psql avec le dump sur l'entrée standard.
func (p *Provider) Restore(ctx context.Context, conn backup.Connection, dump []byte) error {
	cmd := exec.CommandContext(ctx, p.cfg.RestoreBin, RestoreArgs(conn)...)
	cmd.Env = connEnv(conn)
	cmd.Stdin = bytes.NewReader(dump)
	stdout := &limitedBuffer{max: p.cfg.MaxOutput}
	stderr := &limitedBuffer{max: p.cfg.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	p.logDiagnostics("psql", stderr.Bytes())
	if err != nil {
		return fmt.Errorf("psql: %w%s", err, firstError(stderr.Bytes()))
	}
	return nil
}

func (p *Provider) logDiagnostics(tool string, stderr []byte) {
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || isNotice(line) {
			continue
		}
		p.log.Warn().Str("tool", tool).Msg(line)
	}
}

func isNotice(line string) bool {
	return strings.Contains(line, "NOTICE:")
}

// firstError première ligne de diagnostic non NOTICE, pour le message d'erreur.
func firstError(stderr []byte) string {
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !isNotice(line) {
			return ": " + line
		}
	}
	return ""
}

// limitedBuffer tampon qui cesse d'accumuler au-delà de max octets.
// Les écritures excédentaires sont acceptées puis ignorées pour ne pas bloquer le sous-processus.
type limitedBuffer struct {
	buf      bytes.Buffer
	max      int64
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		b.overflow = b.overflow || len(p) > 0
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.overflow = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte { return b.buf.Bytes() }
