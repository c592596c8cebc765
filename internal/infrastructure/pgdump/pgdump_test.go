package pgdump_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/infrastructure/pgdump"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

// fakeBin écrit un script shell exécutable jouant le rôle de pg_dump ou psql.
func fakeBin(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("scripts shell non disponibles")
	}
	path := filepath.Join(t.TempDir(), "fake.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestDumpArgs_ChaineDeConnexion(t *testing.T) {
	args := pgdump.DumpArgs(backup.Connection{URL: "postgres://u:p@db:5432/registre"})
	assert.Equal(t, []string{
		"--clean", "--if-exists", "--no-owner", "--no-privileges",
		"--dbname=postgres://u@db:5432/registre",
	}, args)
}

func TestArgs_MotDePasseJamaisEnArgument(t *testing.T) {
	conns := []backup.Connection{
		{URL: "postgres://registre:s3cret@db:5432/registre?sslmode=disable"},
		{URL: "postgresql://registre:s3cret@db/registre"},
		{URL: "host=db user=registre password=s3cret dbname=registre"},
	}
	for _, conn := range conns {
		for _, args := range [][]string{pgdump.DumpArgs(conn), pgdump.RestoreArgs(conn)} {
			assert.NotContains(t, strings.Join(args, " "), "s3cret", conn.URL)
		}
	}
	args := pgdump.DumpArgs(conns[0])
	assert.Equal(t, "--dbname=postgres://registre@db:5432/registre?sslmode=disable", args[len(args)-1])
	args = pgdump.RestoreArgs(conns[2])
	assert.Equal(t, "--dbname=host=db user=registre dbname=registre", args[len(args)-1])
}

func TestDumpArgs_ParametresDiscrets(t *testing.T) {
	args := pgdump.DumpArgs(backup.Connection{Host: "db", Port: 5433, User: "registre", Database: "registre", Password: "secret"})
	assert.Equal(t, []string{
		"--clean", "--if-exists", "--no-owner", "--no-privileges",
		"-h", "db", "-p", "5433", "-U", "registre", "-d", "registre",
	}, args)
	assert.NotContains(t, strings.Join(args, " "), "secret")
}

func TestRestoreArgs_ArretSurErreur(t *testing.T) {
	args := pgdump.RestoreArgs(backup.Connection{URL: "postgres://db/registre"})
	assert.Contains(t, args, "ON_ERROR_STOP=1")
	assert.Equal(t, "--dbname=postgres://db/registre", args[len(args)-1])
}

func TestDump_SortieEtNoticesIgnorees(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("FAKE_ARGS", argsFile)
	bin := fakeBin(t, `printf '%s\n' "$@" > "$FAKE_ARGS"
echo "pg_dump: NOTICE:  table \"x\" does not exist, skipping" >&2
echo "-- PostgreSQL database dump"
echo "CREATE TABLE sales ();"`)
	p := pgdump.New(pgdump.Config{DumpBin: bin}, logger.Nop())

	out, err := p.Dump(context.Background(), backup.Connection{URL: "postgres://db/registre"})

	require.NoError(t, err)
	assert.Equal(t, "-- PostgreSQL database dump\nCREATE TABLE sales ();\n", string(out))
	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "--if-exists\n")
	assert.Contains(t, string(recorded), "--dbname=postgres://db/registre\n")
}

func TestDump_AvertissementNonBloquant(t *testing.T) {
	bin := fakeBin(t, `echo "pg_dump: warning: there are circular foreign-key constraints" >&2
echo "-- PostgreSQL database dump"`)
	p := pgdump.New(pgdump.Config{DumpBin: bin}, logger.Nop())

	out, err := p.Dump(context.Background(), backup.Connection{URL: "postgres://db/registre"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestDump_CodeDeSortieUn(t *testing.T) {
	bin := fakeBin(t, `echo "pg_dump: error: connection to server failed" >&2
exit 1`)
	p := pgdump.New(pgdump.Config{DumpBin: bin}, logger.Nop())

	out, err := p.Dump(context.Background(), backup.Connection{Host: "db", Port: 5432})

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "connection to server failed")
}

func TestDump_MotDePasseParEnvironnement(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "env")
	t.Setenv("FAKE_ENV", envFile)
	bin := fakeBin(t, `echo "$PGPASSWORD" > "$FAKE_ENV"
echo "-- PostgreSQL database dump"`)
	p := pgdump.New(pgdump.Config{DumpBin: bin}, logger.Nop())

	_, err := p.Dump(context.Background(), backup.Connection{Host: "db", Port: 5432, User: "registre", Password: "s3cret"})
	require.NoError(t, err)

	got, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "s3cret\n", string(got))
}

func TestDump_MotDePasseDeLURLParEnvironnement(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "out")
	t.Setenv("FAKE_OUT", outFile)
	bin := fakeBin(t, `echo "$PGPASSWORD" > "$FAKE_OUT"
printf '%s\n' "$@" >> "$FAKE_OUT"
echo "-- PostgreSQL database dump"`)
	p := pgdump.New(pgdump.Config{DumpBin: bin}, logger.Nop())

	_, err := p.Dump(context.Background(), backup.Connection{URL: "postgres://registre:s3cret@db:5432/registre"})
	require.NoError(t, err)

	got, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(got)), "\n")
	assert.Equal(t, "s3cret", lines[0])
	assert.NotContains(t, strings.Join(lines[1:], " "), "s3cret")
}

func TestDump_PlafondDeSortie(t *testing.T) {
	bin := fakeBin(t, `i=0
while [ $i -lt 100 ]; do echo "INSERT INTO sales VALUES ($i);"; i=$((i+1)); done`)
	p := pgdump.New(pgdump.Config{DumpBin: bin, MaxOutput: 64}, logger.Nop())

	_, err := p.Dump(context.Background(), backup.Connection{URL: "postgres://db/registre"})
	assert.ErrorIs(t, err, pgdump.ErrOutputTooLarge)
}

func TestDump_BinaireIntrouvable(t *testing.T) {
	p := pgdump.New(pgdump.Config{DumpBin: filepath.Join(t.TempDir(), "absent")}, logger.Nop())
	_, err := p.Dump(context.Background(), backup.Connection{URL: "postgres://db/registre"})
	assert.Error(t, err)
}

func TestRestore_ContenuSurEntreeStandard(t *testing.T) {
	inFile := filepath.Join(t.TempDir(), "stdin")
	t.Setenv("FAKE_STDIN", inFile)
	bin := fakeBin(t, `cat > "$FAKE_STDIN"`)
	p := pgdump.New(pgdump.Config{RestoreBin: bin}, logger.Nop())

	dump := []byte("-- PostgreSQL database dump\nDROP TABLE IF EXISTS sales;\n")
	require.NoError(t, p.Restore(context.Background(), backup.Connection{URL: "postgres://db/registre"}, dump))

	got, err := os.ReadFile(inFile)
	require.NoError(t, err)
	assert.Equal(t, dump, got)
}

func TestRestore_EchecPropage(t *testing.T) {
	bin := fakeBin(t, `cat > /dev/null
echo 'psql:<stdin>:3: ERROR:  syntax error at or near "x"' >&2
exit 3`)
	p := pgdump.New(pgdump.Config{RestoreBin: bin}, logger.Nop())

	err := p.Restore(context.Background(), backup.Connection{URL: "postgres://db/registre"}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}
