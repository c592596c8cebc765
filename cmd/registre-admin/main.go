// registre-admin exécute les opérations d'exploitation sans passer par l'API HTTP.
//
// Usage :
//
//	registre-admin backup
//	registre-admin restore <fichier.sql>
//	registre-admin purge
//	registre-admin stats
//	registre-admin export-json [fichier.json]
//	registre-admin create-admin <email> <mot-de-passe> [nom]
//
// La configuration est lue comme pour l'API (variables d'environnement, .env).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/registre-pyro/registre-api/internal/application/auth"
	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/bootstrap"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/pkg/config"
	"github.com/registre-pyro/registre-api/pkg/logger"
)

const usage = `usage : registre-admin <commande> [arguments]

commandes :
  backup                               sauvegarde complète immédiate
  restore <fichier.sql>                restaure une sauvegarde (remplace les données)
  purge                                supprime les ventes au-delà de la durée de conservation
  stats                                état des sauvegardes et de la purge
  export-json [fichier.json]           export JSON complet (stdout par défaut)
  create-admin <email> <mdp> [nom]     crée un compte administrateur
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration : %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "warn"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Initialisation : %v\n", err)
		os.Exit(1)
	}
	code := run(ctx, deps, cfg, os.Args[1], os.Args[2:], os.Stdout)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = deps.Close(closeCtx)
	os.Exit(code)
}

func run(ctx context.Context, deps *bootstrap.Container, cfg *config.Config, cmd string, args []string, out io.Writer) int {
	f := deps.Facade
	switch cmd {
	case "backup":
		report := f.CreateAutomaticBackup(ctx)
		printJSON(out, report)
		return exitCode(report.Success)

	case "restore":
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		report := f.RestoreBackup(ctx, args[0])
		printJSON(out, report)
		return exitCode(report.Success)

	case "purge":
		report := f.ExecutePurgeManually(ctx, "cli:"+currentUser())
		printJSON(out, report)
		return exitCode(report.Success)

	case "stats":
		list, err := f.ListBackups()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lister les sauvegardes : %v\n", err)
		}
		printJSON(out, map[string]interface{}{
			"backups":       f.GetBackupStats(),
			"backup_files":  list,
			"purge":         f.GetPurgeStats(ctx),
			"backup_cron":   cfg.Backup.Cron,
			"purge_cron":    cfg.Purge.Cron,
			"time_zone":     cfg.Scheduler.TimeZone,
			"retention_max": cfg.Purge.RetentionMonths,
		})
		return 0

	case "export-json":
		w := out
		if len(args) == 1 {
			file, err := os.Create(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Créer %s : %v\n", args[0], err)
				return 1
			}
			defer file.Close()
			w = file
		}
		if err := f.ExportJSON(ctx, w); err != nil {
			fmt.Fprintf(os.Stderr, "Export JSON : %v\n", err)
			return 1
		}
		return 0

	case "create-admin":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		if len(args[1]) < 8 {
			fmt.Fprintln(os.Stderr, "Le mot de passe doit contenir au moins 8 caractères")
			return 2
		}
		name := "Administrateur"
		if len(args) > 2 {
			name = args[2]
		}
		uc := auth.NewAuthUseCase(deps.Users, deps.Stores, auth.JWTConfig{
			Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer,
		})
		user, err := uc.RegisterUser(ctx, dto.CreateUserRequest{Email: args[0], Password: args[1], Name: name, Role: entity.RoleAdmin})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Créer l'administrateur : %v\n", err)
			return 1
		}
		printJSON(out, user)
		return 0
	}
	fmt.Fprintf(os.Stderr, "Commande inconnue : %s\n\n%s", cmd, usage)
	return 2
}

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func exitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "inconnu"
}
