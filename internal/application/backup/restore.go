package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/infrastructure/metrics"
)

// En-tête écrit par pg_dump en mode texte.
var dumpSignature = []byte("PostgreSQL database dump")

const signatureWindow = 4096

// RestoreBackup rejoue le fichier path sur la base configurée.
// Opération explicite et rare : contrairement à CreateBackup, toute erreur est renvoyée.
// Un fichier absent, vide ou qui n'est pas un dump PostgreSQL donne ErrInvalidBackupFile.
func (s *Service) RestoreBackup(ctx context.Context, path string) (err error) {
	tracker := s.metrics.Track(metrics.JobRestore)
	defer func() { err = tracker.End(err) }()

	name := filepath.Base(path)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s introuvable", domain.ErrInvalidBackupFile, name)
		}
		return fmt.Errorf("read backup %s: %w", name, err)
	}
	if err := validateDump(content); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidBackupFile, name, err)
	}

	s.log.Warn().Str("file", name).Str("target", s.conn.Target()).Msg("restauration de la base")
	if err := s.dumper.Restore(ctx, s.conn, content); err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("échec de la restauration")
		return fmt.Errorf("restauration de %s: %w", name, err)
	}
	s.log.Info().Str("file", name).Msg("restauration terminée")
	return nil
}

func validateDump(content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return errors.New("fichier vide")
	}
	head := content
	if len(head) > signatureWindow {
		head = head[:signatureWindow]
	}
	if !bytes.Contains(head, dumpSignature) {
		return errors.New("en-tête pg_dump absent")
	}
	return nil
}
