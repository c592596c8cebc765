package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ListBackups liste les fichiers suivant la convention de nommage,
// du plus récent au plus ancien (date de modification, puis nom).
func (s *Service) ListBackups() ([]Artifact, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsArtifactName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Fichier supprimé entre ReadDir et Info.
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:      e.Name(),
			Path:      filepath.Join(s.cfg.Dir, e.Name()),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if !artifacts[i].ModTime.Equal(artifacts[j].ModTime) {
			return artifacts[i].ModTime.After(artifacts[j].ModTime)
		}
		return artifacts[i].Name > artifacts[j].Name
	})
	return artifacts, nil
}

// EnforceRetentionCap supprime les sauvegardes au-delà de MaxCount, les plus
// anciennes d'abord. Un échec de suppression est journalisé et n'interrompt pas
// le nettoyage. Renvoie les noms supprimés.
func (s *Service) EnforceRetentionCap(_ context.Context) ([]string, error) {
	artifacts, err := s.ListBackups()
	if err != nil {
		return nil, err
	}
	if len(artifacts) <= s.cfg.MaxCount {
		s.metrics.SetArtifacts(len(artifacts))
		return nil, nil
	}

	var removed []string
	for _, a := range artifacts[s.cfg.MaxCount:] {
		if err := os.Remove(a.Path); err != nil {
			s.log.Warn().Err(err).Str("file", a.Name).Msg("suppression d'une ancienne sauvegarde impossible")
			continue
		}
		s.log.Info().Str("file", a.Name).Msg("ancienne sauvegarde supprimée")
		removed = append(removed, a.Name)
	}
	s.metrics.SetArtifacts(len(artifacts) - len(removed))
	return removed, nil
}
