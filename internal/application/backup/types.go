package backup

import (
	"regexp"
	"strings"
	"time"
)

const (
	artifactPrefix = "auto-backup-"
	artifactExt    = ".sql"
	// Horodatage ISO-8601 en UTC, ':' et '.' remplacés par '-' à l'écriture.
	artifactLayout = "2006-01-02T15:04:05.000Z"
)

var (
	artifactPattern = regexp.MustCompile(`^auto-backup-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.sql$`)
	fsSafe          = strings.NewReplacer(":", "-", ".", "-")
)

// ArtifactName nom de fichier d'une sauvegarde créée à l'instant t.
// Les noms se trient lexicographiquement dans l'ordre de création.
func ArtifactName(t time.Time) string {
	return artifactPrefix + fsSafe.Replace(t.UTC().Format(artifactLayout)) + artifactExt
}

// IsArtifactName indique si name suit la convention de nommage des sauvegardes.
func IsArtifactName(name string) bool {
	return artifactPattern.MatchString(name)
}

// Artifact fichier de sauvegarde présent sur disque.
type Artifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"modified_at"`
}

// Counts volumes de la base au moment du dump (observabilité).
type Counts struct {
	Users  int `json:"users"`
	Stores int `json:"stores"`
	Sales  int `json:"sales"`
}

// Report résultat d'une création de sauvegarde. Jamais persisté.
type Report struct {
	Success   bool      `json:"success"`
	Filename  string    `json:"filename,omitempty"`
	Path      string    `json:"path,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Counts    *Counts   `json:"stats,omitempty"`
	Evicted   []string  `json:"evicted,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats état du répertoire de sauvegarde.
type Stats struct {
	Count     int    `json:"count"`
	Directory string `json:"directory"`
	MaxCount  int    `json:"max_count"`
	Error     string `json:"error,omitempty"`
}
