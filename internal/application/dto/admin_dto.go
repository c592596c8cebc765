package dto

// RestoreRequest restauration d'une sauvegarde du répertoire, désignée par son nom.
type RestoreRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
}
