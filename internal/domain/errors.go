package domain

import "errors"

// Erreurs de domaine (sans dépendance externe).
var (
	ErrNotFound          = errors.New("ressource introuvable")
	ErrUserNotFound      = errors.New("utilisateur introuvable")
	ErrInvalidInput      = errors.New("entrée invalide")
	ErrDuplicate         = errors.New("ressource en double")
	ErrUnauthorized      = errors.New("non autorisé")
	ErrForbidden         = errors.New("accès refusé")
	ErrInvalidBackupFile = errors.New("fichier de sauvegarde invalide")
	ErrBackupInProgress  = errors.New("une sauvegarde est déjà en cours")
)
