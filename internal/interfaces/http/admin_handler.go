package http

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/registre-pyro/registre-api/internal/application/admin"
	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/application/purge"
)

// AdminFacade opérations d'administration exposées en HTTP.
type AdminFacade interface {
	CreateAutomaticBackup(ctx context.Context) backup.Report
	GetBackupStats() backup.Stats
	ListBackups() ([]backup.Artifact, error)
	RestoreBackupByName(ctx context.Context, name string) admin.RestoreReport
	ExportJSON(ctx context.Context, w io.Writer) error
	ExecutePurgeManually(ctx context.Context, actor string) purge.Report
	GetPurgeStats(ctx context.Context) purge.Stats
	SchedulerStatus() admin.SchedulerStatus
}

var _ AdminFacade = (*admin.Facade)(nil)

// AdminHandler sauvegardes, restauration, purge et état du planificateur.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler construit le handler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// ListBackups godoc
// @Summary      Lister les sauvegardes
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  backup.Artifact
// @Router       /api/admin/backups [get]
func (h *AdminHandler) ListBackups(c *fiber.Ctx) error {
	list, err := h.facade.ListBackups()
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []backup.Artifact{}
	}
	return c.JSON(list)
}

// BackupStats godoc
// @Summary      Statistiques des sauvegardes
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  backup.Stats
// @Router       /api/admin/backups/stats [get]
func (h *AdminHandler) BackupStats(c *fiber.Ctx) error {
	return c.JSON(h.facade.GetBackupStats())
}

// CreateBackup godoc
// @Summary      Sauvegarde manuelle
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      201  {object}  backup.Report
// @Failure      500  {object}  backup.Report
// @Router       /api/admin/backups [post]
func (h *AdminHandler) CreateBackup(c *fiber.Ctx) error {
	report := h.facade.CreateAutomaticBackup(c.UserContext())
	if !report.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(report)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// Restore godoc
// @Summary      Restaurer une sauvegarde
// @Description  Remplace les données courantes par le contenu de la sauvegarde désignée.
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestoreRequest  true  "Nom du fichier de sauvegarde"
// @Success      200   {object}  admin.RestoreReport
// @Failure      422   {object}  admin.RestoreReport
// @Router       /api/admin/backups/restore [post]
func (h *AdminHandler) Restore(c *fiber.Ctx) error {
	var in dto.RestoreRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	report := h.facade.RestoreBackupByName(c.UserContext(), in.Filename)
	if !report.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(report)
	}
	return c.JSON(report)
}

// ExportJSON godoc
// @Summary      Export JSON complet
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200
// @Router       /api/admin/backups/export.json [get]
func (h *AdminHandler) ExportJSON(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.facade.ExportJSON(c.UserContext(), &buf); err != nil {
		return writeError(c, err)
	}
	c.Attachment("registre-export-" + time.Now().UTC().Format("20060102-150405") + ".json")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(buf.Bytes())
}

// PurgeStats godoc
// @Summary      Statistiques de purge
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  purge.Stats
// @Router       /api/admin/purge/stats [get]
func (h *AdminHandler) PurgeStats(c *fiber.Ctx) error {
	return c.JSON(h.facade.GetPurgeStats(c.UserContext()))
}

// Purge godoc
// @Summary      Purge manuelle des ventes expirées
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  purge.Report
// @Failure      500  {object}  purge.Report
// @Router       /api/admin/purge [post]
func (h *AdminHandler) Purge(c *fiber.Ctx) error {
	report := h.facade.ExecutePurgeManually(c.UserContext(), GetUserID(c))
	if !report.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(report)
	}
	return c.JSON(report)
}

// Scheduler godoc
// @Summary      État du planificateur
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  admin.SchedulerStatus
// @Router       /api/admin/scheduler [get]
func (h *AdminHandler) Scheduler(c *fiber.Ctx) error {
	return c.JSON(h.facade.SchedulerStatus())
}
