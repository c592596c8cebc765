package http

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/internal/infrastructure/csvexport"
)

// RegisterPDFGenerator produit le PDF du registre.
type RegisterPDFGenerator interface {
	GenerateRegisterPDF(ctx context.Context, reg *sales.Register) ([]byte, error)
}

// ExportHandler exporte le registre en CSV ou PDF.
type ExportHandler struct {
	uc  *sales.UseCase
	pdf RegisterPDFGenerator
	loc *time.Location
}

// NewExportHandler construit le handler.
func NewExportHandler(uc *sales.UseCase, pdf RegisterPDFGenerator, loc *time.Location) *ExportHandler {
	return &ExportHandler{uc: uc, pdf: pdf, loc: loc}
}

// CSV godoc
// @Summary      Export CSV du registre
// @Tags         exports
// @Security     Bearer
// @Produce      text/csv
// @Param        store_id  query  string  false  "Magasin (admin)"
// @Param        from      query  string  false  "Début AAAA-MM-JJ"
// @Param        to        query  string  false  "Fin incluse AAAA-MM-JJ"
// @Param        encoding  query  string  false  "utf-8 (défaut) ou windows-1252"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/exports/sales.csv [get]
func (h *ExportHandler) CSV(c *fiber.Ctx) error {
	reg, ok, err := h.register(c)
	if !ok {
		return err
	}
	cp1252 := strings.EqualFold(c.Query("encoding"), "windows-1252")
	var buf bytes.Buffer
	if err := csvexport.WriteRegister(&buf, reg, csvexport.Options{Windows1252: cp1252, Location: h.loc}); err != nil {
		return writeError(c, err)
	}
	charset := "utf-8"
	if cp1252 {
		charset = "windows-1252"
	}
	c.Attachment(csvexport.Filename(reg, "csv"))
	c.Set(fiber.HeaderContentType, "text/csv; charset="+charset)
	return c.Send(buf.Bytes())
}

// PDF godoc
// @Summary      Export PDF du registre
// @Tags         exports
// @Security     Bearer
// @Produce      application/pdf
// @Param        store_id  query  string  false  "Magasin (admin)"
// @Param        from      query  string  false  "Début AAAA-MM-JJ"
// @Param        to        query  string  false  "Fin incluse AAAA-MM-JJ"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/exports/sales.pdf [get]
func (h *ExportHandler) PDF(c *fiber.Ctx) error {
	reg, ok, err := h.register(c)
	if !ok {
		return err
	}
	doc, err := h.pdf.GenerateRegisterPDF(c.UserContext(), reg)
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment(csvexport.Filename(reg, "pdf"))
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(doc)
}

func (h *ExportHandler) register(c *fiber.Ctx) (*sales.Register, bool, error) {
	var in dto.PeriodRequest
	if ok, err := parseQuery(c, &in); !ok {
		return nil, false, err
	}
	reg, err := h.uc.Register(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return nil, false, writeError(c, err)
	}
	return reg, true, nil
}
