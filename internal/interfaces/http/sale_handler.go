package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/application/sales"
)

// SaleHandler expose le registre des ventes.
type SaleHandler struct {
	uc *sales.UseCase
}

// NewSaleHandler construit le handler.
func NewSaleHandler(uc *sales.UseCase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

// Create godoc
// @Summary      Enregistrer une vente
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "Vente, lignes et photos"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.CreateSale(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Détail d'une vente
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la vente"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id requis"})
	}
	out, err := h.uc.GetSale(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Photo godoc
// @Summary      Photo jointe à une vente
// @Tags         sales
// @Security     Bearer
// @Produce      image/jpeg,image/png,image/webp
// @Param        id    path  string  true  "ID de la vente"
// @Param        kind  path  string  true  "id_front, id_back ou receipt"
// @Success      200   {file}    binary
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/photos/{kind} [get]
func (h *SaleHandler) Photo(c *fiber.Ctx) error {
	photo, err := h.uc.GetSalePhoto(c.UserContext(), actorFrom(c), c.Params("id"), c.Params("kind"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, photo.MimeType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(photo.Data)
}

// List godoc
// @Summary      Ventes d'un magasin sur une période
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        store_id  query  string  false  "Magasin (admin)"
// @Param        from      query  string  false  "Début AAAA-MM-JJ"
// @Param        to        query  string  false  "Fin incluse AAAA-MM-JJ"
// @Success      200       {object}  dto.SaleListResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	var in dto.PeriodRequest
	if ok, err := parseQuery(c, &in); !ok {
		return err
	}
	out, err := h.uc.ListSales(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Supprimer une vente
// @Tags         sales
// @Security     Bearer
// @Param        id   path  string  true  "ID de la vente"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteSale(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
