package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stoir-api/internal/application/dto"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/infrastructure/xlsx"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InventoryHandler maneja documentos de movimiento, kardex y verificación.
type InventoryHandler struct {
	engine *inventory.LedgerEngine
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.LedgerEngine) *InventoryHandler {
	return &InventoryHandler{engine: engine}
}

func kindParam(c *fiber.Ctx) (entity.DocumentKind, bool) {
	return entity.ParseKind(c.Params("kind"))
}

// ApplyMovement godoc
// @Summary      Registrar documento de movimiento
// @Description  Crea el documento, sus líneas y las entradas de kardex en una sola transacción.
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        kind  path  string                    true  "receipt | issue | adjustment | claim"
// @Param        body  body  dto.ApplyMovementRequest  true  "cabecera y líneas (en ajustes quantity es el conteo físico)"
// @Success      201   {object}  dto.MovementResponse
// @Success      200   {object}  dto.MovementResponse  "documento duplicado ignorado"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/{kind} [post]
func (h *InventoryHandler) ApplyMovement(c *fiber.Ctx) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "INVALID_KIND", fmt.Sprintf("tipo de documento desconocido %q", c.Params("kind")))
	}
	var in dto.ApplyMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	input := inventory.MovementInput{
		Kind:        kind,
		Number:      in.Number,
		Date:        in.ParsedDate(),
		PartnerCode: in.PartnerCode,
		Note:        in.Note,
		CreatedBy:   in.CreatedBy,
		Lines:       make([]inventory.LineInput, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		input.Lines = append(input.Lines, inventory.LineInput{
			ItemCode:  l.ItemCode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Note:      l.Note,
		})
	}

	res, err := h.engine.ApplyMovement(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Skipped {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.ToMovementResponse(res))
}

// GetDocument godoc
// @Summary      Consultar documento
// @Tags         movements
// @Produce      json
// @Param        kind    path  string  true  "receipt | issue | adjustment | claim"
// @Param        number  path  string  true  "número del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{kind}/{number} [get]
func (h *InventoryHandler) GetDocument(c *fiber.Ctx) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "INVALID_KIND", fmt.Sprintf("tipo de documento desconocido %q", c.Params("kind")))
	}
	doc, err := h.engine.Document(c.Context(), kind, c.Params("number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(*doc))
}

// GetLedger godoc
// @Summary      Kardex de un artículo
// @Tags         ledger
// @Produce      json
// @Param        code    path   string  true   "código del artículo"
// @Param        limit   query  int     false  "máximo de entradas (por defecto 100)"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.LedgerResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{code}/ledger [get]
func (h *InventoryHandler) GetLedger(c *fiber.Ctx) error {
	var page dto.PageRequest
	if ok, err := parseQuery(c, &page); !ok {
		return err
	}
	page.DefaultPage()

	item, err := h.engine.Item(c.Context(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	entries, total, err := h.engine.History(c.Context(), item.Code, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.LedgerResponse{
		ItemCode: item.Code,
		Stock:    item.Stock,
		Entries:  dto.ToLedgerEntries(entries),
		Page:     dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// ExportLedger godoc
// @Summary      Exportar kardex a Excel
// @Tags         ledger
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        code  path  string  true  "código del artículo"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{code}/ledger.xlsx [get]
func (h *InventoryHandler) ExportLedger(c *fiber.Ctx) error {
	item, err := h.engine.Item(c.Context(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	entries, _, err := h.engine.History(c.Context(), item.Code, 0, 0)
	if err != nil {
		return writeError(c, err)
	}
	book, err := xlsx.LedgerWorkbook(item, entries)
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment(xlsx.FileName(item))
	c.Set(fiber.HeaderContentType, mimeXLSX)
	return c.Send(book)
}

// VerifyItem godoc
// @Summary      Verificar kardex de un artículo
// @Description  Reproduce el kardex desde 0 y lo compara con el stock actual.
// @Tags         ledger
// @Produce      json
// @Param        code  path  string  true  "código del artículo"
// @Success      200  {object}  inventory.ReplayReport
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{code}/verify [get]
func (h *InventoryHandler) VerifyItem(c *fiber.Ctx) error {
	rep, err := h.engine.Verify(c.Context(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

// VerifyAll godoc
// @Summary      Verificar todo el kardex
// @Tags         ledger
// @Produce      json
// @Success      200  {object}  dto.VerifySummary
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/ledger/verify [get]
func (h *InventoryHandler) VerifyAll(c *fiber.Ctx) error {
	reports, err := h.engine.VerifyAll(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewVerifySummary(reports))
}

// GetReorderList godoc
// @Summary      Lista de reposición
// @Description  Artículos con stock en o bajo su mínimo, con la cantidad sugerida y su costo estimado.
// @Tags         items
// @Produce      json
// @Success      200  {array}   inventory.ReorderSuggestion
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/items/reorder [get]
func (h *InventoryHandler) GetReorderList(c *fiber.Ctx) error {
	list, err := h.engine.ReorderList(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}
