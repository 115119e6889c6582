package http

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stoir-api/internal/application/dbtools"
)

// maxRestoreSize límite del archivo de restauración.
const maxRestoreSize = 256 << 20

// DBToolsHandler administración de la base: información, respaldo, restauración, reset y demo.
type DBToolsHandler struct {
	svc *dbtools.Service
}

// NewDBToolsHandler construye el handler.
func NewDBToolsHandler(svc *dbtools.Service) *DBToolsHandler {
	return &DBToolsHandler{svc: svc}
}

// Info godoc
// @Summary      Información de la base
// @Tags         admin
// @Produce      json
// @Success      200  {object}  dto.DBInfo
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/db/info [get]
func (h *DBToolsHandler) Info(c *fiber.Ctx) error {
	info, err := h.svc.Info(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(info)
}

// Backup godoc
// @Summary      Descargar respaldo
// @Description  Solo con SQLite embebido: guarda y devuelve la imagen completa del archivo.
// @Tags         admin
// @Produce      application/octet-stream
// @Success      200  {file}    binary
// @Failure      501  {object}  dto.ErrorResponse
// @Router       /api/admin/db/backup [get]
func (h *DBToolsHandler) Backup(c *fiber.Ctx) error {
	image, name, err := h.svc.Backup(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(image)
}

// Restore godoc
// @Summary      Restaurar respaldo
// @Description  Acepta multipart (campo "file") o el archivo como cuerpo. Imagen SQLite: rota
// @Description  archivos y requiere reinicio. Script SQL: se aplica en vivo.
// @Tags         admin
// @Accept       multipart/form-data
// @Accept       application/octet-stream
// @Produce      json
// @Param        file  formData  file  false  "respaldo .sqlite o script .sql"
// @Success      200  {object}  dto.AdminResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      501  {object}  dto.ErrorResponse
// @Router       /api/admin/db/restore [post]
func (h *DBToolsHandler) Restore(c *fiber.Ctx) error {
	payload, hint, err := restorePayload(c)
	if err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	res, err := h.svc.Restore(c.Context(), payload, hint)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

func restorePayload(c *fiber.Ctx) ([]byte, dbtools.RestoreHint, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, dbtools.RestoreHint{}, err
		}
		defer f.Close()
		payload, err := io.ReadAll(io.LimitReader(f, maxRestoreSize))
		if err != nil {
			return nil, dbtools.RestoreHint{}, err
		}
		return payload, dbtools.RestoreHint{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
		}, nil
	}
	body := c.Body()
	payload := make([]byte, len(body))
	copy(payload, body)
	return payload, dbtools.RestoreHint{
		Filename:    c.Query("filename"),
		ContentType: c.Get(fiber.HeaderContentType),
	}, nil
}

// Reset godoc
// @Summary      Reiniciar base
// @Description  SQLite: rota el archivo y requiere reinicio. PostgreSQL: vacía las tablas.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  dto.AdminResult
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/db/reset [post]
func (h *DBToolsHandler) Reset(c *fiber.Ctx) error {
	res, err := h.svc.Reset(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Seed godoc
// @Summary      Cargar datos demo
// @Description  Inserta los datos maestros que falten y registra el stock de apertura en el kardex.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  dto.AdminResult
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/db/seed [post]
func (h *DBToolsHandler) Seed(c *fiber.Ctx) error {
	res, err := h.svc.Seed(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
