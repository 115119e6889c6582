package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Almacenamiento
	ErrNestedTransaction = errors.New("transacción anidada no soportada")
	ErrUnsupported       = errors.New("operación no soportada por este proveedor")
	ErrInvalidSnapshot   = errors.New("archivo de respaldo inválido")
	ErrDurability        = errors.New("no se pudo persistir la base de datos")
	ErrClosed            = errors.New("base de datos cerrada")
)
