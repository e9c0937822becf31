package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrInvalidType           = errors.New("tipo de movimiento inválido")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrAlreadyOpen           = errors.New("el lote ya está abierto")
	ErrJustificationRequired = errors.New("ya existe un lote abierto para el producto: justificación obligatoria")
	ErrNoBatches             = errors.New("no hay lotes registrados para inventariar")
	ErrSessionFinalized      = errors.New("el inventario está finalizado")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrUnauthorized          = errors.New("no autorizado")
	// ErrStorage envuelve cualquier fallo de la capa de persistencia; nunca se silencia.
	ErrStorage = errors.New("fallo de almacenamiento")
)
