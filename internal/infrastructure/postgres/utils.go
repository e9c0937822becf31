package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/labinventario-api/internal/domain"
)

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// isForeignKeyViolation verifica si la fila referenciada no existe (23503).
func isForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// isCheckViolation verifica si se violó un CHECK (bolsas negativas, tipo de movimiento).
func isCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return strings.Contains(err.Error(), code)
}

// storageErr envuelve un fallo del driver como domain.ErrStorage conservando la causa.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// nullableID escribe NULL para un identificador vacío.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
