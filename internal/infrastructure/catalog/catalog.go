// Package catalog importa el catálogo de productos desde planillas CSV exportadas por el laboratorio.
//
// Formato (separador ';', primera fila de encabezado):
//
//	codigo;descricao;unidade;fabricante;estoque_minimo
//	REA-001;Ácido clorhídrico 37%;L;Merck;5
//
// Las planillas de Excel suelen salir en Windows-1252; Parse decodifica el charset indicado.
package catalog

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

//go:embed demo.csv
var demoCSV string

const columns = 5

// ProductID deriva un ID estable del código para que reimportar no duplique productos.
func ProductID(code string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("labinventario/product/"+code)).String()
}

// Parse lee el CSV y devuelve los productos. charset: utf-8 (por defecto), iso-8859-1 o windows-1252.
// Una fila inválida aborta la importación indicando su número de línea.
func Parse(r io.Reader, charset string) ([]entity.Product, error) {
	decoded, err := decode(r, charset)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %w", domain.ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	seen := make(map[string]int, len(records))
	products := make([]entity.Product, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		p, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if prev, ok := seen[p.Code]; ok {
			return nil, fmt.Errorf("línea %d: %w: código %s repetido (línea %d)", line, domain.ErrDuplicate, p.Code, prev)
		}
		seen[p.Code] = line
		products = append(products, p)
	}
	return products, nil
}

// Demo devuelve el catálogo de ejemplo usado con STORAGE_DRIVER=memory.
func Demo() []entity.Product {
	products, err := Parse(strings.NewReader(demoCSV), "utf-8")
	if err != nil {
		panic("catalog: demo.csv inválido: " + err.Error())
	}
	return products
}

func parseRecord(rec []string) (entity.Product, error) {
	if len(rec) < columns {
		return entity.Product{}, fmt.Errorf("%w: se esperaban %d columnas, hay %d", domain.ErrInvalidInput, columns, len(rec))
	}
	code := strings.TrimSpace(rec[0])
	description := strings.TrimSpace(rec[1])
	if code == "" || description == "" {
		return entity.Product{}, fmt.Errorf("%w: código y descripción son obligatorios", domain.ErrInvalidInput)
	}
	unit := strings.TrimSpace(rec[2])
	if unit == "" {
		unit = "UN"
	}
	minimum := decimal.Zero
	if raw := strings.TrimSpace(rec[4]); raw != "" {
		// Las planillas en pt-BR/es usan coma decimal.
		d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if err != nil || d.IsNegative() {
			return entity.Product{}, fmt.Errorf("%w: estoque mínimo %q", domain.ErrInvalidInput, raw)
		}
		minimum = d
	}
	return entity.Product{
		ID:           ProductID(code),
		Code:         code,
		Description:  description,
		UnitMeasure:  unit,
		Manufacturer: strings.TrimSpace(rec[3]),
		MinimumStock: minimum,
	}, nil
}

func decode(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("%w: charset %q no soportado", domain.ErrInvalidInput, charset)
	}
}
