package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocumentKind tipo de documento que mueve stock.
type DocumentKind string

const (
	KindReceipt    DocumentKind = "receipt"    // entrada de proveedor
	KindIssue      DocumentKind = "issue"      // salida a cliente
	KindAdjustment DocumentKind = "adjustment" // conteo físico (opname)
	KindClaim      DocumentKind = "claim"      // reclamo de cliente (sale stock)
)

// Tipos de referencia en el kardex.
const (
	RefIn       = "IN"
	RefOut      = "OUT"
	RefAdj      = "ADJ"
	RefClaimOut = "CLAIM_OUT"
)

// Kinds todos los tipos válidos, en orden estable.
var Kinds = []DocumentKind{KindReceipt, KindIssue, KindAdjustment, KindClaim}

// ParseKind acepta el nombre del tipo o su referencia de kardex.
func ParseKind(s string) (DocumentKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receipt", "in":
		return KindReceipt, true
	case "issue", "out":
		return KindIssue, true
	case "adjustment", "adj":
		return KindAdjustment, true
	case "claim", "claim_out":
		return KindClaim, true
	}
	return "", false
}

// RefType referencia de kardex del documento.
func (k DocumentKind) RefType() string {
	switch k {
	case KindReceipt:
		return RefIn
	case KindIssue:
		return RefOut
	case KindAdjustment:
		return RefAdj
	case KindClaim:
		return RefClaimOut
	}
	return ""
}

// NumberPrefix prefijo para números de documento generados.
func (k DocumentKind) NumberPrefix() string {
	switch k {
	case KindReceipt:
		return "RCV"
	case KindIssue:
		return "ISS"
	case KindAdjustment:
		return "ADJ"
	case KindClaim:
		return "CLM"
	}
	return "DOC"
}

// Decreases indica si el documento solo descuenta stock (sujeto a recorte).
func (k DocumentKind) Decreases() bool {
	return k == KindIssue || k == KindClaim
}

var upper = cases.Upper(language.Und)

// NormalizeCode recorta y pasa a mayúsculas un código de artículo o documento.
func NormalizeCode(s string) string {
	return upper.String(strings.TrimSpace(s))
}

// MovementDocument cabecera de un documento de movimiento. Se crea una vez y no se edita.
type MovementDocument struct {
	ID          int64
	Kind        DocumentKind
	Number      string
	Date        time.Time
	PartnerCode string // proveedor (receipt) o cliente (issue/claim)
	Note        string
	Lines       []MovementLine
	CreatedAt   time.Time
}

// MovementLine detalle. Quantity es la cantidad aplicada; en ajustes es el conteo físico.
type MovementLine struct {
	ItemCode    string
	Quantity    int64
	UnitPrice   *decimal.Decimal
	SystemQty   int64 // solo ajustes
	PhysicalQty int64 // solo ajustes
	Difference  int64 // solo ajustes: físico - sistema
	Note        string
}

// LedgerEntry fila del kardex: un cambio de stock con el saldo resultante.
type LedgerEntry struct {
	ID           int64
	OccurredAt   time.Time
	RefType      string
	RefNo        string
	ItemCode     string
	QtyIn        int64
	QtyOut       int64
	BalanceAfter int64
	Note         string
	CreatedBy    string
}

// Delta cambio neto de la entrada.
func (e LedgerEntry) Delta() int64 {
	return e.QtyIn - e.QtyOut
}

// AppliedLine resultado de aplicar una línea.
type AppliedLine struct {
	ItemCode     string
	Requested    int64
	Applied      int64 // en ajustes: |diferencia|
	QtyIn        int64
	QtyOut       int64
	BalanceAfter int64
	Clamped      bool // la salida se recortó al stock disponible
	Skipped      bool // nada que aplicar, sin línea ni kardex
}

// MovementResult resultado de ApplyMovement.
type MovementResult struct {
	Document MovementDocument
	Lines    []AppliedLine
	// Skipped: el número ya existía y la política es ignorar; no hubo cambios.
	Skipped bool
}
