package sqldb

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	returningRe = regexp.MustCompile(`(?i)\bRETURNING\b`)
	forUpdateRe = regexp.MustCompile(`(?is)\s+FOR\s+UPDATE\s*;?\s*$`)
)

// Translate reescribe una sentencia escrita con "?" a la sintaxis del proveedor.
//
// PostgreSQL: cada "?" fuera de literales pasa a $1..$n. SQLite: se devuelve tal cual salvo el
// sufijo FOR UPDATE, que SQLite no entiende y que no hace falta (las operaciones ya van serializadas).
//
// Es un escáner léxico: reconoce comillas simples y dobles con escape por duplicación ('' y ""),
// no comentarios ni dollar-quoting. Un texto con comillas mal balanceadas da un resultado indefinido.
func Translate(p Provider, stmt string) string {
	switch p {
	case Postgres:
		return rebindDollar(stmt)
	case SQLite:
		return forUpdateRe.ReplaceAllString(stmt, "")
	}
	return stmt
}

func rebindDollar(stmt string) string {
	var b strings.Builder
	b.Grow(len(stmt) + 8)

	n := 0
	scanLiterals(stmt, func(ch byte, quoted bool) {
		if ch == '?' && !quoted {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			return
		}
		b.WriteByte(ch)
	})
	return b.String()
}

// maskLiterals reemplaza por espacios todo lo que va entre comillas, incluidas las comillas.
func maskLiterals(stmt string) string {
	var b strings.Builder
	b.Grow(len(stmt))
	scanLiterals(stmt, func(ch byte, quoted bool) {
		if quoted {
			b.WriteByte(' ')
			return
		}
		b.WriteByte(ch)
	})
	return b.String()
}

// scanLiterals recorre stmt byte a byte indicando si cada uno pertenece a un literal
// ('...' o "..." con escape por duplicación).
func scanLiterals(stmt string, emit func(ch byte, quoted bool)) {
	var open byte
	for i := 0; i < len(stmt); i++ {
		ch := stmt[i]
		switch {
		case open == 0 && (ch == '\'' || ch == '"'):
			open = ch
			emit(ch, true)
		case open != 0 && ch == open:
			emit(ch, true)
			if i+1 < len(stmt) && stmt[i+1] == open {
				emit(stmt[i+1], true)
				i++
				continue
			}
			open = 0
		default:
			emit(ch, open != 0)
		}
	}
}

// NeedsReturningID indica si a un INSERT hay que añadirle "RETURNING id" para
// emular last-insert-id en PostgreSQL.
func NeedsReturningID(stmt string) bool {
	trimmed := strings.TrimSpace(stmt)
	if len(trimmed) < 6 || !strings.EqualFold(trimmed[:6], "INSERT") {
		return false
	}
	return !returningRe.MatchString(maskLiterals(stmt))
}

// WithReturningID añade la cláusula, respetando un ";" final.
func WithReturningID(stmt string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(stmt), ";")
	return trimmed + " RETURNING id"
}
