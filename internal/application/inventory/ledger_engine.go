package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/pkg/config"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

// UnderSupplyPolicy qué hacer cuando una salida pide más de lo disponible.
type UnderSupplyPolicy string

const (
	ClampUnderSupply  UnderSupplyPolicy = "clamp"  // se aplica lo disponible
	RejectUnderSupply UnderSupplyPolicy = "reject" // el documento completo falla
)

// DuplicatePolicy qué hacer con un número de documento ya registrado.
type DuplicatePolicy string

const (
	RejectDuplicates DuplicatePolicy = "reject"
	IgnoreDuplicates DuplicatePolicy = "ignore"
)

// Options configuración del motor. Los valores cero equivalen a clamp/reject.
type Options struct {
	UnderSupply UnderSupplyPolicy
	Duplicates  DuplicatePolicy
	Clock       Clock
	Log         *logger.Logger
	Metrics     *metrics.Metrics
}

// OptionsFromConfig traduce las políticas configuradas.
func OptionsFromConfig(cfg config.LedgerConfig) Options {
	return Options{
		UnderSupply: UnderSupplyPolicy(cfg.UnderSupply),
		Duplicates:  DuplicatePolicy(cfg.Duplicates),
	}
}

// LineInput línea solicitada. En ajustes Quantity es el conteo físico (puede ser 0).
type LineInput struct {
	ItemCode  string
	Quantity  int64
	UnitPrice *decimal.Decimal
	Note      string
}

// MovementInput documento solicitado. Number vacío = se genera.
type MovementInput struct {
	Kind        entity.DocumentKind
	Number      string
	Date        time.Time
	PartnerCode string
	Note        string
	CreatedBy   string
	Lines       []LineInput
}

// LedgerEngine mantiene stock de artículos y kardex en acuerdo.
type LedgerEngine struct {
	tx      TxRunner
	reads   Repos
	opts    Options
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewLedgerEngine construye el motor. reads son repositorios fuera de transacción (consultas).
func NewLedgerEngine(tx TxRunner, reads Repos, opts Options) *LedgerEngine {
	if opts.UnderSupply == "" {
		opts.UnderSupply = ClampUnderSupply
	}
	if opts.Duplicates == "" {
		opts.Duplicates = RejectDuplicates
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerEngine{
		tx:      tx,
		reads:   reads,
		opts:    opts,
		log:     log.Component("ledger"),
		metrics: opts.Metrics,
	}
}

// ApplyMovement registra el documento, sus líneas y las entradas de kardex en una sola
// transacción y actualiza el stock de cada artículo.
//
// Salidas (issue/claim) sin stock suficiente se recortan a lo disponible (o fallan con
// domain.ErrInsufficientStock según la política); una línea que queda en 0 se omite sin
// escribir detalle ni kardex. Un artículo inexistente anula el documento completo.
func (e *LedgerEngine) ApplyMovement(ctx context.Context, in MovementInput) (*entity.MovementResult, error) {
	in, err := e.normalize(in)
	if err != nil {
		return nil, err
	}

	var result *entity.MovementResult
	err = e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		existing, err := r.Movements.FindByNumber(ctx, in.Kind, in.Number)
		switch {
		case err == nil:
			if e.opts.Duplicates != IgnoreDuplicates {
				return fmt.Errorf("documento %s: %w", in.Number, domain.ErrDuplicate)
			}
			lines, err := r.Movements.Lines(ctx, in.Kind, existing.ID)
			if err != nil {
				return err
			}
			existing.Lines = lines
			result = &entity.MovementResult{Document: *existing, Skipped: true}
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		now := e.opts.Clock.Now().UTC()
		doc := &entity.MovementDocument{
			Kind:        in.Kind,
			Number:      in.Number,
			Date:        in.Date,
			PartnerCode: in.PartnerCode,
			Note:        in.Note,
			CreatedAt:   now,
		}
		if err := r.Movements.CreateHeader(ctx, doc); err != nil {
			return err
		}

		res := &entity.MovementResult{Lines: make([]entity.AppliedLine, 0, len(in.Lines))}
		for _, line := range in.Lines {
			applied, written, err := e.applyLine(ctx, r, doc, in, line, now)
			if err != nil {
				return err
			}
			res.Lines = append(res.Lines, applied)
			if written != nil {
				doc.Lines = append(doc.Lines, *written)
			}
		}
		res.Document = *doc
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Skipped {
		e.log.Info().Str("kind", string(in.Kind)).Str("number", in.Number).Msg("documento ya registrado, omitido")
		return result, nil
	}
	refType := in.Kind.RefType()
	for _, l := range result.Lines {
		switch {
		case l.Skipped:
			e.metrics.LedgerLine(refType, "skipped")
		case l.Clamped:
			e.metrics.LedgerLine(refType, "clamped")
		default:
			e.metrics.LedgerLine(refType, "applied")
		}
	}
	e.log.Info().
		Str("kind", string(in.Kind)).
		Str("number", in.Number).
		Int("lines", len(result.Lines)).
		Msg("movimiento aplicado")
	return result, nil
}

// applyLine aplica una línea dentro de la tx. written es nil si la línea se omitió.
func (e *LedgerEngine) applyLine(
	ctx context.Context,
	r Repos,
	doc *entity.MovementDocument,
	in MovementInput,
	line LineInput,
	now time.Time,
) (entity.AppliedLine, *entity.MovementLine, error) {
	item, err := r.Items.GetForUpdate(ctx, line.ItemCode)
	if err != nil {
		return entity.AppliedLine{}, nil, err
	}

	out := entity.AppliedLine{ItemCode: item.Code, Requested: line.Quantity}
	written := entity.MovementLine{ItemCode: item.Code, UnitPrice: line.UnitPrice, Note: line.Note}
	// Sin precio en la línea se congela el del artículo: compra en entradas, venta en salidas.
	if written.UnitPrice == nil {
		switch in.Kind {
		case entity.KindReceipt:
			written.UnitPrice = item.PurchasePrice
		case entity.KindIssue:
			written.UnitPrice = item.SalePrice
		}
	}

	var newStock int64
	switch in.Kind {
	case entity.KindReceipt:
		out.Applied = line.Quantity
		out.QtyIn = line.Quantity
		newStock = item.Stock + line.Quantity
		written.Quantity = line.Quantity

	case entity.KindIssue, entity.KindClaim:
		applied := min(line.Quantity, item.Stock)
		if applied < line.Quantity {
			if e.opts.UnderSupply == RejectUnderSupply {
				return out, nil, fmt.Errorf("artículo %s: solicitado %d, disponible %d: %w",
					item.Code, line.Quantity, item.Stock, domain.ErrInsufficientStock)
			}
			out.Clamped = true
		}
		out.Applied = applied
		out.BalanceAfter = item.Stock
		if applied == 0 {
			out.Skipped = true
			e.log.Debug().Str("item", item.Code).Str("number", doc.Number).Msg("sin stock, línea omitida")
			return out, nil, nil
		}
		out.QtyOut = applied
		newStock = item.Stock - applied
		written.Quantity = applied

	case entity.KindAdjustment:
		diff := line.Quantity - item.Stock
		out.QtyIn = max(diff, 0)
		out.QtyOut = max(-diff, 0)
		out.Applied = out.QtyIn + out.QtyOut
		newStock = line.Quantity
		written.Quantity = line.Quantity
		written.SystemQty = item.Stock
		written.PhysicalQty = line.Quantity
		written.Difference = diff
	}

	if err := r.Movements.AddLine(ctx, in.Kind, doc.ID, written); err != nil {
		return out, nil, err
	}
	if err := r.Items.UpdateStock(ctx, item.Code, newStock); err != nil {
		return out, nil, err
	}
	note := line.Note
	if note == "" {
		note = in.Note
	}
	entry := &entity.LedgerEntry{
		OccurredAt:   now,
		RefType:      in.Kind.RefType(),
		RefNo:        doc.Number,
		ItemCode:     item.Code,
		QtyIn:        out.QtyIn,
		QtyOut:       out.QtyOut,
		BalanceAfter: newStock,
		Note:         note,
		CreatedBy:    in.CreatedBy,
	}
	if err := r.Ledger.Append(ctx, entry); err != nil {
		return out, nil, err
	}
	out.BalanceAfter = newStock
	return out, &written, nil
}

// normalize valida la entrada y normaliza códigos. Genera el número si falta.
func (e *LedgerEngine) normalize(in MovementInput) (MovementInput, error) {
	kind, ok := entity.ParseKind(string(in.Kind))
	if !ok {
		return in, fmt.Errorf("tipo de documento %q: %w", in.Kind, domain.ErrInvalidInput)
	}
	in.Kind = kind
	if len(in.Lines) == 0 {
		return in, fmt.Errorf("el documento no tiene líneas: %w", domain.ErrInvalidInput)
	}

	lines := make([]LineInput, len(in.Lines))
	for i, l := range in.Lines {
		l.ItemCode = entity.NormalizeCode(l.ItemCode)
		if l.ItemCode == "" {
			return in, fmt.Errorf("línea %d sin código de artículo: %w", i+1, domain.ErrInvalidInput)
		}
		if kind == entity.KindAdjustment {
			if l.Quantity < 0 {
				return in, fmt.Errorf("línea %d: conteo físico negativo: %w", i+1, domain.ErrInvalidInput)
			}
		} else if l.Quantity <= 0 {
			return in, fmt.Errorf("línea %d: cantidad debe ser mayor que 0: %w", i+1, domain.ErrInvalidInput)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return in, fmt.Errorf("línea %d: precio negativo: %w", i+1, domain.ErrInvalidInput)
		}
		l.Note = strings.TrimSpace(l.Note)
		lines[i] = l
	}
	in.Lines = lines

	in.PartnerCode = entity.NormalizeCode(in.PartnerCode)
	if kind == entity.KindAdjustment {
		in.PartnerCode = ""
	}
	in.Note = strings.TrimSpace(in.Note)
	in.Number = entity.NormalizeCode(in.Number)
	if in.Date.IsZero() {
		in.Date = e.opts.Clock.Now()
	}
	if in.Number == "" {
		in.Number = GenerateNumber(kind, in.Date)
	}
	return in, nil
}

// GenerateNumber <PREFIJO>-<yyyymmdd>-<8 hex>.
func GenerateNumber(kind entity.DocumentKind, date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", kind.NumberPrefix(), date.UTC().Format("20060102"), suffix)
}

// Document devuelve la cabecera y sus líneas.
func (e *LedgerEngine) Document(ctx context.Context, kind entity.DocumentKind, number string) (*entity.MovementDocument, error) {
	k, ok := entity.ParseKind(string(kind))
	if !ok {
		return nil, fmt.Errorf("tipo de documento %q: %w", kind, domain.ErrInvalidInput)
	}
	doc, err := e.reads.Movements.FindByNumber(ctx, k, entity.NormalizeCode(number))
	if err != nil {
		return nil, err
	}
	lines, err := e.reads.Movements.Lines(ctx, k, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

// Item artículo por código.
func (e *LedgerEngine) Item(ctx context.Context, code string) (*entity.Item, error) {
	return e.reads.Items.Get(ctx, entity.NormalizeCode(code))
}

// History entradas del kardex del artículo en orden (occurred_at, id) y el total.
func (e *LedgerEngine) History(ctx context.Context, code string, limit, offset int) ([]entity.LedgerEntry, int64, error) {
	code = entity.NormalizeCode(code)
	if _, err := e.reads.Items.Get(ctx, code); err != nil {
		return nil, 0, err
	}
	total, err := e.reads.Ledger.CountForItem(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	entries, err := e.reads.Ledger.ListForItem(ctx, code, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
