package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/shopspring/decimal"
)

// Normalized header aliases, first match wins. Chilean bank exports use the
// Spanish names and often split money into cargo and abono columns.
var (
	dateColumns        = []string{"date", "transaction_date", "fecha", "fecha_operacion", "fecha_movimiento"}
	amountColumns      = []string{"amount", "monto", "importe"}
	creditColumns      = []string{"credit", "abono", "abonos", "deposito", "depositos"}
	debitColumns       = []string{"debit", "cargo", "cargos", "giro", "giros"}
	descriptionColumns = []string{"description", "descripcion", "glosa", "detalle"}
	referenceColumns   = []string{"reference", "referencia", "documento", "n_documento", "nro_documento", "numero_documento"}
)

// DefaultDateLayouts are tried in order when no layouts are configured
var DefaultDateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"02/01/06",
	"2006/01/02",
	time.RFC3339,
}

const (
	// DefaultMaxRows matches the largest batch ImportTransactions accepts
	DefaultMaxRows = 1000

	maxDescriptionLen = 500
	maxReferenceLen   = 100
)

// Options controls how values are interpreted
type Options struct {
	DecimalComma bool
	DateLayouts  []string
	Location     *time.Location
	MaxRows      int
	MaxErrors    int
	Delimiter    rune
}

// Option mutates Options
type Option func(*Options)

// WithDecimalComma reads "1.234,50" instead of "1,234.50"
func WithDecimalComma() Option {
	return func(o *Options) { o.DecimalComma = true }
}

// WithDateLayouts replaces the accepted date layouts
func WithDateLayouts(layouts ...string) Option {
	return func(o *Options) { o.DateLayouts = layouts }
}

// WithLocation sets the zone dates without an offset are read in
func WithLocation(loc *time.Location) Option {
	return func(o *Options) { o.Location = loc }
}

// WithMaxRows caps the number of data rows
func WithMaxRows(n int) Option {
	return func(o *Options) { o.MaxRows = n }
}

// WithFieldDelimiter disables delimiter detection
func WithFieldDelimiter(d rune) Option {
	return func(o *Options) { o.Delimiter = d }
}

// Result is a parsed statement. Rows holds only lines without errors, so a
// caller importing a partially invalid file must check Valid first.
type Result struct {
	Rows        []appfinance.ImportTransactionRow `json:"rows"`
	Errors      []RowError                        `json:"errors,omitempty"`
	TotalRows   int                               `json:"total_rows"`
	TotalErrors int                               `json:"total_errors,omitempty"`
	Truncated   bool                              `json:"truncated,omitempty"`
}

// Valid reports whether every row parsed
func (r *Result) Valid() bool {
	return r.TotalErrors == 0
}

// Request converts the parsed rows into an import request
func (r *Result) Request() appfinance.ImportTransactionsRequest {
	return appfinance.ImportTransactionsRequest{Rows: r.Rows}
}

type columns struct {
	date, amount, credit, debit, description, reference int
}

// Parse reads a bank statement export. File-level problems (encoding, header,
// missing columns) are returned as errors; per-line problems land in Result.Errors.
func Parse(src io.Reader, opts ...Option) (*Result, error) {
	o := Options{
		DateLayouts: DefaultDateLayouts,
		Location:    time.UTC,
		MaxRows:     DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var readerOpts []ReaderOption
	if o.Delimiter != 0 {
		readerOpts = append(readerOpts, WithDelimiter(o.Delimiter))
	}
	rd, err := NewReader(src, readerOpts...)
	if err != nil {
		return nil, err
	}
	if err := rd.ReadHeader(); err != nil {
		return nil, err
	}
	cols, err := resolveColumns(rd)
	if err != nil {
		return nil, err
	}

	errs := NewErrorCollection(o.MaxErrors)
	result := &Result{Rows: make([]appfinance.ImportTransactionRow, 0)}
	for {
		row, err := rd.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, err
			}
			errs.Add(RowError{Row: rd.currentRow, Code: CodeMalformedRow, Message: parseErr.Err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++
		if result.TotalRows > o.MaxRows {
			errs.Add(RowError{Row: row.LineNumber, Code: CodeTooManyRows, Message: fmt.Sprintf("statement exceeds %d rows", o.MaxRows)})
			break
		}
		if parsed, ok := parseRow(row, cols, o, errs); ok {
			result.Rows = append(result.Rows, parsed)
		}
	}

	if result.TotalRows == 0 && !errs.HasErrors() {
		return nil, ErrNoDataRows
	}
	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.Truncated = errs.IsTruncated()
	return result, nil
}

func resolveColumns(rd *Reader) (columns, error) {
	c := columns{amount: -1, credit: -1, debit: -1, description: -1, reference: -1}
	var missing []string

	var ok bool
	if c.date, ok = rd.Column(dateColumns...); !ok {
		missing = append(missing, "date")
	}
	if idx, found := rd.Column(amountColumns...); found {
		c.amount = idx
	} else {
		if idx, found := rd.Column(creditColumns...); found {
			c.credit = idx
		}
		if idx, found := rd.Column(debitColumns...); found {
			c.debit = idx
		}
		if c.credit < 0 && c.debit < 0 {
			missing = append(missing, "amount")
		}
	}
	if idx, found := rd.Column(descriptionColumns...); found {
		c.description = idx
	}
	if idx, found := rd.Column(referenceColumns...); found {
		c.reference = idx
	}

	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s (found %s)", ErrMissingColumns, strings.Join(missing, ", "), strings.Join(rd.Headers(), ", "))
	}
	return c, nil
}

func parseRow(row *Row, c columns, o Options, errs *ErrorCollection) (appfinance.ImportTransactionRow, bool) {
	var out appfinance.ImportTransactionRow
	ok := true

	if raw := row.Field(c.date); raw == "" {
		errs.AddRequired(row.LineNumber, "date")
		ok = false
	} else if d, err := ParseDate(raw, o.DateLayouts, o.Location); err != nil {
		errs.AddFormat(row.LineNumber, "date", CodeInvalidDate, "a date like "+o.DateLayouts[0], raw)
		ok = false
	} else {
		out.TransactionDate = d
	}

	amount, amountOK := rowAmount(row, c, o, errs)
	out.Amount = amount
	ok = ok && amountOK

	out.Description = row.Field(c.description)
	if utf8.RuneCountInString(out.Description) > maxDescriptionLen {
		errs.Add(RowError{Row: row.LineNumber, Column: "description", Code: CodeFieldTooLong, Message: fmt.Sprintf("length must be at most %d", maxDescriptionLen)})
		ok = false
	}
	out.Reference = row.Field(c.reference)
	if utf8.RuneCountInString(out.Reference) > maxReferenceLen {
		errs.Add(RowError{Row: row.LineNumber, Column: "reference", Code: CodeFieldTooLong, Message: fmt.Sprintf("length must be at most %d", maxReferenceLen), Value: out.Reference})
		ok = false
	}
	return out, ok
}

// rowAmount reads either the signed amount column or the credit/debit pair.
// Debits are stored as negative amounts.
func rowAmount(row *Row, c columns, o Options, errs *ErrorCollection) (decimal.Decimal, bool) {
	if c.amount >= 0 {
		raw := row.Field(c.amount)
		if raw == "" {
			errs.AddRequired(row.LineNumber, "amount")
			return decimal.Zero, false
		}
		v, err := ParseAmount(raw, o.DecimalComma)
		if err != nil || v.IsZero() {
			errs.AddFormat(row.LineNumber, "amount", CodeInvalidAmount, "a non-zero amount", raw)
			return decimal.Zero, false
		}
		return v, true
	}

	credit, debit := row.Field(c.credit), row.Field(c.debit)
	total := decimal.Zero
	for _, part := range []struct {
		column, raw string
		sign        int64
	}{{"credit", credit, 1}, {"debit", debit, -1}} {
		if part.raw == "" {
			continue
		}
		v, err := ParseAmount(part.raw, o.DecimalComma)
		if err != nil {
			errs.AddFormat(row.LineNumber, part.column, CodeInvalidAmount, "an amount", part.raw)
			return decimal.Zero, false
		}
		total = total.Add(v.Abs().Mul(decimal.NewFromInt(part.sign)))
	}
	if total.IsZero() {
		errs.AddFormat(row.LineNumber, "amount", CodeInvalidAmount, "a non-zero credit or debit", credit+debit)
		return decimal.Zero, false
	}
	return total, true
}

// ParseAmount accepts bank formatting: currency symbols, thousands
// separators, accounting parentheses and a trailing minus.
func ParseAmount(raw string, decimalComma bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "CLP")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	thousands, point := ",", "."
	if decimalComma {
		thousands, point = ".", ","
	}
	s = strings.ReplaceAll(s, thousands, "")
	s = strings.Replace(s, point, ".", 1)

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}

// ParseDate tries each layout in order
func ParseDate(raw string, layouts []string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
