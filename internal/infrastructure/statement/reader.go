package statement

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const sniffSize = 4096

// Reader reads a delimited bank export row by row. Header names are
// normalized so "Descripción" and "DESCRIPCION" resolve to the same column.
type Reader struct {
	delimiter  rune
	detect     bool
	headers    []string
	headerMap  map[string]int
	currentRow int
	totalRows  int
	csv        *csv.Reader
	buf        *bufio.Reader
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithDelimiter fixes the field delimiter and disables detection
func WithDelimiter(d rune) ReaderOption {
	return func(r *Reader) {
		r.delimiter = d
		r.detect = false
	}
}

// NewReader wraps src, strips a UTF-8 BOM and checks the encoding.
// Without WithDelimiter the delimiter is picked from the header line.
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		delimiter: ',',
		detect:    true,
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.buf = bufio.NewReaderSize(src, sniffSize)
	head, err := r.buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	if bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = r.buf.Discard(3)
	}

	sample, err := r.buf.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(sample, len(sample) == sniffSize) {
		return nil, ErrInvalidEncoding
	}
	if r.detect {
		r.delimiter = detectDelimiter(sample)
	}

	r.csv = csv.NewReader(r.buf)
	r.csv.Comma = r.delimiter
	r.csv.LazyQuotes = true
	r.csv.TrimLeadingSpace = true
	r.csv.FieldsPerRecord = -1
	return r, nil
}

// validPrefix tolerates a multi-byte rune cut by the peek window
func validPrefix(b []byte, truncated bool) bool {
	if truncated {
		for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
			if utf8.Valid(b) {
				return true
			}
			b = b[:len(b)-1]
		}
	}
	return utf8.Valid(b)
}

func detectDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// Delimiter returns the delimiter in use
func (r *Reader) Delimiter() rune {
	return r.delimiter
}

// ReadHeader consumes the header row
func (r *Reader) ReadHeader() error {
	record, err := r.csv.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	r.headers = make([]string, len(record))
	for i, h := range record {
		name := NormalizeHeader(h)
		r.headers[i] = name
		if _, dup := r.headerMap[name]; !dup && name != "" {
			r.headerMap[name] = i
		}
	}
	if len(r.headerMap) == 0 {
		return ErrMissingHeader
	}
	r.currentRow = 1
	return nil
}

// Headers returns the normalized header names
func (r *Reader) Headers() []string {
	return r.headers
}

// Column returns the index of the first header matching any alias
func (r *Reader) Column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := r.headerMap[a]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Row is one data record with its line number in the file
type Row struct {
	LineNumber int
	Fields     []string
}

// Field returns the trimmed value at idx, or "" when the row is short
func (r *Row) Field(idx int) string {
	if idx < 0 || idx >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[idx])
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, f := range r.Fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next record, or io.EOF
func (r *Reader) ReadRow() (*Row, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", r.currentRow, err)
	}
	r.totalRows++
	return &Row{LineNumber: r.currentRow, Fields: record}, nil
}

// TotalRows returns the number of data rows read so far
func (r *Reader) TotalRows() int {
	return r.totalRows
}

// NormalizeHeader folds case, strips accents and joins words with underscores
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.TrimSpace(h))
	if err != nil {
		plain = h
	}
	plain = cases.Fold().String(plain)

	var sb strings.Builder
	underscore := false
	for _, c := range plain {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			sb.WriteRune(c)
			underscore = false
		case sb.Len() > 0 && !underscore:
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
