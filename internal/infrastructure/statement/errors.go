package statement

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	CodeMalformedRow  = "ERR_STATEMENT_MALFORMED_ROW"
	CodeRequiredField = "ERR_STATEMENT_REQUIRED_FIELD"
	CodeInvalidDate   = "ERR_STATEMENT_INVALID_DATE"
	CodeInvalidAmount = "ERR_STATEMENT_INVALID_AMOUNT"
	CodeFieldTooLong  = "ERR_STATEMENT_FIELD_TOO_LONG"
	CodeTooManyRows   = "ERR_STATEMENT_TOO_MANY_ROWS"
)

var (
	// ErrEmptyFile is returned for an empty or blank statement
	ErrEmptyFile = errors.New("statement file is empty")

	// ErrInvalidEncoding is returned when the file is not UTF-8
	ErrInvalidEncoding = errors.New("statement file is not valid UTF-8")

	// ErrMissingHeader is returned when the first row has no column names
	ErrMissingHeader = errors.New("statement file missing header row")

	// ErrMissingColumns is returned when a required column has no alias in the header
	ErrMissingColumns = errors.New("statement file missing required columns")

	// ErrNoDataRows is returned when the header is followed by nothing
	ErrNoDataRows = errors.New("statement file contains no data rows")
)

// RowError describes why one line of the file was rejected
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection; a non-positive limit means 100
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{maxErrors: maxErrors}
}

// Add records err
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a blank mandatory field
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: CodeRequiredField, Message: fmt.Sprintf("field '%s' is required", column)})
}

// AddFormat records a value that could not be parsed
func (ec *ErrorCollection) AddFormat(row int, column, code, expected, value string) {
	ec.Add(RowError{Row: row, Column: column, Code: code, Message: "invalid format, expected " + expected, Value: value})
}

// Errors returns the retained errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount includes errors dropped past the limit
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether errors were dropped
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
