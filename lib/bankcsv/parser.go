// Package bankcsv turns semicolon-delimited bank statement exports into
// canonical records.
package bankcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ColumnDate      = "date"
	ColumnLibelle   = "libelle"
	ColumnMontant   = "montant"
	ColumnReference = "reference"

	DefaultMaxRows = 5000
)

// header aliases, matched case-sensitively
var columnAliases = map[string][]string{
	ColumnDate:      {"Date", "date"},
	ColumnLibelle:   {"Libellé", "libelle", "description"},
	ColumnMontant:   {"Montant", "montant", "amount"},
	ColumnReference: {"Référence", "reference"},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is a canonical bank statement line.
type Record struct {
	Row       int             `json:"row"`
	Date      time.Time       `json:"date"`
	Libelle   string          `json:"libelle"`
	Montant   decimal.Decimal `json:"montant"`
	Reference string          `json:"reference,omitempty"`
}

// ParseError identifies the row (1-based, header included) that failed.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("ligne %d : %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("ligne %d, colonne %s : %s (%q)", e.Row, e.Column, e.Reason, e.Value)
}

type Parser struct {
	// MaxRows bounds the number of data rows of a single import, 0 disables the check.
	MaxRows int
}

func NewParser(maxRows int) *Parser {
	return &Parser{MaxRows: maxRows}
}

// Parse parses a whole statement with the default row ceiling.
func Parse(content string) ([]Record, error) {
	return NewParser(DefaultMaxRows).Parse(content)
}

func (p *Parser) Parse(content string) ([]Record, error) {
	return p.ParseReader(strings.NewReader(content))
}

// ParseReader returns either the complete batch or the first error.
func (p *Parser) ParseReader(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var input io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		// French banks still export in cp1252
		input = transform.NewReader(input, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(input)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Row: 1, Reason: "fichier vide"}
	}
	if err != nil {
		return nil, csvError(err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		row, _ := reader.FieldPos(0)
		if p.MaxRows > 0 && len(records) >= p.MaxRows {
			return nil, &ParseError{Row: row, Reason: fmt.Sprintf("trop de lignes, maximum %d par import", p.MaxRows)}
		}
		record, err := parseRow(fields, columns, row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := map[string]int{}
	for i, name := range header {
		name = norm.NFC.String(strings.TrimSpace(name))
		for column, aliases := range columnAliases {
			if _, found := columns[column]; found {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					columns[column] = i
				}
			}
		}
	}
	for _, required := range []string{ColumnDate, ColumnLibelle, ColumnMontant} {
		if _, found := columns[required]; !found {
			return nil, &ParseError{Row: 1, Column: required, Reason: "colonne obligatoire absente de l'en-tête"}
		}
	}
	return columns, nil
}

func parseRow(fields []string, columns map[string]int, row int) (Record, error) {
	field := func(column string) string {
		i, found := columns[column]
		if !found || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	record := Record{
		Row:       row,
		Libelle:   field(ColumnLibelle),
		Reference: field(ColumnReference),
	}

	rawDate := field(ColumnDate)
	date, err := ParseDate(rawDate)
	if err != nil {
		return record, &ParseError{Row: row, Column: ColumnDate, Value: rawDate, Reason: "date invalide"}
	}
	record.Date = date

	rawAmount := field(ColumnMontant)
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return record, &ParseError{Row: row, Column: ColumnMontant, Value: rawAmount, Reason: "montant invalide"}
	}
	record.Montant = amount
	return record, nil
}

// ParseDate accepts DD/MM/YYYY when the value contains a slash, ISO YYYY-MM-DD otherwise.
// The result is the calendar date at midnight UTC.
func ParseDate(value string) (time.Time, error) {
	if !strings.Contains(value, "/") {
		return time.Parse("2006-01-02", value)
	}
	parts := strings.Split(value, "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("date %q: format JJ/MM/AAAA attendu", value)
	}
	numbers := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", value, err)
		}
		numbers[i] = n
	}
	day, month, year := numbers[0], numbers[1], numbers[2]
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March, reject instead
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return time.Time{}, fmt.Errorf("date %q: jour ou mois hors limites", value)
	}
	return date, nil
}

// ParseAmount accepts "1 234,56", "-12,5" or "12.50" and rounds to cents.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, value)
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("montant vide")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(2), nil
}

func csvError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Row: csvErr.Line, Reason: csvErr.Err.Error()}
	}
	return err
}
