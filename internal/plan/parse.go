package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/shopspring/decimal"
)

// NoProfitTarget is the profit target value that means "no target" rather
// than a literal 100%.
var NoProfitTarget = decimal.NewFromInt(100)

// Row is one parsed plan row.
type Row struct {
	// Index is the 1-based data row number, header excluded.
	Index      int
	Plan       string
	Slot       string
	Premium    float64
	MinPremium *float64
	Spread     string
	Stop       float64
	Strategy   string
	Qty        int
	// ProfitTarget is nil when the row has no target, including the 100
	// sentinel.
	ProfitTarget *float64
	Sides        []catalog.Side
}

// FieldError reports a cell that could not be parsed.
type FieldError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (d *Document) parseRow(i int) (Row, error) {
	row := Row{
		Index:    i + 1,
		Plan:     d.Plan(i),
		Strategy: d.Strategy(i),
	}
	fieldErr := func(column string, err error) error {
		return &FieldError{Row: row.Index, Column: column, Value: d.Value(i, column), Err: err}
	}

	var err error
	if row.Slot, err = catalog.NormalizeSlot(d.Value(i, ColumnSlot)); err != nil {
		return Row{}, fieldErr(ColumnSlot, err)
	}
	if row.Premium, err = ParsePremium(d.Value(i, ColumnPremium)); err != nil {
		return Row{}, fieldErr(ColumnPremium, err)
	}
	if row.MinPremium, err = ParseOptional(d.Value(i, ColumnMinPremium)); err != nil {
		return Row{}, fieldErr(ColumnMinPremium, err)
	}
	if row.Spread, err = NormalizeSpread(d.Value(i, ColumnSpread)); err != nil {
		return Row{}, fieldErr(ColumnSpread, err)
	}
	if row.Stop, err = ParseStop(d.Value(i, ColumnStop)); err != nil {
		return Row{}, fieldErr(ColumnStop, err)
	}
	if row.Qty, err = ParseQty(d.Value(i, ColumnQty)); err != nil {
		return Row{}, fieldErr(ColumnQty, err)
	}
	if row.ProfitTarget, err = ParseProfitTarget(d.Value(i, ColumnProfitTarget)); err != nil {
		return Row{}, fieldErr(ColumnProfitTarget, err)
	}
	if row.Sides, err = ParseSides(d.Value(i, ColumnOptionType)); err != nil {
		return Row{}, fieldErr(ColumnOptionType, err)
	}
	return row, nil
}

// blank treats empty cells and the NaN spellings spreadsheet exports use
// for empty numerics as absent.
func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

func parseDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	return v, nil
}

// ParsePremium parses the required premium.
func ParsePremium(s string) (float64, error) {
	if blank(s) {
		return 0, errors.New("value is required")
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if v.IsNegative() {
		return 0, errors.New("must not be negative")
	}
	return v.InexactFloat64(), nil
}

// ParseOptional parses an optional non-negative number. Blank yields nil.
func ParseOptional(s string) (*float64, error) {
	if blank(s) {
		return nil, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	if v.IsNegative() {
		return nil, errors.New("must not be negative")
	}
	f := v.InexactFloat64()
	return &f, nil
}

// NormalizeSpread turns a dash separated width list into the comma separated
// form the engine reads: "10-15" becomes "10,15". Every width must be a
// positive number and none may be empty.
func NormalizeSpread(s string) (string, error) {
	s = strings.TrimSpace(s)
	if blank(s) {
		return "", errors.New("value is required")
	}
	parts := strings.Split(strings.ReplaceAll(s, ",", "-"), "-")
	widths := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", fmt.Errorf("width %d is empty", i+1)
		}
		v, err := parseDecimal(p)
		if err != nil {
			return "", fmt.Errorf("width %q is not a number", p)
		}
		if !v.IsPositive() {
			return "", fmt.Errorf("width %q must be positive", p)
		}
		widths = append(widths, p)
	}
	return strings.Join(widths, ","), nil
}

// ParseStop parses a stop multiple. A trailing x is stripped, and a bare x
// means a multiple of 1: "x" is 1.0, "1.5x" is 1.5, "2" is 2.0.
func ParseStop(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("value is required")
	}
	if last := s[len(s)-1]; last == 'x' || last == 'X' {
		s = strings.TrimSpace(s[:len(s)-1])
		if s == "" {
			return 1.0, nil
		}
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, errors.New("want a multiple such as 2, 1.5x or x")
	}
	if !v.IsPositive() {
		return 0, errors.New("must be positive")
	}
	return v.InexactFloat64(), nil
}

// ParseQty parses a positive whole quantity. Blank defaults to 1; "2.0" is
// accepted as 2.
func ParseQty(s string) (int, error) {
	if blank(s) {
		return 1, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !v.IsInteger() {
		return 0, errors.New("must be a whole number")
	}
	if !v.IsPositive() {
		return 0, errors.New("must be positive")
	}
	return int(v.IntPart()), nil
}

// ParseProfitTarget parses an optional profit target percentage. Blank and
// exactly 100 both yield nil.
func ParseProfitTarget(s string) (*float64, error) {
	if blank(s) {
		return nil, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	if v.Equal(NoProfitTarget) {
		return nil, nil
	}
	if !v.IsPositive() {
		return nil, errors.New("must be positive")
	}
	f := v.InexactFloat64()
	return &f, nil
}

// ParseSides maps the OptionType cell to the sides a row applies to. Blank or NaN
// means both.
func ParseSides(s string) ([]catalog.Side, error) {
	if blank(s) {
		return catalog.Sides, nil
	}
	side, err := catalog.ParseSide(s)
	if err != nil {
		return nil, err
	}
	return []catalog.Side{side}, nil
}
