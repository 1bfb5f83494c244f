package plan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ksred/tradeplan/internal/catalog"
)

// Recognized column names. Matching is case-insensitive.
const (
	ColumnPlan         = "Plan"
	ColumnSlot         = "Hour:Minute"
	ColumnPremium      = "Premium"
	ColumnMinPremium   = "MinPremium"
	ColumnSpread       = "Spread"
	ColumnStop         = "Stop"
	ColumnStrategy     = "Strategy"
	ColumnQty          = "Qty"
	ColumnProfitTarget = "profittarget"
	ColumnOptionType   = "OptionType"
)

var requiredColumns = []string{ColumnSlot, ColumnPremium, ColumnSpread, ColumnStop, ColumnStrategy}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

const utf8BOM = "\ufeff"

// Document is a plan as read from disk. Columns the reconciler does not know
// are kept so a rewrite preserves them.
type Document struct {
	Header  []string
	Records [][]string

	index map[string]int
}

// Read loads the plan at path.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads a comma separated plan with a header row.
func Parse(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("plan is empty")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	doc := &Document{
		Header:  header,
		Records: records[1:],
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, exists := doc.index[key]; !exists {
			doc.index[key] = i
		}
	}

	for _, column := range requiredColumns {
		if !doc.HasColumn(column) {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, column)
		}
	}
	return doc, nil
}

// HasColumn reports whether the header carries name.
func (d *Document) HasColumn(name string) bool {
	_, ok := d.index[strings.ToLower(name)]
	return ok
}

// Len returns the number of data rows.
func (d *Document) Len() int {
	return len(d.Records)
}

// Value returns the trimmed cell for column on data row i, or "" when the
// column is absent or the row is short.
func (d *Document) Value(i int, column string) string {
	col, ok := d.index[strings.ToLower(column)]
	if !ok || i < 0 || i >= len(d.Records) || col >= len(d.Records[i]) {
		return ""
	}
	return strings.TrimSpace(d.Records[i][col])
}

func (d *Document) set(i int, column, value string) {
	col, ok := d.index[strings.ToLower(column)]
	if !ok || i < 0 || i >= len(d.Records) {
		return
	}
	for len(d.Records[i]) <= col {
		d.Records[i] = append(d.Records[i], "")
	}
	d.Records[i][col] = value
}

// Strategy returns the normalized strategy label of data row i.
func (d *Document) Strategy(i int) string {
	return strings.ToUpper(d.Value(i, ColumnStrategy))
}

// Plan returns the plan suffix of data row i. A missing column, blank cell or NaN
// means catalog.DefaultPlan.
func (d *Document) Plan(i int) string {
	if p := d.Value(i, ColumnPlan); !blank(p) {
		return strings.ToUpper(p)
	}
	return catalog.DefaultPlan
}

// Rows parses every data row. The first failing row stops parsing and is
// returned as a *FieldError.
func (d *Document) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(d.Records))
	for i := range d.Records {
		row, err := d.parseRow(i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeSpreads rewrites each parseable Spread cell into its
// comma-separated form. Cells that do not parse are left as they are.
func (d *Document) NormalizeSpreads() {
	for i := range d.Records {
		if spread, err := NormalizeSpread(d.Value(i, ColumnSpread)); err == nil {
			d.set(i, ColumnSpread, spread)
		}
	}
}

// Write emits the document as CSV.
func (d *Document) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(d.Records); err != nil {
		return err
	}
	return writer.Error()
}

// Rewrite replaces the file at path with the document. The new content is
// written to a temporary file in the same directory and renamed over path.
func (d *Document) Rewrite(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tradeplan-*.csv")
	if err != nil {
		return fmt.Errorf("rewrite plan: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := d.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewrite plan: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rewrite plan: %w", err)
	}
	return nil
}
