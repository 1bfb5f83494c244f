package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Plan,Hour:Minute,Premium,MinPremium,Spread,Stop,Strategy,Qty,profittarget,OptionType\n"

func parse(t *testing.T, csv string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	return doc
}

func TestParseStop(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "x", want: 1.0},
		{in: "X", want: 1.0},
		{in: "1.5x", want: 1.5},
		{in: "2", want: 2.0},
		{in: " 3X ", want: 3.0},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.5y", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStop(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSpread(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "10-15", want: "10,15"},
		{in: "10,15", want: "10,15"},
		{in: "20", want: "20"},
		{in: " 5 - 10 - 15 ", want: "5,10,15"},
		{in: "", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "10-x", wantErr: true},
		{in: "-", wantErr: true},
		{in: "-10-15", wantErr: true},
		{in: "10--15", wantErr: true},
		{in: "10-", wantErr: true},
		{in: "10,,15", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSpread(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQty(t *testing.T) {
	got, err := ParseQty("")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = ParseQty("2.0")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	for _, bad := range []string{"1.5", "0", "-2", "two"} {
		_, err := ParseQty(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseProfitTargetSentinel(t *testing.T) {
	got, err := ParseProfitTarget("100")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseProfitTarget("100.0")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseProfitTarget("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseProfitTarget("50.0")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 50.0, *got)

	_, err = ParseProfitTarget("fifty")
	assert.Error(t, err)
}

func TestRowsParsesFullRow(t *testing.T) {
	doc := parse(t, header+"P2,9:33,2.5,1.2,10-15,1.5x,ema520,2,50.0,P\n")

	rows, err := doc.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 1, row.Index)
	assert.Equal(t, "P2", row.Plan)
	assert.Equal(t, "09:33", row.Slot)
	assert.Equal(t, 2.5, row.Premium)
	require.NotNil(t, row.MinPremium)
	assert.Equal(t, 1.2, *row.MinPremium)
	assert.Equal(t, "10,15", row.Spread)
	assert.Equal(t, 1.5, row.Stop)
	assert.Equal(t, "EMA520", row.Strategy)
	assert.Equal(t, 2, row.Qty)
	require.NotNil(t, row.ProfitTarget)
	assert.Equal(t, 50.0, *row.ProfitTarget)
	assert.Equal(t, []catalog.Side{catalog.SidePut}, row.Sides)
}

func TestRowsDefaults(t *testing.T) {
	doc := parse(t, header+",10:00,1.0,,20,2,EMA540,,,\n")

	rows, err := doc.Rows()
	require.NoError(t, err)
	row := rows[0]
	assert.Equal(t, catalog.DefaultPlan, row.Plan)
	assert.Nil(t, row.MinPremium)
	assert.Equal(t, 1, row.Qty)
	assert.Nil(t, row.ProfitTarget)
	assert.Equal(t, catalog.Sides, row.Sides)
}

func TestRowsTreatNaNAsBlank(t *testing.T) {
	doc := parse(t, header+"nan,09:33,1,NaN,10,2,EMA520,nan,nan,nan\n")

	rows, err := doc.Rows()
	require.NoError(t, err)
	row := rows[0]
	assert.Equal(t, catalog.DefaultPlan, row.Plan)
	assert.Nil(t, row.MinPremium)
	assert.Equal(t, 1, row.Qty)
	assert.Nil(t, row.ProfitTarget)
	assert.Equal(t, catalog.Sides, row.Sides)

	sides, err := ParseSides(" NAN ")
	require.NoError(t, err)
	assert.Equal(t, catalog.Sides, sides)
}

func TestMissingPlanColumnMeansDefaultPlan(t *testing.T) {
	withPlan := parse(t, "Plan,Hour:Minute,Premium,Spread,Stop,Strategy\nP1,09:33,2.5,10,2,EMA520\n")
	withoutPlan := parse(t, "Hour:Minute,Premium,Spread,Stop,Strategy\n09:33,2.5,10,2,EMA520\n")

	a, err := withPlan.Rows()
	require.NoError(t, err)
	b, err := withoutPlan.Rows()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRowsReportsFieldError(t *testing.T) {
	doc := parse(t, header+
		"P1,09:33,2.5,,10,2,EMA520,1,,\n"+
		"P1,09:39,2.5,,10,1.5y,EMA520,1,,\n")

	_, err := doc.Rows()
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, 2, fieldErr.Row)
	assert.Equal(t, ColumnStop, fieldErr.Column)
	assert.Equal(t, "1.5y", fieldErr.Value)
}

func TestParseRequiresColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("Hour:Minute,Premium,Spread,Stop\n09:33,1,10,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseHeaderIsCaseInsensitiveAndStripsBOM(t *testing.T) {
	doc := parse(t, "\ufeffhour:minute,PREMIUM,spread,stop,strategy,ProfitTarget\n09:33,1,10,2,EMA520,40\n")

	rows, err := doc.Rows()
	require.NoError(t, err)
	require.NotNil(t, rows[0].ProfitTarget)
	assert.Equal(t, 40.0, *rows[0].ProfitTarget)
}

func TestRewriteNormalizesSpreadsAndKeepsOtherColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradeplan.csv")
	require.NoError(t, os.WriteFile(path, []byte("Hour:Minute,Premium,Spread,Stop,Strategy,Note\n09:33,2.5,10-15,x,EMA520,keep me\n"), 0o600))

	doc, err := Read(path)
	require.NoError(t, err)
	doc.NormalizeSpreads()
	require.NoError(t, doc.Rewrite(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hour:Minute,Premium,Spread,Stop,Strategy,Note\n09:33,2.5,\"10,15\",x,EMA520,keep me\n", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}
