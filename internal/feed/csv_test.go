package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tushareCSV = `ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount
000001.SZ,20230202,1674.8621,1690.0,1660.5,1685.1,1674.8621,10.2,0.61,1200000,2000000
000001.SZ,20230201,1712.4611,1718.1579,1653.2143,1674.8621,1707.9036,-33.04150000000004,-1.9346,1653421.48,2426471.973
`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadCSV_Tushare(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(tushareCSV), Options{})
	require.NoError(t, err)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, "000001.SZ", first.Symbol)
	assert.Equal(t, day(2023, time.February, 1), first.Time)
	assert.True(t, first.Open.Equal(decimal.RequireFromString("1712.4611")))
	assert.True(t, first.High.Equal(decimal.RequireFromString("1718.1579")))
	assert.True(t, first.Low.Equal(decimal.RequireFromString("1653.2143")))
	assert.True(t, first.Close.Equal(decimal.RequireFromString("1674.8621")))
	assert.True(t, first.Volume.Equal(decimal.RequireFromString("1653421.48")))
	assert.Equal(t, day(2023, time.February, 2), bars[1].Time)
}

func TestReadCSV_DateFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso date", "2023-12-01", day(2023, time.December, 1)},
		{"compact date", "20231201", day(2023, time.December, 1)},
		{"rfc3339 truncated to midnight", "2023-12-01T15:30:00Z", day(2023, time.December, 1)},
		{"rfc3339 offset converted to utc", "2023-12-01T23:30:00-02:00", day(2023, time.December, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseDate("01/12/2023")
	assert.ErrorIs(t, err, ErrBadDate)
}

func TestReadCSV_AliasesAndFallbackSymbol(t *testing.T) {
	input := "Date,Open,High,Low,Close,Volume\n2020-01-02,2,3,1,2.5,100\n2020-01-01,1,2,0.5,1.5,50\n"
	bars, err := ReadCSV(strings.NewReader(input), Options{Symbol: "SPY"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "SPY", bars[0].Symbol)
	assert.Equal(t, day(2020, time.January, 1), bars[0].Time)
	assert.True(t, bars[1].Close.Equal(decimal.NewFromFloat(2.5)))
}

func TestReadCSV_RangeFilter(t *testing.T) {
	input := "symbol,date,open,high,low,close,volume\n" +
		"A,2020-01-01,1,1,1,1,1\n" +
		"A,2020-01-02,1,1,1,1,1\n" +
		"A,2020-01-03,1,1,1,1,1\n" +
		"A,2020-01-04,1,1,1,1,1\n"
	bars, err := ReadCSV(strings.NewReader(input), Options{
		Start: day(2020, time.January, 2),
		End:   day(2020, time.January, 3),
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day(2020, time.January, 2), bars[0].Time)
	assert.Equal(t, day(2020, time.January, 3), bars[1].Time)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		err   error
	}{
		{"missing volume", "symbol,date,open,high,low,close\nA,2020-01-01,1,1,1,1\n", Options{}, ErrMissingColumn},
		{"missing symbol without fallback", "date,open,high,low,close,vol\n2020-01-01,1,1,1,1,1\n", Options{}, ErrMissingColumn},
		{"bad date", "sym,date,open,high,low,close,vol\nA,yesterday,1,1,1,1,1\n", Options{}, ErrBadDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := ReadCSV(strings.NewReader("sym,date,open,high,low,close,vol\nA,2020-01-01,x,1,1,1,1\n"), Options{})
	assert.ErrorContains(t, err, "parse open")
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(tushareCSV), 0o644))

	bars, err := LoadCSV(path, Options{})
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGroupBySymbol(t *testing.T) {
	input := "symbol,date,open,high,low,close,volume\n" +
		"A,2020-01-02,1,1,1,1,1\n" +
		"B,2020-01-01,1,1,1,1,1\n" +
		"A,2020-01-01,1,1,1,1,1\n"
	bars, err := ReadCSV(strings.NewReader(input), Options{})
	require.NoError(t, err)

	grouped := GroupBySymbol(bars)
	require.Len(t, grouped, 2)
	require.Len(t, grouped["A"], 2)
	assert.True(t, grouped["A"][0].Time.Before(grouped["A"][1].Time))
	assert.Len(t, grouped["B"], 1)
}
