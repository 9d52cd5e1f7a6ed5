package rates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func o(title string, date time.Time, v float64) domain.Observation {
	return domain.Observation{Date: date, Instrument: title, Value: v}
}

func sampleRates() []domain.Observation {
	return []domain.Observation{
		o("NTN-B 2035", d(2024, 1, 2), 0.0550),
		o("NTN-B 2035", d(2024, 3, 1), 0.0570),
		o("NTN-B 2035", d(2024, 3, 28), 0.0585),
		o("NTN-B 2035", d(2024, 3, 31), 0.0590),
		o("LTN 2030", d(2024, 3, 1), 0.10),
		o("LTN 2030", d(2024, 3, 28), 0.105),
		o("LFT 1 3 2027", d(2023, 6, 1), 0.0001),
	}
}

func sampleDurations() []domain.Observation {
	return []domain.Observation{
		o("NTN-B 2035 ", d(2024, 3, 28), 2520),
		o("NTN-B 2035 ", d(2024, 4, 2), 5000),
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]domain.BondType{
		"LFT 1 3 2027": domain.BondSelic,
		"NTN-B 2035":   domain.BondIPCA,
		"ntn-b 2045":   domain.BondIPCA,
		"NTN-C 2031":   domain.BondIGPM,
		"NTN-F 2029":   domain.BondPrefixed,
		"LTN 2030":     domain.BondPrefixed,
	}
	for title, want := range tests {
		assert.Equal(t, want, Classify(title), title)
	}
}

func TestMaturityYear(t *testing.T) {
	y, ok := MaturityYear("LFT 1 3 2027")
	require.True(t, ok)
	assert.Equal(t, 2027, y)

	y, ok = MaturityYear("NTN-B 2035 (2024)")
	require.True(t, ok)
	assert.Equal(t, 2024, y, "last match wins")

	_, ok = MaturityYear("CDI")
	assert.False(t, ok)

	assert.Equal(t, []int{2027, 2030, 2035}, Maturities([]string{"LTN 2030", "LFT 1 3 2027", "NTN-B 2035", "NTN-F 2030"}))
}

func TestFilter(t *testing.T) {
	assert.True(t, Filter{}.Match("LTN 2030"))
	assert.True(t, Filter{Type: "Todos"}.Match("LTN 2030"))
	assert.True(t, Filter{Type: string(domain.BondIPCA)}.Match("NTN-B 2035"))
	assert.False(t, Filter{Type: string(domain.BondIPCA)}.Match("LTN 2030"))
	assert.True(t, Filter{Maturities: []int{2030, 2035}}.Match("NTN-B 2035"))
	assert.False(t, Filter{Maturities: []int{2030}}.Match("NTN-B 2035"))
	assert.False(t, Filter{Maturities: []int{2030}}.Match("CDI"))
}

func TestTable(t *testing.T) {
	rows, err := Table(sampleRates(), sampleDurations(), 2024, 3, 3, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2, "titles without rates in the window are left out")

	ntnb := rows[0]
	assert.Equal(t, "NTN-B 2035", ntnb.Title)
	assert.Equal(t, domain.BondIPCA, ntnb.Type)
	assert.Equal(t, 2035, ntnb.Maturity)
	assert.InDelta(t, 20.0, ntnb.BPMonth.Float, 1e-9)
	assert.InDelta(t, 40.0, ntnb.BPYear.Float, 1e-9)
	assert.InDelta(t, 10.0, ntnb.Duration.Float, 1e-12, "duration titles are normalized before the join")
	assert.InDelta(t, 0.059, ntnb.Closing.Float, 1e-12)

	ltn := rows[1]
	assert.Equal(t, "LTN 2030", ltn.Title)
	assert.InDelta(t, 50.0, ltn.BPMonth.Float, 1e-9)
	assert.True(t, ltn.Duration.IsNull())
	assert.True(t, ltn.Closing.IsNull(), "no rate on the last calendar day")

	rows, err = Table(sampleRates(), sampleDurations(), 2024, 3, 3, Filter{Type: string(domain.BondIPCA)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NTN-B 2035", rows[0].Title)

	rows, err = Table(sampleRates(), sampleDurations(), 2024, 3, 3, Filter{Maturities: []int{2030}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LTN 2030", rows[0].Title)

	_, err = Table(sampleRates(), sampleDurations(), 2024, 3, 0, Filter{})
	assert.ErrorIs(t, err, period.ErrInvalidLength)
}

func TestPathAndDurationPath(t *testing.T) {
	path, err := Path(sampleRates(), 2024, 3, 1, Filter{Type: string(domain.BondPrefixed)})
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, "LTN 2030", path[0].Instrument)

	dp, err := DurationPath(sampleDurations(), 2024, 3)
	require.NoError(t, err)
	require.Len(t, dp, 1)
	assert.Equal(t, 2520.0, dp[0].Value)
}

func TestLeadingTitles(t *testing.T) {
	rates := append(sampleRates(),
		o("NTN-B 2045", d(2024, 3, 31), 0.0610),
		o("NTN-B 2045", d(2024, 2, 1), 0.0600),
		o("NTN-B 2045", d(2023, 12, 1), 0.0500),
		o("NTN-F 2031", d(2024, 3, 31), 0.11),
	)

	leaders := LeadingTitles(rates)
	require.Len(t, leaders, 2)

	assert.Equal(t, "Pré-fixado", leaders[0].Group)
	assert.Equal(t, "NTN-F 2031", leaders[0].Title)

	assert.Equal(t, "Pós-fixado (IPCA+)", leaders[1].Group)
	assert.Equal(t, "NTN-B 2045", leaders[1].Title)
	assert.Equal(t, 0.061, leaders[1].Rate)
	require.Len(t, leaders[1].History, 2, "history covers the last three months only")
	assert.Equal(t, d(2024, 2, 1), leaders[1].History[0].Date)

	assert.Nil(t, LeadingTitles(nil))
}
