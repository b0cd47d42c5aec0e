package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/backtest-core/internal/types"
)

func TestParseCSVRFC3339(t *testing.T) {
	in := "time,open,high,low,close,volume\n" +
		"2024-01-01T00:00:00Z,10,12,9,11,100\n" +
		"2024-01-01T00:01:00Z,11,13,10,12,150\n"
	bars, err := parseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Open)
	assert.Equal(t, 12.0, bars[1].High)
	assert.True(t, bars[1].Timestamp.After(bars[0].Timestamp))
}

func TestParseCSVUnixSeconds(t *testing.T) {
	in := "timestamp,open,high,low,close,volume\n1700000000,1,2,0.5,1.5,1\n"
	bars, err := parseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), bars[0].Timestamp)
}

func TestParseCSVCaseInsensitiveHeadersAndUnknownColumns(t *testing.T) {
	in := "Time,Open,High,Low,Close,Volume,Extra\n2024-01-01T00:00:00Z,1,2,0.5,1.5,1,garbage\n"
	bars, err := parseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestParseCSVSkipsRowsMissingRequiredFields(t *testing.T) {
	in := "time,open,high,low,close,volume\n" +
		",1,2,0.5,1.5,1\n" +
		"2024-01-01T00:00:00Z,1,2,0.5,1.5,1\n" +
		"2024-01-01T00:01:00Z,,2,0.5,1.5,1\n"
	bars, err := parseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func bar(sec int64, o, h, l, c, v float64) types.Bar {
	return types.Bar{Timestamp: time.Unix(sec, 0), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestValidateAcceptsWellFormedAscendingStream(t *testing.T) {
	bars := []types.Bar{bar(0, 10, 12, 9, 11, 1), bar(1, 11, 13, 10, 12, 1)}
	assert.NoError(t, Validate(bars))
}

func TestValidateRejectsLowAboveBody(t *testing.T) {
	bars := []types.Bar{bar(0, 10, 12, 10.5, 11, 1)}
	err := Validate(bars)
	require.Error(t, err)
	assert.IsType(t, &types.BacktestInvariant{}, err)
}

func TestValidateRejectsHighBelowBody(t *testing.T) {
	bars := []types.Bar{bar(0, 10, 10.5, 9, 11, 1)}
	err := Validate(bars)
	require.Error(t, err)
	assert.IsType(t, &types.BacktestInvariant{}, err)
}

func TestValidateRejectsNegativeVolume(t *testing.T) {
	bars := []types.Bar{bar(0, 10, 12, 9, 11, -1)}
	err := Validate(bars)
	require.Error(t, err)
}

func TestValidateRejectsNonMonotoneTimestamps(t *testing.T) {
	bars := []types.Bar{bar(1, 10, 12, 9, 11, 1), bar(0, 11, 13, 10, 12, 1)}
	err := Validate(bars)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateTimestamps(t *testing.T) {
	bars := []types.Bar{bar(0, 10, 12, 9, 11, 1), bar(0, 11, 13, 10, 12, 1)}
	err := Validate(bars)
	require.Error(t, err)
}
