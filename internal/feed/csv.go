// Package feed loads a finite ordered bar stream from CSV and validates
// it against the OHLC and monotone-timestamp invariants before handing
// it to the core.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marketsim/backtest-core/internal/types"
)

// LoadCSV reads a generic candle CSV with headers time|timestamp, open,
// high, low, close, volume (case-insensitive, any order; unknown
// columns ignored). Rows missing time/open/close are skipped. Time
// accepts RFC3339 or UNIX seconds. Rows are sorted ascending by
// timestamp, then validated: the OHLC invariant and strict timestamp
// monotonicity must hold across the whole stream before any Bar is
// returned.
func LoadCSV(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := parseCSV(f)
	if err != nil {
		return nil, err
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if err := Validate(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseCSV(r io.Reader) ([]types.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []types.Bar
	var headers []string
	rowIdx := 0

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp")
		op := first(row, "open")
		hp := first(row, "high")
		lp := first(row, "low")
		cp := first(row, "close")
		vp := first(row, "volume", "vol")
		if ts == "" || op == "" || cp == "" {
			rowIdx++
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			rowIdx++
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(hp, 64)
		l, _ := strconv.ParseFloat(lp, 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(vp, 64)
		out = append(out, types.Bar{Timestamp: tt, Open: o, High: h, Low: l, Close: c, Volume: v})
		rowIdx++
	}
	return out, nil
}

// parseTimeFlexible supports RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// Validate enforces the OHLC invariant (low <= min(open,close) <=
// max(open,close) <= high, volume >= 0) and strict timestamp
// monotonicity across an already-sorted bar stream. Any violation is
// fatal to the whole feed as a BacktestInvariant: a feed that cannot
// prove its own ordering has no business producing bars for the core
// to ingest.
func Validate(bars []types.Bar) error {
	var prev time.Time
	for i, b := range bars {
		lo, hi := b.Open, b.Close
		if lo > hi {
			lo, hi = hi, lo
		}
		if b.Low > lo || hi > b.High || b.Volume < 0 {
			return &types.BacktestInvariant{Reason: fmt.Sprintf("bar %d at %v violates the OHLC invariant", i, b.Timestamp)}
		}
		if i > 0 && !b.Timestamp.After(prev) {
			return &types.BacktestInvariant{Reason: fmt.Sprintf("bar %d at %v is not strictly after the previous bar at %v", i, b.Timestamp, prev)}
		}
		prev = b.Timestamp
	}
	return nil
}
