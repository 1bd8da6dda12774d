package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"rsewatch/internal/model"
)

// RowResult reports what happened to one row: whether it was skipped
// outright (missing/invalid required fields) and which optional fields
// degraded to their defaults. Callers log degradations so fallback
// parsing stays observable.
type RowResult struct {
	Skipped  bool
	Reason   string
	Degraded []string
}

func (r *RowResult) degrade(field, detail string) {
	r.Degraded = append(r.Degraded, fmt.Sprintf("%s (%s)", field, detail))
}

func skip(reason string) RowResult {
	return RowResult{Skipped: true, Reason: reason}
}

// cell resolves a named column through the section's index map. An
// unmapped name or an index past the row's end is a normal "field
// absent", never an error.
func cell(row model.RawRow, cols map[string]int, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx < 0 || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

// parseDecimal parses a decimal cell after stripping thousands
// separators.
func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return v, err == nil
}

// Equity converts a raw equity row into a candidate entity.
//
// Symbol and price are required; the row is skipped when either is
// empty or the price fails to parse. Change drops its "%"/"+" markers
// and treats "-" or empty as flat (0.0); any other unparseable change
// skips the row. Volume, high and low are optional and fall back to
// their defaults (0 / absent) when missing or malformed.
func Equity(row model.RawRow, cols map[string]int) (*model.Equity, RowResult) {
	symbol, _ := cell(row, cols, "symbol")
	if symbol == "" {
		return nil, skip("empty symbol")
	}
	priceText, _ := cell(row, cols, "price")
	if priceText == "" {
		return nil, skip("empty price")
	}
	price, ok := parseDecimal(priceText)
	if !ok {
		return nil, skip(fmt.Sprintf("unparseable price %q", priceText))
	}

	changeText, present := cell(row, cols, "change")
	if !present {
		return nil, skip("missing change cell")
	}
	changeText = strings.ReplaceAll(strings.ReplaceAll(changeText, "%", ""), "+", "")
	change := 0.0
	if changeText != "" && changeText != "-" {
		change, ok = parseDecimal(changeText)
		if !ok {
			return nil, skip(fmt.Sprintf("unparseable change %q", changeText))
		}
	}

	eq := &model.Equity{
		Symbol:       symbol,
		Name:         symbol, // display name not published on the board
		CurrentPrice: price,
		Change:       change,
	}
	var res RowResult

	if v, present := cell(row, cols, "volume"); present && v != "" {
		if n, ok := parseInt(v); ok {
			eq.Volume = n
		} else {
			res.degrade("volume", v)
		}
	}
	if h, present := cell(row, cols, "high"); present && h != "" {
		if v, ok := parseDecimal(h); ok {
			eq.High = &v
		} else {
			res.degrade("high", h)
		}
	}
	if l, present := cell(row, cols, "low"); present && l != "" {
		if v, ok := parseDecimal(l); ok {
			eq.Low = &v
		} else {
			res.degrade("low", l)
		}
	}
	return eq, res
}

// MarketStat converts a raw statistics row. Both cells are kept as
// trimmed text verbatim; the source mixes currency, counts and
// percentages in the value column.
func MarketStat(row model.RawRow, cols map[string]int) (*model.MarketStat, RowResult) {
	label, ok := cell(row, cols, "label")
	if !ok || label == "" {
		return nil, skip("empty label")
	}
	value, ok := cell(row, cols, "value")
	if !ok {
		return nil, skip("missing value cell")
	}
	return &model.MarketStat{Label: label, Value: value}, RowResult{}
}

// Bond converts a raw bond row. The bond table has a fixed positional
// layout; a row without all mapped cells is skipped. Yield drops its
// "%" and degrades to 0.0 on parse failure instead of skipping, so the
// listing is recorded even with a placeholder yield. The table carries
// no price column, so price is always 0.0.
// TODO: source the bond's clean price from the daily trading report once
// the page publishes it.
func Bond(row model.RawRow, cols map[string]int) (*model.Bond, RowResult) {
	security, _ := cell(row, cols, "security")
	if security == "" {
		return nil, skip("empty security")
	}
	maturity, ok := cell(row, cols, "maturity")
	if !ok {
		return nil, skip("missing maturity cell")
	}
	coupon, ok := cell(row, cols, "coupon")
	if !ok {
		return nil, skip("missing coupon cell")
	}
	yieldText, ok := cell(row, cols, "yield")
	if !ok {
		return nil, skip("missing yield cell")
	}

	var res RowResult
	yieldText = strings.ReplaceAll(yieldText, "%", "")
	yieldVal := 0.0
	if yieldText != "" && yieldText != "-" {
		if v, ok := parseDecimal(yieldText); ok {
			yieldVal = v
		} else {
			res.degrade("yield", yieldText)
		}
	}

	return &model.Bond{
		Security:        security,
		Coupon:          coupon,
		Maturity:        maturity,
		Price:           0.0,
		YieldPercentage: yieldVal,
	}, res
}
