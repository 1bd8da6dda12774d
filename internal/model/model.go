package model

import "time"

// RawRow is one table row as extracted from the page: an ordered
// sequence of trimmed cell texts.
type RawRow []string

// Equity is a listed stock, keyed by its ticker symbol.
type Equity struct {
	ID           int64
	Symbol       string
	Name         string
	CurrentPrice float64
	Change       float64 // percentage points, signed
	Volume       int64
	High         *float64
	Low          *float64
	UpdatedAt    time.Time
}

// PricePoint is one immutable price sample in an equity's history.
type PricePoint struct {
	ID        int64
	EquityID  int64
	Price     float64
	Timestamp time.Time
}

// MarketStat is one aggregate market figure, keyed by its label.
// Values are kept as raw text because the source formats them
// inconsistently (currency, counts, percentages).
type MarketStat struct {
	ID        int64
	Label     string
	Value     string
	UpdatedAt time.Time
}

// Bond is a listed debt security, keyed by its security name.
// Coupon and maturity keep the source's original formatting.
type Bond struct {
	ID              int64
	Security        string
	Coupon          string
	Maturity        string
	Price           float64
	YieldPercentage float64
	UpdatedAt       time.Time
}
