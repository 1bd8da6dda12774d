package reconciler

import (
	"fmt"
	"time"

	"rsewatch/internal/model"
	"rsewatch/internal/store"
)

// Result counts what one merge pass did.
type Result struct {
	Inserted int
	Updated  int
	Points   int
}

func (r Result) String() string {
	return fmt.Sprintf("%d inserted, %d updated, %d history points", r.Inserted, r.Updated, r.Points)
}

// MergeEquities merges candidate equities into storage by symbol:
// insert on first sight, overwrite mutable attributes afterwards.
// Every merged candidate also appends one history point, whether or not
// the price moved. Absence from a scrape never deletes anything.
func MergeEquities(tx *store.RunTx, candidates []*model.Equity, now time.Time) (Result, error) {
	var res Result
	for _, c := range candidates {
		existing, err := tx.FindEquityBySymbol(c.Symbol)
		if err != nil {
			return res, err
		}
		if existing == nil {
			c.UpdatedAt = now
			if err := tx.InsertEquity(c); err != nil {
				return res, err
			}
			res.Inserted++
		} else {
			existing.CurrentPrice = c.CurrentPrice
			existing.Change = c.Change
			existing.Volume = c.Volume
			existing.High = c.High
			existing.Low = c.Low
			existing.UpdatedAt = now
			if err := tx.UpdateEquity(existing); err != nil {
				return res, err
			}
			c.ID = existing.ID
			res.Updated++
		}
		if err := tx.AppendPricePoint(c.ID, c.CurrentPrice, now); err != nil {
			return res, err
		}
		res.Points++
	}
	return res, nil
}

// MergeStats merges candidate statistics into storage by label.
func MergeStats(tx *store.RunTx, candidates []*model.MarketStat, now time.Time) (Result, error) {
	var res Result
	for _, c := range candidates {
		existing, err := tx.FindMarketStatByLabel(c.Label)
		if err != nil {
			return res, err
		}
		if existing == nil {
			c.UpdatedAt = now
			if err := tx.InsertMarketStat(c); err != nil {
				return res, err
			}
			res.Inserted++
		} else {
			existing.Value = c.Value
			existing.UpdatedAt = now
			if err := tx.UpdateMarketStat(existing); err != nil {
				return res, err
			}
			res.Updated++
		}
	}
	return res, nil
}

// MergeBonds merges candidate bonds into storage by security name.
// Candidates always carry a 0.0 price (the source table has no price
// column), so a previously stored price is overwritten with 0.0.
func MergeBonds(tx *store.RunTx, candidates []*model.Bond, now time.Time) (Result, error) {
	var res Result
	for _, c := range candidates {
		existing, err := tx.FindBondBySecurity(c.Security)
		if err != nil {
			return res, err
		}
		if existing == nil {
			c.UpdatedAt = now
			if err := tx.InsertBond(c); err != nil {
				return res, err
			}
			res.Inserted++
		} else {
			existing.Coupon = c.Coupon
			existing.Maturity = c.Maturity
			existing.Price = c.Price
			existing.YieldPercentage = c.YieldPercentage
			existing.UpdatedAt = now
			if err := tx.UpdateBond(existing); err != nil {
				return res, err
			}
			res.Updated++
		}
	}
	return res, nil
}
