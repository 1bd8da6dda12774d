package normalizer

import (
	"testing"

	"rsewatch/internal/model"
)

var equityCols = map[string]int{
	"symbol": 0, "price": 1, "change": 3, "volume": 4, "high": 5, "low": 6,
}

var statCols = map[string]int{"label": 0, "value": 1}

var bondCols = map[string]int{"security": 1, "maturity": 3, "coupon": 4, "yield": 5}

func TestEquity_ParsesPriceAndChange(t *testing.T) {
	eq, res := Equity(model.RawRow{"RSE1", "1,250.00", "x", "+3.50%"}, equityCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if eq.Symbol != "RSE1" {
		t.Errorf("symbol = %q, want RSE1", eq.Symbol)
	}
	if eq.CurrentPrice != 1250.00 {
		t.Errorf("price = %v, want 1250.00", eq.CurrentPrice)
	}
	if eq.Change != 3.50 {
		t.Errorf("change = %v, want 3.50", eq.Change)
	}
	if eq.Volume != 0 || eq.High != nil || eq.Low != nil {
		t.Errorf("expected defaults for absent optional fields, got volume=%d high=%v low=%v",
			eq.Volume, eq.High, eq.Low)
	}
}

func TestEquity_DashChangeIsFlat(t *testing.T) {
	eq, res := Equity(model.RawRow{"RSE1", "1,250.00", "x", "-"}, equityCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if eq.Change != 0.0 {
		t.Errorf("change = %v, want 0.0", eq.Change)
	}
}

func TestEquity_NegativeChange(t *testing.T) {
	eq, res := Equity(model.RawRow{"BOK", "305", "x", "-1.25%"}, equityCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if eq.Change != -1.25 {
		t.Errorf("change = %v, want -1.25", eq.Change)
	}
}

func TestEquity_SkipsRequiredFieldFailures(t *testing.T) {
	cases := []struct {
		name string
		row  model.RawRow
	}{
		{"empty symbol", model.RawRow{"", "100", "x", "1%"}},
		{"empty price", model.RawRow{"RSE1", "", "x", "1%"}},
		{"unparseable price", model.RawRow{"RSE1", "n/a", "x", "1%"}},
		{"unparseable change", model.RawRow{"RSE1", "100", "x", "up"}},
		{"too few cells", model.RawRow{"RSE1", "100"}},
	}
	for _, tc := range cases {
		if eq, res := Equity(tc.row, equityCols); !res.Skipped {
			t.Errorf("%s: expected skip, got %+v", tc.name, eq)
		}
	}
}

func TestEquity_OptionalFields(t *testing.T) {
	eq, res := Equity(model.RawRow{"KCB", "405.00", "x", "0.00%", "12,500", "410.00", "400.00"}, equityCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if eq.Volume != 12500 {
		t.Errorf("volume = %d, want 12500", eq.Volume)
	}
	if eq.High == nil || *eq.High != 410.00 {
		t.Errorf("high = %v, want 410.00", eq.High)
	}
	if eq.Low == nil || *eq.Low != 400.00 {
		t.Errorf("low = %v, want 400.00", eq.Low)
	}
	if len(res.Degraded) != 0 {
		t.Errorf("unexpected degradations: %v", res.Degraded)
	}
}

func TestEquity_MalformedOptionalFieldDegrades(t *testing.T) {
	eq, res := Equity(model.RawRow{"KCB", "405.00", "x", "0.00%", "heavy", "?", "400.00"}, equityCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if eq.Volume != 0 {
		t.Errorf("volume = %d, want default 0", eq.Volume)
	}
	if eq.High != nil {
		t.Errorf("high = %v, want nil", eq.High)
	}
	if eq.Low == nil || *eq.Low != 400.00 {
		t.Errorf("low = %v, want 400.00", eq.Low)
	}
	if len(res.Degraded) != 2 {
		t.Errorf("expected 2 degraded fields, got %v", res.Degraded)
	}
}

func TestMarketStat_VerbatimText(t *testing.T) {
	st, res := MarketStat(model.RawRow{"Total Market Capitalization", "Rwf 3,500 Billion"}, statCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if st.Label != "Total Market Capitalization" || st.Value != "Rwf 3,500 Billion" {
		t.Errorf("got %q=%q", st.Label, st.Value)
	}
}

func TestMarketStat_SkipsShortRow(t *testing.T) {
	if st, res := MarketStat(model.RawRow{"only a label"}, statCols); !res.Skipped {
		t.Errorf("expected skip, got %+v", st)
	}
}

func TestBond_FixedLayout(t *testing.T) {
	b, res := Bond(model.RawRow{"1", "ACME-2030", "2020-01-01", "2030-01-01", "5%", "6.25%"}, bondCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if b.Security != "ACME-2030" {
		t.Errorf("security = %q", b.Security)
	}
	if b.Coupon != "5%" {
		t.Errorf("coupon = %q, want 5%%", b.Coupon)
	}
	if b.Maturity != "2030-01-01" {
		t.Errorf("maturity = %q", b.Maturity)
	}
	if b.YieldPercentage != 6.25 {
		t.Errorf("yield = %v, want 6.25", b.YieldPercentage)
	}
	if b.Price != 0.0 {
		t.Errorf("price = %v, want 0.0", b.Price)
	}
}

func TestBond_YieldDegradesToZero(t *testing.T) {
	b, res := Bond(model.RawRow{"1", "RWGB-2031", "2021-06-01", "2031-06-01", "7%", "tbd"}, bondCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if b.YieldPercentage != 0.0 {
		t.Errorf("yield = %v, want 0.0", b.YieldPercentage)
	}
	if len(res.Degraded) != 1 {
		t.Errorf("expected yield degradation to be reported, got %v", res.Degraded)
	}
}

func TestBond_DashYieldIsZeroWithoutDegradation(t *testing.T) {
	b, res := Bond(model.RawRow{"1", "RWGB-2031", "2021-06-01", "2031-06-01", "7%", "-"}, bondCols)
	if res.Skipped {
		t.Fatalf("row skipped: %s", res.Reason)
	}
	if b.YieldPercentage != 0.0 {
		t.Errorf("yield = %v, want 0.0", b.YieldPercentage)
	}
	if len(res.Degraded) != 0 {
		t.Errorf("dash yield should not count as degraded, got %v", res.Degraded)
	}
}

func TestBond_SkipsShortRow(t *testing.T) {
	if b, res := Bond(model.RawRow{"1", "ACME-2030", "2020-01-01"}, bondCols); !res.Skipped {
		t.Errorf("expected skip, got %+v", b)
	}
}
