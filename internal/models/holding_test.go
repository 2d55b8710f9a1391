package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewHolding(t *testing.T) {
	qty := decimal.RequireFromString("0.5")
	price := decimal.NewFromInt(30000)

	t.Run("valid", func(t *testing.T) {
		h, err := NewHolding("BTC", qty, price, time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.Asset != "BTC" {
			t.Errorf("expected asset BTC, got %s", h.Asset)
		}
		if !h.Quantity.Equal(qty) {
			t.Errorf("expected quantity %s, got %s", qty, h.Quantity)
		}
	})

	t.Run("zero_buy_date_allowed", func(t *testing.T) {
		// A zero date is stamped at persist time, not rejected.
		if _, err := NewHolding("BTC", qty, price, time.Time{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	cases := []struct {
		name     string
		asset    string
		quantity decimal.Decimal
		buyPrice decimal.Decimal
		buyDate  time.Time
	}{
		{"blank_asset", "  ", qty, price, time.Now()},
		{"zero_quantity", "BTC", decimal.Zero, price, time.Now()},
		{"negative_quantity", "BTC", decimal.NewFromInt(-1), price, time.Now()},
		{"zero_price", "BTC", qty, decimal.Zero, time.Now()},
		{"negative_price", "BTC", qty, decimal.NewFromInt(-5), time.Now()},
		{"future_buy_date", "BTC", qty, price, time.Now().Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewHolding(tc.asset, tc.quantity, tc.buyPrice, tc.buyDate); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestPortfolioHoldingFor(t *testing.T) {
	p := &Portfolio{
		Holdings: []Holding{
			{Asset: "USDT", Quantity: decimal.NewFromInt(1000)},
			{Asset: "BTC", Quantity: decimal.RequireFromString("0.1")},
		},
	}

	if h := p.HoldingFor("BTC"); h == nil || !h.Quantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected BTC holding with quantity 0.1, got %+v", h)
	}
	if h := p.HoldingFor("ETH"); h != nil {
		t.Errorf("expected nil for unheld asset, got %+v", h)
	}
}

func TestPortfolioTotalValue(t *testing.T) {
	p := &Portfolio{
		Holdings: []Holding{
			{Asset: "USDT", Quantity: decimal.NewFromInt(1000), BuyPrice: decimal.NewFromInt(1)},
			{Asset: "BTC", Quantity: decimal.RequireFromString("0.1"), BuyPrice: decimal.NewFromInt(60000)},
		},
	}

	// 1000x1 + 0.1x60000 = 7000
	if total := p.TotalValue(); !total.Equal(decimal.NewFromInt(7000)) {
		t.Errorf("expected total value 7000, got %s", total)
	}

	empty := &Portfolio{}
	if total := empty.TotalValue(); !total.IsZero() {
		t.Errorf("expected zero total for empty portfolio, got %s", total)
	}
}
