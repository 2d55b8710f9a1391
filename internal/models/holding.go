package models

import (
	"strings"
	"time"

	apperrors "cryptoforge/internal/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is a quantity of one asset acquired at a given price and time.
// Quantity is the only field mutated after creation.
type Holding struct {
	Base
	PortfolioID string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_holdings_portfolio_asset" json:"portfolio_id"`
	Asset       string          `gorm:"not null;index;uniqueIndex:idx_holdings_portfolio_asset" json:"asset"`
	Quantity    decimal.Decimal `gorm:"type:numeric(38,8);not null" json:"quantity"`
	BuyPrice    decimal.Decimal `gorm:"type:numeric(38,2);not null" json:"buy_price"`
	BuyDate     time.Time       `gorm:"not null;index" json:"buy_date"`
}

// NewHolding validates and builds a holding. Validation runs before any field
// is considered built: blank asset, non-positive quantity or price, and a buy
// date in the future are all rejected.
func NewHolding(asset string, quantity, buyPrice decimal.Decimal, buyDate time.Time) (*Holding, error) {
	if strings.TrimSpace(asset) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "asset symbol is required")
	}
	if !quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be positive")
	}
	if !buyPrice.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "buy price must be positive")
	}
	if !buyDate.IsZero() && buyDate.After(time.Now()) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "buy date cannot be in the future")
	}

	return &Holding{
		Asset:    asset,
		Quantity: quantity,
		BuyPrice: buyPrice,
		BuyDate:  buyDate,
	}, nil
}

// BeforeCreate stamps the buy date when the caller left it unset.
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if err := h.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if h.BuyDate.IsZero() {
		h.BuyDate = time.Now()
	}
	return nil
}
