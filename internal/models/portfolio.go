package models

import "github.com/shopspring/decimal"

// Portfolio is the container of an account's holdings. The AccountID
// back-reference is lookup metadata only; the account side owns the relation.
type Portfolio struct {
	Base
	AccountID string `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`

	// Holdings are ordered by creation; removing one from the collection
	// deletes it from the store.
	Holdings []Holding `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"holdings,omitempty"`
}

// HoldingFor returns the first holding matching the given asset symbol,
// or nil if the portfolio does not hold it. Asset symbols are unique within
// a portfolio, so "first" is also "only".
func (p *Portfolio) HoldingFor(asset string) *Holding {
	for i := range p.Holdings {
		if p.Holdings[i].Asset == asset {
			return &p.Holdings[i]
		}
	}
	return nil
}

// TotalValue computes sum(quantity x buy price) over all holdings. It is
// recomputed on demand and never cached, so it always reflects the holding
// state it was read with.
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Holdings {
		h := &p.Holdings[i]
		total = total.Add(h.Quantity.Mul(h.BuyPrice))
	}
	return total
}
