package services

import (
	"github.com/shopspring/decimal"

	"cryptoforge/internal/models"
	"cryptoforge/internal/pagination"
)

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	Register(email, password string) (*models.Account, error)
	GetAccountByID(id string) (*models.Account, error)
	GetAccountByEmail(email string) (*models.Account, error)
	DeleteAccount(id string) error
	VerifyPassword(account *models.Account, password string) bool
}

// PortfolioServicer defines the contract for read-only balance queries.
// Absence of an account, portfolio, or holding resolves to zero, never to an
// error; mutation operations fail loudly on the same absence.
type PortfolioServicer interface {
	BalanceOf(accountID, asset string) (decimal.Decimal, error)
	TotalValue(accountID string) (decimal.Decimal, error)
	ListHoldings(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error)
}

// HoldingMutatorServicer defines the contract for asynchronous holding
// quantity adjustments. AdjustQuantity never blocks the caller; outcomes
// surface exclusively through the returned Completion.
type HoldingMutatorServicer interface {
	AdjustQuantity(accountID, asset string, delta decimal.Decimal) *Completion
	Close()
}
