package services

import (
	"errors"

	"github.com/shopspring/decimal"

	apperrors "cryptoforge/internal/errors"
	"cryptoforge/internal/models"
	"cryptoforge/internal/pagination"
	"cryptoforge/internal/storage"
)

// portfolioService answers read-only balance queries over account portfolios.
// Every query runs inside a single read transaction so a concurrent mutation
// can never produce a mix of pre- and post-update values across holdings of
// the same portfolio.
type portfolioService struct {
	repo *storage.AccountRepository
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(repo *storage.AccountRepository) PortfolioServicer {
	return &portfolioService{repo: repo}
}

// BalanceOf returns the quantity of the holding matching asset for the given
// account, or zero when the account, its portfolio, or the holding is absent.
func (s *portfolioService) BalanceOf(accountID, asset string) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := s.repo.Transaction(func(tx *storage.AccountRepository) error {
		account, err := tx.FindByID(accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				return nil
			}
			return err
		}
		if account.Portfolio == nil {
			return nil
		}
		if h := account.Portfolio.HoldingFor(asset); h != nil {
			balance = h.Quantity
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// TotalValue returns sum(quantity x buy price) over all of the account's
// holdings, or zero when the account or its portfolio is absent.
func (s *portfolioService) TotalValue(accountID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.repo.Transaction(func(tx *storage.AccountRepository) error {
		account, err := tx.FindByID(accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				return nil
			}
			return err
		}
		if account.Portfolio == nil {
			return nil
		}
		total = account.Portfolio.TotalValue()
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ListHoldings returns a page of the account's holdings in creation order.
// Unlike the balance queries, listing an unknown account is an error.
func (s *portfolioService) ListHoldings(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error) {
	page.Defaults()

	var resp pagination.PageResponse[models.Holding]
	err := s.repo.Transaction(func(tx *storage.AccountRepository) error {
		account, err := tx.FindByID(accountID)
		if err != nil {
			return err
		}
		if account.Portfolio == nil {
			resp = pagination.NewPageResponse([]models.Holding{}, page.Page, page.PageSize, 0)
			return nil
		}

		total, err := tx.CountHoldings(account.Portfolio.ID)
		if err != nil {
			return err
		}
		holdings, err := tx.ListHoldings(account.Portfolio.ID, page)
		if err != nil {
			return err
		}
		resp = pagination.NewPageResponse(holdings, page.Page, page.PageSize, total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
