// Package storage implements the persistence contract consumed by the
// service layer: find-by-id, find-by-email, save, and delete over the
// Account/Portfolio/Holding aggregate, each atomic per call.
package storage

import (
	"errors"
	"time"

	apperrors "cryptoforge/internal/errors"
	"cryptoforge/internal/models"
	"cryptoforge/internal/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRepository provides atomic access to account aggregates.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a repository backed by the given GORM handle.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Transaction runs fn against a transaction-bound repository. Everything fn
// does commits or rolls back as one unit; read-only callers get a consistent
// snapshot of the aggregate for the duration of fn.
func (r *AccountRepository) Transaction(fn func(txRepo *AccountRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&AccountRepository{db: tx})
	})
}

// FindByID loads an account with its portfolio and holdings. Holdings come
// back in creation order. Returns ErrAccountNotFound for an unknown id.
func (r *AccountRepository) FindByID(id string) (*models.Account, error) {
	var account models.Account
	err := r.db.
		Preload("Portfolio.Holdings", func(db *gorm.DB) *gorm.DB {
			return db.Order("holdings.buy_date ASC")
		}).
		Preload("Portfolio").
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// FindByEmail loads an account aggregate by its unique email.
func (r *AccountRepository) FindByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := r.db.
		Preload("Portfolio.Holdings", func(db *gorm.DB) *gorm.DB {
			return db.Order("holdings.buy_date ASC")
		}).
		Preload("Portfolio").
		Where("email = ?", email).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// Save persists a new account aggregate in one transaction: the account row,
// its portfolio, and every holding, all or nothing. The email's unique index
// is the backstop for registrations racing the duplicate check; its violation
// surfaces as ErrDuplicateEmail so the loser sees a conflict, not a 500.
func (r *AccountRepository) Save(account *models.Account) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(account).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateEmail
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Delete removes an account and cascades to its portfolio and holdings. The
// cascade is explicit rather than left to the database so the contract holds
// on backends without foreign-key enforcement.
func (r *AccountRepository) Delete(account *models.Account) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if account.Portfolio != nil {
			if err := tx.Where("portfolio_id = ?", account.Portfolio.ID).Delete(&models.Holding{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(account.Portfolio).Error; err != nil {
				return err
			}
		}
		return tx.Delete(account).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// UpdateHoldingQuantity writes a holding's new quantity and refreshes the
// owning portfolio's update timestamp. Call inside Transaction together with
// the read that produced the new quantity.
func (r *AccountRepository) UpdateHoldingQuantity(holding *models.Holding, quantity decimal.Decimal) error {
	if err := r.db.Model(holding).Update("quantity", quantity).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	err := r.db.Model(&models.Portfolio{}).
		Where("id = ?", holding.PortfolioID).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CountHoldings returns the number of holdings in a portfolio.
func (r *AccountRepository) CountHoldings(portfolioID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Holding{}).
		Where("portfolio_id = ?", portfolioID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// ListHoldings returns a page of a portfolio's holdings in creation order.
func (r *AccountRepository) ListHoldings(portfolioID string, page pagination.PageRequest) ([]models.Holding, error) {
	var holdings []models.Holding
	err := r.db.
		Where("portfolio_id = ?", portfolioID).
		Order("buy_date ASC").
		Scopes(pagination.Paginate(page)).
		Find(&holdings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return holdings, nil
}
