package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cryptoforge/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates an account with a hashed password, a portfolio,
// and no holdings, under a unique email.
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	email := fmt.Sprintf("account%d@test.com", nextID())
	return CreateTestAccountWithEmail(t, db, email)
}

// CreateTestAccountWithEmail creates an account with the given email.
func CreateTestAccountWithEmail(t *testing.T, db *gorm.DB, email string) *models.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	account := &models.Account{
		Email:     email,
		Password:  string(hash),
		Portfolio: &models.Portfolio{},
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestHolding adds a holding of the given asset and quantity to the
// account's portfolio, bought at 100 per unit.
func CreateTestHolding(t *testing.T, db *gorm.DB, account *models.Account, asset, quantity string) *models.Holding {
	t.Helper()
	return CreateTestHoldingAt(t, db, account, asset, quantity, "100", time.Now())
}

// CreateTestHoldingAt adds a holding with an explicit buy price and date.
func CreateTestHoldingAt(t *testing.T, db *gorm.DB, account *models.Account, asset, quantity, buyPrice string, buyDate time.Time) *models.Holding {
	t.Helper()

	if account.Portfolio == nil {
		t.Fatal("test account has no portfolio")
	}

	holding := &models.Holding{
		PortfolioID: account.Portfolio.ID,
		Asset:       asset,
		Quantity:    decimal.RequireFromString(quantity),
		BuyPrice:    decimal.RequireFromString(buyPrice),
		BuyDate:     buyDate,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	account.Portfolio.Holdings = append(account.Portfolio.Holdings, *holding)
	return holding
}

// HoldingQuantity reads a holding's current quantity straight from the store.
func HoldingQuantity(t *testing.T, db *gorm.DB, holdingID string) decimal.Decimal {
	t.Helper()

	var holding models.Holding
	if err := db.Where("id = ?", holdingID).First(&holding).Error; err != nil {
		t.Fatalf("failed to load holding %s: %v", holdingID, err)
	}
	return holding.Quantity
}
