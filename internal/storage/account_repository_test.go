package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cryptoforge/internal/models"
	"cryptoforge/internal/pagination"
	"cryptoforge/internal/testutil"
)

func newAggregate(email string) *models.Account {
	return &models.Account{
		Email:    email,
		Password: "hashed",
		Portfolio: &models.Portfolio{
			Holdings: []models.Holding{
				{Asset: "USDT", Quantity: decimal.NewFromInt(1000), BuyPrice: decimal.NewFromInt(1)},
				{Asset: "BTC", Quantity: decimal.RequireFromString("0.1"), BuyPrice: decimal.NewFromInt(60000)},
			},
		},
	}
}

func TestSaveAndFindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	account := newAggregate("save@example.com")
	testutil.AssertNoError(t, repo.Save(account))

	if account.ID == "" {
		t.Fatal("expected generated account ID")
	}

	loaded, err := repo.FindByID(account.ID)
	testutil.AssertNoError(t, err)

	if loaded.Portfolio == nil {
		t.Fatal("expected portfolio to be loaded")
	}
	if len(loaded.Portfolio.Holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(loaded.Portfolio.Holdings))
	}
	// Holdings come back in creation order.
	if loaded.Portfolio.Holdings[0].Asset != "USDT" {
		t.Errorf("expected first holding USDT, got %s", loaded.Portfolio.Holdings[0].Asset)
	}
	if loaded.Portfolio.Holdings[0].BuyDate.IsZero() {
		t.Error("expected buy date to be stamped on persist")
	}
}

func TestSaveDuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	testutil.AssertNoError(t, repo.Save(newAggregate("dup@example.com")))

	// A second save of the same email hits the unique index directly, the
	// way a registration that raced past the duplicate lookup would.
	err := repo.Save(newAggregate("dup@example.com"))
	testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")

	var count int64
	db.Model(&models.Account{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 account after duplicate save, got %d", count)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	_, err := repo.FindByID("00000000-0000-0000-0000-000000000000")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestFindByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	account := newAggregate("lookup@example.com")
	testutil.AssertNoError(t, repo.Save(account))

	loaded, err := repo.FindByEmail("lookup@example.com")
	testutil.AssertNoError(t, err)
	if loaded.ID != account.ID {
		t.Errorf("expected account %s, got %s", account.ID, loaded.ID)
	}

	_, err = repo.FindByEmail("nobody@example.com")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestDeleteCascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	account := newAggregate("delete@example.com")
	testutil.AssertNoError(t, repo.Save(account))
	testutil.AssertNoError(t, repo.Delete(account))

	_, err := repo.FindByID(account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

	var portfolios, holdings int64
	db.Model(&models.Portfolio{}).Where("account_id = ?", account.ID).Count(&portfolios)
	db.Model(&models.Holding{}).Where("portfolio_id = ?", account.Portfolio.ID).Count(&holdings)
	if portfolios != 0 || holdings != 0 {
		t.Errorf("expected cascade delete, found %d portfolios and %d holdings", portfolios, holdings)
	}
}

func TestUpdateHoldingQuantity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	account := newAggregate("update@example.com")
	testutil.AssertNoError(t, repo.Save(account))

	loaded, err := repo.FindByID(account.ID)
	testutil.AssertNoError(t, err)
	before := loaded.Portfolio.UpdatedAt

	time.Sleep(10 * time.Millisecond)

	holding := loaded.Portfolio.HoldingFor("BTC")
	newQty := decimal.RequireFromString("0.15")
	err = repo.Transaction(func(tx *AccountRepository) error {
		return tx.UpdateHoldingQuantity(holding, newQty)
	})
	testutil.AssertNoError(t, err)

	reloaded, err := repo.FindByID(account.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimalEqual(t, newQty, reloaded.Portfolio.HoldingFor("BTC").Quantity)

	if !reloaded.Portfolio.UpdatedAt.After(before) {
		t.Error("expected portfolio update timestamp to be refreshed")
	}
}

func TestListAndCountHoldings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	repo := NewAccountRepository(db)

	account := newAggregate("list@example.com")
	testutil.AssertNoError(t, repo.Save(account))

	count, err := repo.CountHoldings(account.Portfolio.ID)
	testutil.AssertNoError(t, err)
	if count != 2 {
		t.Fatalf("expected 2 holdings, got %d", count)
	}

	page := pagination.PageRequest{Page: 1, PageSize: 1}
	holdings, err := repo.ListHoldings(account.Portfolio.ID, page)
	testutil.AssertNoError(t, err)
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding on page 1, got %d", len(holdings))
	}
	if holdings[0].Asset != "USDT" {
		t.Errorf("expected USDT first, got %s", holdings[0].Asset)
	}

	page.Page = 2
	holdings, err = repo.ListHoldings(account.Portfolio.ID, page)
	testutil.AssertNoError(t, err)
	if len(holdings) != 1 || holdings[0].Asset != "BTC" {
		t.Errorf("expected BTC on page 2, got %+v", holdings)
	}
}
