package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "cryptoforge/internal/errors"
	"cryptoforge/internal/logger"
	"cryptoforge/internal/models"
	"cryptoforge/internal/storage"

	"github.com/shopspring/decimal"
)

// minPasswordLength is the single authoritative password minimum.
const minPasswordLength = 8

// Seed holdings created with every new account.
var (
	seedUSDTQuantity = decimal.NewFromInt(1000)
	seedUSDTPrice    = decimal.NewFromInt(1) // USDT pegged to 1 USD
	seedBTCQuantity  = decimal.RequireFromString("0.1")
	seedBTCPrice     = decimal.NewFromInt(60000)
)

// accountService handles account-related business logic.
type accountService struct {
	repo *storage.AccountRepository
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(repo *storage.AccountRepository) AccountServicer {
	return &accountService{repo: repo}
}

// Register creates a new account together with its portfolio and the two
// seed holdings (USDT 1000 @ 1, BTC 0.1 @ 60000) in one atomic write.
// A duplicate email fails with no state change.
func (s *accountService) Register(email, password string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	email = strings.ToLower(email)

	_, err := s.repo.FindByEmail(email)
	if err == nil {
		logger.Get().Warnw("duplicate registration attempt", "email", email)
		return nil, apperrors.ErrDuplicateEmail
	}
	if !errors.Is(err, apperrors.ErrAccountNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holdings, err := seedHoldings()
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Email:    email,
		Password: string(hashed),
		Portfolio: &models.Portfolio{
			Holdings: holdings,
		},
	}

	if err := s.repo.Save(account); err != nil {
		return nil, err
	}

	logger.Get().Infow("account registered",
		"account_id", account.ID,
		"email", email,
		"seed_holdings", len(holdings),
	)
	return account, nil
}

// seedHoldings builds the fixed starter holdings through the validated
// constructor. The buy date is left zero so the persistence hook stamps it.
func seedHoldings() ([]models.Holding, error) {
	usdt, err := models.NewHolding("USDT", seedUSDTQuantity, seedUSDTPrice, time.Time{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	btc, err := models.NewHolding("BTC", seedBTCQuantity, seedBTCPrice, time.Time{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return []models.Holding{*usdt, *btc}, nil
}

// GetAccountByID retrieves an account aggregate by ID.
func (s *accountService) GetAccountByID(id string) (*models.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	return s.repo.FindByID(id)
}

// GetAccountByEmail retrieves an account aggregate by email.
func (s *accountService) GetAccountByEmail(email string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	return s.repo.FindByEmail(email)
}

// DeleteAccount deletes an account and cascades to its portfolio and holdings.
func (s *accountService) DeleteAccount(id string) error {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(account); err != nil {
		return err
	}
	logger.Get().Infow("account deleted", "account_id", id)
	return nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *accountService) VerifyPassword(account *models.Account, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password))
	return err == nil
}
