package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cryptoforge/internal/handlers"
	"cryptoforge/internal/logger"
	"cryptoforge/internal/middleware"
	"cryptoforge/internal/models"
	"cryptoforge/internal/services"
	"cryptoforge/internal/storage"
	"cryptoforge/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Mutator services.HoldingMutatorServicer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	allModels := []interface{}{
		&models.Account{},
		&models.Portfolio{},
		&models.Holding{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	repo := storage.NewAccountRepository(db)
	accountService := services.NewAccountService(repo)
	portfolioService := services.NewPortfolioService(repo)
	mutator := services.NewHoldingMutator(repo, 2, 16)
	t.Cleanup(mutator.Close)

	authHandler := handlers.NewAuthHandler(accountService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, mutator)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.DELETE("/profile", authHandler.DeleteAccount)

	portfolio := protected.Group("/portfolio")
	portfolio.GET("/balance/:asset", portfolioHandler.GetBalance)
	portfolio.GET("/value", portfolioHandler.GetTotalValue)
	portfolio.GET("/holdings", portfolioHandler.ListHoldings)
	portfolio.POST("/holdings/adjust", portfolioHandler.AdjustHolding)

	return &testApp{DB: db, Router: router, Mutator: mutator}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerAccount registers a new account and returns the access token and account ID.
func (app *testApp) registerAccount(t *testing.T, email, password string) (accessToken, accountID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	account := result["account"].(map[string]interface{})
	return result["access_token"].(string), account["id"].(string)
}

// loginAccount logs in and returns the access and refresh tokens.
func (app *testApp) loginAccount(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// assertAmount compares a JSON amount against the expected value numerically,
// so "7000" and "7000.0" are the same amount.
func assertAmount(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("expected a decimal string, got %T: %v", got, got)
	}
	gotDec, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("amount %q is not a decimal: %v", s, err)
	}
	if !decimal.RequireFromString(want).Equal(gotDec) {
		t.Errorf("expected amount %s, got %s", want, s)
	}
}

// errorCode digs the machine-readable code out of an error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an error envelope, got: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}
