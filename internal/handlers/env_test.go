package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmmart/backend/internal/authz"
	"github.com/farmmart/backend/internal/models"
	"github.com/farmmart/backend/internal/mykafka"
	"github.com/farmmart/backend/internal/orders"
)

type testEnv struct {
	E  *echo.Echo
	DB *gorm.DB
	A  *AuthHandler
	P  *ProductHandler
	O  *OrderHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))

	// Zero producer drops events.
	prod := &mykafka.Producer{}

	return &testEnv{
		E:  echo.New(),
		DB: db,
		A:  &AuthHandler{DB: db, JWTSecret: []byte("test-jwt-secret"), Producer: prod},
		P:  &ProductHandler{DB: db, Producer: prod},
		O:  &OrderHandler{Svc: &orders.Service{DB: db}, Producer: prod},
	}
}

func (env *testEnv) doJSONRequest(t *testing.T, method, path string, body any, ident *authz.Identity) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	if ident != nil {
		c.Set(identityKey, *ident)
	}
	return rec, c
}

func createTestProduct(t *testing.T, db *gorm.DB, farmerID uint, name string, price float64, quantity int) *models.Product {
	t.Helper()
	p := models.Product{FarmerID: farmerID, Name: name, Price: price, Quantity: quantity}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func httpStatusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return he.Code
}
