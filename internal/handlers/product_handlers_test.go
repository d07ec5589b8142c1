package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmart/backend/internal/authz"
	"github.com/farmmart/backend/internal/models"
)

func TestCreateProductHandler(t *testing.T) {
	env := newTestEnv(t)

	farmer := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	body := map[string]any{
		"name":        "tomatoes",
		"description": "vine ripened",
		"price":       5.5,
		"quantity":    30,
		"image_ref":   "uploads/tomatoes.jpg",
	}

	rec, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/products", body, &farmer)
	require.NoError(t, env.P.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, uint(10), resp.FarmerID)
	assert.Equal(t, 30, resp.Quantity)
	assert.Equal(t, "uploads/tomatoes.jpg", resp.ImageRef)
}

func TestCreateProductHandler_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)

	customer := authz.Identity{UserID: 1, Role: authz.RoleCustomer}
	body := map[string]any{"name": "tomatoes", "price": 5.5, "quantity": 30}

	_, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/products", body, &customer)
	require.Equal(t, http.StatusForbidden, httpStatusOf(t, env.P.CreateProduct(c)))
}

func TestCreateProductHandler_Validation(t *testing.T) {
	env := newTestEnv(t)

	farmer := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"price": 1.0, "quantity": 1}},
		{"zero price", map[string]any{"name": "x", "price": 0, "quantity": 1}},
		{"negative quantity", map[string]any{"name": "x", "price": 1.0, "quantity": -1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/products", tt.body, &farmer)
			require.Equal(t, http.StatusBadRequest, httpStatusOf(t, env.P.CreateProduct(c)))
		})
	}
}

func TestPatchProductHandler(t *testing.T) {
	env := newTestEnv(t)
	p := createTestProduct(t, env.DB, 10, "apples", 2, 15)

	owner := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	body := map[string]any{"price": 2.5, "quantity": 20}

	rec, c := env.doJSONRequest(t, http.MethodPatch, "/api/v1/products/1", body, &owner)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.P.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2.5, resp.Price)
	assert.Equal(t, 20, resp.Quantity)
	assert.Equal(t, "apples", resp.Name)

	// A different farmer cannot touch it.
	other := authz.Identity{UserID: 11, Role: authz.RoleFarmer}
	_, c = env.doJSONRequest(t, http.MethodPatch, "/api/v1/products/1", body, &other)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.Equal(t, http.StatusForbidden, httpStatusOf(t, env.P.PatchProduct(c)))

	var reread models.Product
	require.NoError(t, env.DB.First(&reread, p.ID).Error)
	assert.Equal(t, 2.5, reread.Price)
}

func TestDeleteProductHandler(t *testing.T) {
	env := newTestEnv(t)
	createTestProduct(t, env.DB, 10, "plums", 3, 5)

	owner := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	rec, c := env.doJSONRequest(t, http.MethodDelete, "/api/v1/products/1", nil, &owner)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.P.DeleteProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products/1", nil, nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.Equal(t, http.StatusNotFound, httpStatusOf(t, env.P.GetProduct(c)))
}

func TestGetProductsHandler(t *testing.T) {
	env := newTestEnv(t)
	createTestProduct(t, env.DB, 10, "kale", 2, 5)
	createTestProduct(t, env.DB, 10, "leeks", 3, 5)

	rec, c := env.doJSONRequest(t, http.MethodGet, "/api/v1/products", nil, nil)
	require.NoError(t, env.P.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Meta.Total)
	assert.Len(t, resp.Data, 2)
}
