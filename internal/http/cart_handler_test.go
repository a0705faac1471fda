package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type cartMock struct {
	view    *domain.CartView
	receipt *domain.Receipt
	err     error

	gotProductID string
	gotQuantity  int
	gotCustomer  *domain.Customer
}

func (c *cartMock) GetCart(context.Context) (*domain.CartView, error) {
	return c.view, c.err
}

func (c *cartMock) AddItem(_ context.Context, productID string, quantity int) (*domain.CartView, error) {
	c.gotProductID, c.gotQuantity = productID, quantity
	return c.view, c.err
}

func (c *cartMock) RemoveItem(_ context.Context, productID string) (*domain.CartView, error) {
	c.gotProductID = productID
	return c.view, c.err
}

func (c *cartMock) UpdateQuantity(_ context.Context, productID string, quantity int) (*domain.CartView, error) {
	c.gotProductID, c.gotQuantity = productID, quantity
	return c.view, c.err
}

func (c *cartMock) Checkout(_ context.Context, customer *domain.Customer) (*domain.Receipt, error) {
	c.gotCustomer = customer
	return c.receipt, c.err
}

func sampleView() *domain.CartView {
	return &domain.CartView{
		ID: domain.SharedCartID,
		Items: []domain.CartViewItem{{
			Product:  domain.Product{ID: "p1", Name: "Notebook", Price: 6.99},
			Quantity: 2,
			Subtotal: 13.98,
		}},
		Total:   13.98,
		Version: 3,
	}
}

func withProductID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Success(t *testing.T) {
	handler := NewCartHandler(&cartMock{view: sampleView()}, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.GetCart(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.CartView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.InDelta(t, 13.98, view.Total, 1e-9)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Notebook", view.Items[0].Product.Name)
}

func TestAddItem_Success(t *testing.T) {
	mock := &cartMock{view: sampleView()}
	handler := NewCartHandler(mock, 5*time.Second)

	body, _ := json.Marshal(AddItemRequestDTO{ProductID: "p1", Quantity: 2})
	rec := httptest.NewRecorder()
	handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", mock.gotProductID)
	assert.Equal(t, 2, mock.gotQuantity)
}

func TestAddItem_InvalidJSON(t *testing.T) {
	handler := NewCartHandler(&cartMock{}, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("invalid json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestAddItem_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid argument", domain.InvalidArgument("quantity must be positive"), http.StatusBadRequest, "invalid_argument"},
		{"not found", domain.NotFound("product p9 not found"), http.StatusNotFound, "not_found"},
		{"busy", fmt.Errorf("%w: add item", domain.ErrBusy), http.StatusConflict, "busy"},
		{"storage", domain.StorageFailure("load cart", fmt.Errorf("dial tcp: refused")), http.StatusServiceUnavailable, "storage_unavailable"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCartHandler(&cartMock{err: tt.err}, 5*time.Second)

			body, _ := json.Marshal(AddItemRequestDTO{ProductID: "p1", Quantity: 1})
			rec := httptest.NewRecorder()
			handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.NotContains(t, resp.Error, "refused")
		})
	}
}

func TestUpdateQuantity(t *testing.T) {
	mock := &cartMock{view: sampleView()}
	handler := NewCartHandler(mock, 5*time.Second)

	rec := httptest.NewRecorder()
	req := withProductID(httptest.NewRequest(http.MethodPut, "/p1", bytes.NewReader([]byte(`{"quantity": 0}`))), "p1")
	handler.UpdateQuantity(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", mock.gotProductID)
	assert.Equal(t, 0, mock.gotQuantity)

	rec = httptest.NewRecorder()
	req = withProductID(httptest.NewRequest(http.MethodPut, "/p1", bytes.NewReader([]byte(`{}`))), "p1")
	handler.UpdateQuantity(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem_CartNotFound(t *testing.T) {
	handler := NewCartHandler(&cartMock{err: domain.NotFound("cart not found")}, 5*time.Second)

	rec := httptest.NewRecorder()
	handler.RemoveItem(rec, withProductID(httptest.NewRequest(http.MethodDelete, "/p1", nil), "p1"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestCheckout(t *testing.T) {
	receipt := &domain.Receipt{
		ID:        "r1",
		Items:     []domain.ReceiptItem{{ProductID: "p1", Product: "Notebook", Quantity: 2, Price: 6.99, Subtotal: 13.98}},
		Total:     13.98,
		Timestamp: time.Now().UTC(),
	}

	t.Run("empty body", func(t *testing.T) {
		mock := &cartMock{receipt: receipt}
		rec := httptest.NewRecorder()
		NewCartHandler(mock, 5*time.Second).Checkout(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, mock.gotCustomer)
		var got domain.Receipt
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "r1", got.ID)
		assert.InDelta(t, 13.98, got.Total, 1e-9)
	})

	t.Run("with customer", func(t *testing.T) {
		mock := &cartMock{receipt: receipt}
		body := []byte(`{"customer": {"name": "Ada", "email": "ada@example.com"}}`)
		rec := httptest.NewRecorder()
		NewCartHandler(mock, 5*time.Second).Checkout(rec, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, mock.gotCustomer)
		assert.Equal(t, "Ada", mock.gotCustomer.Name)
	})

	t.Run("empty cart", func(t *testing.T) {
		mock := &cartMock{err: domain.ErrEmptyCart}
		rec := httptest.NewRecorder()
		NewCartHandler(mock, 5*time.Second).Checkout(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "empty_cart", decodeError(t, rec).Code)
	})
}

func TestAddItem_ClientCanceled(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := NewCartHandler(&cartMock{err: fmt.Errorf("load cart: %w", context.Canceled)}, 5*time.Second)

	body, _ := json.Marshal(AddItemRequestDTO{ProductID: "p1", Quantity: 1})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req = req.WithContext(logger.WithContext(req.Context(), zap.New(core)))

	rec := httptest.NewRecorder()
	handler.AddItem(rec, req)

	assert.Equal(t, StatusClientClosedRequest, rec.Code)
	assert.Equal(t, "canceled", decodeError(t, rec).Code)
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("request canceled by client").Len())
}
