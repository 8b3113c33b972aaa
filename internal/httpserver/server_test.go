package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/app"
	"finitefield.org/retail-console/internal/checkout"
	"finitefield.org/retail-console/internal/session"
	"finitefield.org/retail-console/internal/testutil/fakeapi"
	"finitefield.org/retail-console/internal/transport"
)

func newTestRouter(t *testing.T) (http.Handler, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(t)
	view := app.NewView(nil)
	tc, err := transport.New(fake.BaseURL(), transport.WithHTTPClient(fake.Client()), transport.WithNotifier(view))
	require.NoError(t, err)
	st, err := app.New(app.Deps{API: api.New(tc), Store: session.NewMemoryStore(), View: view})
	require.NoError(t, err)
	return NewRouter(st, zap.NewNop()), fake
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload
}

func login(t *testing.T, h http.Handler, email, password string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/session/login", loginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthzAndNotFound(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := decode(t, rec)
	require.Equal(t, "route_not_found", payload["error"])
	require.NotEmpty(t, payload["request_id"])
}

func TestAdminRoutesRequireCapability(t *testing.T) {
	t.Parallel()

	h, fake := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/products"},
		{http.MethodGet, "/api/admin/orders"},
		{http.MethodDelete, "/api/admin/users/2"},
		{http.MethodPost, "/api/admin/dashboard/refresh"},
		{http.MethodGet, "/api/store/products"},
		{http.MethodGet, "/api/store/categories"},
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/items"},
	}
	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.path, nil)
		require.Equal(t, http.StatusForbidden, rec.Code, tt.path)
		require.Equal(t, "forbidden", decode(t, rec)["error"], tt.path)
	}
	require.Zero(t, fake.TotalCalls())

	login(t, h, fakeapi.SellerEmail, fakeapi.SellerPassword)
	rec := do(t, h, http.MethodGet, "/api/admin/products", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/store/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFormErrors(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/session/login", loginRequest{Email: fakeapi.CustomerEmail, Password: "wrong"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decode(t, rec)
	require.Equal(t, "form_invalid", payload["error"])
	require.Equal(t, "login", payload["form"])
	require.Equal(t, "Invalid email or password", payload["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/session/login", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	require.Equal(t, "invalid_body", decode(t, bad)["error"])
}

func TestCartAndCheckoutFlow(t *testing.T) {
	t.Parallel()

	h, fake := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, checkout.MessageLoginRequired, decode(t, rec)["message"])

	login(t, h, fakeapi.CustomerEmail, fakeapi.CustomerPassword)

	rec = do(t, h, http.MethodPost, "/api/cart/items", addToCartRequest{ProductID: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPut, "/api/cart/items/3", quantityRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	var cartView app.CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartView))
	require.Equal(t, 3, cartView.TotalQuantity)
	require.Equal(t, "₺900", cartView.TotalAmount)

	rec = do(t, h, http.MethodPut, "/api/cart/items/2", quantityRequest{Quantity: 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, checkout.MessageEmptyAddress, decode(t, rec)["message"])

	rec = do(t, h, http.MethodPut, "/api/checkout/address", addressRequest{Address: "Kadıköy, Istanbul"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Positive(t, decode(t, rec)["orderId"])
	require.Len(t, fake.SubmittedOrders(), 1)

	rec = do(t, h, http.MethodGet, "/api/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view viewPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.True(t, view.Cart.Empty)
	require.Empty(t, view.Surface.Address)
	require.NotNil(t, view.Surface.Receipt)
	require.True(t, view.Identity.Authenticated)
}

func TestAdminListingsAndDashboard(t *testing.T) {
	t.Parallel()

	h, fake := newTestRouter(t)
	login(t, h, fakeapi.AdminEmail, fakeapi.AdminPassword)

	rec := do(t, h, http.MethodGet, "/api/admin/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	require.Equal(t, true, payload["available"])
	require.NotEmpty(t, payload["items"])

	rec = do(t, h, http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Page 1 / 1", decode(t, rec)["label"])

	rec = do(t, h, http.MethodPost, "/api/navigate", navigateRequest{Page: "dashboard"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 1, decode(t, rec)["generation"])

	rec = do(t, h, http.MethodPost, "/api/admin/dashboard/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 3, decode(t, rec)["generation"])

	rec = do(t, h, http.MethodPost, "/api/navigate", navigateRequest{Page: "reports"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/admin/products/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_id", decode(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/api/admin/campaigns", campaignRequest{CategoryID: 2, Discount: 150})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, fake.Campaigns())

	fake.Fail("/suppliers", http.StatusInternalServerError)
	rec = do(t, h, http.MethodGet, "/api/admin/suppliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload = decode(t, rec)
	require.Equal(t, false, payload["available"])
	require.Empty(t, payload["items"])
}
