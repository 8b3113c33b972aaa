package httpserver

import (
	"net/http"
	"strings"

	"finitefield.org/retail-console/internal/app"
	"finitefield.org/retail-console/internal/catalog"
	"finitefield.org/retail-console/internal/orders"
	"finitefield.org/retail-console/internal/session"
)

type handlers struct {
	state *app.State
}

type viewPayload struct {
	Surface  app.Surface  `json:"surface"`
	Identity app.Identity `json:"identity"`
	Cart     app.CartView `json:"cart"`
}

func (h *handlers) view(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewPayload{
		Surface:  h.state.Surface(),
		Identity: h.state.Identity(),
		Cart:     h.state.CartView(),
	})
}

type navigateRequest struct {
	Page string `json:"page"`
}

func (h *handlers) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page := app.Page(strings.TrimSpace(req.Page))
	snap, err := h.state.Navigate(r.Context(), page)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if page == app.PageDashboard {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) refreshDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.state.Navigate(r.Context(), app.PageDashboard)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) identity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Identity())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.state.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state.Identity())
}

type registerRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type registerResponse struct {
	UserID       int64  `json:"userId"`
	PrefillEmail string `json:"prefillEmail"`
	Message      string `json:"message"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.state.Register(r.Context(), session.RegisterRequest{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{UserID: result.UserID, PrefillEmail: result.PrefillEmail, Message: result.Message})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Logout(r.Context()); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) showLogin(w http.ResponseWriter, r *http.Request) {
	h.state.ShowLogin(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) storefront(w http.ResponseWriter, r *http.Request) {
	cards, ok := h.state.Storefront(r.Context(), r.URL.Query().Get("search"), queryID(r, "category_id"))
	writeListing(w, cards, ok)
}

func (h *handlers) categories(w http.ResponseWriter, r *http.Request) {
	categories, ok := h.state.Categories(r.Context())
	writeListing(w, categories, ok)
}

func (h *handlers) cart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.CartView())
}

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
}

func (h *handlers) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.state.AddToCart(r.Context(), req.ProductID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state.CartView())
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.state.SetCartQuantity(id, req.Quantity) && req.Quantity > 0 {
		writeAPIError(r.Context(), w, apiError{Code: "not_in_cart", Message: "product is not in the cart", Status: http.StatusNotFound})
		return
	}
	writeJSON(w, http.StatusOK, h.state.CartView())
}

func (h *handlers) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.state.RemoveFromCart(id)
	writeJSON(w, http.StatusOK, h.state.CartView())
}

func (h *handlers) openCart(w http.ResponseWriter, _ *http.Request) {
	h.state.OpenCart()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) closeCart(w http.ResponseWriter, r *http.Request) {
	h.state.CloseCart(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type addressRequest struct {
	Address string `json:"address"`
}

func (h *handlers) setAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.state.SetAddress(req.Address)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.state.Checkout(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *handlers) products(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.state.Products(r.Context())
	writeListing(w, rows, ok)
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.state.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.state.DeleteProduct(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) inventory(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.state.Inventory(r.Context())
	writeListing(w, rows, ok)
}

func (h *handlers) updateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.state.UpdateStock(r.Context(), id, req.Quantity); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ordersResponse struct {
	Available bool `json:"available"`
	orders.Listing
}

func (h *handlers) orders(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.state.OrdersPage(r.Context(), r.URL.Query().Get("dir"))
	if listing.Rows == nil {
		listing.Rows = []orders.Row{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Available: ok, Listing: listing})
}

func (h *handlers) priceHistory(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.state.PriceHistory(r.Context(), queryID(r, "product_id"))
	writeListing(w, rows, ok)
}

type chartResponse struct {
	Available bool `json:"available"`
	catalog.PriceSeries
}

func (h *handlers) priceChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	series, ok := h.state.PriceChart(r.Context(), id)
	writeJSON(w, http.StatusOK, chartResponse{Available: ok, PriceSeries: series})
}

func (h *handlers) users(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.state.Users(r.Context())
	writeListing(w, rows, ok)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.state.DeleteUser(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) suppliers(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.state.Suppliers(r.Context())
	writeListing(w, rows, ok)
}

func (h *handlers) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in catalog.SupplierInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.state.CreateSupplier(r.Context(), in)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *handlers) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in catalog.SupplierInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := h.state.UpdateSupplier(r.Context(), id, in); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.state.DeleteSupplier(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type campaignRequest struct {
	CategoryID int64   `json:"categoryId"`
	Discount   float64 `json:"discount"`
}

type campaignResponse struct {
	Message string `json:"message"`
}

func (h *handlers) applyCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	message, err := h.state.ApplyCampaign(r.Context(), req.CategoryID, req.Discount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse{Message: message})
}
