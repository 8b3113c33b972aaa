// Package fakeapi serves an in-memory retail API for tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"finitefield.org/retail-console/internal/api"
)

// Account is a seeded user with its password.
type Account struct {
	api.User
	Password string
}

// Server is a fake retail API rooted at URL()+"/api".
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	accounts    []Account
	products    []api.Product
	categories  []api.Category
	suppliers   []api.Supplier
	inventory   []api.InventoryItem
	orders      []api.Order
	history     []api.PriceChange
	stats       api.DashboardStats
	shares      []api.CategoryShare
	revenue     []api.SupplierRevenue
	monthly     []api.MonthlyRevenue
	spenders    []api.TopSpender
	failures    map[string]int
	garbled     map[string]bool
	holds       map[string]chan struct{}
	calls       map[string]int
	submitted   []api.OrderRequest
	idemKeys    []string
	campaigns   []api.CampaignRequest
	nextID      int64
	lastOrderID int64
}

// New starts a seeded fake API that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		failures:    map[string]int{},
		garbled:     map[string]bool{},
		holds:       map[string]chan struct{}{},
		calls:       map[string]int{},
		nextID:      100,
		lastOrderID: 5000,
	}
	s.seed()

	r := chi.NewRouter()
	r.Use(s.intercept)
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/users", s.createUser)
		r.Get("/users", s.listUsers)
		r.Delete("/users/{id}", s.deleteUser)
		r.Get("/products", s.listProducts)
		r.Post("/products", s.createProduct)
		r.Delete("/products/{id}", s.deleteProduct)
		r.Get("/categories", s.listCategories)
		r.Get("/suppliers", s.listSuppliers)
		r.Post("/suppliers", s.createSupplier)
		r.Put("/suppliers/{id}", s.updateSupplier)
		r.Delete("/suppliers/{id}", s.deleteSupplier)
		r.Get("/inventory", s.listInventory)
		r.Get("/inventory/low-stock", s.lowStock)
		r.Put("/inventory/{id}", s.updateInventory)
		r.Get("/orders", s.listOrders)
		r.Post("/orders", s.createOrder)
		r.Get("/price-history", s.priceHistory)
		r.Post("/campaigns/apply", s.applyCampaign)
		r.Get("/dashboard/stats", s.reply(func() any { return s.stats }))
		r.Get("/dashboard/category-distribution", s.reply(func() any { return s.shares }))
		r.Get("/dashboard/supplier-revenue", s.reply(func() any { return s.revenue }))
		r.Get("/dashboard/monthly-revenue", s.reply(func() any { return s.monthly }))
		r.Get("/dashboard/vip-users", s.reply(func() any { return s.spenders }))
	})

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API base path to configure clients with.
func (s *Server) BaseURL() string { return s.srv.URL + "/api" }

// Client returns an HTTP client bound to the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close releases held requests and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for path, ch := range s.holds {
		close(ch)
		delete(s.holds, path)
	}
	s.mu.Unlock()
	s.srv.Close()
}

// Fail makes every request to path (relative to the base, e.g. "/dashboard/stats") answer status.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Garble makes path answer 200 with a body that does not match its schema.
func (s *Server) Garble(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garbled[path] = true
}

// Hold blocks requests to path until the returned release function is called.
func (s *Server) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.holds[path] == ch {
				delete(s.holds, path)
				close(ch)
			}
		})
	}
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls reports how many requests reached the server.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// SubmittedOrders returns the bodies of accepted POST /orders requests.
func (s *Server) SubmittedOrders() []api.OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.OrderRequest(nil), s.submitted...)
}

// IdempotencyKeys returns the keys seen on POST /orders, accepted or not.
func (s *Server) IdempotencyKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.idemKeys...)
}

// Campaigns returns the applied campaigns.
func (s *Server) Campaigns() []api.CampaignRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.CampaignRequest(nil), s.campaigns...)
}

// SetOrders replaces the seeded orders.
func (s *Server) SetOrders(orders []api.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]api.Order(nil), orders...)
}

// SetCategoryDistribution replaces the seeded distribution.
func (s *Server) SetCategoryDistribution(shares []api.CategoryShare) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares = shares
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.calls[path]++
		status, failing := s.failures[path]
		garbled := s.garbled[path]
		hold := s.holds[path]
		if r.Method == http.MethodPost && path == "/orders" {
			s.idemKeys = append(s.idemKeys, r.Header.Get(api.IdempotencyHeader))
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeJSON(w, status, map[string]string{"detail": "injected failure"})
			return
		}
		if garbled {
			writeJSON(w, http.StatusOK, map[string]any{"unexpected": true})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func detail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func (s *Server) reply(payload func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		body := payload()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, req.Email) && account.Password == req.Password {
			writeJSON(w, http.StatusOK, api.LoginResponse{Message: "Login successful", User: account.User})
			return
		}
	}
	detail(w, http.StatusUnauthorized, "Invalid email or password")
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, req.Email) {
			detail(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	s.nextID++
	s.accounts = append(s.accounts, Account{
		User:     api.User{UserID: s.nextID, FullName: req.FullName, Email: req.Email, Role: req.Role, PhoneNumber: req.PhoneNumber},
		Password: req.Password,
	})
	writeJSON(w, http.StatusOK, api.CreateUserResponse{Message: "User created", UserID: s.nextID})
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]api.User, 0, len(s.accounts))
	for _, account := range s.accounts {
		users = append(users, account.User)
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, account := range s.accounts {
		if account.UserID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			writeJSON(w, http.StatusOK, api.Message{Message: "User deleted"})
			return
		}
	}
	detail(w, http.StatusNotFound, "User not found")
}

func (s *Server) stockOf(productID int64) int {
	for _, item := range s.inventory {
		if item.ProductID == productID {
			return item.StockQuantity
		}
	}
	return 0
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	categoryID, _ := strconv.ParseInt(q.Get("category_id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	products := []api.Product{}
	for _, p := range s.products {
		p.StockQuantity = s.stockOf(p.ProductID)
		if categoryID > 0 && p.CategoryID != categoryID {
			continue
		}
		if v := q.Get("is_active"); v != "" && strconv.FormatBool(p.IsActive) != v {
			continue
		}
		if v := q.Get("min_stock"); v != "" {
			if floor, err := strconv.Atoi(v); err == nil && p.StockQuantity < floor {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) && !strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		products = append(products, p)
	}
	writeJSON(w, http.StatusOK, api.ProductList{Products: products, Count: len(products)})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		detail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := api.Product{
		ProductID:    s.nextID,
		Title:        req.Title,
		Description:  req.Description,
		BasePrice:    req.BasePrice,
		CurrentPrice: req.CurrentPrice,
		IsActive:     req.IsActive,
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.SupplierID != nil {
		p.SupplierID = *req.SupplierID
	}
	s.products = append(s.products, p)
	s.inventory = append(s.inventory, api.InventoryItem{
		ProductID:          p.ProductID,
		Title:              p.Title,
		CurrentPrice:       p.CurrentPrice,
		LowStockThreshold:  api.DefaultLowStockThreshold,
		HighStockThreshold: api.DefaultHighStockThreshold,
	})
	writeJSON(w, http.StatusOK, api.CreateProductResponse{Message: "Product and inventory record created", ProductID: p.ProductID})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ProductID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			writeJSON(w, http.StatusOK, api.Message{Message: "Product deleted"})
			return
		}
	}
	detail(w, http.StatusNotFound, "Product not found")
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) listSuppliers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	suppliers := make([]api.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		sup.ProductCount = 0
		for _, p := range s.products {
			if p.SupplierID == sup.SupplierID {
				sup.ProductCount++
			}
		}
		suppliers = append(suppliers, sup)
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in api.SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.CompanyName) == "" {
		detail(w, http.StatusUnprocessableEntity, "company_name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.suppliers = append(s.suppliers, api.Supplier{
		SupplierID:   s.nextID,
		CompanyName:  in.CompanyName,
		ContactEmail: in.ContactEmail,
		TaxNumber:    in.TaxNumber,
		Address:      in.Address,
	})
	writeJSON(w, http.StatusOK, api.CreateSupplierResponse{Message: "Supplier created", SupplierID: s.nextID})
}

func (s *Server) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var in api.SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.suppliers {
		if s.suppliers[i].SupplierID == id {
			if in.CompanyName != "" {
				s.suppliers[i].CompanyName = in.CompanyName
			}
			if in.ContactEmail != "" {
				s.suppliers[i].ContactEmail = in.ContactEmail
			}
			if in.TaxNumber != "" {
				s.suppliers[i].TaxNumber = in.TaxNumber
			}
			if in.Address != "" {
				s.suppliers[i].Address = in.Address
			}
			writeJSON(w, http.StatusOK, api.Message{Message: "Supplier updated"})
			return
		}
	}
	detail(w, http.StatusNotFound, "Supplier not found")
}

func (s *Server) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sup := range s.suppliers {
		if sup.SupplierID == id {
			s.suppliers = append(s.suppliers[:i], s.suppliers[i+1:]...)
			writeJSON(w, http.StatusOK, api.Message{Message: "Supplier deleted"})
			return
		}
	}
	detail(w, http.StatusNotFound, "Supplier not found")
}

func stockStatus(item api.InventoryItem) string {
	switch {
	case item.StockQuantity < item.LowStockThreshold:
		return "LOW"
	case item.StockQuantity > item.HighStockThreshold:
		return "HIGH"
	default:
		return "NORMAL"
	}
}

func (s *Server) sortedInventory() []api.InventoryItem {
	items := make([]api.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		item.StockStatus = stockStatus(item)
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].StockQuantity < items[j].StockQuantity })
	return items
}

func (s *Server) listInventory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sortedInventory())
}

func (s *Server) lowStock(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []api.InventoryItem{}
	for _, item := range s.sortedInventory() {
		if item.StockQuantity < item.LowStockThreshold {
			items = append(items, item)
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var update api.StockUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inventory {
		if s.inventory[i].ProductID == id {
			s.inventory[i].StockQuantity = update.StockQuantity
			s.inventory[i].LowStockThreshold = update.LowStockThreshold
			s.inventory[i].HighStockThreshold = update.HighStockThreshold
			writeJSON(w, http.StatusOK, api.Message{Message: "Stock updated"})
			return
		}
	}
	detail(w, http.StatusNotFound, "Product not found")
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	totalPages := (len(s.orders) + limit - 1) / limit
	start := (page - 1) * limit
	orders := []api.Order{}
	if start < len(s.orders) {
		end := start + limit
		if end > len(s.orders) {
			end = len(s.orders)
		}
		orders = append(orders, s.orders[start:end]...)
	}
	writeJSON(w, http.StatusOK, api.OrderPage{Orders: orders, Page: page, TotalPages: totalPages})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range req.Items {
		if s.stockOf(item.ProductID) < item.Quantity {
			detail(w, http.StatusBadRequest, "Insufficient stock for product "+strconv.FormatInt(item.ProductID, 10))
			return
		}
	}
	s.submitted = append(s.submitted, req)
	s.lastOrderID++
	writeJSON(w, http.StatusOK, api.OrderCreated{Message: "Order created", OrderID: s.lastOrderID})
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	history := []api.PriceChange{}
	for _, change := range s.history {
		if productID > 0 && change.ProductID != productID {
			continue
		}
		history = append(history, change)
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) applyCampaign(w http.ResponseWriter, r *http.Request) {
	var req api.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns = append(s.campaigns, req)
	count := 0
	for i := range s.products {
		if s.products[i].CategoryID == req.CategoryID {
			s.products[i].CurrentPrice = s.products[i].CurrentPrice * (100 - req.DiscountPercentage) / 100
			count++
		}
	}
	if count == 0 {
		writeJSON(w, http.StatusOK, api.Message{Message: "No products found in this category"})
		return
	}
	writeJSON(w, http.StatusOK, api.Message{Message: strconv.Itoa(count) + " products discounted"})
}
