package fakeapi

import (
	"fmt"

	"finitefield.org/retail-console/internal/api"
)

// Seeded credentials.
const (
	AdminEmail       = "admin@shop.test"
	AdminPassword    = "admin123"
	SellerEmail      = "seller@shop.test"
	SellerPassword   = "seller123"
	CustomerEmail    = "ayse@shop.test"
	CustomerPassword = "secret1"
	CustomerName     = "Ayşe Yılmaz"
	CustomerID       = int64(3)
)

func (s *Server) seed() {
	phone := "+90 555 000 0000"
	s.accounts = []Account{
		{User: api.User{UserID: 1, FullName: "Admin User", Email: AdminEmail, Role: "admin"}, Password: AdminPassword},
		{User: api.User{UserID: 2, FullName: "Selin Satıcı", Email: SellerEmail, Role: "seller"}, Password: SellerPassword},
		{User: api.User{UserID: CustomerID, FullName: CustomerName, Email: CustomerEmail, Role: "customer", PhoneNumber: &phone}, Password: CustomerPassword},
	}

	s.categories = []api.Category{
		{CategoryID: 1, CategoryName: "Electronics"},
		{CategoryID: 2, CategoryName: "Books"},
		{CategoryID: 3, CategoryName: "Garden"},
	}

	s.suppliers = []api.Supplier{
		{SupplierID: 1, CompanyName: "Anadolu Elektronik", ContactEmail: "sales@anadolu.test", TaxNumber: "1234567890", Address: "Istanbul"},
		{SupplierID: 2, CompanyName: "Kitap Dünyası", ContactEmail: "info@kitap.test", TaxNumber: "9876543210", Address: "Ankara"},
	}

	s.products = []api.Product{
		{ProductID: 1, Title: "Wireless Headphones", Description: "Over-ear, noise cancelling", BasePrice: 1200, CurrentPrice: 1350, IsActive: true, CategoryID: 1, SupplierID: 1, CategoryName: "Electronics", SupplierName: "Anadolu Elektronik"},
		{ProductID: 2, Title: "Mechanical Keyboard", Description: "Brown switches", BasePrice: 900, CurrentPrice: 810, IsActive: true, CategoryID: 1, SupplierID: 1, CategoryName: "Electronics", SupplierName: "Anadolu Elektronik"},
		{ProductID: 3, Title: "Go Programming", Description: "A practical guide", BasePrice: 300, CurrentPrice: 300, IsActive: true, CategoryID: 2, SupplierID: 2, CategoryName: "Books", SupplierName: "Kitap Dünyası"},
		{ProductID: 4, Title: "Garden Hose", Description: "25m", BasePrice: 250, CurrentPrice: 250, IsActive: true, CategoryID: 3, CategoryName: "Garden"},
		{ProductID: 5, Title: "Discontinued Lamp", Description: "Old stock", BasePrice: 100, CurrentPrice: 100, IsActive: false, CategoryID: 3, CategoryName: "Garden"},
	}

	s.inventory = []api.InventoryItem{
		{ProductID: 1, Title: "Wireless Headphones", CurrentPrice: 1350, StockQuantity: 4, LowStockThreshold: 10, HighStockThreshold: 100, LastRestockDate: "2024-05-01"},
		{ProductID: 2, Title: "Mechanical Keyboard", CurrentPrice: 810, StockQuantity: 150, LowStockThreshold: 10, HighStockThreshold: 100, LastRestockDate: "2024-05-02"},
		{ProductID: 3, Title: "Go Programming", CurrentPrice: 300, StockQuantity: 40, LowStockThreshold: 10, HighStockThreshold: 100, LastRestockDate: "2024-04-20"},
		{ProductID: 4, Title: "Garden Hose", CurrentPrice: 250, StockQuantity: 0, LowStockThreshold: 10, HighStockThreshold: 100, LastRestockDate: "2024-03-11"},
		{ProductID: 5, Title: "Discontinued Lamp", CurrentPrice: 100, StockQuantity: 7, LowStockThreshold: 10, HighStockThreshold: 100, LastRestockDate: "2023-12-01"},
	}

	statuses := []string{"completed", "pending", "cancelled"}
	for i := 0; i < 3; i++ {
		s.orders = append(s.orders, api.Order{
			OrderID:         int64(1000 + i),
			OrderDate:       fmt.Sprintf("2024-05-%02d", 10-i),
			Status:          statuses[i],
			TotalAmount:     float64(100 * (i + 1)),
			ShippingAddress: "Kadıköy, Istanbul",
			CustomerName:    CustomerName,
			OrderItems:      "Go Programming x1",
			Suppliers:       "Kitap Dünyası",
		})
	}

	s.history = []api.PriceChange{
		{HistoryID: 3, ProductID: 2, Title: "Mechanical Keyboard", OldPrice: 900, NewPrice: 810, ChangeDate: "2024-05-03T10:00:00", Reason: "high_stock"},
		{HistoryID: 2, ProductID: 1, Title: "Wireless Headphones", OldPrice: 1250, NewPrice: 1350, ChangeDate: "2024-05-02T10:00:00", Reason: "low_stock"},
		{HistoryID: 1, ProductID: 1, Title: "Wireless Headphones", OldPrice: 1200, NewPrice: 1250, ChangeDate: "2024-05-01T10:00:00", Reason: "inflation"},
	}

	s.stats = api.DashboardStats{
		TotalProducts:   5,
		TotalCategories: 3,
		TotalOrders:     3,
		TotalRevenue:    1234.5,
		LowStockCount:   3,
		AveragePrice:    562,
	}
	s.shares = []api.CategoryShare{
		{Name: "Electronics", Value: 2},
		{Name: "Books", Value: 1},
		{Name: "Garden", Value: 2},
	}
	s.revenue = []api.SupplierRevenue{
		{CompanyName: "Anadolu Elektronik", TotalRevenue: 900},
		{CompanyName: "Kitap Dünyası", TotalRevenue: 334.5},
	}
	s.monthly = []api.MonthlyRevenue{
		{Month: "2024-05", Revenue: 600},
		{Month: "2024-04", Revenue: 400},
		{Month: "2024-03", Revenue: 234.5},
	}
	s.spenders = []api.TopSpender{
		{FullName: CustomerName, Email: CustomerEmail, OrderCount: 3, TotalSpent: 600},
		{FullName: "Mehmet Kaya", Email: "mehmet@shop.test", OrderCount: 2, TotalSpent: 420},
		{FullName: "Zeynep Demir", Email: "zeynep@shop.test", OrderCount: 2, TotalSpent: 310},
		{FullName: "Can Öztürk", Email: "can@shop.test", OrderCount: 1, TotalSpent: 150},
		{FullName: "Elif Şahin", Email: "elif@shop.test", OrderCount: 1, TotalSpent: 90},
		{FullName: "Burak Aydın", Email: "burak@shop.test", OrderCount: 1, TotalSpent: 40},
	}
}
