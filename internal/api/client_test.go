package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/testutil/fakeapi"
	"finitefield.org/retail-console/internal/transport"
)

type notes struct{ messages []string }

func (n *notes) Notify(_ context.Context, message string) { n.messages = append(n.messages, message) }

func newClient(t *testing.T) (*api.Client, *fakeapi.Server, *notes) {
	t.Helper()
	fake := fakeapi.New(t)
	n := &notes{}
	tc, err := transport.New(fake.BaseURL(), transport.WithHTTPClient(fake.Client()), transport.WithNotifier(n))
	require.NoError(t, err)
	return api.New(tc), fake, n
}

func TestLogin(t *testing.T) {
	t.Parallel()

	client, _, n := newClient(t)
	ctx := context.Background()

	resp, err := client.Login(ctx, api.LoginRequest{Email: fakeapi.CustomerEmail, Password: fakeapi.CustomerPassword})
	require.NoError(t, err)
	require.Equal(t, fakeapi.CustomerID, resp.User.UserID)
	require.Equal(t, "customer", resp.User.Role)

	_, err = client.Login(ctx, api.LoginRequest{Email: fakeapi.CustomerEmail, Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, transport.KindServer, transport.KindOf(err))
	require.Equal(t, "Invalid email or password", transport.MessageOf(err))
	require.Empty(t, n.messages)
}

func TestStorefrontQueryFiltersInactiveAndOutOfStock(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)

	products, ok := client.Products(context.Background(), api.StorefrontQuery("", 0))
	require.True(t, ok)

	var ids []int64
	for _, p := range products {
		ids = append(ids, p.ProductID)
	}
	require.Equal(t, []int64{1, 2, 3}, ids)

	books, ok := client.Products(context.Background(), api.StorefrontQuery("go", 2))
	require.True(t, ok)
	require.Len(t, books, 1)
	require.Equal(t, "Go Programming", books[0].Title)
}

func TestProductQueryValues(t *testing.T) {
	t.Parallel()

	require.Empty(t, api.ProductQuery{Search: "  "}.Values())
	require.Equal(t, "category_id=2&is_active=true&min_stock=1&search=lamp", api.StorefrontQuery(" lamp ", 2).Values().Encode())
}

func TestReadsDegradeToAbsent(t *testing.T) {
	t.Parallel()

	client, fake, n := newClient(t)
	fake.Fail("/categories", http.StatusInternalServerError)
	fake.Garble("/dashboard/stats")
	fake.Garble("/orders")

	_, ok := client.Categories(context.Background())
	require.False(t, ok)
	_, ok = client.DashboardStats(context.Background())
	require.False(t, ok)
	_, ok = client.Orders(context.Background(), 1, 50)
	require.False(t, ok)
	require.Empty(t, n.messages)
}

func TestWritesNotifyOnFailure(t *testing.T) {
	t.Parallel()

	client, _, n := newClient(t)
	ctx := context.Background()

	err := client.DeleteSupplier(ctx, 999)
	require.Error(t, err)
	require.Equal(t, []string{"Supplier not found"}, n.messages)

	err = client.DeleteUser(ctx, 0)
	require.Equal(t, transport.KindValidation, transport.KindOf(err))
	require.ErrorIs(t, err, api.ErrInvalidID)
	require.Len(t, n.messages, 1)
}

func TestSupplierLifecycle(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)
	ctx := context.Background()

	created, err := client.CreateSupplier(ctx, api.SupplierInput{CompanyName: "Bahçe Market", ContactEmail: "hi@bahce.test"})
	require.NoError(t, err)
	require.Positive(t, created.SupplierID)

	require.NoError(t, client.UpdateSupplier(ctx, created.SupplierID, api.SupplierInput{CompanyName: "Bahçe Market A.Ş."}))

	suppliers, ok := client.Suppliers(ctx)
	require.True(t, ok)
	require.Len(t, suppliers, 3)
	require.Equal(t, "Bahçe Market A.Ş.", suppliers[2].CompanyName)
	require.Equal(t, 2, suppliers[0].ProductCount)

	require.NoError(t, client.DeleteSupplier(ctx, created.SupplierID))
	suppliers, _ = client.Suppliers(ctx)
	require.Len(t, suppliers, 2)
}

func TestLowStockHonoursLimit(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)

	items, ok := client.LowStock(context.Background(), 2)
	require.True(t, ok)
	require.Len(t, items, 2)
	require.Equal(t, "Garden Hose", items[0].Title)
}

func TestUpdateStockUsesDefaultThresholds(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)
	ctx := context.Background()

	require.NoError(t, client.UpdateStock(ctx, 4, api.NewStockUpdate(250)))

	items, ok := client.Inventory(ctx)
	require.True(t, ok)
	last := items[len(items)-1]
	require.Equal(t, int64(4), last.ProductID)
	require.Equal(t, "HIGH", last.StockStatus)
	require.Equal(t, api.DefaultLowStockThreshold, last.LowStockThreshold)
}

func TestCreateOrderSendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	client, fake, n := newClient(t)
	ctx := context.Background()

	req := api.OrderRequest{UserID: fakeapi.CustomerID, ShippingAddress: "Moda", Items: []api.OrderItem{{ProductID: 3, Quantity: 2}}}
	created, err := client.CreateOrder(ctx, req, "01J0000000000000000000000A")
	require.NoError(t, err)
	require.Positive(t, created.OrderID)
	require.Equal(t, []string{"01J0000000000000000000000A"}, fake.IdempotencyKeys())
	require.Equal(t, []api.OrderRequest{req}, fake.SubmittedOrders())

	req.Items[0].Quantity = 1000
	_, err = client.CreateOrder(ctx, req, "01J0000000000000000000000B")
	require.Error(t, err)
	require.Contains(t, transport.MessageOf(err), "Insufficient stock")
	require.Empty(t, n.messages)
}

func TestPriceHistoryByProduct(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)

	all, ok := client.PriceHistory(context.Background(), 0)
	require.True(t, ok)
	require.Len(t, all, 3)

	one, ok := client.PriceHistory(context.Background(), 1)
	require.True(t, ok)
	require.Len(t, one, 2)
}

func TestApplyCampaign(t *testing.T) {
	t.Parallel()

	client, fake, _ := newClient(t)

	msg, err := client.ApplyCampaign(context.Background(), api.CampaignRequest{CategoryID: 1, DiscountPercentage: 10})
	require.NoError(t, err)
	require.Equal(t, "2 products discounted", msg.Message)
	require.Len(t, fake.Campaigns(), 1)
}

func TestDashboardFeeds(t *testing.T) {
	t.Parallel()

	client, _, _ := newClient(t)
	ctx := context.Background()

	stats, ok := client.DashboardStats(ctx)
	require.True(t, ok)
	require.Equal(t, 1234.5, stats.TotalRevenue)

	monthly, ok := client.MonthlyRevenue(ctx)
	require.True(t, ok)
	require.Equal(t, "2024-05", monthly[0].Month)

	spenders, ok := client.TopSpenders(ctx)
	require.True(t, ok)
	require.Len(t, spenders, 6)

	shares, ok := client.CategoryDistribution(ctx)
	require.True(t, ok)
	require.Len(t, shares, 3)

	revenue, ok := client.SupplierRevenue(ctx)
	require.True(t, ok)
	require.Len(t, revenue, 2)
}
