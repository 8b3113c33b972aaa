package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/checkout"
	"finitefield.org/retail-console/internal/dashboard"
	"finitefield.org/retail-console/internal/rbac"
)

// Page identifies the screen the console is showing.
type Page string

const (
	PageStorefront   Page = "storefront"
	PageDashboard    Page = "dashboard"
	PageProducts     Page = "products"
	PageInventory    Page = "inventory"
	PageOrders       Page = "orders"
	PagePriceHistory Page = "price-history"
	PageUsers        Page = "users"
	PageSuppliers    Page = "suppliers"
	PageCampaigns    Page = "campaigns"
)

var pageCapabilities = map[Page]rbac.Capability{
	PageStorefront:   rbac.CapStorefrontBrowse,
	PageDashboard:    rbac.CapDashboardView,
	PageProducts:     rbac.CapProductsManage,
	PageInventory:    rbac.CapInventoryManage,
	PageOrders:       rbac.CapOrdersList,
	PagePriceHistory: rbac.CapPriceHistoryView,
	PageUsers:        rbac.CapUsersManage,
	PageSuppliers:    rbac.CapSuppliersManage,
	PageCampaigns:    rbac.CapCampaignsApply,
}

// Capability returns the capability a page requires and whether the page exists.
func (p Page) Capability() (rbac.Capability, bool) {
	capability, ok := pageCapabilities[p]
	return capability, ok
}

// FlashLevel is the tone of a flash message.
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot message shown to the user.
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// DashboardPanels holds whatever the current dashboard activation has rendered.
type DashboardPanels struct {
	Generation      uint64                    `json:"generation"`
	Summary         *dashboard.Summary        `json:"summary,omitempty"`
	Categories      *dashboard.Series         `json:"categories,omitempty"`
	LowStock        []dashboard.LowStockItem  `json:"lowStock,omitempty"`
	Inventory       *dashboard.InventoryChart `json:"inventory,omitempty"`
	SupplierRevenue *dashboard.Series         `json:"supplierRevenue,omitempty"`
	MonthlyRevenue  *dashboard.Series         `json:"monthlyRevenue,omitempty"`
	TopSpenders     []dashboard.Spender       `json:"topSpenders,omitempty"`
}

// Surface is a copy of the presentation state at one instant.
type Surface struct {
	Page         Page              `json:"page"`
	LoginVisible bool              `json:"loginVisible"`
	LoginPrefill string            `json:"loginPrefill,omitempty"`
	CartOpen     bool              `json:"cartOpen"`
	Address      string            `json:"address"`
	Flashes      []Flash           `json:"flashes"`
	Receipt      *checkout.Receipt `json:"receipt,omitempty"`
	Dashboard    DashboardPanels   `json:"dashboard"`
}

// View records what the console shows. It is the checkout presenter, the
// transport notifier and the dashboard sink.
type View struct {
	logger *zap.Logger

	mu      sync.Mutex
	surface Surface
}

var (
	_ checkout.Presenter = (*View)(nil)
	_ dashboard.Sink     = (*View)(nil)
)

// NewView starts on the storefront.
func NewView(logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{
		logger:  logger.Named("view"),
		surface: Surface{Page: PageStorefront},
	}
}

func (v *View) update(fn func(s *Surface)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.surface)
}

func (v *View) flash(level FlashLevel, message string) {
	if message == "" {
		return
	}
	v.update(func(s *Surface) {
		s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
	})
}

// Surface returns a copy of the current state and consumes pending flashes.
func (v *View) Surface() Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.surface
	out.Flashes = append([]Flash{}, v.surface.Flashes...)
	v.surface.Flashes = nil
	return out
}

// Page returns the active page.
func (v *View) Page() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surface.Page
}

func (v *View) setPage(page Page) {
	v.update(func(s *Surface) {
		s.Page = page
		if page != PageDashboard {
			s.Dashboard = DashboardPanels{}
		}
	})
}

func (v *View) setAddress(address string) {
	v.update(func(s *Surface) { s.Address = address })
}

// Notify surfaces a failed write.
func (v *View) Notify(_ context.Context, message string) {
	v.logger.Debug("notify", zap.String("message", message))
	v.flash(FlashError, message)
}

// ShowLogin opens the login form.
func (v *View) ShowLogin(context.Context) {
	v.update(func(s *Surface) { s.LoginVisible = true })
}

func (v *View) showLoginWith(email string) {
	v.update(func(s *Surface) {
		s.LoginVisible = true
		s.LoginPrefill = email
	})
}

func (v *View) hideLogin() {
	v.update(func(s *Surface) {
		s.LoginVisible = false
		s.LoginPrefill = ""
	})
}

// Alert shows a blocking message.
func (v *View) Alert(_ context.Context, message string) {
	v.flash(FlashError, message)
}

// OpenCart shows the cart panel.
func (v *View) OpenCart() {
	v.update(func(s *Surface) { s.CartOpen = true })
}

// CloseCart hides the cart panel.
func (v *View) CloseCart(context.Context) {
	v.update(func(s *Surface) { s.CartOpen = false })
}

// ClearAddress empties the shipping address field.
func (v *View) ClearAddress(context.Context) {
	v.setAddress("")
}

// OrderPlaced shows the receipt.
func (v *View) OrderPlaced(_ context.Context, receipt checkout.Receipt) {
	v.update(func(s *Surface) {
		r := receipt
		s.Receipt = &r
		s.Flashes = append(s.Flashes, Flash{Level: FlashSuccess, Message: receipt.Message})
	})
}

// Active reports whether the dashboard is on screen.
func (v *View) Active(uint64) bool {
	return v.Page() == PageDashboard
}

// A newer generation starts from empty panels.
func (v *View) render(generation uint64, fn func(p *DashboardPanels)) {
	v.update(func(s *Surface) {
		if s.Dashboard.Generation != generation {
			s.Dashboard = DashboardPanels{Generation: generation}
		}
		fn(&s.Dashboard)
	})
}

// RenderSummary implements dashboard.Sink.
func (v *View) RenderSummary(generation uint64, summary dashboard.Summary) {
	v.render(generation, func(p *DashboardPanels) { p.Summary = &summary })
}

// RenderCategoryDistribution implements dashboard.Sink.
func (v *View) RenderCategoryDistribution(generation uint64, series dashboard.Series) {
	v.render(generation, func(p *DashboardPanels) { p.Categories = &series })
}

// RenderLowStock implements dashboard.Sink.
func (v *View) RenderLowStock(generation uint64, items []dashboard.LowStockItem) {
	v.render(generation, func(p *DashboardPanels) { p.LowStock = items })
}

// RenderInventory implements dashboard.Sink.
func (v *View) RenderInventory(generation uint64, chart dashboard.InventoryChart) {
	v.render(generation, func(p *DashboardPanels) { p.Inventory = &chart })
}

// RenderSupplierRevenue implements dashboard.Sink.
func (v *View) RenderSupplierRevenue(generation uint64, series dashboard.Series) {
	v.render(generation, func(p *DashboardPanels) { p.SupplierRevenue = &series })
}

// RenderMonthlyRevenue implements dashboard.Sink.
func (v *View) RenderMonthlyRevenue(generation uint64, series dashboard.Series) {
	v.render(generation, func(p *DashboardPanels) { p.MonthlyRevenue = &series })
}

// RenderTopSpenders implements dashboard.Sink.
func (v *View) RenderTopSpenders(generation uint64, spenders []dashboard.Spender) {
	v.render(generation, func(p *DashboardPanels) { p.TopSpenders = spenders })
}
