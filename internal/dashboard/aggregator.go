package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/format"
)

// ErrNotConfigured indicates the aggregator was constructed without a feed or sink.
var ErrNotConfigured = errors.New("dashboard: feed and sink are required")

// Source names one independent dashboard feed.
type Source string

const (
	SourceStats           Source = "stats"
	SourceCategories      Source = "category-distribution"
	SourceLowStock        Source = "low-stock"
	SourceInventory       Source = "inventory"
	SourceSupplierRevenue Source = "supplier-revenue"
	SourceMonthlyRevenue  Source = "monthly-revenue"
	SourceTopSpenders     Source = "top-spenders"
)

// Sources lists every feed in display order.
var Sources = []Source{
	SourceStats,
	SourceCategories,
	SourceLowStock,
	SourceInventory,
	SourceSupplierRevenue,
	SourceMonthlyRevenue,
	SourceTopSpenders,
}

// Feed retrieves raw dashboard data. A false ok means no data, whatever the cause.
type Feed interface {
	DashboardStats(ctx context.Context) (api.DashboardStats, bool)
	CategoryDistribution(ctx context.Context) ([]api.CategoryShare, bool)
	LowStock(ctx context.Context, limit int) ([]api.InventoryItem, bool)
	Inventory(ctx context.Context) ([]api.InventoryItem, bool)
	SupplierRevenue(ctx context.Context) ([]api.SupplierRevenue, bool)
	MonthlyRevenue(ctx context.Context) ([]api.MonthlyRevenue, bool)
	TopSpenders(ctx context.Context) ([]api.TopSpender, bool)
}

// Sink receives prepared view models. Active reports whether the sink still displays the
// dashboard for generation; renders for inactive generations are never delivered.
type Sink interface {
	Active(generation uint64) bool
	RenderSummary(generation uint64, summary Summary)
	RenderCategoryDistribution(generation uint64, series Series)
	RenderLowStock(generation uint64, items []LowStockItem)
	RenderInventory(generation uint64, chart InventoryChart)
	RenderSupplierRevenue(generation uint64, series Series)
	RenderMonthlyRevenue(generation uint64, series Series)
	RenderTopSpenders(generation uint64, spenders []Spender)
}

// Snapshot is the outcome of one activation. Absent and empty sources leave their field nil.
type Snapshot struct {
	Generation      uint64          `json:"generation"`
	Summary         *Summary        `json:"summary,omitempty"`
	Categories      *Series         `json:"categories,omitempty"`
	LowStock        []LowStockItem  `json:"lowStock,omitempty"`
	Inventory       *InventoryChart `json:"inventory,omitempty"`
	SupplierRevenue *Series         `json:"supplierRevenue,omitempty"`
	MonthlyRevenue  *Series         `json:"monthlyRevenue,omitempty"`
	TopSpenders     []Spender       `json:"topSpenders,omitempty"`
	Failed          []Source        `json:"failed,omitempty"`
	Empty           []Source        `json:"empty,omitempty"`
	Stale           bool            `json:"stale"`
}

// Config tunes the aggregator.
type Config struct {
	LowStockLimit   int
	TopSpenderLimit int
	Formatter       *format.Formatter
	Logger          *zap.Logger
	Tracer          trace.Tracer
}

// Aggregator fans out to every source on activation and renders whatever arrives.
type Aggregator struct {
	feed   Feed
	sink   Sink
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer

	generation atomic.Uint64
	renderMu   sync.Mutex
}

// New constructs an Aggregator.
func New(feed Feed, sink Sink, cfg Config) (*Aggregator, error) {
	if feed == nil || sink == nil {
		return nil, ErrNotConfigured
	}
	if cfg.LowStockLimit <= 0 {
		cfg.LowStockLimit = 5
	}
	if cfg.TopSpenderLimit <= 0 {
		cfg.TopSpenderLimit = 5
	}
	if cfg.Formatter == nil {
		cfg.Formatter = format.New("", "en")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("finitefield.org/retail-console/internal/dashboard")
	}
	return &Aggregator{
		feed:   feed,
		sink:   sink,
		cfg:    cfg,
		logger: logger.Named("dashboard"),
		tracer: tracer,
	}, nil
}

// Generation returns the current activation number.
func (a *Aggregator) Generation() uint64 {
	return a.generation.Load()
}

// Deactivate supersedes the current activation; its pending results are dropped.
func (a *Aggregator) Deactivate() {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()
	a.generation.Add(1)
}

// outcome is what one source produced.
type outcome int

const (
	outcomeRendered outcome = iota
	outcomeEmpty
	outcomeFailed
	outcomeDropped
)

// Activate requests every source concurrently and waits for all of them. Each source renders
// as soon as it arrives; a failing source never blocks the others.
func (a *Aggregator) Activate(ctx context.Context) Snapshot {
	gen := a.generation.Add(1)

	var (
		mu   sync.Mutex
		snap = Snapshot{Generation: gen}
	)
	record := func(src Source, result outcome, assign func(*Snapshot)) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case outcomeFailed:
			snap.Failed = append(snap.Failed, src)
		case outcomeEmpty:
			snap.Empty = append(snap.Empty, src)
		case outcomeRendered, outcomeDropped:
			if assign != nil {
				assign(&snap)
			}
		}
	}

	var g errgroup.Group
	for _, src := range Sources {
		g.Go(func() error {
			a.load(ctx, gen, src, record)
			return nil
		})
	}
	_ = g.Wait()

	snap.Failed = ordered(snap.Failed)
	snap.Empty = ordered(snap.Empty)
	snap.Stale = gen != a.generation.Load()

	fields := []zap.Field{
		zap.Uint64("generation", gen),
		zap.Bool("stale", snap.Stale),
	}
	if len(snap.Failed) > 0 {
		fields = append(fields, zap.Any("failed", snap.Failed))
		a.logger.Warn("dashboard partially loaded", fields...)
	} else {
		a.logger.Debug("dashboard loaded", fields...)
	}
	return snap
}

func ordered(sources []Source) []Source {
	if len(sources) == 0 {
		return nil
	}
	set := make(map[Source]bool, len(sources))
	for _, src := range sources {
		set[src] = true
	}
	out := make([]Source, 0, len(sources))
	for _, src := range Sources {
		if set[src] {
			out = append(out, src)
		}
	}
	return out
}

func (a *Aggregator) load(ctx context.Context, gen uint64, src Source, record func(Source, outcome, func(*Snapshot))) {
	ctx, span := a.tracer.Start(ctx, "dashboard."+string(src),
		trace.WithAttributes(
			attribute.String("dashboard.source", string(src)),
			attribute.Int64("dashboard.generation", int64(gen)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("dashboard: source %s panicked: %v", src, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			a.logger.Error("dashboard source panicked", zap.String("source", string(src)), zap.Any("panic", r))
			record(src, outcomeFailed, nil)
		}
	}()

	result, assign := a.fetch(ctx, gen, src)
	span.SetAttributes(attribute.Int("dashboard.outcome", int(result)))
	if result == outcomeFailed {
		span.SetStatus(codes.Error, "no data")
	}
	record(src, result, assign)
}

// fetch loads one source, renders it when present and non-empty, and returns how the snapshot
// should be updated.
func (a *Aggregator) fetch(ctx context.Context, gen uint64, src Source) (outcome, func(*Snapshot)) {
	f := a.cfg.Formatter
	switch src {
	case SourceStats:
		stats, ok := a.feed.DashboardStats(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		summary := BuildSummary(stats, f)
		return a.apply(gen, func() { a.sink.RenderSummary(gen, summary) }), func(s *Snapshot) { s.Summary = &summary }

	case SourceCategories:
		shares, ok := a.feed.CategoryDistribution(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		if len(shares) == 0 {
			return outcomeEmpty, nil
		}
		series := BuildCategorySeries(shares)
		return a.apply(gen, func() { a.sink.RenderCategoryDistribution(gen, series) }), func(s *Snapshot) { s.Categories = &series }

	case SourceLowStock:
		items, ok := a.feed.LowStock(ctx, a.cfg.LowStockLimit)
		if !ok {
			return outcomeFailed, nil
		}
		if len(items) == 0 {
			return outcomeEmpty, nil
		}
		rows := BuildLowStock(items)
		return a.apply(gen, func() { a.sink.RenderLowStock(gen, rows) }), func(s *Snapshot) { s.LowStock = rows }

	case SourceInventory:
		items, ok := a.feed.Inventory(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		if len(items) == 0 {
			return outcomeEmpty, nil
		}
		chart := BuildInventoryChart(items)
		return a.apply(gen, func() { a.sink.RenderInventory(gen, chart) }), func(s *Snapshot) { s.Inventory = &chart }

	case SourceSupplierRevenue:
		rows, ok := a.feed.SupplierRevenue(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		if len(rows) == 0 {
			return outcomeEmpty, nil
		}
		series := BuildSupplierSeries(rows)
		return a.apply(gen, func() { a.sink.RenderSupplierRevenue(gen, series) }), func(s *Snapshot) { s.SupplierRevenue = &series }

	case SourceMonthlyRevenue:
		rows, ok := a.feed.MonthlyRevenue(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		if len(rows) == 0 {
			return outcomeEmpty, nil
		}
		series := BuildMonthlySeries(rows)
		return a.apply(gen, func() { a.sink.RenderMonthlyRevenue(gen, series) }), func(s *Snapshot) { s.MonthlyRevenue = &series }

	case SourceTopSpenders:
		rows, ok := a.feed.TopSpenders(ctx)
		if !ok {
			return outcomeFailed, nil
		}
		if len(rows) == 0 {
			return outcomeEmpty, nil
		}
		spenders := BuildSpenders(rows, a.cfg.TopSpenderLimit, f)
		return a.apply(gen, func() { a.sink.RenderTopSpenders(gen, spenders) }), func(s *Snapshot) { s.TopSpenders = spenders }
	}
	return outcomeFailed, nil
}

// apply renders only while gen is still current and the sink shows it.
func (a *Aggregator) apply(gen uint64, render func()) outcome {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()
	if a.generation.Load() != gen || !a.sink.Active(gen) {
		a.logger.Debug("dropping stale dashboard result", zap.Uint64("generation", gen))
		return outcomeDropped
	}
	render()
	return outcomeRendered
}
