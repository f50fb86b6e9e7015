package query

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/logger"
)

const defaultTopLimit = 5

// ReportCache stores report snapshots. Writes never invalidate it, so a
// cached report can lag committed data by up to its TTL.
type ReportCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportOptions configures report windows and caching.
type ReportOptions struct {
	// Location defines "today" and "this month". Defaults to UTC.
	Location *time.Location
	CacheTTL time.Duration
	TopLimit int
	Now      func() time.Time
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.TopLimit <= 0 {
		o.TopLimit = defaultTopLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SummaryReport is the dashboard rollup for a set of branches
type SummaryReport struct {
	BranchIDs    []uint                `json:"branch_ids"`
	TodaySales   decimal.Decimal       `json:"today_sales"`
	MonthlySales decimal.Decimal       `json:"monthly_sales"`
	TotalOrders  int64                 `json:"total_orders"`
	TopProducts  []domain.ProductSales `json:"top_products"`
	LowStock     []LowStockItem        `json:"low_stock"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// GetSummaryReportQuery represents the query for the summary report
type GetSummaryReportQuery struct {
	BranchIDs []uint
	Limit     int
}

// GetSummaryReportHandler handles the summary report query
type GetSummaryReportHandler struct {
	reports domain.ReportRepository
	cache   ReportCache
	opts    ReportOptions
}

// NewGetSummaryReportHandler creates a summary handler. cache may be nil.
func NewGetSummaryReportHandler(reports domain.ReportRepository, cache ReportCache, opts ReportOptions) *GetSummaryReportHandler {
	return &GetSummaryReportHandler{reports: reports, cache: cache, opts: opts.withDefaults()}
}

// Handle executes the summary report query
func (h *GetSummaryReportHandler) Handle(ctx context.Context, q GetSummaryReportQuery) (*SummaryReport, error) {
	if q.Limit <= 0 {
		q.Limit = h.opts.TopLimit
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	scope := slices.Clone(q.BranchIDs)
	slices.Sort(scope)
	scope = slices.Compact(scope)

	now := h.opts.Now().In(h.opts.Location)
	key := summaryCacheKey(scope, q.Limit, now)

	if h.cacheEnabled() {
		var cached SummaryReport
		found, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("Report cache read failed")
		} else if found {
			logger.Debug(ctx).Str("cache_key", key).Msg("Report cache hit")
			return &cached, nil
		}
	}

	report, err := h.build(ctx, scope, q.Limit, now)
	if err != nil {
		return nil, err
	}

	if h.cacheEnabled() {
		if err := h.cache.Set(ctx, key, report, h.opts.CacheTTL); err != nil {
			logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("Report cache write failed")
		}
	}
	return report, nil
}

func (h *GetSummaryReportHandler) cacheEnabled() bool {
	return h.cache != nil && h.opts.CacheTTL > 0
}

func (h *GetSummaryReportHandler) build(ctx context.Context, scope []uint, limit int, now time.Time) (*SummaryReport, error) {
	loc := h.opts.Location
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	today, err := h.reports.SalesTotal(ctx, scope, startOfDay, startOfDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to compute today's sales: %w", err)
	}
	monthly, err := h.reports.SalesTotal(ctx, scope, startOfMonth, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly sales: %w", err)
	}
	count, err := h.reports.CountOrders(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	top, err := h.reports.TopProducts(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank top products: %w", err)
	}
	low, err := h.reports.LowStock(ctx, scope, domain.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}

	if top == nil {
		top = []domain.ProductSales{}
	}
	return &SummaryReport{
		BranchIDs:    scope,
		TodaySales:   today,
		MonthlySales: monthly,
		TotalOrders:  count,
		TopProducts:  top,
		LowStock:     toLowStockItems(low),
		GeneratedAt:  now,
	}, nil
}

func summaryCacheKey(scope []uint, limit int, now time.Time) string {
	ids := make([]string, len(scope))
	for i, id := range scope {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("summary:%s:%d:%s", strings.Join(ids, ","), limit, now.Format("2006-01-02"))
}

// GetBranchReportQuery is the summary report of a single branch
type GetBranchReportQuery struct {
	BranchID uint
	Limit    int
}

type GetBranchReportHandler struct {
	summary *GetSummaryReportHandler
}

func NewGetBranchReportHandler(summary *GetSummaryReportHandler) *GetBranchReportHandler {
	return &GetBranchReportHandler{summary: summary}
}

func (h *GetBranchReportHandler) Handle(ctx context.Context, q GetBranchReportQuery) (*SummaryReport, error) {
	if q.BranchID == 0 {
		return nil, domain.Validation("branch_report", "branch id is required")
	}
	return h.summary.Handle(ctx, GetSummaryReportQuery{BranchIDs: []uint{q.BranchID}, Limit: q.Limit})
}
