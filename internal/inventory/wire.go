//go:build wireinject
// +build wireinject

package inventory

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/smart-inventory/internal/inventory/delivery/http"
	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
	"github.com/tair/smart-inventory/internal/inventory/usecase/query"
)

// Wire sets
var StoreSet = wire.NewSet(
	ProvideUnitOfWork,
	ProvideReportRepository,
	ProvideInventoryReader,
)

var CommandSet = wire.NewSet(
	ProvideCommandMetrics,
	command.NewAddStockHandler,
	command.NewAdjustStockHandler,
	command.NewTransferStockHandler,
	command.NewCreateOrderHandler,
	wire.Struct(new(http.Commands), "*"),
)

var QuerySet = wire.NewSet(
	query.NewGetSummaryReportHandler,
	query.NewGetBranchReportHandler,
	query.NewGetLowStockHandler,
	query.NewListInventoryHandler,
	query.NewListBranchProductsHandler,
	query.NewMovementHistoryHandler,
	query.NewInventoryStatsHandler,
	query.NewScopeResolver,
	wire.Struct(new(http.Queries), "*"),
)

// InitializeService wires the inventory application around a store
func InitializeService(
	store domain.Store,
	events domain.EventPublisher,
	cache query.ReportCache,
	opts query.ReportOptions,
	reg prometheus.Registerer,
	tokens http.TokenValidator,
) (*Service, error) {
	wire.Build(
		StoreSet,
		CommandSet,
		QuerySet,
		ProvideHTTPMetrics,
		http.NewInventoryHandler,
		NewService,
	)
	return nil, nil
}
