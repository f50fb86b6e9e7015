package inventory

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/smart-inventory/internal/inventory/delivery/http"
	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
	"github.com/tair/smart-inventory/kafka"
)

// Service is the assembled inventory application.
type Service struct {
	Handler  *http.InventoryHandler
	AddStock *command.AddStockHandler
}

func NewService(handler *http.InventoryHandler, commands http.Commands) *Service {
	return &Service{Handler: handler, AddStock: commands.AddStock}
}

// StockReceivedHandler books a purchasing delivery as added stock,
// attributed to the user named in the event.
func (s *Service) StockReceivedHandler() kafka.StockReceivedHandler {
	return func(ctx context.Context, event kafka.StockReceivedEvent) error {
		_, err := s.AddStock.Handle(ctx, command.AddStockCommand{
			Actor:     domain.Actor{UserID: event.UserID},
			BranchID:  event.BranchID,
			ProductID: event.ProductID,
			Quantity:  event.Quantity,
			Note:      event.Note,
		})
		return err
	}
}

func ProvideUnitOfWork(store domain.Store) domain.UnitOfWork {
	return store
}

func ProvideReportRepository(store domain.Store) domain.ReportRepository {
	return store
}

func ProvideInventoryReader(store domain.Store) domain.InventoryReader {
	return store
}

func ProvideCommandMetrics(reg prometheus.Registerer) *command.Metrics {
	return command.NewMetrics(reg)
}

func ProvideHTTPMetrics(reg prometheus.Registerer) *http.Metrics {
	return http.NewMetrics(reg)
}
