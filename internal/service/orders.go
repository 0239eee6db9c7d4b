package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/municipal-portal/internal/domain/orders"
	"github.com/target/municipal-portal/internal/domain/roads"
	"github.com/target/municipal-portal/internal/ports"
)

// OrderServiceOptions groups dependencies for OrderService.
type OrderServiceOptions struct {
	Repo   ports.OrderRepository
	Logger *slog.Logger
}

// OrderService builds, validates and stores equipment orders.
type OrderService struct {
	repo   ports.OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService constructs a new OrderService.
func NewOrderService(opts OrderServiceOptions) *OrderService {
	if opts.Repo == nil {
		panic("OrderService requires an order repository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{repo: opts.Repo, logger: logger, now: time.Now}
}

// OrdersOverview is the orders page model.
type OrdersOverview struct {
	// Stats always covers every order, regardless of the search.
	Stats  orders.Stats
	Groups []orders.Group
	Query  string
}

// Overview lists orders grouped by municipio, filtered by query.
func (s *OrderService) Overview(ctx context.Context, c Caller, query string) (OrdersOverview, error) {
	list, err := withCaller(ctx, c, func(token string) ([]orders.Order, error) {
		return s.repo.ListOrders(ctx, token)
	})
	if err != nil {
		return OrdersOverview{}, fmt.Errorf("list orders: %w", err)
	}
	return OrdersOverview{
		Stats:  orders.Summarize(list),
		Groups: orders.GroupByMunicipio(orders.FilterOrders(list, query)),
		Query:  strings.TrimSpace(query),
	}, nil
}

// Create prices and validates d locally, then stores it.
func (s *OrderService) Create(ctx context.Context, c Caller, d orders.Draft) (orders.Order, error) {
	o, err := d.Build()
	if err != nil {
		return orders.Order{}, err
	}
	created, err := withCaller(ctx, c, func(token string) (orders.Order, error) {
		return s.repo.CreateOrder(ctx, token, o)
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("create order: %w", err)
	}
	s.logger.InfoContext(ctx, "order created", "order_id", created.ID, "municipio", created.Municipio, "total", created.ValorTotal)
	return created, nil
}

// Update replaces order id with the priced draft.
func (s *OrderService) Update(ctx context.Context, c Caller, id string, d orders.Draft) (orders.Order, error) {
	o, err := d.Build()
	if err != nil {
		return orders.Order{}, err
	}
	updated, err := withCaller(ctx, c, func(token string) (orders.Order, error) {
		return s.repo.UpdateOrder(ctx, token, id, o)
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("update order: %w", err)
	}
	return updated, nil
}

// Get returns order id.
func (s *OrderService) Get(ctx context.Context, c Caller, id string) (orders.Order, error) {
	return withCaller(ctx, c, func(token string) (orders.Order, error) {
		return s.repo.GetOrder(ctx, token, id)
	})
}

// Delete removes order id.
func (s *OrderService) Delete(ctx context.Context, c Caller, id string) error {
	if err := withCallerErr(ctx, c, func(token string) error { return s.repo.DeleteOrder(ctx, token, id) }); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id)
	return nil
}

// Report renders the plain-text order summary offered for download.
func (s *OrderService) Report(ctx context.Context, c Caller) (string, error) {
	ov, err := s.Overview(ctx, c, "")
	if err != nil {
		return "", err
	}
	return FormatOrderReport(ov, s.now()), nil
}

// FormatOrderReport renders ov as text, one block per municipio.
func FormatOrderReport(ov OrdersOverview, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("RELATÓRIO DE PEDIDOS DE MAQUINÁRIOS\n\n")
	fmt.Fprintf(&b, "Municípios com pedidos: %d\n", ov.Stats.Municipios)
	fmt.Fprintf(&b, "Total de pedidos: %d\n", ov.Stats.Orders)
	fmt.Fprintf(&b, "Total de equipamentos: %d\n", ov.Stats.Units)
	fmt.Fprintf(&b, "Valor total geral: %s\n\n", roads.FormatBRL(ov.Stats.Total))
	for _, g := range ov.Groups {
		fmt.Fprintf(&b, "%s - %s\n", g.Municipio, g.Lideranca)
		fmt.Fprintf(&b, "Subtotal: %s\n\n", roads.FormatBRL(g.Subtotal))
	}
	fmt.Fprintf(&b, "Gerado em: %s\n", generatedAt.Format("02/01/2006 15:04:05"))
	return b.String()
}
