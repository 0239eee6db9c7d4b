package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/municipal-portal/internal/domain/orders"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/mocks"
)

func sampleOrders() []orders.Order {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []orders.Order{
		{ID: "1", Municipio: "Curitiba", Lideranca: "Ana", ValorTotal: 100, CreatedAt: t0,
			Equipamentos: []orders.Item{{Equipamento: "Bob Cat", Quantidade: 1, ValorTotal: 100}}},
		{ID: "2", Municipio: "Arapoti", Lideranca: "Bia", ValorTotal: 50, CreatedAt: t0,
			Equipamentos: []orders.Item{{Equipamento: "Escavadeira", Quantidade: 2, ValorTotal: 50}}},
		{ID: "3", Municipio: "Curitiba", Lideranca: "Carla", ValorTotal: 25, CreatedAt: t0.Add(time.Hour),
			Equipamentos: []orders.Item{{Equipamento: "Motoniveladora", Quantidade: 1, ValorTotal: 25}}},
	}
}

func TestOrderService_Overview(t *testing.T) {
	repo := mocks.NewMockOrderRepository(gomock.NewController(t))
	svc := NewOrderService(OrderServiceOptions{Repo: repo})
	repo.EXPECT().ListOrders(gomock.Any(), "tok").Return(sampleOrders(), nil).Times(2)
	caller := &fakeCaller{token: "tok"}

	ov, err := svc.Overview(context.Background(), caller, "")
	require.NoError(t, err)
	assert.Equal(t, orders.Stats{Municipios: 2, Orders: 3, Units: 4, Total: 175}, ov.Stats)
	require.Len(t, ov.Groups, 2)
	assert.Equal(t, "Arapoti", ov.Groups[0].Municipio)
	assert.Equal(t, "Carla", ov.Groups[1].Lideranca, "newest order names the lideranca")
	assert.InDelta(t, 125.0, ov.Groups[1].Subtotal, 0.001)

	ov, err = svc.Overview(context.Background(), caller, " escavadeira ")
	require.NoError(t, err)
	require.Len(t, ov.Groups, 1)
	assert.Equal(t, "Arapoti", ov.Groups[0].Municipio)
	assert.Equal(t, 3, ov.Stats.Orders, "stats ignore the search")
	assert.Equal(t, "escavadeira", ov.Query)
}

func TestOrderService_CreatePricesFromCatalog(t *testing.T) {
	repo := mocks.NewMockOrderRepository(gomock.NewController(t))
	svc := NewOrderService(OrderServiceOptions{Repo: repo})

	repo.EXPECT().CreateOrder(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, o orders.Order) (orders.Order, error) {
			require.Len(t, o.Equipamentos, 1)
			assert.InDelta(t, 860000.0, o.ValorTotal, 0.001)
			o.ID = "new"
			return o, nil
		})

	out, err := svc.Create(context.Background(), &fakeCaller{token: "tok"}, orders.Draft{
		Municipio: "Curitiba",
		Lideranca: "Ana",
		Items:     []orders.ItemInput{{Equipamento: "Bob Cat", Quantidade: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", out.ID)
}

func TestOrderService_CreateRejectsInvalidDraft(t *testing.T) {
	repo := mocks.NewMockOrderRepository(gomock.NewController(t))
	svc := NewOrderService(OrderServiceOptions{Repo: repo})

	_, err := svc.Create(context.Background(), &fakeCaller{token: "tok"}, orders.Draft{Municipio: "Curitiba", Lideranca: "Ana"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "equipamentos", apperrors.GetField(err))
}

func TestOrderService_DeleteNotFound(t *testing.T) {
	repo := mocks.NewMockOrderRepository(gomock.NewController(t))
	svc := NewOrderService(OrderServiceOptions{Repo: repo})
	repo.EXPECT().DeleteOrder(gomock.Any(), "tok", "x").Return(apperrors.NotFound("Pedido não encontrado"))

	err := svc.Delete(context.Background(), &fakeCaller{token: "tok"}, "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOrderService_Report(t *testing.T) {
	repo := mocks.NewMockOrderRepository(gomock.NewController(t))
	svc := NewOrderService(OrderServiceOptions{Repo: repo})
	svc.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	repo.EXPECT().ListOrders(gomock.Any(), "tok").Return(sampleOrders(), nil)

	report, err := svc.Report(context.Background(), &fakeCaller{token: "tok"})
	require.NoError(t, err)

	for _, want := range []string{
		"Municípios com pedidos: 2",
		"Total de pedidos: 3",
		"Total de equipamentos: 4",
		"Arapoti - Bia",
		"Curitiba - Carla",
		"Gerado em: 03/02/2025 04:05:06",
	} {
		assert.True(t, strings.Contains(report, want), "report missing %q:\n%s", want, report)
	}
	assert.Less(t, strings.Index(report, "Arapoti"), strings.Index(report, "Curitiba"))
}
