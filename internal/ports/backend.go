package ports

import (
	"context"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/leadership"
	"github.com/target/municipal-portal/internal/domain/orders"
)

// UserDirectory is the backend's admin-only user CRUD.
type UserDirectory interface {
	ListUsers(ctx context.Context, token string) ([]domainauth.Identity, error)
	CreateUser(ctx context.Context, token string, in domainauth.UserInput) (domainauth.Identity, error)
	UpdateUser(ctx context.Context, token, id string, in domainauth.UserInput) (domainauth.Identity, error)
	DeleteUser(ctx context.Context, token, id string) error
}

// DatasetSource fetches the rural-road spreadsheet as raw rows.
type DatasetSource interface {
	FetchDataset(ctx context.Context, token string) ([][]any, error)
}

// OrderRepository is the backend's equipment-order store.
type OrderRepository interface {
	ListOrders(ctx context.Context, token string) ([]orders.Order, error)
	GetOrder(ctx context.Context, token, id string) (orders.Order, error)
	CreateOrder(ctx context.Context, token string, o orders.Order) (orders.Order, error)
	UpdateOrder(ctx context.Context, token, id string, o orders.Order) (orders.Order, error)
	DeleteOrder(ctx context.Context, token, id string) error
}

// MunicipalityDirectory lists municipalities known to the backend.
type MunicipalityDirectory interface {
	ListMunicipalities(ctx context.Context, token, search string) ([]orders.Municipality, error)
}

// LeadershipRepository is the backend's leadership-request store.
type LeadershipRepository interface {
	ListRequests(ctx context.Context, token string) ([]leadership.Request, error)
	CreateRequest(ctx context.Context, token string, r leadership.Request) (leadership.Request, error)
	DeleteRequest(ctx context.Context, token, id string) error
}

// Backend bundles every backend port; the REST client implements all of them.
type Backend interface {
	AuthBoundary
	UserDirectory
	DatasetSource
	OrderRepository
	MunicipalityDirectory
	LeadershipRepository
}
