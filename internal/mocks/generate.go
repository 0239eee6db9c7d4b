// Package mocks provides mock implementations of the backend ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	users := mocks.NewMockUserDirectory(ctrl)
//	users.EXPECT().ListUsers(gomock.Any(), "token").Return(list, nil)
package mocks

// Generate mocks for every backend port in internal/ports.
// The REST client in internal/adapters/backend implements all of them.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/target/municipal-portal/internal/ports AuthBoundary,UserDirectory,DatasetSource,OrderRepository,MunicipalityDirectory,LeadershipRepository
