// Package mocks provides mock implementations for testing the scan service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockEngine := mocks.NewMockScanEngine(ctrl)
//	mockEngine.EXPECT().IsAvailable(gomock.Any()).Return(nil)
package mocks

// Generate mock for ScanEngine interface from internal/core package.
// This creates MockScanEngine with methods for all ScanEngine interface methods:
// IsAvailable, Execute, Retest
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=scan_engine_mock.go github.com/orafinite/scan-api/internal/core ScanEngine

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, IncrementWithTTL, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/orafinite/scan-api/internal/core CacheRepository
