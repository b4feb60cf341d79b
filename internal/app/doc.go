// Package app composes flock's services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Plain data types shared by every layer
//	├── storage/            # Store interfaces plus memory/ and postgres/
//	├── services/           # Business operations, one package per area
//	├── jobs/               # Cron-driven maintenance (prayer expiry, usage pruning)
//	├── cache/              # Rendered bulletin cache (memory or redis)
//	├── httpapi/            # Router, handlers and audit log
//	├── system/             # Lifecycle manager for background services
//	├── tenancy/            # Tenant id on context.Context
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/flock
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/middleware
//	      │                         │
//	      ▼                         ▼
//	internal/app (composition) ──► internal/app/services/*
//	                                      │
//	                                      ▼
//	                          internal/app/storage ──► internal/platform/database
//
// # Adding a New Area
//
//  1. Create domain types in internal/app/domain/<area>/
//  2. Add the store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres (with a migration)
//  4. Write the service in internal/app/services/<area>/
//  5. Wire it in application.go
//  6. Add routes in internal/app/httpapi
package app
