// Package db provides the local store for the Atrium sync core.
// It encapsulates all interactions with the underlying SQLite database, managing
// data persistence for the named collections the core relies on: offline actions,
// cached entities, regions, eco-features, the search cache, the response cache,
// notifications, user state, and logs.
//
// This package is responsible for:
// - Establishing and managing database connections (`db.go`).
// - Defining database-specific data structures that map to SQL table schemas.
// - Implementing repository interfaces (e.g., `ActionRepository`, `SearchCacheRepository`)
//   to perform CRUD operations.
// - Handling data conversion between domain-specific structs (from the `domain` package)
//   and database-friendly structs, including the use of `sql.Null*` types for nullable fields.
// - Managing database migrations (`migrations/`).
// - Providing common database utility types (`types.go`).
package db
