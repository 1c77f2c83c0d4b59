// Package domain defines the core business logic and data structures of the Atrium sync core.
// It contains the primary domain models, such as OfflineAction, CachedEntity, SearchCacheEntry,
// and Notification, as well as the repository interfaces that define the contracts for data
// persistence.
//
// This package serves as the central point for application-wide types and business rules,
// ensuring a clean separation between the sync core's logic and its implementation details,
// such as the database, the network transport, or the notification socket. By defining
// interfaces for repositories, the domain package remains independent of the data storage
// technology.
package domain
