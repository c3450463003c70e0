// Package adapter defines the resource abstractions shared by database and storage adapters.
package adapter

import (
	"context"
)

// ResourceConnection represents a connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	Close() error
	// Type returns the type of the resource (e.g., "sqlite", "gcs").
	Type() string
	// Name returns the connection name (e.g., "workload", "archive").
	Name() string
}

// ResourceConnectionResolver resolves a connection by name at execution time.
type ResourceConnectionResolver interface {
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
