// Package storage defines object storage adapters used to publish batch output.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/weatheretl/pkg/batch/core/adapter"
)

// StorageExecutor defines object operations. An empty bucket means the connection's configured bucket.
type StorageExecutor interface {
	// Upload writes data to objectName, replacing any existing object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName for reading. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object whose name starts with prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider opens and caches connections for one storage type.
type StorageProvider interface {
	GetConnection(name string) (StorageConnection, error)
	CloseAll() error
	Type() string
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves a storage connection by name.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the fx value group all StorageProvider implementations are provided into.
const StorageProviderGroup = "storage_providers"
