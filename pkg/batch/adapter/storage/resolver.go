package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	coreAdapter "github.com/tigerroll/weatheretl/pkg/batch/core/adapter"
	coreConfig "github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

// ConnectionResolver picks the StorageProvider of a named connection by its configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ResolverParams are the fx inputs of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewConnectionResolver indexes the provided StorageProviders by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, sp := range p.Providers {
		providers[sp.Type()] = sp
	}
	return &ConnectionResolver{providers: providers, cfg: p.Cfg}
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)

// ResolveStorageConnection returns the named connection.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}
	return provider.GetConnection(name)
}

// ResolveConnection implements coreAdapter.ResourceConnectionResolver.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
