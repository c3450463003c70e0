package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/weatheretl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// OpenFunc opens a connection from its decoded settings.
type OpenFunc func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// DecodeStorageConfig reads the named entry of the `surfin.storage` section.
func DecodeStorageConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	var sc storageConfig.StorageConfig
	raw, ok := cfg.Surfin.StorageConfigs[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if err := configbinder.Decode(raw, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}

// BaseProvider caches connections of one storage type opened through an OpenFunc.
type BaseProvider struct {
	cfg          *coreConfig.Config
	providerType string
	open         OpenFunc
	connections  map[string]StorageConnection
	mu           sync.Mutex
}

// NewBaseProvider creates a provider for providerType.
func NewBaseProvider(cfg *coreConfig.Config, providerType string, open OpenFunc) *BaseProvider {
	return &BaseProvider{
		cfg:          cfg,
		providerType: providerType,
		open:         open,
		connections:  make(map[string]StorageConnection),
	}
}

// Type returns the storage type.
func (p *BaseProvider) Type() string { return p.providerType }

// GetConnection returns the cached connection for name, opening it on first use.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getLocked(name)
}

func (p *BaseProvider) getLocked(name string) (StorageConnection, error) {
	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	sc, err := DecodeStorageConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, sc.Type)
	}
	conn, err := p.open(sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage connection '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return conn, nil
}

// ForceReconnect closes the named connection and opens a new one.
func (p *BaseProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.connections[name]; ok {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to close %s storage connection '%s' during reconnect: %v", p.providerType, name, err)
		}
		delete(p.connections, name)
	}
	return p.getLocked(name)
}

// CloseAll closes every connection and returns all close errors combined.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}
