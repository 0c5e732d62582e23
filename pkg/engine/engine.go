package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Type identifies a benchmarked database engine.
type Type string

const (
	TypeClickHouse Type = "clickhouse"
	TypeMySQL      Type = "mysql"
)

// Credentials are the account settings passed to a container on first start.
type Credentials struct {
	Database string
	User     string
	Password string
}

// Spec provides engine-specific container configuration.
type Spec interface {
	// Type returns the engine type.
	Type() Type

	// DefaultImage returns the default container image.
	DefaultImage() string

	// DefaultCommand returns extra server arguments, or nil for the image default.
	DefaultCommand() []string

	// DataDir returns the data directory path inside the container.
	DataDir() string

	// Ports returns the container ports published on the host.
	Ports() []int

	// Environment returns the environment used to initialise the server.
	Environment(creds Credentials) map[string]string

	// Storage describes the storage layout ("columnar" or "row").
	Storage() string
}

// Registry manages engine specifications.
type Registry interface {
	Get(t Type) (Spec, error)
	Register(spec Spec)
	List() []Type
}

// NewRegistry creates a registry with both supported engines.
func NewRegistry() Registry {
	r := &registry{
		specs: make(map[Type]Spec, 2),
	}

	r.Register(NewClickHouseSpec())
	r.Register(NewMySQLSpec())

	return r
}

type registry struct {
	mu    sync.RWMutex
	specs map[Type]Spec
}

// Ensure interface compliance.
var _ Registry = (*registry)(nil)

// Get returns the spec for the given engine type.
func (r *registry) Get(t Type) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[t]
	if !ok {
		return nil, fmt.Errorf("unknown engine type: %s", t)
	}

	return spec, nil
}

// Register adds a spec to the registry, replacing any spec of the same type.
func (r *registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[spec.Type()] = spec
}

// List returns all registered engine types in name order.
func (r *registry) List() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.specs))
	for t := range r.specs {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}
