package chain

import (
	"fmt"
	"sync"
	"time"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// Endpoint carries the per-chain configuration an adapter is built from.
// Timeout bounds every RPC call the adapter makes.
type Endpoint struct {
	RPCURL  string
	ChainID int64
	Timeout time.Duration
}

// Creator builds an adapter for a configured endpoint. Registered per chain
// ID so the registry never imports adapter packages.
type Creator func(ep Endpoint) (Adapter, error)

// Registry resolves a chain ID to its configured adapter. Adapters are
// constructed lazily, once, on first resolve.
type Registry struct {
	mu        sync.Mutex
	endpoints map[ID]Endpoint
	creators  map[ID]Creator
	adapters  map[ID]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[ID]Endpoint),
		creators:  make(map[ID]Creator),
		adapters:  make(map[ID]Adapter),
	}
}

// Register adds a chain creator and its endpoint configuration.
func (r *Registry) Register(id ID, ep Endpoint, creator Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[id] = ep
	r.creators[id] = creator
}

// Resolve returns the adapter for the given chain ID, constructing it on
// first use. Unknown identifiers fail with ErrUnsupportedChain.
func (r *Registry) Resolve(id ID) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.adapters[id]; ok {
		return adapter, nil
	}

	creator, ok := r.creators[id]
	if !ok {
		return nil, dialerr.WithDetails(dialerr.ErrUnsupportedChain, map[string]string{
			"chain": id.String(),
		})
	}

	adapter, err := creator(r.endpoints[id])
	if err != nil {
		return nil, fmt.Errorf("constructing %s adapter: %w", id, err)
	}

	r.adapters[id] = adapter
	return adapter, nil
}

// Supported returns all registered chain IDs.
func (r *Registry) Supported() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]ID, 0, len(r.creators))
	for _, id := range AllChains() {
		if _, ok := r.creators[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsSupported returns true if the chain ID has a registered creator.
func (r *Registry) IsSupported(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.creators[id]
	return ok
}
