package monitor

import (
	"sync"

	"github.com/cmon-dev/cmon/pkg/fortios"
)

// Pool keeps one API client per device so keep-alive connections and the
// per-device rate limiter survive between cycles.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*poolEntry
	opts    fortios.Options
}

// poolEntry remembers the credentials a client was built with.
type poolEntry struct {
	client *fortios.Client
	host   string
	apiKey string
}

// NewPool creates a client pool. opts apply to every client it creates.
func NewPool(opts fortios.Options) *Pool {
	if opts.Timeout == 0 {
		opts.Timeout = fortios.DefaultTimeout
	}
	return &Pool{
		clients: make(map[string]*poolEntry),
		opts:    opts,
	}
}

// Get returns the client for target, creating it on first use. A target
// whose host or key changed gets a fresh client.
func (p *Pool) Get(target DeviceTarget) *fortios.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.clients[target.Name]
	if ok && entry.host == target.Host && entry.apiKey == target.APIKey {
		return entry.client
	}
	if ok {
		entry.client.Close()
	}

	client := fortios.NewClient(target.Host, target.APIKey, p.opts)
	p.clients[target.Name] = &poolEntry{client: client, host: target.Host, apiKey: target.APIKey}
	return client
}

// Close closes all clients in the pool and clears it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, entry := range p.clients {
		entry.client.Close()
		delete(p.clients, name)
	}
}

// CloseOne closes and forgets the client for a device. A later Get builds
// a new one.
func (p *Pool) CloseOne(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.clients[name]; ok {
		entry.client.Close()
		delete(p.clients, name)
	}
}
