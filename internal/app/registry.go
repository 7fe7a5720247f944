package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/domain"
)

// Sender abstracts the outbound side of a transport. Owned by the
// adapter that created it; the adapter must Close() it.
type Sender interface {
	TrySend(data []byte) error
	Close()
}

// Conn is the per-connection state the registry owns. Identity fields
// are written only from the connection's own read loop (on a successful
// handshake); other goroutines touch nothing but Transport.
type Conn struct {
	ID        domain.ConnectionID
	IP        string
	Transport Sender

	Authenticated bool
	UserID        domain.UserID
	DisplayName   string
	Role          domain.Role
	Profile       domain.Profile
}

// Registry is the sole owner of transport handles. Other components
// reach a transport only through send operations, never store one.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnectionID]*Conn)}
}

func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID)).Str("ip", c.IP).Msg("connection registered")
}

func (r *Registry) Remove(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection removed")
}

func (r *Registry) Get(id domain.ConnectionID) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Snapshot lists every live connection; used for catalog-wide broadcasts.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
