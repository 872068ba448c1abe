//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../../mocks/mock_channel.go -package=mocks
package session

import (
	"context"
	"sync"

	"github.com/christmas-fire/nexus-collab/internal/metrics"
	"github.com/christmas-fire/nexus-collab/internal/models"
)

// Channel is one live transport connection. Push must not block on a slow peer.
// Implementations are used as map keys and must be comparable (pointer types are).
type Channel interface {
	Push(ctx context.Context, msg models.Message) error
}

type set map[Channel]struct{}

// Registry maps identities to the channels currently joined under them.
// A channel belongs to at most one identity; an identity may hold many channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[models.Identity]set
	owners   map[Channel]models.Identity
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[models.Identity]set),
		owners:   make(map[Channel]models.Identity),
	}
}

// Join binds ch to identity. Joining twice is a no-op; joining under a new identity
// moves the channel.
func (r *Registry) Join(identity models.Identity, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[ch]; ok {
		if owner == identity {
			return
		}
		r.unbind(owner, ch)
	}

	if _, ok := r.channels[identity]; !ok {
		r.channels[identity] = make(set)
	}
	r.channels[identity][ch] = struct{}{}
	r.owners[ch] = identity
	metrics.LiveChannels.Inc()
}

// Leave drops ch from whichever identity holds it and reports that identity.
func (r *Registry) Leave(ch Channel) (models.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[ch]
	if !ok {
		return "", false
	}
	r.unbind(owner, ch)
	return owner, true
}

// unbind must be called with mu held.
func (r *Registry) unbind(owner models.Identity, ch Channel) {
	delete(r.owners, ch)
	if members, ok := r.channels[owner]; ok {
		delete(members, ch)
		if len(members) == 0 {
			delete(r.channels, owner)
		}
	}
	metrics.LiveChannels.Dec()
}

// ChannelsFor returns a snapshot of the live channels for identity, nil if there are none.
func (r *Registry) ChannelsFor(identity models.Identity) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[identity]
	if !ok {
		return nil
	}
	out := make([]Channel, 0, len(members))
	for ch := range members {
		out = append(out, ch)
	}
	return out
}

// IdentityOf reports the identity ch is currently joined under.
func (r *Registry) IdentityOf(ch Channel) (models.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[ch]
	return owner, ok
}

// Len is the number of bound channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// Close forgets every binding. Sessions are never restored; clients re-join after reconnecting.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.LiveChannels.Sub(float64(len(r.owners)))
	r.channels = make(map[models.Identity]set)
	r.owners = make(map[Channel]models.Identity)
}
