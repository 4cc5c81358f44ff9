// Package session provides the process-wide thread registry mapping client
// supplied conversation identifiers to accumulated history.
package session

import (
	"hash/fnv"
	"sync"

	"github.com/hupe1980/salesmesh/core"
)

// Registry resolves thread identifiers to sessions.
type Registry interface {
	// GetOrCreate returns the session for threadID, creating an empty one for
	// unknown identifiers. An empty threadID mints a fresh unique identifier.
	// Never errors: an unknown identifier means "start fresh under this name".
	GetOrCreate(threadID string) (*core.Session, string)
}

const shardCount = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// InMemoryRegistry is a volatile Registry keeping sessions in sharded process
// local maps, so lookups for different identifiers do not contend. Sessions
// live for the life of the process; expiry is an external lifecycle concern.
type InMemoryRegistry struct {
	shards [shardCount]*shard
}

// NewInMemoryRegistry constructs an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	r := &InMemoryRegistry{}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*core.Session)}
	}
	return r
}

// GetOrCreate implements Registry.
func (r *InMemoryRegistry) GetOrCreate(threadID string) (*core.Session, string) {
	if threadID == "" {
		threadID = core.NewID()
	}

	sh := r.shard(threadID)

	sh.mu.RLock()
	sess, ok := sh.sessions[threadID]
	sh.mu.RUnlock()
	if ok {
		return sess, threadID
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sess, ok := sh.sessions[threadID]; ok {
		return sess, threadID
	}
	sess = core.NewSession(threadID)
	sh.sessions[threadID] = sess
	return sess, threadID
}

// Len returns the number of known sessions across all shards.
func (r *InMemoryRegistry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func (r *InMemoryRegistry) shard(threadID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(threadID))
	return r.shards[h.Sum32()%shardCount]
}
