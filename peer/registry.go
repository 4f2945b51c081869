package peer

import (
	log "github.com/sirupsen/logrus"
)

// Registry is the set of known peers, excluding the owning node itself.
// It is not safe for concurrent use; the node's event loop is its only
// mutator, and everyone else works from a Snapshot.
type Registry struct {
	self  Info
	peers map[Info]struct{}
}

func NewRegistry(self Info) *Registry {
	return &Registry{
		self:  self,
		peers: make(map[Info]struct{}),
	}
}

// Add inserts a peer. It returns false for the node's own identity and
// for peers already present, which gates gossip against broadcast storms.
func (r *Registry) Add(p Info) bool {
	if p == r.self {
		log.Debugf("Refusing to add ourselves as a peer")
		return false
	}
	if _, ok := r.peers[p]; ok {
		log.Debugf("Peer already exists: %s @ %s", p.ID, p.Address)
		return false
	}
	r.peers[p] = struct{}{}
	return true
}

// Len returns the number of known peers.
func (r *Registry) Len() int {
	return len(r.peers)
}

// Snapshot returns a point-in-time copy of the registry, so network I/O
// never iterates the live set.
func (r *Registry) Snapshot() []Info {
	peers := make([]Info, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	return peers
}
