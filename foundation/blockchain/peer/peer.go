// Package peer maintains the set of nodes this node knows about and talks to
// over the network.
package peer

import (
	"sort"
	"sync"
)

// Peer represents a node on the network, addressed by its p2p host.
type Peer struct {
	Host string `json:"host"`
}

// New constructs a peer for the host.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet(hosts ...string) *PeerSet {
	ps := PeerSet{
		set: make(map[Peer]struct{}),
	}

	for _, host := range hosts {
		if host != "" {
			ps.set[New(host)] = struct{}{}
		}
	}

	return &ps
}

// Add adds a new node to the set and reports whether it was new.
func (ps *PeerSet) Add(peer Peer) bool {
	if peer.Host == "" {
		return false
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; exists {
		return false
	}

	ps.set[peer] = struct{}{}
	return true
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Len returns the number of known peers.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns the known peers, excluding the specified host, sorted by host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Host < peers[j].Host
	})

	return peers
}

// Hosts returns the hosts of the known peers, excluding the specified host.
func (ps *PeerSet) Hosts(host string) []string {
	peers := ps.Copy(host)

	hosts := make([]string, len(peers))
	for i, peer := range peers {
		hosts[i] = peer.Host
	}

	return hosts
}
