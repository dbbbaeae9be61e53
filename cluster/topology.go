// Package cluster holds the fixed peer address book: a static mapping
// from ServerId to network address, known to every process at boot.
// Adapted from the teacher's node registry (cluster/node_registry.go);
// the hash-ring/key-sharding machinery that package carried is dropped
// (see DESIGN.md) since spec.md describes a single replicated log
// shared by every key, not a partitioned keyspace.
package cluster

import (
	"fmt"

	"kvraft/internal/message"
)

// DefaultPeerCount is N in the reference cluster.
const DefaultPeerCount = 5

// Topology is the fixed ServerId -> (host, port) mapping described in
// spec.md §6. It never changes at runtime: cluster membership changes
// are an explicit Non-goal.
type Topology struct {
	peerAddr   map[message.ServerId]string
	clientAddr map[message.ServerId]string
	ids        []message.ServerId
}

// New builds a Topology from parallel ServerId/address slices. Both
// peerAddrs and clientAddrs must be indexed by ServerId.
func New(peerAddrs, clientAddrs []string) (*Topology, error) {
	if len(peerAddrs) != len(clientAddrs) {
		return nil, fmt.Errorf("cluster: peer and client address lists must match in length (%d vs %d)", len(peerAddrs), len(clientAddrs))
	}
	if len(peerAddrs) < 1 {
		return nil, fmt.Errorf("cluster: topology must have at least one peer")
	}

	t := &Topology{
		peerAddr:   make(map[message.ServerId]string, len(peerAddrs)),
		clientAddr: make(map[message.ServerId]string, len(clientAddrs)),
	}
	for i := range peerAddrs {
		id := message.ServerId(i)
		t.peerAddr[id] = peerAddrs[i]
		t.clientAddr[id] = clientAddrs[i]
		t.ids = append(t.ids, id)
	}
	return t, nil
}

// DefaultLocalTopology mirrors the reference cluster: N=5, peer ports
// 14000-18000 and client ports one above each, all on localhost.
func DefaultLocalTopology() *Topology {
	peerAddrs := make([]string, DefaultPeerCount)
	clientAddrs := make([]string, DefaultPeerCount)
	for i := 0; i < DefaultPeerCount; i++ {
		peerPort := 14000 + i*1000
		peerAddrs[i] = fmt.Sprintf("127.0.0.1:%d", peerPort)
		clientAddrs[i] = fmt.Sprintf("127.0.0.1:%d", peerPort+1)
	}
	t, err := New(peerAddrs, clientAddrs)
	if err != nil {
		// Unreachable: the slices above are always well-formed.
		panic(err)
	}
	return t
}

// N returns the number of peers in the cluster.
func (t *Topology) N() int {
	return len(t.ids)
}

// Quorum returns the number of peers that constitute a strict majority.
func (t *Topology) Quorum() int {
	return t.N()/2 + 1
}

// PeerAddress returns the peer-to-peer (raft) address for id.
func (t *Topology) PeerAddress(id message.ServerId) (string, bool) {
	addr, ok := t.peerAddr[id]
	return addr, ok
}

// ClientAddress returns the client front-end address for id.
func (t *Topology) ClientAddress(id message.ServerId) (string, bool) {
	addr, ok := t.clientAddr[id]
	return addr, ok
}

// Peers returns every ServerId except self.
func (t *Topology) Peers(self message.ServerId) []message.ServerId {
	out := make([]message.ServerId, 0, len(t.ids)-1)
	for _, id := range t.ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// AllIDs returns every ServerId in the cluster, including self.
func (t *Topology) AllIDs() []message.ServerId {
	out := make([]message.ServerId, len(t.ids))
	copy(out, t.ids)
	return out
}

// Valid reports whether id is a member of this cluster.
func (t *Topology) Valid(id message.ServerId) bool {
	_, ok := t.peerAddr[id]
	return ok
}
