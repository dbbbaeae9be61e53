package raft

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kvraft/cluster"
	"kvraft/internal/message"
	"kvraft/internal/statemachine"
	"kvraft/internal/transport"
)

// testNode bundles one engine with the KV it applies commands to, so
// tests can assert on replicated state directly instead of only on
// client replies.
type testNode struct {
	id     message.ServerId
	engine *Engine
	kv     *statemachine.KV
}

// newTestCluster boots n engines wired to each other over real loopback
// TCP, using short timeouts so tests run quickly. The returned nodes
// slice is ordered by ServerId.
func newTestCluster(t *testing.T, n int) []*testNode {
	t.Helper()

	meshes := make([]*transport.Mesh, n)
	addrs := make([]string, n)
	nodes := make([]*testNode, n)

	for i := 0; i < n; i++ {
		id := message.ServerId(i)
		nodes[i] = &testNode{id: id, kv: statemachine.NewKV()}
	}

	for i := 0; i < n; i++ {
		id := message.ServerId(i)
		m := transport.New(id, zerolog.Nop(), func(node *testNode) func() {
			return func() { node.engine.ObserveLeaderContact() }
		}(nodes[i]))
		if err := m.Listen("127.0.0.1:0"); err != nil {
			t.Fatalf("listen: %v", err)
		}
		m.Run(context.Background())
		meshes[i] = m
		addrs[i] = meshAddr(m)
	}

	topo, err := cluster.New(addrs, addrs)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}

	cfg := Config{
		ElectionCheckFrequency: 20 * time.Millisecond,
		LeaderCheckinMaxWait:   120 * time.Millisecond,
		HeartbeatPeriod:        30 * time.Millisecond,
		AwaitResponseTimeout:   200 * time.Millisecond,
		SendTimeout:            200 * time.Millisecond,
	}

	for i := 0; i < n; i++ {
		id := message.ServerId(i)
		for _, peer := range topo.Peers(id) {
			addr, _ := topo.PeerAddress(peer)
			meshes[i].Connect(peer, addr)
		}
		adapter := statemachine.NewAdapter(nodes[i].kv)
		log := NewLogger(id, zerolog.Disabled)
		nodes[i].engine = New(id, topo, meshes[i], adapter, cfg, log)
	}

	for _, n := range nodes {
		n.engine.Start()
		t.Cleanup(n.engine.Stop)
	}
	for _, m := range meshes {
		t.Cleanup(m.Close)
	}

	return nodes
}

func meshAddr(m *transport.Mesh) string {
	// Exported via Mesh's own listener; transport package keeps the
	// field private, so tests rely on the address captured at Listen
	// time through this accessor-shaped helper instead of reaching in.
	return m.ListenerAddr()
}

func awaitLeader(t *testing.T, nodes []*testNode, within time.Duration) *testNode {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		for _, n := range nodes {
			if n.engine.IsLeader() {
				return n
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no leader elected within deadline")
	return nil
}
