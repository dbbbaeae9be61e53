package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSingleLeaderElected covers scenario S1: a quiescent cluster
// converges on exactly one leader.
func TestSingleLeaderElected(t *testing.T) {
	nodes := newTestCluster(t, 3)
	leader := awaitLeader(t, nodes, 2*time.Second)
	require.NotNil(t, leader)

	time.Sleep(50 * time.Millisecond)
	leaderCount := 0
	for _, n := range nodes {
		if n.engine.IsLeader() {
			leaderCount++
		}
	}
	require.Equal(t, 1, leaderCount, "election safety: at most one leader per term")
}

// TestClientCommandReplicatesAndApplies drives a SET through the
// leader and confirms every follower's state machine converges.
func TestClientCommandReplicatesAndApplies(t *testing.T) {
	nodes := newTestCluster(t, 3)
	leader := awaitLeader(t, nodes, 2*time.Second)

	reply, err := leader.engine.SubmitClientCommand("SET x 100")
	require.NoError(t, err)
	require.Equal(t, "Ok", reply)

	require.Eventually(t, func() bool {
		for _, n := range nodes {
			v, ok := n.kv.Get("x")
			if !ok || v != "100" {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "all replicas should converge on the committed value")
}

// TestNonLeaderRefusesClientCommand covers the Open Question decision:
// a non-leader refuses immediately instead of queuing the request.
func TestNonLeaderRefusesClientCommand(t *testing.T) {
	nodes := newTestCluster(t, 3)
	leader := awaitLeader(t, nodes, 2*time.Second)

	var follower *testNode
	for _, n := range nodes {
		if n != leader {
			follower = n
			break
		}
	}
	require.NotNil(t, follower)

	_, err := follower.engine.SubmitClientCommand("GET x")
	require.ErrorIs(t, err, ErrNotLeader)
}

// TestLeaderElectionAfterPartition covers scenario S6: killing the
// leader's ability to heartbeat results in a new leader within the
// follower's election timeout.
func TestLeaderElectionAfterPartition(t *testing.T) {
	nodes := newTestCluster(t, 3)
	first := awaitLeader(t, nodes, 2*time.Second)

	first.engine.Stop()

	deadline := time.Now().Add(3 * time.Second)
	var second *testNode
	for time.Now().Before(deadline) {
		for _, n := range nodes {
			if n == first {
				continue
			}
			if n.engine.IsLeader() {
				second = n
				break
			}
		}
		if second != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, second, "a new leader should emerge once the old one goes silent")
	require.NotEqual(t, first.id, second.id)
}
