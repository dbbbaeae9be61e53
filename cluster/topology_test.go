package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
	"kvraft/internal/message"
)

func TestDefaultLocalTopologyHasFivePeers(t *testing.T) {
	top := DefaultLocalTopology()
	require.Equal(t, 5, top.N())
	require.Equal(t, 3, top.Quorum())
}

func TestPeersExcludesSelf(t *testing.T) {
	top := DefaultLocalTopology()
	peers := top.Peers(message.ServerId(0))
	require.Len(t, peers, 4)
	for _, p := range peers {
		require.NotEqual(t, message.ServerId(0), p)
	}
}

func TestPeerAndClientAddressesDiffer(t *testing.T) {
	top := DefaultLocalTopology()
	peerAddr, ok := top.PeerAddress(2)
	require.True(t, ok)
	clientAddr, ok := top.ClientAddress(2)
	require.True(t, ok)
	require.NotEqual(t, peerAddr, clientAddr)
}

func TestValidRejectsUnknownID(t *testing.T) {
	top := DefaultLocalTopology()
	require.True(t, top.Valid(4))
	require.False(t, top.Valid(5))
	require.False(t, top.Valid(-1))
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New([]string{"a"}, []string{"a", "b"})
	require.Error(t, err)
}
