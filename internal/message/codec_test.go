package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := NewUUID()
	ref := NewUUID()

	msg := Message{
		UUID:        id,
		Source:      0,
		Destination: 1,
		RefUUID:     RefTo(ref),
		Kind:        KindAppendEntriesRequest,
		AppendEntriesRequest: &AppendEntriesRequestPayload{
			LeaderTerm:   3,
			LeaderID:     0,
			PrevLogIndex: 1,
			PrevLogTerm:  2,
			Entries: []LogEntry{
				{Term: 3, Command: "SET x 1", InsertedBy: 0},
			},
			LeaderCommitIndex: 0,
		},
	}

	encoded, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, msg.UUID, decoded.UUID)
	require.Equal(t, msg.Source, decoded.Source)
	require.Equal(t, msg.Destination, decoded.Destination)
	require.NotNil(t, decoded.RefUUID)
	require.Equal(t, *msg.RefUUID, *decoded.RefUUID)
	require.Equal(t, KindAppendEntriesRequest, decoded.Kind)
	require.Nil(t, decoded.VoteRequest)
	require.Equal(t, msg.AppendEntriesRequest.LeaderTerm, decoded.AppendEntriesRequest.LeaderTerm)
	require.Len(t, decoded.AppendEntriesRequest.Entries, 1)
	require.Equal(t, "SET x 1", decoded.AppendEntriesRequest.Entries[0].Command)
}

func TestEncodeDecodeNoRefUUID(t *testing.T) {
	msg := Message{
		UUID:        NewUUID(),
		Source:      1,
		Destination: 0,
		Kind:        KindHeartBeatTick,
	}

	encoded, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Nil(t, decoded.RefUUID)
}
