// Package message defines the wire-level vocabulary exchanged between
// peers (and, internally, between a node's own timers and its dispatcher):
// a tagged envelope carrying one of a fixed set of Raft protocol payloads.
package message

import "github.com/google/uuid"

// ServerId identifies a peer within the fixed cluster, 0..N-1.
type ServerId int

// Term is a monotonically non-decreasing election epoch.
type Term uint64

// Kind discriminates the payload carried by a Message. Replaces the
// reference implementation's inheritance hierarchy of message classes
// with a single tagged struct, so the dispatcher can exhaustively
// switch on (Kind, role) instead of type-asserting.
type Kind int

const (
	KindVoteRequest Kind = iota
	KindVoteResponse
	KindAppendEntriesRequest
	KindAppendEntriesResponse
	KindHeartBeatTick
	KindClientAppendRequest
	KindClientAppendResponse

	// Internal-only kinds. Never sent over the wire; used to shuttle
	// results from concurrent helper goroutines (vote fan-out,
	// per-follower replication) back onto the single dispatcher
	// goroutine so that raft state is only ever mutated there.
	KindElectionTimeout
	KindElectionWon
	KindElectionLost
	KindReplicationResult
)

func (k Kind) String() string {
	switch k {
	case KindVoteRequest:
		return "VoteRequest"
	case KindVoteResponse:
		return "VoteResponse"
	case KindAppendEntriesRequest:
		return "AppendEntriesRequest"
	case KindAppendEntriesResponse:
		return "AppendEntriesResponse"
	case KindHeartBeatTick:
		return "HeartBeatTick"
	case KindClientAppendRequest:
		return "ClientAppendRequest"
	case KindClientAppendResponse:
		return "ClientAppendResponse"
	case KindElectionTimeout:
		return "ElectionTimeout(internal)"
	case KindElectionWon:
		return "ElectionWon(internal)"
	case KindElectionLost:
		return "ElectionLost(internal)"
	case KindReplicationResult:
		return "ReplicationResult(internal)"
	default:
		return "Unknown"
	}
}

// LogEntry mirrors consensuslog.Entry without importing it, so the
// wire format doesn't couple to the log package's internal representation.
type LogEntry struct {
	Term       Term
	Command    string
	InsertedBy ServerId
}

// Message is the common envelope plus every possible payload. Only the
// field matching Kind is populated; gob happily round-trips nil pointers.
type Message struct {
	UUID        uuid.UUID
	Source      ServerId
	Destination ServerId
	RefUUID     *uuid.UUID // correlates a response to its request

	Kind Kind

	VoteRequest           *VoteRequestPayload
	VoteResponse          *VoteResponsePayload
	AppendEntriesRequest  *AppendEntriesRequestPayload
	AppendEntriesResponse *AppendEntriesResponsePayload
	ClientAppendRequest   *ClientAppendRequestPayload
	ClientAppendResponse  *ClientAppendResponsePayload
	ReplicationResult     *ReplicationResultPayload
	ElectionOutcome       *ElectionOutcomePayload
}

type VoteRequestPayload struct {
	CandidateTerm         Term
	CandidateLastLogIndex int
	CandidateLastLogTerm  Term
	CandidateLogLen       int
}

type VoteResponsePayload struct {
	VoteGranted bool
	PeerTerm    Term
}

type AppendEntriesRequestPayload struct {
	LeaderTerm        Term
	LeaderID          ServerId
	PrevLogIndex      int
	PrevLogTerm       Term
	Entries           []LogEntry
	LeaderCommitIndex int
}

type AppendEntriesResponsePayload struct {
	FollowerTerm Term
	Success      bool
	MatchIndex   int
}

type ClientAppendRequestPayload struct {
	Command string
}

type ClientAppendResponsePayload struct {
	Result string
	Err    string
}

// ReplicationResultPayload is how a per-follower replication goroutine
// reports back to the dispatcher after its follower replies: success,
// a log-consistency rejection, or a higher term.
type ReplicationResultPayload struct {
	Peer         ServerId
	Success      bool
	MatchIndex   int
	FollowerTerm Term
	HigherTerm   bool
}

// ElectionOutcomePayload reports a finished vote-solicitation campaign
// back to the dispatcher.
type ElectionOutcomePayload struct {
	Term    Term
	Granted int
}

// NewUUID generates a fresh message identifier.
func NewUUID() uuid.UUID {
	return uuid.New()
}

// RefTo builds a *uuid.UUID correlation pointer for a response.
func RefTo(id uuid.UUID) *uuid.UUID {
	return &id
}
