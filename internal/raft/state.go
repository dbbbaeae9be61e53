// Package raft implements the consensus engine: leader election, log
// replication with conflict repair, commit index advancement, and the
// dispatcher/timer plumbing that binds them (spec.md §2 components 4-9).
package raft

import (
	"fmt"

	"kvraft/internal/consensuslog"
	"kvraft/internal/message"
)

// Role is one of {Follower, Candidate, Leader}. Initial: Follower.
// Re-architected as a typed enum switched on by the dispatcher
// alongside message Kind, rather than scattered `if role == LEADER`
// checks (spec.md §9).
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// peerState is the leader-only bookkeeping for one follower.
type peerState struct {
	nextIndex  int
	matchIndex int
	caughtUp   bool // response_array entry for the current heartbeat tick
}

// serverState holds everything spec.md §5 says only the dispatcher
// goroutine may mutate: current_term, role, log, commit_index,
// voted_for, next/match indices. It carries no lock of its own because
// by construction only the dispatch loop (internal/raft/engine.go's
// runDispatcher method) ever touches it.
type serverState struct {
	id   message.ServerId
	log  *consensuslog.Log
	role Role

	currentTerm message.Term
	votedFor    map[message.Term]message.ServerId // at most one vote per term

	lastApplied int

	peers map[message.ServerId]*peerState
}

func newServerState(id message.ServerId, peerIDs []message.ServerId) *serverState {
	s := &serverState{
		id:          id,
		log:         consensuslog.New(),
		role:        Follower,
		currentTerm: 0,
		votedFor:    make(map[message.Term]message.ServerId),
		lastApplied: -1,
		peers:       make(map[message.ServerId]*peerState, len(peerIDs)),
	}
	for _, p := range peerIDs {
		s.peers[p] = &peerState{}
	}
	return s
}

// resetPeerIndices reinitializes next/match index for every peer on
// becoming leader, per spec.md §4.4: next_index[p] = len(log),
// match_index[p] = -1.
func (s *serverState) resetPeerIndices() {
	for _, p := range s.peers {
		p.nextIndex = s.log.Len()
		p.matchIndex = -1
		p.caughtUp = false
	}
}

// grantedVote records that this peer voted for candidate in term.
func (s *serverState) grantedVote(term message.Term, candidate message.ServerId) {
	s.votedFor[term] = candidate
}

// votedForIn returns who this peer voted for in term, if anyone.
func (s *serverState) votedForIn(term message.Term) (message.ServerId, bool) {
	id, ok := s.votedFor[term]
	return id, ok
}

// debugState renders a one-line diagnostic dump of everything spec.md
// §5 says only the dispatch goroutine may touch, plus the believed
// leader passed in by the caller (tracked separately, via an atomic,
// since it's read from other goroutines too). Ported from
// original_source/raft.py's RaftServer.index_state(); callers must be
// on the dispatch goroutine, since it reads serverState directly.
func (s *serverState) debugState(leader message.ServerId, leaderKnown bool) string {
	leaderStr := "unknown"
	if leaderKnown {
		leaderStr = fmt.Sprintf("%d", leader)
	}
	return fmt.Sprintf("%d-%s | leader=%s | curr_term=%d | commitIndex=%d | lastAppliedIndex=%d",
		s.id, s.role, leaderStr, s.currentTerm, s.log.CommitIndex(), s.lastApplied)
}

// quorumMatchIndex computes the sorted-match-index commit rule
// (spec.md §4.5 / S5): sort match_index (including self = last log
// index) ascending and take the element at floor(N/2).
func quorumMatchIndex(selfLastIndex int, peers map[message.ServerId]*peerState) int {
	vals := make([]int, 0, len(peers)+1)
	vals = append(vals, selfLastIndex)
	for _, p := range peers {
		vals = append(vals, p.matchIndex)
	}
	insertionSort(vals)
	return vals[len(vals)/2]
}

func insertionSort(vals []int) {
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		j := i - 1
		for j >= 0 && vals[j] > v {
			vals[j+1] = vals[j]
			j--
		}
		vals[j+1] = v
	}
}
