package raft

import "kvraft/internal/message"

// dispatch is the only place incoming messages are routed, and the
// only code path that runs on the dispatcher goroutine alongside it.
// Two concerns are layered: first, any message carrying a term higher
// than current_term forces an unconditional step-down to Follower
// (spec.md §7 "stale term observed ... before acting further"); only
// then does the (Kind, role) routing table from spec.md §4.2 apply.
func (e *Engine) dispatch(msg message.Message) {
	e.maybeStepDownOnHigherTerm(msg)

	switch msg.Kind {
	case message.KindVoteRequest:
		if e.state.role == Follower {
			e.handleVoteRequest(msg)
		}

	case message.KindVoteResponse:
		if e.state.role == Candidate {
			e.waiters.deliver(msg)
		}

	case message.KindAppendEntriesRequest:
		if e.state.role == Follower || e.state.role == Candidate {
			e.handleAppendEntriesRequest(msg)
		}

	case message.KindAppendEntriesResponse:
		if e.state.role == Leader {
			e.waiters.deliver(msg)
		}

	case message.KindClientAppendRequest:
		e.handleClientAppendRequest(msg)

	case message.KindHeartBeatTick:
		if e.state.role == Leader {
			e.onHeartbeatTick()
		}

	case message.KindElectionTimeout:
		if e.state.role != Leader {
			e.startElection()
		}

	case message.KindElectionWon:
		e.onElectionWon(msg)

	case message.KindElectionLost:
		e.onElectionLost(msg)

	case message.KindReplicationResult:
		e.onReplicationResult(msg)
	}

	e.log.Debug().Str("state", e.DebugState()).Msg("dispatch")
}

// observedTerm extracts the sender's term from whichever payload msg
// carries, if any.
func (e *Engine) observedTerm(msg message.Message) (message.Term, bool) {
	switch msg.Kind {
	case message.KindVoteRequest:
		return msg.VoteRequest.CandidateTerm, true
	case message.KindVoteResponse:
		return msg.VoteResponse.PeerTerm, true
	case message.KindAppendEntriesRequest:
		return msg.AppendEntriesRequest.LeaderTerm, true
	case message.KindAppendEntriesResponse:
		return msg.AppendEntriesResponse.FollowerTerm, true
	case message.KindReplicationResult:
		if msg.ReplicationResult.HigherTerm {
			return msg.ReplicationResult.FollowerTerm, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (e *Engine) maybeStepDownOnHigherTerm(msg message.Message) {
	term, ok := e.observedTerm(msg)
	if !ok || term <= e.state.currentTerm {
		return
	}
	e.stepDown(term)
}

// stepDown unconditionally adopts term and reverts to Follower. Called
// whenever any message reveals a term higher than current_term,
// regardless of current role (spec.md Open Question: "leader step-down
// is mandatory, never optional").
func (e *Engine) stepDown(term message.Term) {
	old := e.state.currentTerm
	wasRole := e.state.role
	e.state.currentTerm = term
	e.setRole(Follower)
	if wasRole != Follower {
		e.log.LogStepDown(old, term)
		e.log.LogStateChange(wasRole, Follower, term)
	}
}
