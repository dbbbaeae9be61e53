package raft

import (
	"sync"

	"kvraft/internal/message"
)

// handleVoteRequest implements the follower's vote-grant policy
// (spec.md §4.4): deny a stale term, deny a second vote in the same
// term, otherwise grant only if the candidate's last-log term is at
// least this peer's current_term (not this peer's log's last term,
// which can lag current_term after a failed candidacy) — higher wins
// outright, a tie goes to the longer log (original_source/raft.py's
// grant_vote: compares candidate_last_log_term against server.current_term
// throughout, never against the log's own last term).
func (e *Engine) handleVoteRequest(msg message.Message) {
	req := msg.VoteRequest
	term := e.state.currentTerm

	if req.CandidateTerm < term {
		e.replyVote(msg, false)
		e.log.LogVoteDenied(msg.Source, req.CandidateTerm, "stale term")
		return
	}

	if existing, voted := e.state.votedForIn(term); voted && existing != msg.Source {
		e.replyVote(msg, false)
		e.log.LogVoteDenied(msg.Source, term, "already voted this term")
		return
	}

	upToDate := req.CandidateLastLogTerm > term ||
		(req.CandidateLastLogTerm == term && req.CandidateLogLen >= e.state.log.Len())

	if !upToDate {
		e.replyVote(msg, false)
		e.log.LogVoteDenied(msg.Source, term, "log not up to date")
		return
	}

	e.state.grantedVote(term, msg.Source)
	e.replyVote(msg, true)
	e.log.LogVoteGranted(msg.Source, term)
}

func (e *Engine) replyVote(req message.Message, granted bool) {
	resp := message.Message{
		UUID:        message.NewUUID(),
		Source:      e.id,
		Destination: req.Source,
		RefUUID:     message.RefTo(req.UUID),
		Kind:        message.KindVoteResponse,
		VoteResponse: &message.VoteResponsePayload{
			VoteGranted: granted,
			PeerTerm:    e.state.currentTerm,
		},
	}
	e.mesh.Send(resp)
}

// startElection transitions to Candidate for a fresh term, votes for
// itself, and spawns a background campaign to solicit the rest of the
// cluster concurrently (spec.md §9 Re-architected Patterns: one
// goroutine per outstanding vote request rather than a serial loop).
func (e *Engine) startElection() {
	term := e.state.currentTerm + 1
	oldRole := e.state.role
	e.state.currentTerm = term
	e.setRole(Candidate)
	e.state.grantedVote(term, e.id)
	e.log.LogStateChange(oldRole, Candidate, term)
	e.log.LogElectionStart(term)

	lastIndex := e.state.log.LastIndex()
	lastTerm := e.state.log.LastTerm()
	peers := make([]message.ServerId, 0, len(e.state.peers))
	for id := range e.state.peers {
		peers = append(peers, id)
	}

	go e.runElectionCampaign(term, lastIndex, lastTerm, peers)
}

// runElectionCampaign fans a VoteRequest out to every peer concurrently
// and tallies the result. It touches no shared engine state directly;
// the outcome is reported back to the dispatcher as an internal
// ElectionWon/ElectionLost message, preserving single-writer discipline.
func (e *Engine) runElectionCampaign(term message.Term, lastIndex int, lastTerm message.Term, peers []message.ServerId) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	granted := 1 // counts its own vote

	for _, peer := range peers {
		wg.Add(1)
		go func(peer message.ServerId) {
			defer wg.Done()
			req := message.Message{
				UUID:        message.NewUUID(),
				Source:      e.id,
				Destination: peer,
				Kind:        message.KindVoteRequest,
				VoteRequest: &message.VoteRequestPayload{
					CandidateTerm:         term,
					CandidateLastLogIndex: lastIndex,
					CandidateLastLogTerm:  lastTerm,
					CandidateLogLen:       lastIndex + 1,
				},
			}
			resp, ok := e.sendAndAwait(req, e.cfg.AwaitResponseTimeout)
			if !ok || resp.VoteResponse == nil || !resp.VoteResponse.VoteGranted {
				return
			}
			mu.Lock()
			granted++
			mu.Unlock()
		}(peer)
	}
	wg.Wait()

	outcomeKind := message.KindElectionLost
	if granted >= e.topology.Quorum() {
		outcomeKind = message.KindElectionWon
	}
	e.mesh.EnqueueLocal(message.Message{
		UUID:            message.NewUUID(),
		Source:          e.id,
		Destination:     e.id,
		Kind:            outcomeKind,
		ElectionOutcome: &message.ElectionOutcomePayload{Term: term, Granted: granted},
	})
}

func (e *Engine) onElectionWon(msg message.Message) {
	outcome := msg.ElectionOutcome
	if e.state.role != Candidate || outcome.Term != e.state.currentTerm {
		return // stale: we've since moved on to a new term or role
	}
	e.log.LogElectionWon(outcome.Term, outcome.Granted, e.topology.Quorum())
	e.becomeLeader()
}

func (e *Engine) onElectionLost(msg message.Message) {
	outcome := msg.ElectionOutcome
	if e.state.role != Candidate || outcome.Term != e.state.currentTerm {
		return
	}
	e.log.LogElectionLost(outcome.Term, outcome.Granted, e.topology.Quorum())
	// Revert to Follower, keeping the incremented term; the
	// election-timeout checker will eventually fire again and start a
	// fresh term.
	e.setRole(Follower)
	e.log.LogStateChange(Candidate, Follower, e.state.currentTerm)
}

// becomeLeader reinitializes per-follower indices, appends the
// leader-marker NO_OP entry (spec.md's supplemented feature: a freshly
// elected leader commits a no-op so its own term has an entry to
// anchor the commit-index safety rule), and kicks off replication
// immediately rather than waiting for the next heartbeat tick.
func (e *Engine) becomeLeader() {
	oldRole := e.state.role
	e.setRole(Leader)
	e.state.resetPeerIndices()
	e.log.LogStateChange(oldRole, Leader, e.state.currentTerm)

	e.state.log.Append(noOpEntry(e.id, e.state.currentTerm))

	if id, known := e.BelievedLeader(); !known || id != e.id {
		e.believedLeader.Store(int32(e.id))
	}

	e.onHeartbeatTick()
}
