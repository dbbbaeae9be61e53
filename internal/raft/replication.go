package raft

import (
	"kvraft/internal/consensuslog"
	"kvraft/internal/message"
)

// noOpEntry builds the marker entry a freshly elected leader commits
// before serving client traffic, so its own term owns at least one
// entry for the commit-index safety check to anchor on.
func noOpEntry(self message.ServerId, term message.Term) consensuslog.Entry {
	return consensuslog.Entry{Term: term, Command: "NO_OP", InsertedBy: self}
}

func toWireEntries(entries []consensuslog.Entry) []message.LogEntry {
	out := make([]message.LogEntry, len(entries))
	for i, e := range entries {
		out[i] = message.LogEntry{Term: e.Term, Command: e.Command, InsertedBy: e.InsertedBy}
	}
	return out
}

func fromWireEntries(entries []message.LogEntry) []consensuslog.Entry {
	out := make([]consensuslog.Entry, len(entries))
	for i, e := range entries {
		out[i] = consensuslog.Entry{Term: e.Term, Command: e.Command, InsertedBy: e.InsertedBy}
	}
	return out
}

// onHeartbeatTick fans a replication round out to every follower
// concurrently, one goroutine each (spec.md §9 Re-architected
// Patterns), rather than serializing per-follower RPCs behind a single
// heartbeat tick.
func (e *Engine) onHeartbeatTick() {
	term := e.state.currentTerm
	commitIndex := e.state.log.CommitIndex()
	e.log.LogHeartbeatSent(term, len(e.state.peers))

	for peer, ps := range e.state.peers {
		prevIndex := ps.nextIndex - 1
		prevTerm := e.state.log.TermAt(prevIndex)
		entries := toWireEntries(e.state.log.Slice(ps.nextIndex))
		go e.replicateToPeer(peer, term, prevIndex, prevTerm, entries, commitIndex)
	}
}

// replicateToPeer sends one AppendEntries round trip to peer and
// reports the outcome back to the dispatcher as an internal
// ReplicationResult message; it never touches serverState directly.
// A round with no reply within the timeout reports nothing, leaving
// next_index as it is for the next tick.
func (e *Engine) replicateToPeer(peer message.ServerId, term message.Term, prevIndex int, prevTerm message.Term, entries []message.LogEntry, leaderCommit int) {
	req := message.Message{
		UUID:        message.NewUUID(),
		Source:      e.id,
		Destination: peer,
		Kind:        message.KindAppendEntriesRequest,
		AppendEntriesRequest: &message.AppendEntriesRequestPayload{
			LeaderTerm:        term,
			LeaderID:          e.id,
			PrevLogIndex:      prevIndex,
			PrevLogTerm:       prevTerm,
			Entries:           entries,
			LeaderCommitIndex: leaderCommit,
		},
	}
	resp, ok := e.sendAndAwait(req, e.cfg.AwaitResponseTimeout)
	if !ok || resp.AppendEntriesResponse == nil {
		return
	}
	result := message.ReplicationResultPayload{Peer: peer}
	ar := resp.AppendEntriesResponse
	result.FollowerTerm = ar.FollowerTerm
	if ar.FollowerTerm > term {
		result.HigherTerm = true
	}
	result.Success = ar.Success
	result.MatchIndex = ar.MatchIndex
	e.mesh.EnqueueLocal(message.Message{
		UUID:              message.NewUUID(),
		Source:            e.id,
		Destination:       e.id,
		Kind:              message.KindReplicationResult,
		ReplicationResult: &result,
	})
}

// onReplicationResult folds one follower's AppendEntries outcome back
// into leader state: advance next/match index on success, or backtrack
// next_index by one on a log-consistency conflict so the next tick
// retries one entry earlier (spec.md §4.5's backtracking repair loop).
func (e *Engine) onReplicationResult(msg message.Message) {
	if e.state.role != Leader {
		return // stale: no longer leader (a higher term already forced step-down)
	}
	result := msg.ReplicationResult
	ps, ok := e.state.peers[result.Peer]
	if !ok {
		return
	}

	if result.Success {
		if result.MatchIndex > ps.matchIndex {
			ps.matchIndex = result.MatchIndex
		}
		ps.nextIndex = result.MatchIndex + 1
		ps.caughtUp = true
		e.maybeAdvanceCommit()
		return
	}

	if ps.nextIndex > 0 {
		ps.nextIndex--
	}
	ps.caughtUp = false
}

// maybeAdvanceCommit applies the sorted-match-index majority rule
// (spec.md §4.5 / S5) and, per the Raft commit-safety rule, only
// commits directly via that rule when the candidate index belongs to
// the leader's own current term.
func (e *Engine) maybeAdvanceCommit() {
	candidate := quorumMatchIndex(e.state.log.LastIndex(), e.state.peers)
	if candidate <= e.state.log.CommitIndex() {
		return
	}
	if e.state.log.TermAt(candidate) != e.state.currentTerm {
		return
	}
	if e.state.log.AdvanceCommitIndex(candidate) {
		e.log.LogCommit(candidate, e.state.currentTerm)
		e.applyCommitted()
	}
}

// handleAppendEntriesRequest is the follower/candidate side of
// replication (spec.md §4.5): reject a stale leader, otherwise
// recognize it (stepping down from Candidate if necessary), check the
// Log Matching Property at prev_index/prev_term, repair the suffix on
// divergence, and report the true last log index back rather than a
// sentinel (per the Open Question decision recorded in SPEC_FULL.md).
func (e *Engine) handleAppendEntriesRequest(msg message.Message) {
	req := msg.AppendEntriesRequest

	if req.LeaderTerm < e.state.currentTerm {
		e.replyAppendEntries(msg, false, e.state.log.LastIndex())
		return
	}

	if e.state.role == Candidate {
		e.setRole(Follower)
		e.log.LogStateChange(Candidate, Follower, e.state.currentTerm)
	}
	e.believedLeader.Store(int32(req.LeaderID))
	e.log.LogHeartbeatReceived(req.LeaderID, req.LeaderTerm)
	if len(req.Entries) > 0 {
		e.log.LogAppendEntries(req.LeaderID, req.LeaderTerm, req.PrevLogIndex, len(req.Entries))
	}

	if req.PrevLogIndex >= 0 {
		if req.PrevLogIndex >= e.state.log.Len() || !e.state.log.MatchesAt(req.PrevLogIndex, req.PrevLogTerm) {
			e.replyAppendEntries(msg, false, e.state.log.LastIndex())
			return
		}
	}

	if len(req.Entries) > 0 {
		e.state.log.ReplaceSuffix(req.PrevLogIndex+1, fromWireEntries(req.Entries))
	}

	if req.LeaderCommitIndex > e.state.log.CommitIndex() {
		newCommit := req.LeaderCommitIndex
		if newCommit > e.state.log.LastIndex() {
			newCommit = e.state.log.LastIndex()
		}
		if e.state.log.AdvanceCommitIndex(newCommit) {
			e.applyCommitted()
		}
	}

	e.replyAppendEntries(msg, true, e.state.log.LastIndex())
}

func (e *Engine) replyAppendEntries(req message.Message, success bool, matchIndex int) {
	resp := message.Message{
		UUID:        message.NewUUID(),
		Source:      e.id,
		Destination: req.Source,
		RefUUID:     message.RefTo(req.UUID),
		Kind:        message.KindAppendEntriesResponse,
		AppendEntriesResponse: &message.AppendEntriesResponsePayload{
			FollowerTerm: e.state.currentTerm,
			Success:      success,
			MatchIndex:   matchIndex,
		},
	}
	e.mesh.Send(resp)
}

// applyCommitted runs every not-yet-applied, now-committed entry
// through the state machine adapter in strict log order (State-Machine
// Safety, spec.md §8), resolving any client waiter registered for that
// index.
func (e *Engine) applyCommitted() {
	for idx := e.state.lastApplied + 1; idx <= e.state.log.CommitIndex(); idx++ {
		entry := e.state.log.At(idx)
		result := e.adapter.Apply(entry.Command)
		e.log.LogApply(idx, entry.Command)
		e.state.lastApplied = idx

		if reqMsg, ok := e.pendingApply[idx]; ok {
			delete(e.pendingApply, idx)
			e.waiters.deliver(message.Message{
				UUID:    message.NewUUID(),
				RefUUID: message.RefTo(reqMsg.UUID),
				Kind:    message.KindClientAppendResponse,
				ClientAppendResponse: &message.ClientAppendResponsePayload{
					Result: result,
				},
			})
		}
	}
}
