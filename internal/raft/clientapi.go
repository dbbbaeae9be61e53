package raft

import (
	"fmt"
	"time"

	"kvraft/internal/consensuslog"
	"kvraft/internal/message"
)

// submitTimeout bounds how long SubmitClientCommand waits for a
// submitted command to either be refused or applied. Generous relative
// to AwaitResponseTimeout since it spans an entire replication round,
// not one hop.
const submitTimeout = 5 * time.Second

// SubmitClientCommand is the client front-end's entry point into the
// engine: it enqueues a ClientAppendRequest onto the same incoming
// queue the dispatcher already drains (so no second mutation path into
// serverState exists) and blocks for the correlated reply.
func (e *Engine) SubmitClientCommand(command string) (string, error) {
	reqID := message.NewUUID()
	ch := e.waiters.register(reqID)
	e.mesh.EnqueueLocal(message.Message{
		UUID:                reqID,
		Source:              e.id,
		Destination:         e.id,
		Kind:                message.KindClientAppendRequest,
		ClientAppendRequest: &message.ClientAppendRequestPayload{Command: command},
	})

	select {
	case resp := <-ch:
		payload := resp.ClientAppendResponse
		if payload.Err != "" {
			return "", fmt.Errorf("%w: %s", ErrNotLeader, payload.Err)
		}
		return payload.Result, nil
	case <-time.After(submitTimeout):
		e.waiters.forget(reqID)
		return "", ErrApplyTimeout
	case <-e.shutdown:
		e.waiters.forget(reqID)
		return "", ErrApplyTimeout
	}
}

// handleClientAppendRequest is the dispatcher-side half of
// SubmitClientCommand: a non-leader refuses immediately rather than
// queuing the request until an election resolves (spec.md §9 Open
// Questions decision); a leader appends the command to its own log and
// defers the reply until applyCommitted resolves this index.
func (e *Engine) handleClientAppendRequest(msg message.Message) {
	if e.state.role != Leader {
		hint := ""
		if leader, ok := e.BelievedLeader(); ok {
			hint = fmt.Sprintf(" (believed leader: %d)", leader)
		}
		e.waiters.deliver(message.Message{
			UUID:    message.NewUUID(),
			RefUUID: message.RefTo(msg.UUID),
			Kind:    message.KindClientAppendResponse,
			ClientAppendResponse: &message.ClientAppendResponsePayload{
				Err: "not leader" + hint,
			},
		})
		return
	}

	idx := e.state.log.Append(consensuslog.Entry{
		Term:       e.state.currentTerm,
		Command:    msg.ClientAppendRequest.Command,
		InsertedBy: e.id,
	})
	e.pendingApply[idx] = msg
	e.onHeartbeatTick()
}
