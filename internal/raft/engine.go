package raft

import (
	"sync"
	"sync/atomic"
	"time"

	"kvraft/cluster"
	"kvraft/internal/message"
	"kvraft/internal/statemachine"
	"kvraft/internal/transport"
)

// Engine is one peer's consensus node: the single-writer raft state,
// the transport mesh, the correlation table, and the background
// activities (dispatcher, timers) spec.md §5 describes.
type Engine struct {
	id       message.ServerId
	topology *cluster.Topology
	cfg      Config
	log      Logger

	mesh    *transport.Mesh
	waiters *waiterTable
	adapter *statemachine.Adapter

	state *serverState // mutated only on the dispatch goroutine

	roleSnap          atomic.Int32 // mirrors state.role for cross-goroutine reads
	lastLeaderContact atomic.Int64 // unix nano, written by the mesh's reader callback
	believedLeader    atomic.Int32 // -1 == unknown

	// pendingApply maps a not-yet-applied log index to the
	// ClientAppendRequest message awaiting its result. Only touched on the
	// dispatch goroutine (registered when appending, resolved when
	// applying), so it needs no lock of its own.
	pendingApply map[int]message.Message

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New constructs an Engine for id within topology. The mesh must
// already be constructed with transport.New's onAppendEntriesObserved
// wired back to this engine's ObserveLeaderContact (cmd/peer does this
// through an atomic.Pointer that it fills once New returns).
func New(id message.ServerId, topology *cluster.Topology, mesh *transport.Mesh, adapter *statemachine.Adapter, cfg Config, log Logger) *Engine {
	e := &Engine{
		id:           id,
		topology:     topology,
		cfg:          cfg,
		log:          log,
		mesh:         mesh,
		waiters:      newWaiterTable(),
		adapter:      adapter,
		state:        newServerState(id, topology.Peers(id)),
		pendingApply: make(map[int]message.Message),
		shutdown:     make(chan struct{}),
	}
	e.believedLeader.Store(-1)
	e.lastLeaderContact.Store(time.Now().UnixNano())
	return e
}

// ObserveLeaderContact is called by the transport mesh's inbound
// reader the instant it decodes an AppendEntriesRequest frame, so the
// election-timeout checker sees fresh contact even if the dispatcher
// is backlogged (spec.md §5).
func (e *Engine) ObserveLeaderContact() {
	e.lastLeaderContact.Store(time.Now().UnixNano())
}

// Start launches the dispatcher and timer goroutines.
func (e *Engine) Start() {
	e.wg.Add(3)
	go e.runDispatcher()
	go e.runElectionChecker()
	go e.runHeartbeatTicker()
}

// Stop signals every background goroutine to exit and waits for them.
// Calling it again after it has returned is a no-op.
func (e *Engine) Stop() {
	select {
	case <-e.shutdown:
	default:
		close(e.shutdown)
	}
	e.wg.Wait()
}

func (e *Engine) currentRole() Role {
	return Role(e.roleSnap.Load())
}

func (e *Engine) setRole(r Role) {
	e.state.role = r
	e.roleSnap.Store(int32(r))
}

// BelievedLeader returns the ServerId this node currently believes is
// leader, or (-1, false) if unknown. Used by the client front-end to
// produce a redirect hint on refusal.
func (e *Engine) BelievedLeader() (message.ServerId, bool) {
	v := e.believedLeader.Load()
	if v < 0 {
		return 0, false
	}
	return message.ServerId(v), true
}

// IsLeader reports whether this node currently believes itself leader.
func (e *Engine) IsLeader() bool {
	return e.currentRole() == Leader
}

// DebugState returns a one-line diagnostic dump of this node's raft
// state (id, role, believed leader, current_term, commit_index,
// last_applied) for logging and tests, mirroring
// original_source/raft.py's RaftServer.index_state(). Must be called
// from the dispatch goroutine; calling it elsewhere races with the
// fields it reads off serverState.
func (e *Engine) DebugState() string {
	leader, known := e.BelievedLeader()
	return e.state.debugState(leader, known)
}

// runDispatcher is the single consumer of the incoming queue: the only
// goroutine that ever mutates current_term, role, log, commit_index,
// voted_for, or next/match indices (spec.md §5).
func (e *Engine) runDispatcher() {
	defer e.wg.Done()
	for {
		select {
		case msg := <-e.mesh.Incoming():
			e.dispatch(msg)
		case <-e.shutdown:
			return
		}
	}
}

// sendAndAwait sends req (whose UUID has already been set) and blocks
// until a correlated reply arrives or timeout elapses.
func (e *Engine) sendAndAwait(req message.Message, timeout time.Duration) (message.Message, bool) {
	ch := e.waiters.register(req.UUID)
	e.mesh.Send(req)
	select {
	case resp := <-ch:
		return resp, true
	case <-time.After(timeout):
		e.waiters.forget(req.UUID)
		return message.Message{}, false
	case <-e.shutdown:
		e.waiters.forget(req.UUID)
		return message.Message{}, false
	}
}
