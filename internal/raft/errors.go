package raft

import "errors"

// ErrNotLeader is returned by SubmitClientCommand when this node does
// not believe itself to be leader. Per design decision (spec.md §9
// Open Questions), a non-leader refuses immediately rather than
// queuing the request until an election resolves.
var ErrNotLeader = errors.New("raft: not leader")

// ErrApplyTimeout is returned when a submitted command is appended but
// not committed and applied before the caller's patience runs out
// (e.g. the cluster lost quorum).
var ErrApplyTimeout = errors.New("raft: timed out waiting for command to apply")
