// Package consensuslog holds the replicated command log: an ordered
// sequence of entries plus a commit index, indexed from 0. It is held
// entirely in memory for the life of the process (spec.md Non-goals
// excludes persistent disk storage of the log or term).
package consensuslog

import "kvraft/internal/message"

// Entry is a single command in the replicated log. InsertedBy is
// diagnostic only; consensus never inspects it.
type Entry struct {
	Term       message.Term
	Command    string
	InsertedBy message.ServerId
}

// Log is an ordered, append-friendly sequence of Entry plus a commit
// index. Not safe for concurrent use: the dispatcher is its only
// writer (see internal/raft), per the single-writer discipline spec.md
// §5 requires for current_term, role, log, commit_index, voted_for,
// next/match indices.
type Log struct {
	entries     []Entry
	commitIndex int // -1 means nothing committed yet
}

// New returns an empty log with commit_index = -1.
func New() *Log {
	return &Log{commitIndex: -1}
}

// Len returns the number of entries currently held.
func (l *Log) Len() int {
	return len(l.entries)
}

// LastIndex returns len(log)-1, or -1 for an empty log.
func (l *Log) LastIndex() int {
	return len(l.entries) - 1
}

// LastTerm returns the term of the last entry, or 0 for an empty log.
func (l *Log) LastTerm() message.Term {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// TermAt returns the term of the entry at index, or 0 if index < 0.
// Callers are expected to have already range-checked index < Len().
func (l *Log) TermAt(index int) message.Term {
	if index < 0 {
		return 0
	}
	return l.entries[index].Term
}

// At returns the entry at index. Panics if out of range; callers
// range-check first, matching the reference's trust-the-caller style.
func (l *Log) At(index int) Entry {
	return l.entries[index]
}

// Slice returns entries[from:], sharing no backing array with the log
// (callers may hold onto it across goroutine boundaries, e.g. to ship
// it out as AppendEntries payload).
func (l *Log) Slice(from int) []Entry {
	if from < 0 {
		from = 0
	}
	if from >= len(l.entries) {
		return nil
	}
	out := make([]Entry, len(l.entries)-from)
	copy(out, l.entries[from:])
	return out
}

// Append adds a single new entry at the end of the log and returns its
// index.
func (l *Log) Append(e Entry) int {
	l.entries = append(l.entries, e)
	return len(l.entries) - 1
}

// TruncateFrom discards entries[from:], implementing the Log Matching
// Property's truncate-on-divergence step: never append past a mismatch
// without truncating first.
func (l *Log) TruncateFrom(from int) {
	if from < 0 {
		from = 0
	}
	if from < len(l.entries) {
		l.entries = l.entries[:from]
	}
}

// MatchesAt reports whether the entry at index already has the given
// term (used for the prev_index/prev_term consistency check before a
// replicated suffix is applied).
func (l *Log) MatchesAt(index int, term message.Term) bool {
	return index >= 0 && index < len(l.entries) && l.entries[index].Term == term
}

// ReplaceSuffix overwrites/extends the log so that
// entries[from : from+len(suffix)] = suffix, truncating any divergent
// tail first. Entries before from are left untouched; an entry in
// range whose term matches is overwritten in place without discarding
// what follows it, satisfying the Log Matching Property.
func (l *Log) ReplaceSuffix(from int, suffix []Entry) {
	for i, e := range suffix {
		idx := from + i
		if idx < len(l.entries) {
			if l.entries[idx].Term == e.Term {
				l.entries[idx] = e
				continue
			}
			l.TruncateFrom(idx)
		}
		l.entries = append(l.entries, e)
	}
}

// CommitIndex returns the highest index known to be replicated to a
// majority and therefore safe to apply.
func (l *Log) CommitIndex() int {
	return l.commitIndex
}

// AdvanceCommitIndex raises commit_index to newIndex if it strictly
// increases it; commit_index is monotonically non-decreasing on any
// peer. Returns true if the index advanced.
func (l *Log) AdvanceCommitIndex(newIndex int) bool {
	if newIndex > l.commitIndex {
		l.commitIndex = newIndex
		return true
	}
	return false
}
