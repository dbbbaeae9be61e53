package transport

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kvraft/internal/message"
)

// outboxDepth bounds how many unsent messages queue up for one peer;
// once it is full, further messages to that peer are dropped.
const outboxDepth = 256

// settleDelay is the pause before a freshly-started peerConn's first
// dial attempt, giving every other peer in the cluster time to finish
// binding its listener (mirrors original_source/raft.py, which dials
// peers from a background thread shortly after boot).
const settleDelay = 200 * time.Millisecond

// reconnectBackoff is how long a peerConn waits after a failed dial
// before trying again.
const reconnectBackoff = 500 * time.Millisecond

// peerConn owns the single outbound connection to one peer: a queue of
// unsent messages, and a goroutine that dials, writes, and reconnects
// on failure.
type peerConn struct {
	id   message.ServerId
	addr string
	log  zerolog.Logger

	outbox chan message.Message

	mu     sync.Mutex
	conn   net.Conn
	closed chan struct{}
}

func newPeerConn(id message.ServerId, addr string, log zerolog.Logger) *peerConn {
	return &peerConn{
		id:     id,
		addr:   addr,
		log:    log,
		outbox: make(chan message.Message, outboxDepth),
		closed: make(chan struct{}),
	}
}

func (pc *peerConn) enqueue(msg message.Message) {
	select {
	case pc.outbox <- msg:
	case <-pc.closed:
	default:
		// Outbox full: drop rather than block the sender. The
		// replication/election protocols retry on timeout, so a
		// dropped send just costs one round trip (spec.md §4.1:
		// delivery is best-effort and may duplicate or be lost).
		pc.log.Debug().Int("peer", int(pc.id)).Msg("transport: outbox full, dropping message")
	}
}

// run dials lazily and keeps writing until closed, reconnecting after
// any write failure.
func (pc *peerConn) run() {
	select {
	case <-time.After(settleDelay):
	case <-pc.closed:
		return
	}

	for {
		select {
		case <-pc.closed:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", pc.addr, dialTimeout)
		if err != nil {
			pc.log.Debug().Err(err).Int("peer", int(pc.id)).Msg("transport: dial failed, retrying")
			select {
			case <-time.After(reconnectBackoff):
				continue
			case <-pc.closed:
				return
			}
		}

		pc.mu.Lock()
		pc.conn = conn
		pc.mu.Unlock()

		pc.writeUntilBroken(conn)

		conn.Close()
		pc.mu.Lock()
		pc.conn = nil
		pc.mu.Unlock()
	}
}

// writeUntilBroken drains the outbox onto conn until a write fails or
// the peerConn is closed, at which point the caller reconnects.
func (pc *peerConn) writeUntilBroken(conn net.Conn) {
	for {
		select {
		case msg := <-pc.outbox:
			payload, err := message.Encode(msg)
			if err != nil {
				pc.log.Warn().Err(err).Msg("transport: dropping unencodable message")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
			if err := message.WriteFrame(conn, payload); err != nil {
				pc.log.Debug().Err(err).Int("peer", int(pc.id)).Msg("transport: write failed, re-enqueueing")
				pc.enqueue(msg)
				return
			}
		case <-pc.closed:
			return
		}
	}
}

func (pc *peerConn) close() {
	select {
	case <-pc.closed:
	default:
		close(pc.closed)
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.conn != nil {
		pc.conn.Close()
	}
}
