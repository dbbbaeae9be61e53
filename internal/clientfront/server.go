// Package clientfront is the client-facing boundary of one peer
// (spec.md §4.7): a TCP listener, separate from the peer mesh, that
// reads one framed line per connection, submits it to the consensus
// engine, and writes back the state machine's reply.
package clientfront

import (
	"net"

	"github.com/rs/zerolog"

	"kvraft/internal/message"
)

// ReplyCouldNotExecute is returned to the client when the engine
// refuses or fails to apply the command (not leader, or it timed out
// waiting for commit), per spec.md §6's client wire format.
const ReplyCouldNotExecute = "Request could not be executed"

// Submitter is the subset of *raft.Engine the front-end depends on.
// Kept as an interface so tests can exercise the framing logic without
// a full consensus engine.
type Submitter interface {
	SubmitClientCommand(command string) (string, error)
}

// Server listens on one address and serves client requests by
// submitting each to engine and writing the reply back framed, one
// connection per request (spec.md §4.7: "accepts one client TCP
// connection per request").
type Server struct {
	engine   Submitter
	log      zerolog.Logger
	listener net.Listener
}

// New builds a Server bound to engine; call Listen to start serving.
func New(engine Submitter, log zerolog.Logger) *Server {
	return &Server{engine: engine, log: log}
}

// Listen starts accepting client connections on addr. Returns once the
// listener is bound; serving happens in a background goroutine.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = lis
	go s.acceptLoop(lis)
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops accepting new client connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) acceptLoop(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		go s.serveOne(conn)
	}
}

// serveOne handles exactly one framed request/response round trip,
// then closes the connection (spec.md §4.7).
func (s *Server) serveOne(conn net.Conn) {
	defer conn.Close()

	payload, err := message.ReadFrame(conn)
	if err != nil {
		s.log.Debug().Err(err).Msg("clientfront: dropping unreadable request")
		return
	}

	command := string(payload)
	reply, err := s.engine.SubmitClientCommand(command)
	if err != nil {
		s.log.Debug().Err(err).Str("command", command).Msg("clientfront: command refused")
		reply = ReplyCouldNotExecute
	}

	if err := message.WriteFrame(conn, []byte(reply)); err != nil {
		s.log.Debug().Err(err).Msg("clientfront: failed to write reply")
	}
}
