package clientfront

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	reply string
	err   error
	got   string
}

func (s *stubSubmitter) SubmitClientCommand(command string) (string, error) {
	s.got = command
	return s.reply, s.err
}

func TestServerRoundTrip(t *testing.T) {
	stub := &stubSubmitter{reply: "Ok"}
	srv := New(stub, zerolog.Nop())
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	t.Cleanup(func() { srv.Close() })

	reply, err := Request(srv.Addr(), "SET x 100", time.Second)
	require.NoError(t, err)
	require.Equal(t, "Ok", reply)
	require.Equal(t, "SET x 100", stub.got)
}

func TestServerTranslatesEngineErrorToCouldNotExecute(t *testing.T) {
	stub := &stubSubmitter{err: errNotLeaderStub{}}
	srv := New(stub, zerolog.Nop())
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	t.Cleanup(func() { srv.Close() })

	reply, err := Request(srv.Addr(), "GET x", time.Second)
	require.NoError(t, err)
	require.Equal(t, ReplyCouldNotExecute, reply)
}

type errNotLeaderStub struct{}

func (errNotLeaderStub) Error() string { return "not leader" }
