package clientfront

import (
	"net"
	"time"

	"kvraft/internal/message"
)

// Request dials addr, sends command as one framed line, and returns
// the framed reply. Used by the kvclient CLI; mirrors the wire format
// Server.serveOne expects.
func Request(addr, command string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	if err := message.WriteFrame(conn, []byte(command)); err != nil {
		return "", err
	}
	reply, err := message.ReadFrame(conn)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}
