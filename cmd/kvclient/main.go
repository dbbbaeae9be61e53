// Command kvclient sends one SET/GET/DELETE command to a peer's
// client port and prints the reply.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"kvraft/cluster"
	"kvraft/internal/clientfront"
	"kvraft/internal/message"
)

func main() {
	serverID := flag.Int("server", 0, "server id to contact (0..N-1)")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: kvclient -server <id> SET|GET|DELETE <key> [value...]")
	}
	command := strings.Join(flag.Args(), " ")

	topo := cluster.DefaultLocalTopology()
	if !topo.Valid(message.ServerId(*serverID)) {
		log.Fatalf("server id %d is not a member of this %d-peer cluster", *serverID, topo.N())
	}
	addr, _ := topo.ClientAddress(message.ServerId(*serverID))

	reply, err := clientfront.Request(addr, command, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(reply)
}
