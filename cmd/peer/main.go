// Command peer runs one node of the fixed five-member raft cluster.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"kvraft/cluster"
	"kvraft/internal/clientfront"
	"kvraft/internal/message"
	"kvraft/internal/raft"
	"kvraft/internal/statemachine"
	"kvraft/internal/transport"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: peer <server-id 0..N-1>")
	}
	n, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatalf("invalid server id %q: %v", flag.Arg(0), err)
	}
	self := message.ServerId(n)

	topo := cluster.DefaultLocalTopology()
	if !topo.Valid(self) {
		log.Fatalf("server id %d is not a member of this %d-peer cluster", self, topo.N())
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	raftLog := raft.NewLogger(self, level)

	// enginePtr is published after raft.New returns; acceptLoop's
	// reader goroutine (started by mesh.Listen, below) can observe
	// inbound traffic before that happens, so the callback must load it
	// through an atomic rather than close over a plain *raft.Engine var.
	var enginePtr atomic.Pointer[raft.Engine]
	mesh := transport.New(self, zerolog.New(os.Stderr).Level(level), func() {
		if e := enginePtr.Load(); e != nil {
			e.ObserveLeaderContact()
		}
	})

	peerAddr, _ := topo.PeerAddress(self)
	if err := mesh.Listen(peerAddr); err != nil {
		log.Fatalf("failed to bind peer address %s: %v", peerAddr, err)
	}
	mesh.Run(context.Background())

	adapter := statemachine.NewAdapter(statemachine.NewKV())
	engine := raft.New(self, topo, mesh, adapter, raft.DefaultConfig(), raftLog)
	enginePtr.Store(engine)

	for _, peer := range topo.Peers(self) {
		addr, _ := topo.PeerAddress(peer)
		mesh.Connect(peer, addr)
	}

	engine.Start()

	front := clientfront.New(engine, zerolog.New(os.Stderr).Level(level))
	clientAddr, _ := topo.ClientAddress(self)
	if err := front.Listen(clientAddr); err != nil {
		log.Fatalf("failed to bind client address %s: %v", clientAddr, err)
	}

	log.Printf("peer %d listening: raft=%s client=%s", self, peerAddr, clientAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("peer %d shutting down", self)
	front.Close()
	engine.Stop()
	mesh.Close()
}
