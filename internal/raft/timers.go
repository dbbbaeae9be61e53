package raft

import (
	"math/rand"
	"time"

	"kvraft/internal/message"
)

// runElectionChecker periodically compares time-since-last-leader-
// contact against LeaderCheckinMaxWait, randomizing its own sleep by a
// multiplier drawn from electionTimeoutMultipliers (spec.md §4.3) so
// that a network partition healing doesn't trigger every follower's
// election at once. It only takes action while not already Leader;
// while Leader it simply keeps sleeping so it's ready the moment this
// node steps down.
func (e *Engine) runElectionChecker() {
	defer e.wg.Done()
	for {
		multiplier := electionTimeoutMultipliers[rand.Intn(len(electionTimeoutMultipliers))]
		sleep := e.cfg.ElectionCheckFrequency + time.Duration(multiplier)*e.cfg.ElectionCheckFrequency

		select {
		case <-time.After(sleep):
		case <-e.shutdown:
			return
		}

		if e.currentRole() == Leader {
			continue
		}
		last := time.Unix(0, e.lastLeaderContact.Load())
		if time.Since(last) < e.cfg.LeaderCheckinMaxWait {
			continue
		}

		e.log.LogElectionTimeout()
		e.mesh.EnqueueLocal(message.Message{
			UUID:        message.NewUUID(),
			Source:      e.id,
			Destination: e.id,
			Kind:        message.KindElectionTimeout,
		})
	}
}

// runHeartbeatTicker enqueues a coalescing heartbeat tick every
// HeartbeatPeriod while this node believes itself Leader.
func (e *Engine) runHeartbeatTicker() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if e.currentRole() != Leader {
				continue
			}
			e.mesh.EnqueueHeartbeatTick(message.Message{
				UUID:        message.NewUUID(),
				Source:      e.id,
				Destination: e.id,
				Kind:        message.KindHeartBeatTick,
			})
		case <-e.shutdown:
			return
		}
	}
}
